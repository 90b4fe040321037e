package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyCollection = "collection"
	KeySlug       = "slug"
	KeyField      = "field"
	KeyTarget     = "target"
	KeyPath       = "path"
	KeyHook       = "hook"
	KeyEvent      = "event"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr       { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Collection(name string) slog.Attr  { return slog.String(KeyCollection, name) }
func Slug(s string) slog.Attr           { return slog.String(KeySlug, s) }
func Field(name string) slog.Attr       { return slog.String(KeyField, name) }
func Target(t string) slog.Attr         { return slog.String(KeyTarget, t) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Hook(name string) slog.Attr        { return slog.String(KeyHook, name) }
func Event(name string) slog.Attr       { return slog.String(KeyEvent, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
