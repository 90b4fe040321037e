package content

import (
	"fmt"
	"strings"
	"time"
)

// Entry is a raw content unit supplied by an external loader. It belongs to
// exactly one collection and is identified by a slug unique within it.
type Entry struct {
	Collection  string    `json:"collection"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date,omitzero"`
	// Weight is nil when the entry does not author one.
	Weight *int     `json:"weight,omitempty"`
	Draft  bool     `json:"draft,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	// Params holds schema-less extension fields, including reference fields.
	Params      map[string]any `json:"params,omitempty"`
	Body        string         `json:"-"`
	SourcePath  string         `json:"source_path,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
}

// Ref identifies an entry by collection and slug.
type Ref struct {
	Collection string `json:"collection"`
	Slug       string `json:"slug"`
}

func (r Ref) String() string { return r.Collection + "/" + r.Slug }

// ParseRef parses "slug" (relative to collection) or "collection/slug".
func ParseRef(raw, collection string) (Ref, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ref{}, fmt.Errorf("empty reference")
	}
	parts := strings.Split(s, "/")
	switch {
	case len(parts) == 1:
		return Ref{Collection: collection, Slug: s}, nil
	case len(parts) == 2:
		c, slug := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if c == "" || slug == "" {
			return Ref{}, fmt.Errorf("malformed reference %q", raw)
		}
		return Ref{Collection: c, Slug: slug}, nil
	default:
		return Ref{}, fmt.Errorf("malformed reference %q", raw)
	}
}

// Projection is the minimal public view of a referenced entry. It never
// carries the target's own references, which bounds expansion to one hop.
// Ordering weight is left out: it depends on the target's collection
// defaults, which only the target's own preparation applies.
type Projection struct {
	Collection  string    `json:"collection"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date,omitzero"`
}

// ResolvedReference is one resolved reference target. A nil Target is the
// unresolved sentinel.
type ResolvedReference struct {
	Raw    string      `json:"raw"`
	Ref    Ref         `json:"ref"`
	Target *Projection `json:"target"`
}

// Resolved reports whether the reference points at an existing entry.
func (r ResolvedReference) Resolved() bool { return r.Target != nil }

// Diagnostic is a non-fatal authoring problem found during preparation.
type Diagnostic struct {
	Collection string `json:"collection"`
	Slug       string `json:"slug"`
	Field      string `json:"field"`
	Target     string `json:"target"`
	Message    string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s/%s: %s: %s (%s)", d.Collection, d.Slug, d.Field, d.Message, d.Target)
}

// PreparedEntry is the renderer-ready form of an Entry. It is built per
// request and not cached.
type PreparedEntry struct {
	Entry      Entry          `json:"entry"`
	Collection string         `json:"collection"`
	Meta       CollectionMeta `json:"collection_meta"`
	Schema     Schema         `json:"schema,omitempty"`
	// References maps each present reference field to its targets in authored order.
	References  map[string][]ResolvedReference `json:"references,omitempty"`
	Diagnostics []Diagnostic                   `json:"diagnostics,omitempty"`
}

// Reference returns the first target of field, or nil when the field is absent
// or its first target is unresolved.
func (p PreparedEntry) Reference(field string) *Projection {
	refs := p.References[field]
	if len(refs) == 0 {
		return nil
	}
	return refs[0].Target
}

// Permalink returns the site-relative path of the entry.
func (p PreparedEntry) Permalink() string {
	return "/" + p.Collection + "/" + p.Entry.Slug + "/"
}
