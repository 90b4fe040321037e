package content

import (
	"fmt"

	kerrors "git.home.luguber.info/inful/sitekit/internal/errors"
)

// MetadataParseError reports a collection metadata document that exists but
// cannot be parsed. It fails the whole registry build.
type MetadataParseError struct {
	Collection string
	Path       string
	Err        error
}

func (e *MetadataParseError) Error() string {
	return fmt.Sprintf("collection %q: malformed metadata document %s: %v", e.Collection, e.Path, e.Err)
}

func (e *MetadataParseError) Unwrap() error { return e.Err }

func (e *MetadataParseError) ErrorCategory() kerrors.ErrorCategory { return kerrors.CategoryContent }

// CollectionNotFoundError is returned by Registry.Get for unknown names.
type CollectionNotFoundError struct {
	Name string
}

func (e *CollectionNotFoundError) Error() string {
	return fmt.Sprintf("collection %q not found", e.Name)
}

func (e *CollectionNotFoundError) ErrorCategory() kerrors.ErrorCategory { return kerrors.CategoryContent }

// InvalidEntryError reports a structurally invalid entry. It is scoped to one
// entry; callers preparing entries independently may continue with the rest.
type InvalidEntryError struct {
	Collection string
	Slug       string
	Field      string // empty when the violation is not tied to a field
	Reason     string
}

func (e *InvalidEntryError) Error() string {
	id := e.Collection + "/" + e.Slug
	if e.Slug == "" {
		id = e.Collection + "/<no slug>"
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid entry %s: field %q: %s", id, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid entry %s: %s", id, e.Reason)
}

func (e *InvalidEntryError) ErrorCategory() kerrors.ErrorCategory { return kerrors.CategoryContent }
