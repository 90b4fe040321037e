// Package contentstore loads raw entries from collection directories on disk
// and serves them to the entry preparer as its lookup collaborator.
package contentstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitekit/internal/content"
	"git.home.luguber.info/inful/sitekit/internal/logfields"
)

// EntryExtensions are the file extensions treated as entry documents.
var EntryExtensions = []string{".md", ".markdown"}

// FileError is a per-file problem found while loading entries. It never
// aborts loading of other files.
type FileError struct {
	Collection string
	Path       string
	Err        error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("collection %q: %s: %v", e.Collection, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Store is an immutable index of raw entries keyed by collection and slug.
type Store struct {
	byCollection map[string][]content.Entry
	index        map[content.Ref]content.Entry
	problems     []FileError
}

// Load reads every entry document of every collection in reg. Directory read
// failures are returned as errors; malformed files are recorded as Problems.
func Load(reg *content.Registry) (*Store, error) {
	s := &Store{
		byCollection: make(map[string][]content.Entry, reg.Len()),
		index:        make(map[content.Ref]content.Entry),
	}
	for _, name := range reg.Names() {
		desc, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		if err := s.loadCollection(desc.Directory); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) loadCollection(dir content.CollectionDirectory) error {
	files, err := os.ReadDir(dir.Path)
	if err != nil {
		return fmt.Errorf("read collection %q: %w", dir.Name, err)
	}
	entries := make([]content.Entry, 0, len(files))
	for _, f := range files {
		if f.IsDir() || content.IsReservedName(f.Name()) || !isEntryFile(f.Name()) {
			continue
		}
		path := filepath.Join(dir.Path, f.Name())
		e, err := readEntry(dir.Name, path)
		if err != nil {
			s.problems = append(s.problems, FileError{Collection: dir.Name, Path: path, Err: err})
			continue
		}
		ref := content.Ref{Collection: dir.Name, Slug: e.Slug}
		if prev, dup := s.index[ref]; dup {
			s.problems = append(s.problems, FileError{
				Collection: dir.Name,
				Path:       path,
				Err:        fmt.Errorf("duplicate slug %q (already defined by %s)", e.Slug, prev.SourcePath),
			})
			continue
		}
		s.index[ref] = e
		entries = append(entries, e)
	}
	s.byCollection[dir.Name] = entries
	slog.Debug("Loaded collection entries", logfields.Collection(dir.Name), slog.Int("entries", len(entries)))
	return nil
}

// Lookup implements content.LookupFunc.
func (s *Store) Lookup(collection, slug string) (content.Entry, bool) {
	e, ok := s.index[content.Ref{Collection: collection, Slug: slug}]
	return e, ok
}

// Entries returns the raw entries of a collection in file name order.
func (s *Store) Entries(collection string) []content.Entry {
	src := s.byCollection[collection]
	out := make([]content.Entry, len(src))
	copy(out, src)
	return out
}

// Len returns the total number of loaded entries.
func (s *Store) Len() int { return len(s.index) }

// Problems returns per-file load failures.
func (s *Store) Problems() []FileError {
	out := make([]FileError, len(s.problems))
	copy(out, s.problems)
	return out
}

func isEntryFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range EntryExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func readEntry(collection, path string) (content.Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return content.Entry{}, err
	}
	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return content.Entry{}, err
	}
	fields, err := parseFields(fm)
	if err != nil {
		return content.Entry{}, fmt.Errorf("parse frontmatter: %w", err)
	}

	e := content.Entry{
		Collection:  collection,
		Slug:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Body:        string(body),
		SourcePath:  path,
		Fingerprint: mdfp.CalculateFingerprintFromParts(string(fm), string(body)),
	}
	if err := applyFields(&e, fields); err != nil {
		return content.Entry{}, err
	}
	if e.Title == "" {
		e.Title = firstHeading(body)
	}
	return e, nil
}

// applyFields moves known frontmatter keys onto typed Entry fields and keeps
// the rest as params.
func applyFields(e *content.Entry, fields map[string]any) error {
	params := make(map[string]any, len(fields))
	for k, v := range fields {
		var err error
		switch k {
		case "slug":
			e.Slug, err = stringField(k, v)
		case "collection":
			// Kept so a mismatch with the containing directory is caught at preparation.
			e.Collection, err = stringField(k, v)
		case "title":
			e.Title, err = stringField(k, v)
		case "description":
			e.Description, err = stringField(k, v)
		case "date":
			e.Date, err = dateField(v)
		case "weight":
			w, ok := v.(int)
			if !ok {
				err = fmt.Errorf("field %q: want integer, got %T", k, v)
			}
			e.Weight = &w
		case "draft":
			d, ok := v.(bool)
			if !ok {
				err = fmt.Errorf("field %q: want boolean, got %T", k, v)
			}
			e.Draft = d
		case "tags":
			e.Tags, err = stringList(k, v)
		case mdfp.FingerprintField:
			// Authored fingerprints are replaced by the computed one.
		default:
			params[k] = v
		}
		if err != nil {
			return err
		}
	}
	if len(params) > 0 {
		e.Params = params
	}
	return nil
}

func stringField(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: want string, got %T", key, v)
	}
	return strings.TrimSpace(s), nil
}

func stringList(key string, v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %q: want list of strings, got item %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q: want list of strings, got %T", key, v)
	}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func dateField(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return d, nil
			}
		}
		return time.Time{}, fmt.Errorf("field \"date\": unrecognized date %q", t)
	default:
		return time.Time{}, fmt.Errorf("field \"date\": want date, got %T", v)
	}
}
