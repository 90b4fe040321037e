package content

import (
	"fmt"
	"sort"
	"strings"
)

// LookupFunc finds a raw entry by collection and slug. It is supplied by the
// content loader; its concurrency safety is the caller's concern.
type LookupFunc func(collection, slug string) (Entry, bool)

// Prepare normalizes entry against its collection descriptor and resolves its
// reference fields one hop deep through lookup.
//
// Structural violations return *InvalidEntryError. Missing reference targets
// never fail: they resolve to the unresolved sentinel and add one Diagnostic
// per target.
func Prepare(entry Entry, desc Descriptor, lookup LookupFunc) (PreparedEntry, error) {
	collection := desc.Name()
	if err := validate(entry, desc); err != nil {
		return PreparedEntry{}, err
	}

	normalized := normalize(entry, desc.Meta)

	out := PreparedEntry{
		Entry:      normalized,
		Collection: collection,
		Meta:       cloneMeta(desc.Meta),
		Schema:     desc.Meta.Schema,
	}

	fields := desc.Meta.ReferenceFields()
	sort.Strings(fields)
	for _, field := range fields {
		raw, ok := normalized.Params[field]
		if !ok || raw == nil {
			continue
		}
		ids, err := referenceValues(raw)
		if err != nil {
			return PreparedEntry{}, &InvalidEntryError{
				Collection: collection,
				Slug:       entry.Slug,
				Field:      field,
				Reason:     err.Error(),
			}
		}
		resolved := make([]ResolvedReference, 0, len(ids))
		for _, id := range ids {
			rr, diag := resolve(id, normalized, field, lookup)
			resolved = append(resolved, rr)
			if diag != nil {
				out.Diagnostics = append(out.Diagnostics, *diag)
			}
		}
		if out.References == nil {
			out.References = make(map[string][]ResolvedReference, len(fields))
		}
		out.References[field] = resolved
	}
	return out, nil
}

func validate(entry Entry, desc Descriptor) error {
	collection := desc.Name()
	invalid := func(field, reason string) error {
		c := entry.Collection
		if c == "" {
			c = collection
		}
		return &InvalidEntryError{Collection: c, Slug: entry.Slug, Field: field, Reason: reason}
	}

	switch {
	case collection == "":
		return invalid("", "descriptor has no collection")
	case strings.TrimSpace(entry.Slug) == "":
		return invalid("slug", "missing slug")
	case entry.Collection == "":
		return invalid("", "entry has no collection")
	case entry.Collection != collection:
		return invalid("", fmt.Sprintf("entry claims collection %q but was presented with %q", entry.Collection, collection))
	case desc.Meta.Schema == SchemaPost && entry.Date.IsZero():
		return invalid("date", "post entries require a date")
	}
	return nil
}

func normalize(entry Entry, meta CollectionMeta) Entry {
	out := entry
	if entry.Weight == nil {
		w := meta.Weight
		out.Weight = &w
	} else {
		w := *entry.Weight
		out.Weight = &w
	}
	if entry.Tags != nil {
		out.Tags = append([]string(nil), entry.Tags...)
	}

	params := make(map[string]any, len(entry.Params)+len(meta.Defaults))
	for k, v := range entry.Params {
		params[k] = cloneValue(v)
	}
	for k, v := range meta.Defaults {
		if _, authored := params[k]; !authored {
			params[k] = cloneValue(v)
		}
	}
	if len(params) == 0 {
		params = nil
	}
	out.Params = params
	return out
}

// referenceValues accepts a single identifier or a list of identifiers.
func referenceValues(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("reference list item %d is %T, want string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("reference value is %T, want string or list of strings", v)
	}
}

func resolve(raw string, from Entry, field string, lookup LookupFunc) (ResolvedReference, *Diagnostic) {
	rr := ResolvedReference{Raw: raw}
	diag := &Diagnostic{Collection: from.Collection, Slug: from.Slug, Field: field, Target: raw}

	ref, err := ParseRef(raw, from.Collection)
	if err != nil {
		diag.Message = err.Error()
		return rr, diag
	}
	rr.Ref = ref

	if lookup == nil {
		diag.Message = "no entry lookup available"
		return rr, diag
	}
	target, ok := lookup(ref.Collection, ref.Slug)
	if !ok {
		diag.Message = "reference target not found"
		return rr, diag
	}
	rr.Target = project(target, ref)
	return rr, nil
}

func project(e Entry, ref Ref) *Projection {
	p := &Projection{
		Collection:  e.Collection,
		Slug:        e.Slug,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
	}
	if p.Collection == "" {
		p.Collection = ref.Collection
	}
	if p.Slug == "" {
		p.Slug = ref.Slug
	}
	return p
}

func cloneMeta(m CollectionMeta) CollectionMeta {
	out := m
	if m.References != nil {
		out.References = append([]string(nil), m.References...)
	}
	if m.Defaults != nil {
		out.Defaults = cloneValue(m.Defaults).(map[string]any)
	}
	if m.Extra != nil {
		out.Extra = cloneValue(m.Extra).(map[string]any)
	}
	return out
}

// cloneValue deep-copies the container types produced by YAML decoding so
// prepared entries never alias descriptor or raw entry state.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
