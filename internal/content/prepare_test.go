package content

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func blogDescriptor(meta CollectionMeta) Descriptor {
	return Descriptor{
		Directory: CollectionDirectory{Name: "blog", Path: "/content/blog"},
		Meta:      meta,
	}
}

// mapLookup builds a LookupFunc over a fixed set of entries.
func mapLookup(entries ...Entry) LookupFunc {
	idx := make(map[Ref]Entry, len(entries))
	for _, e := range entries {
		idx[Ref{Collection: e.Collection, Slug: e.Slug}] = e
	}
	return func(collection, slug string) (Entry, bool) {
		e, ok := idx[Ref{Collection: collection, Slug: slug}]
		return e, ok
	}
}

func TestPrepare_ResolvesExistingReference(t *testing.T) {
	b := Entry{Collection: "blog", Slug: "b", Title: "Post B", Description: "second", Weight: intPtr(3)}
	a := Entry{Collection: "blog", Slug: "a", Title: "Post A", Params: map[string]any{"next": "b"}}
	desc := blogDescriptor(CollectionMeta{References: []string{"next"}})

	p, err := Prepare(a, desc, mapLookup(a, b))
	require.NoError(t, err)
	require.Empty(t, p.Diagnostics)
	require.Equal(t, "blog", p.Collection)

	target := p.Reference("next")
	require.NotNil(t, target)
	require.Equal(t, Projection{Collection: "blog", Slug: "b", Title: "Post B", Description: "second"}, *target)
	require.True(t, p.References["next"][0].Resolved())
}

func TestPrepare_UnresolvedReferenceYieldsSentinelAndOneDiagnostic(t *testing.T) {
	a := Entry{Collection: "blog", Slug: "a", Params: map[string]any{"next": "missing"}}
	desc := blogDescriptor(CollectionMeta{References: []string{"next"}})

	p, err := Prepare(a, desc, mapLookup(a))
	require.NoError(t, err)

	refs := p.References["next"]
	require.Len(t, refs, 1)
	require.False(t, refs[0].Resolved())
	require.Nil(t, refs[0].Target)
	require.Equal(t, Ref{Collection: "blog", Slug: "missing"}, refs[0].Ref)

	require.Len(t, p.Diagnostics, 1)
	d := p.Diagnostics[0]
	require.Equal(t, "blog", d.Collection)
	require.Equal(t, "a", d.Slug)
	require.Equal(t, "next", d.Field)
	require.Equal(t, "missing", d.Target)
}

func TestPrepare_CrossCollectionListAndMalformedIdentifiers(t *testing.T) {
	intro := Entry{Collection: "docs", Slug: "intro", Title: "Intro"}
	a := Entry{
		Collection: "blog",
		Slug:       "a",
		Date:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Params: map[string]any{
			"related": []any{"docs/intro", "a", "too/many/parts", ""},
		},
	}
	desc := blogDescriptor(CollectionMeta{Schema: SchemaPost})

	p, err := Prepare(a, desc, mapLookup(intro, a))
	require.NoError(t, err)

	refs := p.References["related"]
	require.Len(t, refs, 4)
	require.Equal(t, "Intro", refs[0].Target.Title)
	require.Equal(t, "docs", refs[0].Target.Collection)
	// Self references embed a projection and do not recurse.
	require.Equal(t, "a", refs[1].Target.Slug)
	require.False(t, refs[2].Resolved())
	require.False(t, refs[3].Resolved())
	require.Len(t, p.Diagnostics, 2)
	require.Equal(t, "too/many/parts", p.Diagnostics[0].Target)
}

func TestPrepare_CyclicReferencesStayOneHop(t *testing.T) {
	a := Entry{Collection: "blog", Slug: "a", Params: map[string]any{"next": "b"}}
	b := Entry{Collection: "blog", Slug: "b", Params: map[string]any{"next": "a"}}
	desc := blogDescriptor(CollectionMeta{References: []string{"next"}})
	lookup := mapLookup(a, b)

	pa, err := Prepare(a, desc, lookup)
	require.NoError(t, err)
	pb, err := Prepare(b, desc, lookup)
	require.NoError(t, err)

	require.Equal(t, "b", pa.Reference("next").Slug)
	require.Equal(t, "a", pb.Reference("next").Slug)
}

func TestPrepare_AppliesDefaultsWithoutOverwritingAuthoredValues(t *testing.T) {
	desc := blogDescriptor(CollectionMeta{
		Weight:   50,
		Defaults: map[string]any{"layout": "article", "toc": true, "authors": []any{"staff"}},
	})

	omitted := Entry{Collection: "blog", Slug: "x"}
	p, err := Prepare(omitted, desc, nil)
	require.NoError(t, err)
	require.Equal(t, 50, *p.Entry.Weight)
	require.Equal(t, map[string]any{"layout": "article", "toc": true, "authors": []any{"staff"}}, p.Entry.Params)

	authored := Entry{Collection: "blog", Slug: "y", Weight: intPtr(0), Params: map[string]any{"toc": false}}
	p, err = Prepare(authored, desc, nil)
	require.NoError(t, err)
	require.Equal(t, 0, *p.Entry.Weight)
	require.Equal(t, false, p.Entry.Params["toc"])
	require.Equal(t, "article", p.Entry.Params["layout"])

	// Prepared output must not alias descriptor defaults.
	p.Entry.Params["authors"].([]any)[0] = "changed"
	require.Equal(t, []any{"staff"}, desc.Meta.Defaults["authors"])
	require.Nil(t, authored.Params["layout"])
}

func TestPrepare_IsIdempotent(t *testing.T) {
	b := Entry{Collection: "blog", Slug: "b", Title: "B"}
	a := Entry{
		Collection: "blog",
		Slug:       "a",
		Date:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Tags:       []string{"go"},
		Params:     map[string]any{"related": []any{"b", "nope"}, "extra": map[string]any{"k": "v"}},
	}
	desc := blogDescriptor(CollectionMeta{Schema: SchemaPost, Weight: 5, Defaults: map[string]any{"layout": "post"}})
	lookup := mapLookup(a, b)

	first, err := Prepare(a, desc, lookup)
	require.NoError(t, err)
	second, err := Prepare(a, desc, lookup)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestPrepare_ConcurrentCallsAreIndependent(t *testing.T) {
	b := Entry{Collection: "blog", Slug: "b", Title: "B"}
	desc := blogDescriptor(CollectionMeta{References: []string{"next"}, Defaults: map[string]any{"m": map[string]any{"x": 1}}})
	lookup := mapLookup(b)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := Entry{Collection: "blog", Slug: "a", Params: map[string]any{"next": "b"}}
			p, err := Prepare(e, desc, lookup)
			if err == nil {
				p.Entry.Params["m"].(map[string]any)["x"] = 2
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, desc.Meta.Defaults["m"].(map[string]any)["x"])
}

func TestPrepare_StructuralViolations(t *testing.T) {
	desc := blogDescriptor(CollectionMeta{References: []string{"next"}})
	post := blogDescriptor(CollectionMeta{Schema: SchemaPost})

	tests := []struct {
		name  string
		entry Entry
		desc  Descriptor
		field string
	}{
		{"missing slug", Entry{Collection: "blog"}, desc, "slug"},
		{"blank slug", Entry{Collection: "blog", Slug: "  "}, desc, "slug"},
		{"missing collection", Entry{Slug: "a"}, desc, ""},
		{"collection mismatch", Entry{Collection: "docs", Slug: "a"}, desc, ""},
		{"empty descriptor", Entry{Collection: "blog", Slug: "a"}, Descriptor{}, ""},
		{"bad reference type", Entry{Collection: "blog", Slug: "a", Params: map[string]any{"next": 42}}, desc, "next"},
		{"bad reference list item", Entry{Collection: "blog", Slug: "a", Params: map[string]any{"next": []any{"b", 1}}}, desc, "next"},
		{"post without date", Entry{Collection: "blog", Slug: "a"}, post, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(tt.entry, tt.desc, mapLookup())
			var ie *InvalidEntryError
			require.True(t, errors.As(err, &ie), "got %v", err)
			require.Equal(t, tt.field, ie.Field)
		})
	}
}

func TestPrepare_AbsentReferenceFieldProducesNothing(t *testing.T) {
	desc := blogDescriptor(CollectionMeta{References: []string{"next"}})
	p, err := Prepare(Entry{Collection: "blog", Slug: "a"}, desc, nil)
	require.NoError(t, err)
	require.Nil(t, p.References)
	require.Empty(t, p.Diagnostics)
	require.Nil(t, p.Reference("next"))
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		raw     string
		want    Ref
		wantErr bool
	}{
		{"hello", Ref{Collection: "blog", Slug: "hello"}, false},
		{" docs/intro ", Ref{Collection: "docs", Slug: "intro"}, false},
		{"authors / ada", Ref{Collection: "authors", Slug: "ada"}, false},
		{" /ada", Ref{}, true},
		{"", Ref{}, true},
		{"/intro", Ref{}, true},
		{"docs/", Ref{}, true},
		{"a/b/c", Ref{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRef(tt.raw, "blog")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
