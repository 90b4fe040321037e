package content

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	kerrors "git.home.luguber.info/inful/sitekit/internal/errors"
)

// Descriptor pairs a collection directory with its loaded metadata.
type Descriptor struct {
	Directory CollectionDirectory `json:"directory"`
	Meta      CollectionMeta      `json:"meta"`
}

// Name returns the collection name.
func (d Descriptor) Name() string { return d.Directory.Name }

// DisplayTitle returns the metadata title, or the collection name in title
// case when the metadata has none.
func (d Descriptor) DisplayTitle() string {
	if d.Meta.Title != "" {
		return d.Meta.Title
	}
	words := strings.NewReplacer("-", " ", "_", " ").Replace(d.Directory.Name)
	return cases.Title(language.English).String(words)
}

// Registry maps collection names to descriptors. It is built once per scan and
// only read afterwards; a reload builds a new Registry.
type Registry struct {
	root   string
	names  []string
	byName map[string]Descriptor
}

// BuildRegistry scans root and loads every collection's metadata. Any metadata
// parse failure fails the whole build so renderers never see a partial registry.
func BuildRegistry(root string) (*Registry, error) {
	dirs, err := ListCollectionDirectories(root)
	if err != nil {
		return nil, kerrors.FileSystemError("scan content root", err).WithContext("path", root)
	}

	r := &Registry{
		root:   root,
		names:  make([]string, 0, len(dirs)),
		byName: make(map[string]Descriptor, len(dirs)),
	}
	for _, dir := range dirs {
		meta, err := LoadMeta(dir)
		if err != nil {
			return nil, err
		}
		r.names = append(r.names, dir.Name)
		r.byName[dir.Name] = Descriptor{Directory: dir, Meta: meta}
	}
	return r, nil
}

// Root returns the content root the registry was built from.
func (r *Registry) Root() string { return r.root }

// Len returns the number of collections.
func (r *Registry) Len() int { return len(r.names) }

// Names returns the collection names in lexical order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Get returns the descriptor for name or a *CollectionNotFoundError.
func (r *Registry) Get(name string) (Descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, &CollectionNotFoundError{Name: name}
	}
	return d, nil
}

// Ordered returns descriptors sorted by metadata order, then name.
func (r *Registry) Ordered() []Descriptor {
	out := make([]Descriptor, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.byName[n])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Meta.Order < out[j].Meta.Order
	})
	return out
}
