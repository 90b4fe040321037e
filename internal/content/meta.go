package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MetaFileNames lists the accepted metadata document names in lookup order.
var MetaFileNames = []string{"_meta.yaml", "_meta.yml"}

// Schema selects the known entry shape of a collection.
type Schema string

const (
	SchemaGeneric Schema = ""
	SchemaPost    Schema = "post"
	SchemaPage    Schema = "page"
)

// Valid reports whether s is a known schema.
func (s Schema) Valid() bool {
	switch s {
	case SchemaGeneric, SchemaPost, SchemaPage:
		return true
	}
	return false
}

// CollectionMeta is the optional per-collection descriptor. The zero value is
// the default used when no metadata document exists.
type CollectionMeta struct {
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Order ranks the collection among its siblings.
	Order int `yaml:"order,omitempty" json:"order"`
	// Weight is the ordering weight given to entries that omit one.
	Weight     int      `yaml:"weight,omitempty" json:"weight"`
	Schema     Schema   `yaml:"schema,omitempty" json:"schema,omitempty"`
	References []string `yaml:"references,omitempty" json:"references,omitempty"`
	// Defaults are entry params applied when an entry omits the key.
	Defaults map[string]any `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	// Extra holds unknown keys, passed through untouched.
	Extra map[string]any `yaml:",inline" json:"extra,omitempty"`
}

// ReferenceFields returns the entry fields treated as references: the
// declared ones plus the schema's implicit fields, deduplicated.
func (m CollectionMeta) ReferenceFields() []string {
	fields := make([]string, 0, len(m.References)+1)
	seen := make(map[string]struct{}, len(m.References)+1)
	add := func(f string) {
		if _, ok := seen[f]; ok || f == "" {
			return
		}
		seen[f] = struct{}{}
		fields = append(fields, f)
	}
	for _, f := range m.References {
		add(f)
	}
	if m.Schema == SchemaPost {
		add("related")
	}
	return fields
}

// LoadMeta loads the metadata document of dir. A missing document yields the
// default CollectionMeta; a malformed one yields a *MetadataParseError.
func LoadMeta(dir CollectionDirectory) (CollectionMeta, error) {
	for _, name := range MetaFileNames {
		path := filepath.Join(dir.Path, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return CollectionMeta{}, &MetadataParseError{Collection: dir.Name, Path: path, Err: err}
		}
		return parseMeta(dir.Name, path, data)
	}
	return CollectionMeta{}, nil
}

func parseMeta(collection, path string, data []byte) (CollectionMeta, error) {
	var meta CollectionMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return CollectionMeta{}, &MetadataParseError{Collection: collection, Path: path, Err: err}
	}
	if !meta.Schema.Valid() {
		return CollectionMeta{}, &MetadataParseError{
			Collection: collection,
			Path:       path,
			Err:        fmt.Errorf("unknown schema %q", meta.Schema),
		}
	}
	if len(meta.Extra) == 0 {
		meta.Extra = nil
	}
	return meta, nil
}
