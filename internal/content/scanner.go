package content

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CollectionDirectory is a discovered collection directory. It is created
// fresh on every scan and never mutated.
type CollectionDirectory struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// IsReservedName reports whether a directory or file name is excluded from
// content discovery (hidden "." entries and "_" partials/metadata).
func IsReservedName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// ListCollectionDirectories returns the qualifying subdirectories of root in
// lexical order. A missing root yields an empty result.
func ListCollectionDirectories(root string) ([]CollectionDirectory, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []CollectionDirectory{}, nil
		}
		return nil, err
	}

	// os.ReadDir returns entries sorted by filename.
	dirs := make([]CollectionDirectory, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if IsReservedName(name) {
			continue
		}
		path := filepath.Join(root, name)
		if !isDir(e, path) {
			continue
		}
		dirs = append(dirs, CollectionDirectory{Name: name, Path: path})
	}
	return dirs, nil
}

func isDir(e fs.DirEntry, path string) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
