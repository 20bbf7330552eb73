package lootdb

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// AssetLoader resolves document references. Identity maps a reference onto
// the stable key documents are cached under; two references with the same
// identity are the same document.
type AssetLoader interface {
	Identity(ref string) string
	Load(identity string) ([]byte, error)
}

// FSLoader reads documents from a file system.
type FSLoader struct {
	FS fs.FS
}

// NewDirLoader reads documents below root.
func NewDirLoader(root string) FSLoader {
	return FSLoader{FS: os.DirFS(root)}
}

// Identity cleans ref into a slash-separated path relative to the root.
func (l FSLoader) Identity(ref string) string {
	return cleanRef(ref)
}

func (l FSLoader) Load(identity string) ([]byte, error) {
	if l.FS == nil {
		return nil, fmt.Errorf("load %s: no file system", identity)
	}
	data, err := fs.ReadFile(l.FS, identity)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", identity, err)
	}
	return data, nil
}

// MapLoader serves documents from memory, keyed by cleaned reference.
type MapLoader map[string][]byte

func (l MapLoader) Identity(ref string) string {
	return cleanRef(ref)
}

func (l MapLoader) Load(identity string) ([]byte, error) {
	data, ok := l[identity]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", identity, fs.ErrNotExist)
	}
	return data, nil
}

func cleanRef(ref string) string {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "\\", "/")
	cleaned := path.Clean("/" + ref)
	return strings.TrimPrefix(cleaned, "/")
}

// CleanRef normalizes a document reference the way the built-in loaders key
// documents.
func CleanRef(ref string) string {
	return cleanRef(ref)
}
