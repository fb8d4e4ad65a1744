package texture

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// extRank orders formats for the same stem. Formats that carry alpha win.
var extRank = map[string]int{
	".jpg":  1,
	".jpeg": 1,
	".bmp":  2,
	".tif":  3,
	".tiff": 3,
	".webp": 4,
	".tga":  5,
	".png":  6,
}

// Index maps lowercase texture stems to filesystem paths.
type Index struct {
	entries map[string]string // stem.lower() → full path
}

// BuildIndex walks dir and its subdirectories for decodable textures.
func BuildIndex(dir string) (*Index, error) {
	idx := &Index{entries: make(map[string]string)}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			idx.add(path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("texture: index %s: %w", dir, err)
	}
	return idx, nil
}

func (idx *Index) add(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	rank, ok := extRank[ext]
	if !ok {
		return
	}
	stem := stemOf(path)
	if existing, exists := idx.entries[stem]; exists && extRank[strings.ToLower(filepath.Ext(existing))] >= rank {
		return
	}
	idx.entries[stem] = path
}

// ResolvePath returns the filesystem path for a texture reference, or ("", false).
// Only the file stem of name is significant.
func (idx *Index) ResolvePath(name string) (string, bool) {
	path, ok := idx.entries[stemOf(strings.ReplaceAll(name, "\\", "/"))]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
