package texture

import (
	"image"
	"sync"

	"usd-scene-translator/internal/scenegraph"
)

// Cache is a concurrency-safe texture cache.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	index *Index
}

type cacheEntry struct {
	img  *image.NRGBA
	info *scenegraph.TextureInfo
}

// NewCache creates a new texture cache backed by the given index.
func NewCache(index *Index) *Cache {
	return &Cache{
		items: make(map[string]*cacheEntry),
		index: index,
	}
}

// Resolve loads and caches a texture by reference. Returns nil if not found
// or not decodable.
func (c *Cache) Resolve(name string) *image.NRGBA {
	if e := c.entry(name); e != nil {
		return e.img
	}
	return nil
}

// ResolveTexture describes the texture a material references.
func (c *Cache) ResolveTexture(name string) (*scenegraph.TextureInfo, bool) {
	e := c.entry(name)
	if e == nil || e.info == nil {
		return nil, false
	}
	info := *e.info
	return &info, true
}

func (c *Cache) entry(name string) *cacheEntry {
	path, ok := c.index.ResolvePath(name)
	if !ok {
		return nil
	}

	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	entry := &cacheEntry{}
	if img, err := LoadTexture(path); err == nil {
		b := img.Bounds()
		entry.img = img
		entry.info = &scenegraph.TextureInfo{
			Path:    path,
			Width:   b.Dx(),
			Height:  b.Dy(),
			Average: AverageColor(img),
		}
	}

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, exists := c.items[path]; exists {
		return existing
	}
	c.items[path] = entry
	return entry
}
