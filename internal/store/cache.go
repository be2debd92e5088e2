package store

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
)

// cachedDocument holds the immutable content of one document version. Row
// metadata (name, indexed_at) can change without a new hash and is always
// read fresh.
type cachedDocument struct {
	rawText string
	tokens  []normalize.Token
}

// documentCache keeps recently used documents (raw text + token table) for
// snippet generation. Entries are keyed by ID and content hash, so a cached
// entry always matches the version it was read from and replaced documents
// simply age out.
type documentCache struct {
	lru *lru.Cache[string, *cachedDocument]
}

func newDocumentCache(size int) *documentCache {
	if size <= 0 {
		return &documentCache{}
	}
	c, _ := lru.New[string, *cachedDocument](size)
	return &documentCache{lru: c}
}

func cacheKey(id, hash string) string {
	return id + "\x00" + hash
}

func (c *documentCache) get(id, hash string) (*cachedDocument, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(cacheKey(id, hash))
}

func (c *documentCache) add(id, hash string, entry *cachedDocument) {
	if c.lru == nil {
		return
	}
	c.lru.Add(cacheKey(id, hash), entry)
}

func (c *documentCache) remove(id, hash string) {
	if c.lru == nil {
		return
	}
	c.lru.Remove(cacheKey(id, hash))
}

func (c *documentCache) len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *documentCache) purge() {
	if c.lru != nil {
		c.lru.Purge()
	}
}
