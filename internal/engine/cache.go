package engine

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/threadview/internal/model"
)

// DefaultCacheSize is the number of sorted forests kept per engine.
const DefaultCacheSize = 8

// forestKey identifies one sorted forest: the tree generation it was sorted
// from and the mode used.
type forestKey struct {
	generation int64
	mode       model.SortMode
}

// forestCache holds sorted forests for the time-independent modes. Hot depends
// on the current time and is never cached.
type forestCache struct {
	lru *lru.Cache[forestKey, model.Forest]
}

// newForestCache returns a cache holding size forests. A size <= 0 disables
// caching.
func newForestCache(size int) *forestCache {
	if size <= 0 {
		return &forestCache{}
	}
	c, err := lru.New[forestKey, model.Forest](size)
	if err != nil {
		return &forestCache{}
	}
	return &forestCache{lru: c}
}

func cacheable(mode model.SortMode) bool {
	return mode == model.SortTop || mode == model.SortNew
}

func (c *forestCache) get(k forestKey) (model.Forest, bool) {
	if c.lru == nil || !cacheable(k.mode) {
		return nil, false
	}
	return c.lru.Get(k)
}

func (c *forestCache) add(k forestKey, f model.Forest) {
	if c.lru == nil || !cacheable(k.mode) {
		return
	}
	c.lru.Add(k, f)
}

func (c *forestCache) len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *forestCache) purge() {
	if c.lru != nil {
		c.lru.Purge()
	}
}
