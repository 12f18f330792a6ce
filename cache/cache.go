// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package cache memoizes entity folds keyed by stream name. One Cache is
// owned by each fetcher; concurrent writers resolve last-writer-wins.
package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"
)

type item[T any] struct {
	entry     Entry[T]
	writtenAt time.Time
	touchedAt time.Time
}

// Cache is a bounded, sharded LRU of entity folds.
type Cache[T any] struct {
	shards   []*lru.Cache[string, *item[T]]
	sliding  time.Duration
	absolute time.Duration
	clock    func() time.Time
}

// New creates a Cache.
func New[T any](opts ...Option) (*Cache[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt.Apply(o)
	}

	if o.capacity <= 0 {
		return nil, fmt.Errorf("cache: capacity must be positive, got %d", o.capacity)
	}
	if o.shards <= 0 {
		return nil, fmt.Errorf("cache: shards must be positive, got %d", o.shards)
	}
	if o.sliding < 0 || o.absolute < 0 {
		return nil, fmt.Errorf("cache: expirations must not be negative")
	}

	shards := min(o.shards, o.capacity)
	perShard := (o.capacity + shards - 1) / shards

	c := &Cache[T]{
		shards:   make([]*lru.Cache[string, *item[T]], shards),
		sliding:  o.sliding,
		absolute: o.absolute,
		clock:    o.clock,
	}
	for i := range c.shards {
		shard, err := lru.New[string, *item[T]](perShard)
		if err != nil {
			return nil, fmt.Errorf("cache: create shard: %w", err)
		}
		c.shards[i] = shard
	}
	return c, nil
}

// Get returns the entry of key, or Miss when absent or expired. A hit
// renews the sliding expiration.
func (c *Cache[T]) Get(key string) Entry[T] {
	shard := c.shard(key)
	it, ok := shard.Get(key)
	if !ok {
		return Miss[T]{}
	}

	now := c.clock()
	if c.expired(it, now) {
		shard.Remove(key)
		return Miss[T]{}
	}

	if c.sliding > 0 {
		shard.Add(key, &item[T]{entry: it.entry, writtenAt: it.writtenAt, touchedAt: now})
	}
	return it.entry
}

// Put stores the entry, replacing whatever is cached for key.
func (c *Cache[T]) Put(key string, entry Entry[T]) {
	if _, ok := entry.(Miss[T]); ok {
		c.Remove(key)
		return
	}
	now := c.clock()
	c.shard(key).Add(key, &item[T]{entry: entry, writtenAt: now, touchedAt: now})
}

// Remove evicts key.
func (c *Cache[T]) Remove(key string) {
	c.shard(key).Remove(key)
}

// Len returns the number of entries, expired ones included.
func (c *Cache[T]) Len() int {
	total := 0
	for _, shard := range c.shards {
		total += shard.Len()
	}
	return total
}

// Purge removes every entry.
func (c *Cache[T]) Purge() {
	for _, shard := range c.shards {
		shard.Purge()
	}
}

func (c *Cache[T]) expired(it *item[T], now time.Time) bool {
	if c.absolute > 0 && now.Sub(it.writtenAt) >= c.absolute {
		return true
	}
	return c.sliding > 0 && now.Sub(it.touchedAt) >= c.sliding
}

func (c *Cache[T]) shard(key string) *lru.Cache[string, *item[T]] {
	if len(c.shards) == 1 {
		return c.shards[0]
	}
	return c.shards[xxh3.HashString(key)%uint64(len(c.shards))]
}
