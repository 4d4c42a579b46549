// Package dedupe tracks evaluation ids so a resubmitted evaluation is applied
// at most once.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50_000

// Deduper records seen evaluation ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	// The check and the insert are atomic.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a submission that could not be queued can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps ids in an LRU when bounded and a plain set otherwise.
// The oldest id is evicted first once the bound is reached.
type inMemoryDeduper struct {
	maxSize int

	cache *lru.Cache[string, struct{}]

	mu   sync.Mutex
	set  map[string]struct{}
	size atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxSize > 0 {
		// lru.New only fails for a non-positive size.
		d.cache, _ = lru.New[string, struct{}](d.maxSize)
	} else {
		d.set = make(map[string]struct{})
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	if d.cache != nil {
		seen, _ := d.cache.ContainsOrAdd(id, struct{}{})
		if !seen {
			d.size.Store(int64(d.cache.Len()))
		}
		return seen
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.set[id]; ok {
		return true
	}
	d.set[id] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	if d.cache != nil {
		d.cache.Remove(id)
		d.size.Store(int64(d.cache.Len()))
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.set[id]; ok {
		delete(d.set, id)
		d.size.Add(-1)
	}
}

// Size returns the number of ids currently remembered.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
