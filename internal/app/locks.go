package service

import (
	"hash/fnv"
	"sync"
)

// keyedLocks serializes work per player over a fixed set of stripes.
// Two players may share a stripe; one player always maps to the same one.
type keyedLocks struct {
	stripes []sync.Mutex
}

func newKeyedLocks(n int) *keyedLocks {
	if n < 1 {
		n = 1
	}
	return &keyedLocks{stripes: make([]sync.Mutex, n)}
}

func (k *keyedLocks) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &k.stripes[h.Sum32()%uint32(len(k.stripes))]
}

// with runs fn holding key's stripe.
func (k *keyedLocks) with(key string, fn func() error) error {
	mu := k.stripe(key)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}
