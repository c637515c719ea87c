package filter

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter remembers every slug this instance has seen allocated.
// A negative Test means the slug was never added here; it does not prove
// the slug is free in the store, since other instances may have allocated it.
type BloomFilter struct {
	mu    sync.RWMutex
	slugs *bloom.BloomFilter
}

// NewBloomFilter sizes the filter for capacity slugs at fpRate
func NewBloomFilter(capacity uint, fpRate float64) *BloomFilter {
	return &BloomFilter{slugs: bloom.NewWithEstimates(capacity, fpRate)}
}

// Add records an allocated slug
func (bf *BloomFilter) Add(slug string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.slugs.AddString(slug)
}

// Test reports whether slug may have been allocated
func (bf *BloomFilter) Test(slug string) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.slugs.TestString(slug)
}

// AddBatch records many slugs, used when warming from the store
func (bf *BloomFilter) AddBatch(slugs []string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	for _, slug := range slugs {
		bf.slugs.AddString(slug)
	}
}

// Count estimates how many slugs the filter holds
func (bf *BloomFilter) Count() uint32 {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.slugs.ApproximatedSize()
}
