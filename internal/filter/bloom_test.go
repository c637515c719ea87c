package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBloomFilterMembership(t *testing.T) {
	bf := NewBloomFilter(1000, 0.001)

	assert.False(t, bf.Test("promo"))
	bf.Add("promo")
	assert.True(t, bf.Test("promo"))

	slugs := make([]string, 100)
	for i := range slugs {
		slugs[i] = fmt.Sprintf("s%d", i)
	}
	bf.AddBatch(slugs)
	for _, slug := range slugs {
		assert.True(t, bf.Test(slug))
	}
	assert.InDelta(t, 101, bf.Count(), 5)
}
