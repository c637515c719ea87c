package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Base62Alphabet is used for API key secrets
	Base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// SlugAlphabet omits the visually ambiguous 0, 1, i, l and o
	SlugAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"
)

// RandomString draws n symbols uniformly from alphabet using crypto/rand
func RandomString(alphabet string, n int) (string, error) {
	if n <= 0 || alphabet == "" {
		return "", fmt.Errorf("invalid random string request: n=%d alphabet=%d", n, len(alphabet))
	}

	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}
