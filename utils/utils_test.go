package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTableCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateTableCode(4)
		assert.Len(t, code, 4)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(charset, c), "unexpected character %q", c)
		}
		seen[code] = true
	}
	// Not a collision guarantee, just a sanity check on randomness
	assert.Greater(t, len(seen), 50)
}
