package utils

import (
	"math/rand"
)

// Table code generation. Codes are what players type (or scan) to reach
// their table, so keep them short and unambiguous.
const charset = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateTableCode returns a random code of the given length.
func GenerateTableCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
