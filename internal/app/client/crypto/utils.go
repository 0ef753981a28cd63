package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

// ClearMemory overwrites sensitive bytes in place.
func ClearMemory(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

func GenerateRandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}
