package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const fieldPrefix = "enc:v1:"

var ErrDecrypt = errors.New("field decryption failed")

// Cipher is the part of MasterKeyManager the codec needs.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// FieldCodec encrypts single string fields into tagged base64 text.
type FieldCodec struct {
	cipher Cipher
}

func NewFieldCodec(c Cipher) *FieldCodec {
	return &FieldCodec{cipher: c}
}

func (c *FieldCodec) Encode(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	sealed, err := c.cipher.Encrypt([]byte(plain))
	if err != nil {
		return "", fmt.Errorf("encrypt field: %w", err)
	}

	return fieldPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode. Untagged or corrupt input yields ErrDecrypt.
func (c *FieldCodec) Decode(blob string) (string, error) {
	if blob == "" {
		return "", nil
	}

	encoded, ok := strings.CutPrefix(blob, fieldPrefix)
	if !ok {
		return "", fmt.Errorf("%w: not an encrypted value", ErrDecrypt)
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	plain, err := c.cipher.Decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return string(plain), nil
}
