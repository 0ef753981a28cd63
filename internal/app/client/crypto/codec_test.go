package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCipher struct {
	key []byte
}

func (c staticCipher) Encrypt(p []byte) ([]byte, error) { return encryptWithKey(c.key, p) }
func (c staticCipher) Decrypt(b []byte) ([]byte, error) { return decryptWithKey(c.key, b) }

func newTestCodec(t *testing.T) *FieldCodec {
	t.Helper()
	key, err := GenerateRandomBytes(keyLength)
	require.NoError(t, err)
	return NewFieldCodec(staticCipher{key: key})
}

func TestFieldCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	for _, plain := range []string{"Arjun Kumar", "Мария", "no known allergies\nfollow-up in 2 weeks"} {
		blob, err := codec.Encode(plain)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(blob, fieldPrefix))
		assert.NotContains(t, blob, plain)

		got, err := codec.Decode(blob)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestFieldCodec_Empty(t *testing.T) {
	codec := newTestCodec(t)

	blob, err := codec.Encode("")
	require.NoError(t, err)
	assert.Empty(t, blob)

	got, err := codec.Decode("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFieldCodec_DecodeFailures(t *testing.T) {
	codec := newTestCodec(t)
	other := newTestCodec(t)

	foreign, err := other.Encode("secret")
	require.NoError(t, err)

	tests := []struct {
		name string
		blob string
	}{
		{name: "plain text", blob: "Arjun"},
		{name: "bad base64", blob: fieldPrefix + "!!!"},
		{name: "wrong key", blob: foreign},
		{name: "truncated", blob: fieldPrefix + "AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.blob)
			assert.ErrorIs(t, err, ErrDecrypt)
		})
	}
}
