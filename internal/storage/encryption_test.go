package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	plaintext := []byte("sk-super-secret-provider-key")

	ciphertext, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	first, err := enc.Encrypt([]byte("same input"))
	require.NoError(t, err)
	second, err := enc.Encrypt([]byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEncryptDecryptString(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	ciphertext, err := enc.EncryptString("sk-test-123")
	require.NoError(t, err)

	secret, err := enc.DecryptString(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", secret)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt([]byte("secret"))
	require.NoError(t, err)

	other, err := NewEncryption(bytes.Repeat([]byte{0x13}, 32))
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt([]byte("secret"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xff
	_, err = enc.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestDecryptTruncatedCiphertextFails(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	_, err = enc.Decrypt([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestInvalidKeySize(t *testing.T) {
	for _, size := range []int{0, 8, 15, 31, 33, 64} {
		_, err := NewEncryption(make([]byte, size))
		assert.Error(t, err, "key size %d should be rejected", size)
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt([]byte{})
	require.NoError(t, err)

	decrypted, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Empty(t, decrypted)
}
