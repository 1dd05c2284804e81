package utils

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestAESGCMEncryptionDecryption(t *testing.T) {
	ciphertext, err := Encrypt(testKey(), "+15550001111")
	require.NoError(t, err)
	require.NotEqual(t, "+15550001111", ciphertext)

	decrypted, err := Decrypt(testKey(), ciphertext)
	require.NoError(t, err)
	require.Equal(t, "+15550001111", decrypted)
}

func TestAESGCMNonceIsRandom(t *testing.T) {
	a, err := Encrypt(testKey(), "same text")
	require.NoError(t, err)
	b, err := Encrypt(testKey(), "same text")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "two encryptions of the same text must differ")
}

func TestAESGCMInvalidKey(t *testing.T) {
	_, err := Encrypt([]byte("not-32-bytes"), "some text")
	require.ErrorIs(t, err, ErrEncryptionKeySize)

	_, err = Decrypt([]byte("not-32-bytes"), "some ciphertext")
	require.ErrorIs(t, err, ErrEncryptionKeySize)
}

func TestAESGCMCorruption(t *testing.T) {
	ciphertext, err := Encrypt(testKey(), "Integrity check!")
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF

	_, err = Decrypt(testKey(), base64.URLEncoding.EncodeToString(raw))
	require.Error(t, err)
}

func TestAESGCMShortCipher(t *testing.T) {
	_, err := Decrypt(testKey(), base64.URLEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}

func TestAESGCMInvalidBase64(t *testing.T) {
	_, err := Decrypt(testKey(), "!!!not-base64!!!")
	require.Error(t, err)
}

func TestAESGCMKeyMismatch(t *testing.T) {
	ciphertext, err := Encrypt(testKey(), "secret")
	require.NoError(t, err)

	other := bytes.Repeat([]byte{0x42}, 32)
	_, err = Decrypt(other, ciphertext)
	require.Error(t, err)
}

func TestEmptyTextAESGCM(t *testing.T) {
	ciphertext, err := Encrypt(testKey(), "")
	require.NoError(t, err)
	decrypted, err := Decrypt(testKey(), ciphertext)
	require.NoError(t, err)
	require.Empty(t, decrypted)
}
