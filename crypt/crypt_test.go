package crypt

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DogStark/petchain-anchor/errors"
)

func testKey(t *testing.T, secret string) []byte {
	t.Helper()
	key, err := DeriveKey(secret)
	require.NoError(t, err, "DeriveKey failed")
	return key
}

func TestHashDeterministic(t *testing.T) {
	payload := []byte(`{"name":"Rabies","dose":2}`)

	h1 := Hash(payload)
	h2 := Hash(payload)
	assert.Equal(t, h1, h2, "Hash must be deterministic")

	_, err := hex.DecodeString(h1)
	assert.NoError(t, err, "Hash output must be hex")
	assert.Len(t, h1, 64)
}

func TestHashDistinct(t *testing.T) {
	fixtures := []any{
		map[string]any{"name": "Rabies"},
		map[string]any{"name": "Rabies", "dose": 2},
		[]string{"Rabies"},
		"Rabies",
		map[string]any{"name": "rabies"},
	}

	seen := map[string]int{}
	for i, f := range fixtures {
		h, err := HashRecord(f)
		require.NoError(t, err, "HashRecord(%d) failed", i)
		prev, dup := seen[h]
		assert.False(t, dup, "fixtures %d and %d collide: %s", prev, i, h)
		seen[h] = i
	}
}

func TestCanonicalizeKeyOrderIndependent(t *testing.T) {
	// Same logical object, different field order via struct vs map
	type record struct {
		Dose int    `json:"dose"`
		Name string `json:"name"`
	}
	h1, err := HashRecord(record{Dose: 2, Name: "Rabies"})
	require.NoError(t, err)

	h2, err := HashRecord(map[string]any{"name": "Rabies", "dose": 2})
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "canonicalization must be key-order independent")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t, "correct horse battery staple")

	payloads := [][]byte{
		[]byte("short"),
		[]byte(`{"name":"Rabies","administered":"2026-08-01"}`),
		bytes.Repeat([]byte("x"), 4096),
		{},
	}

	for i, p := range payloads {
		ct, err := Encrypt(p, key)
		require.NoError(t, err, "Encrypt(%d) failed", i)

		got, err := Decrypt(ct, key)
		require.NoError(t, err, "Decrypt(%d) failed", i)
		assert.True(t, bytes.Equal(got, p), "round trip %d mismatch", i)
	}
}

func TestEncryptUnlinkable(t *testing.T) {
	key := testKey(t, "secret")
	p := []byte("same plaintext")

	ct1, err := Encrypt(p, key)
	require.NoError(t, err)
	ct2, err := Encrypt(p, key)
	require.NoError(t, err)

	assert.NotEqual(t, ct1, ct2, "same plaintext produced identical ciphertext (nonce reuse?)")
}

func TestDecryptWrongKey(t *testing.T) {
	key1 := testKey(t, "secret one")
	key2 := testKey(t, "secret two")

	ct, err := Encrypt([]byte("payload"), key1)
	require.NoError(t, err)

	_, err = Decrypt(ct, key2)
	assert.True(t, errors.IsDecryptionError(err), "expected ErrDecryption for wrong key, got %v", err)
}

func TestDecryptCorrupt(t *testing.T) {
	key := testKey(t, "secret")

	ct, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0xff

	_, err = Decrypt(ct, key)
	assert.True(t, errors.IsDecryptionError(err), "expected ErrDecryption for corrupt ciphertext, got %v", err)

	_, err = Decrypt([]byte{0x01, 0x02}, key)
	assert.True(t, errors.IsDecryptionError(err), "expected ErrDecryption for truncated ciphertext, got %v", err)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	k1 := testKey(t, "secret")
	k2 := testKey(t, "secret")
	assert.Equal(t, k1, k2, "DeriveKey must be deterministic for the same secret")

	k3 := testKey(t, "other secret")
	assert.NotEqual(t, k1, k3, "different secrets must derive different keys")

	_, err := DeriveKey("")
	assert.Error(t, err, "empty secret must be rejected")
}
