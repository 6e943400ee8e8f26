// Package crypt provides the integrity hash and payload encryption for the
// anchoring pipeline.
//
// Hashing produces a deterministic SHA-256 digest over a canonical JSON
// serialization, so the same record content always yields the same hex
// fingerprint regardless of map key order. Canonicalization is a JSON
// round-trip: marshal, unmarshal into any, re-marshal — encoding/json sorts
// map keys, making the output key-order independent. Numbers pass through
// float64 during normalization; integer-valued floats survive intact.
//
// Encryption is AES-256-GCM with a random nonce prepended to the ciphertext.
// The same plaintext encrypted twice is unlinkable.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/DogStark/petchain-anchor/errors"
)

// Fixed KDF salt. A per-tenant or per-record salt would be the production
// scheme; a single process-wide key is a known limitation of this service.
var kdfSalt = []byte("petchain-anchor-v1")

// scrypt cost parameters (interactive-grade)
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// DeriveKey derives the process-wide 32-byte symmetric key from the
// configured secret via scrypt. The secret is never used directly as a key.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}
	key, err := scrypt.Key([]byte(secret), kdfSalt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, errors.Wrap(err, "scrypt key derivation failed")
	}
	return key, nil
}

// Canonicalize produces the canonical JSON serialization of v.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal record data")
	}
	var norm any
	if err := json.Unmarshal(raw, &norm); err != nil {
		return nil, errors.Wrap(err, "failed to normalize record data")
	}
	out, err := json.Marshal(norm)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal canonical form")
	}
	return out, nil
}

// Hash returns the hex SHA-256 digest of payload.
func Hash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// HashRecord canonicalizes v and returns its hex SHA-256 digest.
func HashRecord(v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return Hash(canonical), nil
}

// Encrypt encrypts payload with AES-256-GCM under key. The random nonce is
// prepended to the returned ciphertext.
func Encrypt(payload, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}

	return gcm.Seal(nonce, nonce, payload, nil), nil
}

// Decrypt is the exact inverse of Encrypt. Returns ErrDecryption on corrupt
// input or wrong key.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.Wrap(errors.ErrDecryption, "ciphertext shorter than nonce")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	payload, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDecryption, err.Error())
	}
	return payload, nil
}
