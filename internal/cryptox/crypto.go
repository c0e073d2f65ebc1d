// Package cryptox seals small secrets (cached bearer tokens) at rest with
// AES-GCM under an argon2id-derived key.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/bkashgate/internal/common"
)

// KeySize is the derived AES-256 key length.
const KeySize = 32

var ErrMalformed = errors.New("sealed value is malformed")

// DeriveKey stretches secret with argon2id into an AES-256 key.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize)
}

// Sealer encrypts and decrypts values with a fixed key. It is safe for
// concurrent use.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a key from secret and salt and prepares AES-GCM. The
// caller may wipe secret afterwards.
func NewSealer(secret []byte, salt []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty secret", common.ErrorValidation)
	}
	key := DeriveKey(secret, salt)
	defer common.WipeByteArray(key)

	return newSealerFromKey(key)
}

func newSealerFromKey(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext and returns base64(nonce || ciphertext). A fresh
// random nonce is used for every call.
//
// additional is bound to the ciphertext and must be passed unchanged to Open;
// callers use the cache key so sealed values cannot be swapped between keys.
func (s *Sealer) Seal(plaintext, additional []byte) string {
	nonce := common.GenerateRandByteArray(s.aead.NonceSize())
	out := s.aead.Seal(nonce, nonce, plaintext, additional)
	return base64.StdEncoding.EncodeToString(out)
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string, additional []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns+s.aead.Overhead() {
		return nil, ErrMalformed
	}

	plaintext, err := s.aead.Open(nil, raw[:ns], raw[ns:], additional)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return plaintext, nil
}
