package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

var errUnseal = errors.New("sealed token cannot be opened")

// Sealer encrypts upstream tokens before they are written to the database.
type Sealer struct {
	key [32]byte
}

// NewSealer derives a secretbox key from passphrase.
func NewSealer(passphrase string) *Sealer {
	return &Sealer{key: sha256.Sum256([]byte(passphrase))}
}

func (s *Sealer) Seal(plain string) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key), nil
}

func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < 24 {
		return "", errUnseal
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		return "", errUnseal
	}
	return string(plain), nil
}
