// Package hashing derives stable, keyed fingerprints of identifiers so
// audit records and logs can correlate an actor without storing the
// address itself.
package hashing

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const fingerprintSize = 16

var ErrInvalidKey = errors.New("fingerprint key must be 1 to 64 bytes")

type Hasher struct {
	key []byte
}

func NewHasher(key string) (*Hasher, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, ErrInvalidKey
	}
	return &Hasher{key: []byte(key)}, nil
}

// Fingerprint returns a hex BLAKE2b-128 MAC of the trimmed, lowercased value.
func (h *Hasher) Fingerprint(value string) string {
	mac, err := blake2b.New(fingerprintSize, h.key)
	if err != nil {
		// key length was checked in NewHasher
		panic(err)
	}
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(value))))
	return hex.EncodeToString(mac.Sum(nil))
}
