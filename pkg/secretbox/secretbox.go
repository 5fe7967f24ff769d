// Package secretbox seals operator credentials (bank base hashes) before they
// are written to the database, as compact JWE with direct AES-256-GCM.
package secretbox

import (
	"encoding/hex"
	"errors"
	"fmt"

	jose "github.com/go-jose/go-jose/v3"
)

var (
	ErrInvalidKey    = errors.New("encryption key must be 32 bytes (64 hex chars)")
	ErrCorruptSecret = errors.New("sealed secret cannot be opened")
)

// Sealer encrypts and decrypts short secrets with one symmetric key.
type Sealer struct {
	key       []byte
	encrypter jose.Encrypter
}

// New builds a Sealer from a hex-encoded 32-byte key.
func New(keyHex string) (*Sealer, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.DIRECT, Key: key}, nil)
	if err != nil {
		return nil, fmt.Errorf("init encrypter: %w", err)
	}
	return &Sealer{key: key, encrypter: enc}, nil
}

// Seal returns a compact JWE for plaintext. Empty input stays empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	obj, err := s.encrypter.Encrypt([]byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	return obj.CompactSerialize()
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	obj, err := jose.ParseEncrypted(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptSecret, err)
	}
	plain, err := obj.Decrypt(s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptSecret, err)
	}
	return string(plain), nil
}
