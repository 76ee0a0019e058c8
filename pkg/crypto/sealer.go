package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const sealerInfo = "dao-ledger/wallet-store/v1"

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Sealer encrypts blobs at rest with AES-256-GCM
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the AES key from secret with HKDF-SHA256
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sealer secret is required")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealerInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}
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

// Seal returns hex(nonce || ciphertext)
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := randomRead(nonce); err != nil {
		return "", fmt.Errorf("failed to read nonce: %w", err)
	}
	return hex.EncodeToString(s.aead.Seal(nonce, nonce, plaintext, nil)), nil
}

func (s *Sealer) Open(sealedHex string) ([]byte, error) {
	raw, err := hex.DecodeString(sealedHex)
	if err != nil {
		return nil, err
	}
	if len(raw) < s.aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	return s.aead.Open(nil, nonce, ciphertext, nil)
}
