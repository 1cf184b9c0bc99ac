package blob

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	sealMetadataKey = "report-encryption"
	sealMethod      = "aes-gcm"
)

type sealer struct {
	aead cipher.AEAD
}

func newSealer(raw string) (*sealer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("reports.encryption_key must be base64: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errors.New("reports.encryption_key must decode to 16, 24 or 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: aead}, nil
}

// seal returns nonce||ciphertext for the whole body.
func (s *sealer) seal(r io.Reader) (*bytes.Reader, map[string]string, error) {
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	payload := s.aead.Seal(nonce, nonce, plain, nil)
	return bytes.NewReader(payload), map[string]string{sealMetadataKey: sealMethod}, nil
}

func (s *sealer) open(r io.Reader) (*bytes.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return nil, errors.New("sealed payload too short")
	}
	plain, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed payload: %w", err)
	}
	return bytes.NewReader(plain), nil
}

func isSealed(meta map[string]string) bool {
	return meta[sealMetadataKey] != ""
}
