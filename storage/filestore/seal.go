package filestore

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/jrsteele09/bytefit/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

func (s *Store) seal(value string) (string, error) {
	if s.key == nil {
		return value, nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *Store) open(raw string) (string, error) {
	if s.key == nil {
		return raw, nil
	}
	box, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(box) < nonceSize {
		return "", errors.ErrSealedValue
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, s.key)
	if !ok {
		return "", errors.ErrSealedValue
	}
	return string(plain), nil
}
