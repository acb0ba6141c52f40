package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/iurnickita/shopsync/internal/secret/config"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	ErrBadKey  = errors.New("secret key must be 32 bytes base64")
	ErrDecrypt = errors.New("cannot decrypt secret")
)

// Box шифрует токены доступа магазинов.
type Box interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

type box struct {
	key [keySize]byte
}

func NewBox(cfg config.Config) (Box, error) {
	raw, err := base64.StdEncoding.DecodeString(cfg.Key)
	if err != nil || len(raw) != keySize {
		return nil, ErrBadKey
	}
	var b box
	copy(b.key[:], raw)
	return &b, nil
}

func (b *box) Seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	// nonce хранится перед шифротекстом
	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (b *box) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
