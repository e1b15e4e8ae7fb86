package token

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	apperrors "github.com/jrsteele09/go-budget-client/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for deriving the file key.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	saltLength   = 16
	keyLength    = chacha20poly1305.KeySize
	encodingName = "base64"
)

var encoding = base64.RawStdEncoding

// sealer encrypts token values with XChaCha20-Poly1305.
// The derived key is cached per salt since scrypt is deliberately slow.
type sealer struct {
	passphrase []byte
	salt       string
	aead       cipher.AEAD
}

func newSealer(passphrase string) *sealer {
	return &sealer{passphrase: []byte(passphrase)}
}

func (s *sealer) cipherFor(salt string) (cipher.AEAD, error) {
	if s.aead != nil && s.salt == salt {
		return s.aead, nil
	}
	rawSalt, err := encoding.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt not %s: %v", apperrors.ErrTokenCorrupt, encodingName, err)
	}
	key, err := scrypt.Key(s.passphrase, rawSalt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("scrypt.Key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("chacha20poly1305.NewX: %w", err)
	}
	s.salt, s.aead = salt, aead
	return aead, nil
}

// seal encrypts plain, assigning doc a fresh salt on first use.
func (s *sealer) seal(doc *document, plain string) (string, error) {
	if doc.Salt == "" {
		rawSalt := make([]byte, saltLength)
		if _, err := rand.Read(rawSalt); err != nil {
			return "", fmt.Errorf("rand.Read: %w", err)
		}
		doc.Salt = encoding.EncodeToString(rawSalt)
	}

	aead, err := s.cipherFor(doc.Salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return encoding.EncodeToString(aead.Seal(nonce, nonce, []byte(plain), nil)), nil
}

func (s *sealer) open(doc *document, sealed string) (string, error) {
	if doc.Salt == "" {
		return "", fmt.Errorf("%w: missing salt", apperrors.ErrTokenCorrupt)
	}
	aead, err := s.cipherFor(doc.Salt)
	if err != nil {
		return "", err
	}

	raw, err := encoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: value not %s: %v", apperrors.ErrTokenCorrupt, encodingName, err)
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("%w: value too short", apperrors.ErrTokenCorrupt)
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrTokenCorrupt, err)
	}
	return string(plain), nil
}
