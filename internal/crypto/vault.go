package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"

	unimailerrors "github.com/unimailhq/unimail/internal/errors"
)

const (
	keyHexLength = 64 // 32 bytes
	gcmTagSize   = 16
)

// EncryptedPayload carries one encrypted secret. All fields are hex encoded
// so they can be stored in plain text columns.
type EncryptedPayload struct {
	Ciphertext string
	IV         string
	AuthTag    string
}

// Vault encrypts and decrypts provider credentials with AES-256-GCM under a
// single process-wide key.
type Vault struct {
	key []byte
}

// NewVault parses the configured secret key. The key must be exactly 64 hex
// characters (32 bytes).
func NewVault(hexKey string) (*Vault, error) {
	if len(hexKey) != keyHexLength {
		return nil, unimailerrors.ErrSecretKeyInvalid
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, unimailerrors.ErrSecretKeyInvalid
	}
	return &Vault{key: key}, nil
}

// Encrypt seals plaintext with a fresh random IV. Encrypting the same
// plaintext twice yields different ciphertext and IV.
func (v *Vault) Encrypt(plaintext string) (*EncryptedPayload, error) {
	aead, err := v.aead()
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, errors.Wrap(err, "failed to generate iv")
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	authTag := sealed[len(sealed)-gcmTagSize:]

	return &EncryptedPayload{
		Ciphertext: hex.EncodeToString(ciphertext),
		IV:         hex.EncodeToString(iv),
		AuthTag:    hex.EncodeToString(authTag),
	}, nil
}

// Decrypt opens a payload previously produced by Encrypt. A mismatched auth
// tag, IV or key fails with ErrAuthenticationFailed rather than returning
// garbage plaintext.
func (v *Vault) Decrypt(payload *EncryptedPayload) (string, error) {
	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	ciphertext, err := hex.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", errors.Wrap(unimailerrors.ErrAuthenticationFailed, "malformed ciphertext")
	}
	iv, err := hex.DecodeString(payload.IV)
	if err != nil {
		return "", errors.Wrap(unimailerrors.ErrAuthenticationFailed, "malformed iv")
	}
	authTag, err := hex.DecodeString(payload.AuthTag)
	if err != nil {
		return "", errors.Wrap(unimailerrors.ErrAuthenticationFailed, "malformed auth tag")
	}
	if len(iv) != aead.NonceSize() || len(authTag) != gcmTagSize {
		return "", errors.Wrap(unimailerrors.ErrAuthenticationFailed, "invalid payload size")
	}

	plaintext, err := aead.Open(nil, iv, append(ciphertext, authTag...), nil)
	if err != nil {
		return "", unimailerrors.ErrAuthenticationFailed
	}
	return string(plaintext), nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, unimailerrors.ErrSecretKeyInvalid
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init gcm")
	}
	return aead, nil
}

// GenerateKey produces a new cryptographically random 64-hex-character key
// suitable for TOKEN_ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	key := make([]byte, keyHexLength/2)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", errors.Wrap(err, "failed to generate key")
	}
	return hex.EncodeToString(key), nil
}
