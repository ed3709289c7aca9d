package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"

	unimailerrors "github.com/unimailhq/unimail/internal/errors"
)

func TestNewVault_RejectsBadKeys(t *testing.T) {
	_, err := NewVault("")
	require.ErrorIs(t, err, unimailerrors.ErrSecretKeyInvalid)

	_, err = NewVault("too-short")
	require.ErrorIs(t, err, unimailerrors.ErrSecretKeyInvalid)

	// Right length, not hex
	_, err = NewVault("zz00000000000000000000000000000000000000000000000000000000000000")
	require.ErrorIs(t, err, unimailerrors.ErrSecretKeyInvalid)
}

func TestVault_EncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	require.Len(t, key, 64)

	vault, err := NewVault(key)
	require.NoError(t, err)

	payload, err := vault.Encrypt("ya29.access-token-value")
	require.NoError(t, err)
	require.NotEmpty(t, payload.Ciphertext)
	require.NotEmpty(t, payload.IV)
	require.Len(t, payload.AuthTag, gcmTagSize*2)

	plaintext, err := vault.Decrypt(payload)
	require.NoError(t, err)
	require.Equal(t, "ya29.access-token-value", plaintext)
}

func TestVault_EncryptIsNondeterministic(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	vault, err := NewVault(key)
	require.NoError(t, err)

	first, err := vault.Encrypt("secret")
	require.NoError(t, err)
	second, err := vault.Encrypt("secret")
	require.NoError(t, err)

	require.NotEqual(t, first.IV, second.IV)
	require.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestVault_DecryptRejectsTampering(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	vault, err := NewVault(key)
	require.NoError(t, err)

	payload, err := vault.Encrypt("secret")
	require.NoError(t, err)

	tampered := *payload
	tampered.AuthTag = payload.IV[:len(payload.AuthTag)/2] + payload.AuthTag[len(payload.AuthTag)/2:]
	_, err = vault.Decrypt(&tampered)
	require.ErrorIs(t, err, unimailerrors.ErrAuthenticationFailed)

	garbage := *payload
	garbage.Ciphertext = "not-hex!"
	_, err = vault.Decrypt(&garbage)
	require.ErrorIs(t, err, unimailerrors.ErrAuthenticationFailed)
}

func TestVault_DecryptWithWrongKeyFails(t *testing.T) {
	keyA, err := GenerateKey()
	require.NoError(t, err)
	keyB, err := GenerateKey()
	require.NoError(t, err)

	vaultA, err := NewVault(keyA)
	require.NoError(t, err)
	vaultB, err := NewVault(keyB)
	require.NoError(t, err)

	payload, err := vaultA.Encrypt("secret")
	require.NoError(t, err)

	_, err = vaultB.Decrypt(payload)
	require.ErrorIs(t, err, unimailerrors.ErrAuthenticationFailed)
}

func TestVault_EmptyPlaintextRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	vault, err := NewVault(key)
	require.NoError(t, err)

	payload, err := vault.Encrypt("")
	require.NoError(t, err)

	plaintext, err := vault.Decrypt(payload)
	require.NoError(t, err)
	require.Equal(t, "", plaintext)
}
