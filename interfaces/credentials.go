package interfaces

import (
	"context"
	"time"
)

// Credentials is a decrypted provider credential set. It lives only for the
// duration of the adapter call that requested it.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// CredentialService hands adapters decrypted credentials. Adapters never see
// ciphertext. ForceRefresh supports the retry-once flow after a provider
// rejects a bearer token.
type CredentialService interface {
	// GetCredentials returns a usable credential set for the account,
	// refreshing an expired OAuth access token first when possible.
	GetCredentials(ctx context.Context, accountID string) (*Credentials, error)

	// ForceRefresh discards the stored access token and redeems the refresh
	// token immediately. Exactly one refresh per adapter call.
	ForceRefresh(ctx context.Context, accountID string) (*Credentials, error)

	// StoreCredentials encrypts and persists credentials at link time.
	StoreCredentials(ctx context.Context, accountID string, creds *Credentials) error

	// DeleteCredentials removes stored credentials, used on account unlink.
	DeleteCredentials(ctx context.Context, accountID string) error
}
