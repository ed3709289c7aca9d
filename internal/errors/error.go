package errors

import "github.com/pkg/errors"

var (
	// configuration errors
	ErrSecretKeyInvalid = errors.New("token encryption key is missing or not 64 hex characters")

	// auth errors
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccessDenied         = errors.New("access denied")

	// account errors
	ErrAccountNotFound = errors.New("mail account not found")
	ErrAccountExists   = errors.New("mail account already linked")
	ErrTokenNotFound   = errors.New("no credentials stored for account")

	// provider errors
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrProviderFailure    = errors.New("mail provider request failed")
	ErrActionNotSupported = errors.New("bulk action not supported by provider")
)
