package credentials

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/unimailhq/unimail/config"
	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/crypto"
	"github.com/unimailhq/unimail/internal/enum"
	unimailerrors "github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/repository"
	"github.com/unimailhq/unimail/internal/tracing"
)

// credentialService decrypts stored tokens on demand and owns OAuth refresh
// for the REST providers. Plaintext tokens are returned to the calling
// adapter and nowhere else.
type credentialService struct {
	vault        *crypto.Vault
	repositories *repository.Repositories
	google       *oauth2.Config
	microsoft    *oauth2.Config
	log          logger.Logger
}

func NewCredentialService(
	vault *crypto.Vault,
	repos *repository.Repositories,
	googleCfg *config.GoogleOAuthConfig,
	microsoftCfg *config.MicrosoftOAuthConfig,
	log logger.Logger,
) interfaces.CredentialService {
	return &credentialService{
		vault:        vault,
		repositories: repos,
		google: &oauth2.Config{
			ClientID:     googleCfg.ClientID,
			ClientSecret: googleCfg.ClientSecret,
			Endpoint:     google.Endpoint,
		},
		microsoft: &oauth2.Config{
			ClientID:     microsoftCfg.ClientID,
			ClientSecret: microsoftCfg.ClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(microsoftCfg.TenantID),
		},
		log: log,
	}
}

func (s *credentialService) GetCredentials(ctx context.Context, accountID string) (*interfaces.Credentials, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialService.GetCredentials")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	token, creds, err := s.loadAndDecrypt(ctx, accountID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if token.Expired(time.Now()) && creds.RefreshToken != "" {
		refreshed, err := s.refresh(ctx, accountID, creds.RefreshToken)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return refreshed, nil
	}

	return creds, nil
}

func (s *credentialService) ForceRefresh(ctx context.Context, accountID string) (*interfaces.Credentials, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialService.ForceRefresh")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	_, creds, err := s.loadAndDecrypt(ctx, accountID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if creds.RefreshToken == "" {
		err = errors.Wrap(unimailerrors.ErrAuthenticationFailed, "no refresh token stored")
		tracing.TraceErr(span, err)
		return nil, err
	}

	refreshed, err := s.refresh(ctx, accountID, creds.RefreshToken)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return refreshed, nil
}

func (s *credentialService) StoreCredentials(ctx context.Context, accountID string, creds *interfaces.Credentials) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialService.StoreCredentials")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	token, err := s.repositories.AccountTokenRepository.GetTokenForAccount(ctx, accountID)
	if err != nil {
		if !errors.Is(err, unimailerrors.ErrTokenNotFound) {
			tracing.TraceErr(span, err)
			return err
		}
		token = &models.AccountToken{AccountID: accountID}
	}

	access, err := s.vault.Encrypt(creds.AccessToken)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	token.AccessTokenCipher = access.Ciphertext
	token.AccessTokenIV = access.IV
	token.AccessTokenAuthTag = access.AuthTag

	if creds.RefreshToken != "" {
		refresh, err := s.vault.Encrypt(creds.RefreshToken)
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		token.RefreshTokenCipher = refresh.Ciphertext
		token.RefreshTokenIV = refresh.IV
		token.RefreshTokenAuthTag = refresh.AuthTag
	}
	token.ExpiresAt = creds.ExpiresAt

	err = s.repositories.AccountTokenRepository.SaveToken(ctx, token)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (s *credentialService) DeleteCredentials(ctx context.Context, accountID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialService.DeleteCredentials")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	return s.repositories.AccountTokenRepository.DeleteTokenForAccount(ctx, accountID)
}

func (s *credentialService) loadAndDecrypt(ctx context.Context, accountID string) (*models.AccountToken, *interfaces.Credentials, error) {
	token, err := s.repositories.AccountTokenRepository.GetTokenForAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	accessToken, err := s.vault.Decrypt(&crypto.EncryptedPayload{
		Ciphertext: token.AccessTokenCipher,
		IV:         token.AccessTokenIV,
		AuthTag:    token.AccessTokenAuthTag,
	})
	if err != nil {
		return nil, nil, err
	}

	creds := &interfaces.Credentials{
		AccessToken: accessToken,
		ExpiresAt:   token.ExpiresAt,
	}

	if token.HasRefreshToken() {
		refreshToken, err := s.vault.Decrypt(&crypto.EncryptedPayload{
			Ciphertext: token.RefreshTokenCipher,
			IV:         token.RefreshTokenIV,
			AuthTag:    token.RefreshTokenAuthTag,
		})
		if err != nil {
			return nil, nil, err
		}
		creds.RefreshToken = refreshToken
	}

	return token, creds, nil
}

// refresh redeems the refresh token with the provider's OAuth endpoint and
// persists the re-encrypted result.
func (s *credentialService) refresh(ctx context.Context, accountID, refreshToken string) (*interfaces.Credentials, error) {
	account, err := s.repositories.MailAccountRepository.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.oauthConfig(account.Provider)
	if err != nil {
		return nil, err
	}

	newToken, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, errors.Wrap(unimailerrors.ErrAuthenticationFailed, err.Error())
	}

	creds := &interfaces.Credentials{
		AccessToken:  newToken.AccessToken,
		RefreshToken: refreshToken,
	}
	if newToken.RefreshToken != "" {
		creds.RefreshToken = newToken.RefreshToken
	}
	if !newToken.Expiry.IsZero() {
		expiry := newToken.Expiry
		creds.ExpiresAt = &expiry
	}

	if err := s.StoreCredentials(ctx, accountID, creds); err != nil {
		s.log.Errorf("failed to persist refreshed token for account %s: %v", accountID, err)
	}

	return creds, nil
}

func (s *credentialService) oauthConfig(provider enum.MailProvider) (*oauth2.Config, error) {
	switch provider {
	case enum.ProviderGmail:
		return s.google, nil
	case enum.ProviderOutlook:
		return s.microsoft, nil
	default:
		return nil, errors.Wrapf(unimailerrors.ErrAuthenticationFailed, "provider %s does not support token refresh", provider)
	}
}
