package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/enum"
	unimailerrors "github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/tracing"
	"github.com/unimailhq/unimail/internal/utils"
)

type linkAccountRequest struct {
	Provider      enum.MailProvider `json:"provider"`
	Email         string            `json:"email"`
	DisplayName   string            `json:"displayName"`
	SyncFrequency int               `json:"syncFrequency"`
	Imap          *imapSettings     `json:"imap,omitempty"`
	Credentials   linkCredentials   `json:"credentials"`
}

type imapSettings struct {
	Server   string `json:"server"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	TLS      *bool  `json:"tls,omitempty"`
}

type linkCredentials struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

type updateAccountRequest struct {
	DisplayName   *string `json:"displayName,omitempty"`
	Enabled       *bool   `json:"enabled,omitempty"`
	SyncFrequency *int    `json:"syncFrequency,omitempty"`
}

// LinkAccount registers a mailbox for the calling user and stores its
// credentials encrypted. The plaintext credential appears only in the request
// body and is never logged.
func (h *Handlers) LinkAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.startSpan(c, "LinkAccount")
		defer span.Finish()

		var request linkAccountRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := validateLinkRequest(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tracing.TagProvider(span, request.Provider.String())

		userID := utils.GetUserIdFromContext(ctx)
		existing, err := h.repositories.MailAccountRepository.GetAccountsForUser(ctx, userID)
		if err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}
		for _, account := range existing {
			if account.Provider == request.Provider && account.Email == request.Email {
				respondError(c, unimailerrors.ErrAccountExists)
				return
			}
		}

		account := &models.MailAccount{
			UserID:        userID,
			Provider:      request.Provider,
			Email:         request.Email,
			DisplayName:   request.DisplayName,
			Enabled:       true,
			SyncFrequency: request.SyncFrequency,
		}
		if request.Imap != nil {
			account.ImapServer = request.Imap.Server
			account.ImapPort = request.Imap.Port
			account.ImapUsername = request.Imap.Username
			account.ImapTLS = request.Imap.TLS == nil || *request.Imap.TLS
		}

		if err := h.repositories.MailAccountRepository.SaveAccount(ctx, account); err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}

		err = h.services.CredentialService.StoreCredentials(ctx, account.ID, &interfaces.Credentials{
			AccessToken:  request.Credentials.AccessToken,
			RefreshToken: request.Credentials.RefreshToken,
			ExpiresAt:    request.Credentials.ExpiresAt,
		})
		if err != nil {
			tracing.TraceErr(span, err)
			// Roll back the half-linked account so the client can retry.
			_ = h.repositories.MailAccountRepository.DeleteAccount(ctx, account.ID)
			respondError(c, err)
			return
		}

		h.publishAccountEvent(ctx, interfaces.EventAccountLinked, account)
		c.JSON(http.StatusCreated, account)
	}
}

func (h *Handlers) ListAccounts() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.startSpan(c, "ListAccounts")
		defer span.Finish()

		accounts, err := h.repositories.MailAccountRepository.GetAccountsForUser(ctx, utils.GetUserIdFromContext(ctx))
		if err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accounts": accounts})
	}
}

func (h *Handlers) UpdateAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.startSpan(c, "UpdateAccount")
		defer span.Finish()

		var request updateAccountRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		account, err := h.ownedAccount(ctx, c.Param("id"))
		if err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}

		if request.DisplayName != nil {
			account.DisplayName = *request.DisplayName
		}
		if request.Enabled != nil {
			account.Enabled = *request.Enabled
		}
		if request.SyncFrequency != nil && *request.SyncFrequency > 0 {
			account.SyncFrequency = *request.SyncFrequency
		}

		if err := h.repositories.MailAccountRepository.SaveAccount(ctx, account); err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}

		// A disabled account drops out of summaries and cached reads at once.
		if request.Enabled != nil && !*request.Enabled {
			h.services.MessageCache.InvalidateAccount(account.ID)
			h.services.MessageCache.InvalidateSummary(account.UserID)
		}
		c.JSON(http.StatusOK, account)
	}
}

func (h *Handlers) UnlinkAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.startSpan(c, "UnlinkAccount")
		defer span.Finish()

		account, err := h.ownedAccount(ctx, c.Param("id"))
		if err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}

		if err := h.services.CredentialService.DeleteCredentials(ctx, account.ID); err != nil {
			if !errors.Is(err, unimailerrors.ErrTokenNotFound) {
				tracing.TraceErr(span, err)
				respondError(c, err)
				return
			}
		}
		if err := h.repositories.MailAccountRepository.DeleteAccount(ctx, account.ID); err != nil {
			tracing.TraceErr(span, err)
			respondError(c, err)
			return
		}

		h.services.MessageCache.InvalidateAccount(account.ID)
		h.services.MessageCache.InvalidateSummary(account.UserID)
		h.publishAccountEvent(ctx, interfaces.EventAccountUnlinked, account)
		c.Status(http.StatusNoContent)
	}
}

func (h *Handlers) ownedAccount(ctx context.Context, accountID string) (*models.MailAccount, error) {
	account, err := h.repositories.MailAccountRepository.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != utils.GetUserIdFromContext(ctx) {
		return nil, errors.Wrapf(unimailerrors.ErrAccessDenied, "account %s", accountID)
	}
	return account, nil
}

func (h *Handlers) publishAccountEvent(ctx context.Context, eventType string, account *models.MailAccount) {
	if h.services.EventPublisher == nil {
		return
	}
	err := h.services.EventPublisher.Publish(ctx, eventType, account.ID, map[string]interface{}{
		"provider": account.Provider.String(),
		"email":    account.Email,
	})
	if err != nil {
		h.log.Warnf("events: failed to publish %s for account %s: %v", eventType, account.ID, err)
	}
}

func validateLinkRequest(request *linkAccountRequest) error {
	if !request.Provider.IsValid() {
		return errors.Errorf("unknown provider %q", request.Provider)
	}
	if utils.ExtractDomainFromEmail(request.Email) == "" {
		return errors.New("a valid email is required")
	}
	if request.Credentials.AccessToken == "" {
		return errors.New("credentials are required")
	}
	if request.Provider == enum.ProviderIMAP {
		if request.Imap == nil || request.Imap.Server == "" || request.Imap.Port == 0 || request.Imap.Username == "" {
			return errors.New("imap accounts require server, port and username")
		}
	}
	if request.SyncFrequency <= 0 {
		request.SyncFrequency = 15
	}
	return nil
}
