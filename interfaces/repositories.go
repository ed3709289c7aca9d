package interfaces

import (
	"context"

	"github.com/unimailhq/unimail/internal/models"
)

type MailAccountRepository interface {
	GetAccount(ctx context.Context, id string) (*models.MailAccount, error)
	GetAccountsForUser(ctx context.Context, userID string) ([]*models.MailAccount, error)
	GetEnabledAccounts(ctx context.Context) ([]*models.MailAccount, error)
	SaveAccount(ctx context.Context, account *models.MailAccount) error
	MarkSynced(ctx context.Context, id string) error
	DeleteAccount(ctx context.Context, id string) error
}

type AccountTokenRepository interface {
	GetTokenForAccount(ctx context.Context, accountID string) (*models.AccountToken, error)
	SaveToken(ctx context.Context, token *models.AccountToken) error
	DeleteTokenForAccount(ctx context.Context, accountID string) error
}
