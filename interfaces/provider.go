package interfaces

import (
	"context"

	"github.com/unimailhq/unimail/internal/enum"
	"github.com/unimailhq/unimail/internal/models"
)

const (
	DefaultFolder     = "inbox"
	DefaultMaxResults = 50
	// MaxMaxResults caps any single provider fetch regardless of what the
	// caller asks for.
	MaxMaxResults = 100
)

// SearchRequest asks one account's provider for messages matching a query.
// Folder defaults to "inbox" and MaxResults to 50 when zero-valued.
type SearchRequest struct {
	AccountID  string `json:"accountId"`
	Query      string `json:"query"`
	Folder     string `json:"folder,omitempty"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// SearchResult carries matches plus the provider's estimate of the total
// match count, which may exceed len(Messages).
type SearchResult struct {
	Messages   []models.MailMessage `json:"messages"`
	TotalCount int                  `json:"totalCount"`
}

// BulkActionRequest applies one action to a set of message ids on a single
// account.
type BulkActionRequest struct {
	AccountID  string          `json:"accountId"`
	Folder     string          `json:"folder,omitempty"`
	MessageIDs []string        `json:"messageIds"`
	Action     enum.BulkAction `json:"action"`
}

// BulkActionResult reports per-id processing. ProcessedCount plus
// FailedCount always equals the number of requested ids.
type BulkActionResult struct {
	Success        bool   `json:"success"`
	ProcessedCount int    `json:"processedCount"`
	FailedCount    int    `json:"failedCount"`
	Error          string `json:"error,omitempty"`
}

// FolderStats is the lightweight per-folder count used for summaries.
type FolderStats struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}

// MailProvider is the capability contract every mail backend implements.
// Adapters own their provider's authentication refresh and normalize
// provider-native messages into the canonical MailMessage shape.
type MailProvider interface {
	// ListMessages returns the newest messages in a folder, newest first.
	ListMessages(ctx context.Context, account *models.MailAccount, folder string, maxResults int) ([]models.MailMessage, error)

	// SearchMessages queries the provider directly; results are never cached.
	SearchMessages(ctx context.Context, account *models.MailAccount, request SearchRequest) (*SearchResult, error)

	// PerformBulkAction attempts every message id independently. A failure on
	// one id never aborts the rest. An action the provider cannot express
	// fails every id with a descriptive error instead of returning an error.
	PerformBulkAction(ctx context.Context, account *models.MailAccount, request BulkActionRequest) (*BulkActionResult, error)

	// FolderStats returns unread/total counts for one folder.
	FolderStats(ctx context.Context, account *models.MailAccount, folder string) (*FolderStats, error)
}
