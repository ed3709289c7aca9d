package interfaces

import (
	"context"

	"github.com/unimailhq/unimail/internal/models"
)

// MessagePage is the caller-facing result of a folder read. HasMore is a
// heuristic: a full page suggests more may exist. The cache-hit path always
// reports HasMore=false since a cached list is the caller's last full fetch.
type MessagePage struct {
	Messages []models.MailMessage `json:"messages"`
	HasMore  bool                 `json:"hasMore"`
}

// MailService is the single entry point for reading or mutating mail across
// providers. It enforces account ownership, rate limiting and caching in
// that order before any adapter is reached.
type MailService interface {
	GetMessages(ctx context.Context, accountID, folder string, maxResults int) (*MessagePage, error)
	SearchMessages(ctx context.Context, request SearchRequest) (*SearchResult, error)
	PerformBulkAction(ctx context.Context, request BulkActionRequest) (*BulkActionResult, error)
	GetSummary(ctx context.Context) (*models.MailSummary, error)
}
