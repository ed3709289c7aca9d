package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/cache"
	"github.com/unimailhq/unimail/internal/enum"
	unimailerrors "github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/ratelimit"
	"github.com/unimailhq/unimail/internal/tracing"
	"github.com/unimailhq/unimail/internal/utils"
)

type mailService struct {
	accounts  interfaces.MailAccountRepository
	providers map[enum.MailProvider]interfaces.MailProvider
	limiter   *ratelimit.Limiter
	cache     *cache.MessageCache
	events    interfaces.MailEventPublisher
	log       logger.Logger
}

// NewMailService wires the cross-provider entry point. The events publisher
// may be nil, in which case mutations are not announced.
func NewMailService(
	accounts interfaces.MailAccountRepository,
	providers map[enum.MailProvider]interfaces.MailProvider,
	limiter *ratelimit.Limiter,
	messageCache *cache.MessageCache,
	events interfaces.MailEventPublisher,
	log logger.Logger,
) interfaces.MailService {
	return &mailService{
		accounts:  accounts,
		providers: providers,
		limiter:   limiter,
		cache:     messageCache,
		events:    events,
		log:       log,
	}
}

func (s *mailService) GetMessages(ctx context.Context, accountID, folder string, maxResults int) (*interfaces.MessagePage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.GetMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	if folder == "" {
		folder = interfaces.DefaultFolder
	}
	maxResults = clampMaxResults(maxResults)
	span.SetTag("folder", folder)

	account, err := s.authorizeAccount(ctx, accountID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := s.checkRateLimit(account, "messages"); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if cached, ok := s.cache.GetMessages(accountID, folder); ok {
		span.LogFields(log.Bool("cache.hit", true))
		return &interfaces.MessagePage{Messages: cached, HasMore: false}, nil
	}
	span.LogFields(log.Bool("cache.hit", false))

	provider, err := s.providerFor(account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	messages, err := provider.ListMessages(ctx, account, folder, maxResults)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.cache.SetMessages(accountID, folder, messages)
	return &interfaces.MessagePage{
		Messages: messages,
		HasMore:  len(messages) >= maxResults,
	}, nil
}

// SearchMessages always goes to the provider. Search results are too varied
// to cache usefully and must reflect the mailbox as of the query.
func (s *mailService) SearchMessages(ctx context.Context, request interfaces.SearchRequest) (*interfaces.SearchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.SearchMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, request.AccountID)

	if request.Folder == "" {
		request.Folder = interfaces.DefaultFolder
	}
	request.MaxResults = clampMaxResults(request.MaxResults)

	account, err := s.authorizeAccount(ctx, request.AccountID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := s.checkRateLimit(account, "search"); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	provider, err := s.providerFor(account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result, err := provider.SearchMessages(ctx, account, request)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return result, nil
}

func (s *mailService) PerformBulkAction(ctx context.Context, request interfaces.BulkActionRequest) (*interfaces.BulkActionResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.PerformBulkAction")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, request.AccountID)
	span.SetTag("action", request.Action.String())
	span.SetTag("message_count", len(request.MessageIDs))

	if request.Folder == "" {
		request.Folder = interfaces.DefaultFolder
	}

	account, err := s.authorizeAccount(ctx, request.AccountID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := s.checkRateLimit(account, "actions"); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	provider, err := s.providerFor(account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result, err := provider.PerformBulkAction(ctx, account, request)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	// Anything mutated means the folder listing and the user's summary counts
	// are stale. Move-type actions also stale the folder messages land in.
	if result.ProcessedCount > 0 {
		s.cache.InvalidateMessages(account.ID, request.Folder)
		for _, destination := range destinationFolders(request.Action) {
			s.cache.InvalidateMessages(account.ID, destination)
		}
		s.cache.InvalidateSummary(account.UserID)
		s.publishBulkActionEvent(ctx, account, request, result)
	}
	return result, nil
}

// destinationFolders lists the cached folder names a move-type action writes
// into. Junk covers both aliases since they are distinct cache keys.
func destinationFolders(action enum.BulkAction) []string {
	switch action {
	case enum.BulkActionJunk:
		return []string{"junk", "spam"}
	case enum.BulkActionDelete:
		return []string{"trash"}
	default:
		return nil
	}
}

// GetSummary aggregates folder counts across every enabled account of the
// calling user. Per-account failures are reported inline; the summary itself
// only fails when the account list cannot be loaded.
func (s *mailService) GetSummary(ctx context.Context) (*models.MailSummary, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.GetSummary")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	userID := utils.GetUserIdFromContext(ctx)
	if userID == "" {
		err := errors.Wrap(unimailerrors.ErrAccessDenied, "missing user id")
		tracing.TraceErr(span, err)
		return nil, err
	}

	if cached, ok := s.cache.GetSummary(userID); ok {
		span.LogFields(log.Bool("cache.hit", true))
		return cached, nil
	}
	span.LogFields(log.Bool("cache.hit", false))

	accounts, err := s.accounts.GetAccountsForUser(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	summary := &models.MailSummary{
		UserID:      userID,
		Accounts:    []models.AccountSummary{},
		GeneratedAt: time.Now().UTC(),
	}

	for _, account := range accounts {
		if !account.Enabled {
			continue
		}

		if err := s.checkRateLimit(account, "summary"); err != nil {
			summary.Errors = append(summary.Errors, models.SummaryError{
				AccountID: account.ID,
				Message:   err.Error(),
			})
			continue
		}

		provider, err := s.providerFor(account)
		if err != nil {
			summary.Errors = append(summary.Errors, models.SummaryError{
				AccountID: account.ID,
				Message:   err.Error(),
			})
			continue
		}

		stats, err := provider.FolderStats(ctx, account, interfaces.DefaultFolder)
		if err != nil {
			s.log.Warnf("summary: folder stats failed for account %s: %v", account.ID, err)
			summary.Errors = append(summary.Errors, models.SummaryError{
				AccountID: account.ID,
				Message:   err.Error(),
			})
			continue
		}

		summary.Accounts = append(summary.Accounts, models.AccountSummary{
			AccountID:   account.ID,
			Provider:    account.Provider,
			Email:       account.Email,
			TotalCount:  stats.Total,
			UnreadCount: stats.Unread,
		})
		summary.TotalUnread += stats.Unread
	}

	s.cache.SetSummary(userID, summary)
	return summary, nil
}

// authorizeAccount loads the account and verifies the calling user owns it.
// A foreign account id yields ErrAccessDenied, not ErrAccountNotFound, so the
// response does not leak whether the id exists.
func (s *mailService) authorizeAccount(ctx context.Context, accountID string) (*models.MailAccount, error) {
	userID := utils.GetUserIdFromContext(ctx)
	if userID == "" {
		return nil, errors.Wrap(unimailerrors.ErrAccessDenied, "missing user id")
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, errors.Wrapf(unimailerrors.ErrAccessDenied, "account %s", accountID)
	}
	return account, nil
}

// checkRateLimit budgets each operation separately per (user, account), so a
// burst of searches cannot starve folder reads on the same account.
func (s *mailService) checkRateLimit(account *models.MailAccount, operation string) error {
	key := fmt.Sprintf("mail:%s:%s:%s", operation, account.UserID, account.ID)
	result := s.limiter.Check(key)
	if !result.Allowed {
		return errors.Wrapf(unimailerrors.ErrRateLimited, "account %s", account.ID)
	}
	return nil
}

// clampMaxResults applies the default and the hard upper bound; no caller
// ever triggers an unbounded provider fetch.
func clampMaxResults(maxResults int) int {
	if maxResults <= 0 {
		return interfaces.DefaultMaxResults
	}
	if maxResults > interfaces.MaxMaxResults {
		return interfaces.MaxMaxResults
	}
	return maxResults
}

func (s *mailService) providerFor(account *models.MailAccount) (interfaces.MailProvider, error) {
	provider, ok := s.providers[account.Provider]
	if !ok {
		return nil, errors.Wrapf(unimailerrors.ErrProviderFailure, "no adapter registered for provider %q", account.Provider)
	}
	return provider, nil
}

func (s *mailService) publishBulkActionEvent(ctx context.Context, account *models.MailAccount, request interfaces.BulkActionRequest, result *interfaces.BulkActionResult) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, interfaces.EventMailBulkAction, account.ID, map[string]interface{}{
		"action":         request.Action.String(),
		"folder":         request.Folder,
		"processedCount": result.ProcessedCount,
		"failedCount":    result.FailedCount,
	})
	if err != nil {
		s.log.Warnf("events: failed to publish bulk action for account %s: %v", account.ID, err)
	}
}
