package mail

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/cache"
	"github.com/unimailhq/unimail/internal/enum"
	unimailerrors "github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/ratelimit"
	"github.com/unimailhq/unimail/internal/utils"
)

type stubAccountRepo struct {
	accounts map[string]*models.MailAccount
}

func (r *stubAccountRepo) GetAccount(ctx context.Context, id string) (*models.MailAccount, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, unimailerrors.ErrAccountNotFound
	}
	return account, nil
}

func (r *stubAccountRepo) GetAccountsForUser(ctx context.Context, userID string) ([]*models.MailAccount, error) {
	var out []*models.MailAccount
	for _, account := range r.accounts {
		if account.UserID == userID {
			out = append(out, account)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) GetEnabledAccounts(ctx context.Context) ([]*models.MailAccount, error) {
	var out []*models.MailAccount
	for _, account := range r.accounts {
		if account.Enabled {
			out = append(out, account)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) SaveAccount(ctx context.Context, account *models.MailAccount) error {
	r.accounts[account.ID] = account
	return nil
}

func (r *stubAccountRepo) MarkSynced(ctx context.Context, id string) error { return nil }

func (r *stubAccountRepo) DeleteAccount(ctx context.Context, id string) error {
	delete(r.accounts, id)
	return nil
}

type stubProvider struct {
	listCalls      int
	searchCalls    int
	statsCalls     int
	lastMaxResults int

	listMessages []models.MailMessage
	listErr      error
	bulkResult   *interfaces.BulkActionResult
	stats        *interfaces.FolderStats
	statsErr     error
}

func (p *stubProvider) ListMessages(ctx context.Context, account *models.MailAccount, folder string, maxResults int) ([]models.MailMessage, error) {
	p.listCalls++
	p.lastMaxResults = maxResults
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.listMessages, nil
}

func (p *stubProvider) SearchMessages(ctx context.Context, account *models.MailAccount, request interfaces.SearchRequest) (*interfaces.SearchResult, error) {
	p.searchCalls++
	return &interfaces.SearchResult{Messages: p.listMessages, TotalCount: len(p.listMessages)}, nil
}

func (p *stubProvider) PerformBulkAction(ctx context.Context, account *models.MailAccount, request interfaces.BulkActionRequest) (*interfaces.BulkActionResult, error) {
	return p.bulkResult, nil
}

func (p *stubProvider) FolderStats(ctx context.Context, account *models.MailAccount, folder string) (*interfaces.FolderStats, error) {
	p.statsCalls++
	if p.statsErr != nil {
		return nil, p.statsErr
	}
	return p.stats, nil
}

type stubPublisher struct {
	published []string
}

func (p *stubPublisher) Publish(ctx context.Context, eventType string, accountID string, data interface{}) error {
	p.published = append(p.published, eventType)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

type fixture struct {
	service   interfaces.MailService
	repo      *stubAccountRepo
	gmail     *stubProvider
	outlook   *stubProvider
	cache     *cache.MessageCache
	publisher *stubPublisher
	limiter   *ratelimit.Limiter
}

func newFixture(t *testing.T, maxRequests int) *fixture {
	t.Helper()

	repo := &stubAccountRepo{accounts: map[string]*models.MailAccount{
		"acct-1": {ID: "acct-1", UserID: "user-1", Provider: enum.ProviderGmail, Email: "a@example.com", Enabled: true},
		"acct-2": {ID: "acct-2", UserID: "user-1", Provider: enum.ProviderOutlook, Email: "b@example.com", Enabled: true},
		"acct-9": {ID: "acct-9", UserID: "user-9", Provider: enum.ProviderGmail, Email: "other@example.com", Enabled: true},
	}}
	gmail := &stubProvider{stats: &interfaces.FolderStats{Total: 10, Unread: 4}}
	outlook := &stubProvider{stats: &interfaces.FolderStats{Total: 5, Unread: 2}}
	messageCache := cache.NewMessageCache(0, 0)
	publisher := &stubPublisher{}
	limiter := ratelimit.NewLimiter(maxRequests, time.Minute)

	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", Encoder: "console"})
	log.InitLogger()

	service := NewMailService(
		repo,
		map[enum.MailProvider]interfaces.MailProvider{
			enum.ProviderGmail:   gmail,
			enum.ProviderOutlook: outlook,
		},
		limiter,
		messageCache,
		publisher,
		log,
	)

	return &fixture{
		service:   service,
		repo:      repo,
		gmail:     gmail,
		outlook:   outlook,
		cache:     messageCache,
		publisher: publisher,
		limiter:   limiter,
	}
}

func userContext(userID string) context.Context {
	return utils.WithCustomContext(context.Background(), &utils.CustomContext{UserId: userID})
}

func sampleMessages(n int) []models.MailMessage {
	messages := make([]models.MailMessage, n)
	for i := range messages {
		messages[i] = models.MailMessage{ID: "msg", AccountID: "acct-1", Provider: enum.ProviderGmail}
	}
	return messages
}

func TestGetMessages_CacheMissThenHit(t *testing.T) {
	f := newFixture(t, 100)
	f.gmail.listMessages = sampleMessages(3)
	ctx := userContext("user-1")

	page, err := f.service.GetMessages(ctx, "acct-1", "inbox", 50)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	require.False(t, page.HasMore)
	require.Equal(t, 1, f.gmail.listCalls)

	// Second read is served from cache without touching the provider.
	page, err = f.service.GetMessages(ctx, "acct-1", "inbox", 50)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	require.False(t, page.HasMore)
	require.Equal(t, 1, f.gmail.listCalls)
}

func TestGetMessages_FullPageReportsHasMore(t *testing.T) {
	f := newFixture(t, 100)
	f.gmail.listMessages = sampleMessages(10)

	page, err := f.service.GetMessages(userContext("user-1"), "acct-1", "inbox", 10)
	require.NoError(t, err)
	require.True(t, page.HasMore)
}

func TestGetMessages_ProviderErrorIsNotCached(t *testing.T) {
	f := newFixture(t, 100)
	f.gmail.listErr = unimailerrors.ErrProviderFailure
	ctx := userContext("user-1")

	_, err := f.service.GetMessages(ctx, "acct-1", "inbox", 50)
	require.ErrorIs(t, err, unimailerrors.ErrProviderFailure)

	f.gmail.listErr = nil
	f.gmail.listMessages = sampleMessages(1)
	page, err := f.service.GetMessages(ctx, "acct-1", "inbox", 50)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	require.Equal(t, 2, f.gmail.listCalls)
}

func TestGetMessages_ForeignAccountIsDenied(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.service.GetMessages(userContext("user-1"), "acct-9", "inbox", 50)
	require.ErrorIs(t, err, unimailerrors.ErrAccessDenied)
	require.Zero(t, f.gmail.listCalls)
}

func TestGetMessages_UnknownAccount(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.service.GetMessages(userContext("user-1"), "acct-404", "inbox", 50)
	require.ErrorIs(t, err, unimailerrors.ErrAccountNotFound)
}

func TestGetMessages_RateLimited(t *testing.T) {
	f := newFixture(t, 2)
	f.gmail.listMessages = sampleMessages(1)
	ctx := userContext("user-1")

	// Different folders avoid the cache so every call counts against the
	// limit.
	_, err := f.service.GetMessages(ctx, "acct-1", "inbox", 50)
	require.NoError(t, err)
	_, err = f.service.GetMessages(ctx, "acct-1", "sent", 50)
	require.NoError(t, err)

	_, err = f.service.GetMessages(ctx, "acct-1", "trash", 50)
	require.ErrorIs(t, err, unimailerrors.ErrRateLimited)
	require.Equal(t, 2, f.gmail.listCalls)

	// A different account has its own budget.
	_, err = f.service.GetMessages(ctx, "acct-2", "inbox", 50)
	require.NoError(t, err)
}

func TestRateLimit_OperationsHaveSeparateBudgets(t *testing.T) {
	f := newFixture(t, 2)
	f.gmail.listMessages = sampleMessages(1)
	ctx := userContext("user-1")

	// Exhaust the search budget for this account.
	for i := 0; i < 2; i++ {
		_, err := f.service.SearchMessages(ctx, interfaces.SearchRequest{AccountID: "acct-1", Query: "invoice"})
		require.NoError(t, err)
	}
	_, err := f.service.SearchMessages(ctx, interfaces.SearchRequest{AccountID: "acct-1", Query: "invoice"})
	require.ErrorIs(t, err, unimailerrors.ErrRateLimited)

	// Folder reads, bulk actions and summaries still have their own budgets.
	_, err = f.service.GetMessages(ctx, "acct-1", "inbox", 50)
	require.NoError(t, err)

	f.gmail.bulkResult = &interfaces.BulkActionResult{Success: true, ProcessedCount: 1}
	_, err = f.service.PerformBulkAction(ctx, interfaces.BulkActionRequest{
		AccountID:  "acct-1",
		MessageIDs: []string{"m1"},
		Action:     enum.BulkActionMarkRead,
	})
	require.NoError(t, err)

	_, err = f.service.GetSummary(ctx)
	require.NoError(t, err)
}

func TestGetMessages_ClampsMaxResults(t *testing.T) {
	f := newFixture(t, 100)
	f.gmail.listMessages = sampleMessages(1)
	ctx := userContext("user-1")

	_, err := f.service.GetMessages(ctx, "acct-1", "inbox", 100000)
	require.NoError(t, err)
	require.Equal(t, interfaces.MaxMaxResults, f.gmail.lastMaxResults)

	_, err = f.service.GetMessages(ctx, "acct-1", "sent", 0)
	require.NoError(t, err)
	require.Equal(t, interfaces.DefaultMaxResults, f.gmail.lastMaxResults)
}

func TestSearchMessages_BypassesCache(t *testing.T) {
	f := newFixture(t, 100)
	f.gmail.listMessages = sampleMessages(2)
	ctx := userContext("user-1")

	for i := 0; i < 2; i++ {
		result, err := f.service.SearchMessages(ctx, interfaces.SearchRequest{
			AccountID: "acct-1",
			Query:     "invoice",
		})
		require.NoError(t, err)
		require.Len(t, result.Messages, 2)
		require.Equal(t, 2, result.TotalCount)
	}
	require.Equal(t, 2, f.gmail.searchCalls)
}

func TestPerformBulkAction_InvalidatesCacheAndPublishes(t *testing.T) {
	f := newFixture(t, 100)
	f.gmail.listMessages = sampleMessages(2)
	f.gmail.bulkResult = &interfaces.BulkActionResult{Success: true, ProcessedCount: 2}
	ctx := userContext("user-1")

	_, err := f.service.GetMessages(ctx, "acct-1", "inbox", 50)
	require.NoError(t, err)
	f.cache.SetSummary("user-1", &models.MailSummary{UserID: "user-1"})

	result, err := f.service.PerformBulkAction(ctx, interfaces.BulkActionRequest{
		AccountID:  "acct-1",
		Folder:     "inbox",
		MessageIDs: []string{"m1", "m2"},
		Action:     enum.BulkActionMarkRead,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, result.ProcessedCount)

	_, ok := f.cache.GetMessages("acct-1", "inbox")
	require.False(t, ok)
	_, ok = f.cache.GetSummary("user-1")
	require.False(t, ok)
	require.Equal(t, []string{interfaces.EventMailBulkAction}, f.publisher.published)
}

func TestPerformBulkAction_MoveActionsInvalidateDestinationFolder(t *testing.T) {
	f := newFixture(t, 100)
	f.gmail.listMessages = sampleMessages(1)
	f.gmail.bulkResult = &interfaces.BulkActionResult{Success: true, ProcessedCount: 1}
	ctx := userContext("user-1")

	seed := sampleMessages(2)
	f.cache.SetMessages("acct-1", "trash", seed)
	f.cache.SetMessages("acct-1", "junk", seed)
	f.cache.SetMessages("acct-1", "spam", seed)
	f.cache.SetMessages("acct-1", "sent", seed)

	_, err := f.service.PerformBulkAction(ctx, interfaces.BulkActionRequest{
		AccountID:  "acct-1",
		Folder:     "inbox",
		MessageIDs: []string{"m1"},
		Action:     enum.BulkActionDelete,
	})
	require.NoError(t, err)

	// Deleted messages land in trash, so its cached listing is stale too.
	_, ok := f.cache.GetMessages("acct-1", "trash")
	require.False(t, ok)
	_, ok = f.cache.GetMessages("acct-1", "sent")
	require.True(t, ok)

	_, err = f.service.PerformBulkAction(ctx, interfaces.BulkActionRequest{
		AccountID:  "acct-1",
		Folder:     "inbox",
		MessageIDs: []string{"m2"},
		Action:     enum.BulkActionJunk,
	})
	require.NoError(t, err)

	// Junked messages stale both folder aliases.
	_, ok = f.cache.GetMessages("acct-1", "junk")
	require.False(t, ok)
	_, ok = f.cache.GetMessages("acct-1", "spam")
	require.False(t, ok)
}

func TestPerformBulkAction_NothingProcessedKeepsCache(t *testing.T) {
	f := newFixture(t, 100)
	f.gmail.listMessages = sampleMessages(1)
	f.gmail.bulkResult = &interfaces.BulkActionResult{Success: false, FailedCount: 2, Error: "not found"}
	ctx := userContext("user-1")

	_, err := f.service.GetMessages(ctx, "acct-1", "inbox", 50)
	require.NoError(t, err)

	result, err := f.service.PerformBulkAction(ctx, interfaces.BulkActionRequest{
		AccountID:  "acct-1",
		Folder:     "inbox",
		MessageIDs: []string{"m1", "m2"},
		Action:     enum.BulkActionDelete,
	})
	require.NoError(t, err)
	require.False(t, result.Success)

	_, ok := f.cache.GetMessages("acct-1", "inbox")
	require.True(t, ok)
	require.Empty(t, f.publisher.published)
}

func TestGetSummary_AggregatesAcrossAccounts(t *testing.T) {
	f := newFixture(t, 100)

	summary, err := f.service.GetSummary(userContext("user-1"))
	require.NoError(t, err)
	require.Equal(t, "user-1", summary.UserID)
	require.Len(t, summary.Accounts, 2)
	require.Empty(t, summary.Errors)
	require.Equal(t, 6, summary.TotalUnread)
	require.WithinDuration(t, time.Now(), summary.GeneratedAt, time.Minute)
}

func TestGetSummary_PartialFailure(t *testing.T) {
	f := newFixture(t, 100)
	f.outlook.statsErr = errors.Wrap(unimailerrors.ErrProviderFailure, "upstream 503")

	summary, err := f.service.GetSummary(userContext("user-1"))
	require.NoError(t, err)
	require.Len(t, summary.Accounts, 1)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, "acct-2", summary.Errors[0].AccountID)
	require.Equal(t, 4, summary.TotalUnread)
}

func TestGetSummary_SkipsDisabledAccounts(t *testing.T) {
	f := newFixture(t, 100)
	f.repo.accounts["acct-2"].Enabled = false

	summary, err := f.service.GetSummary(userContext("user-1"))
	require.NoError(t, err)
	require.Len(t, summary.Accounts, 1)
	require.Equal(t, "acct-1", summary.Accounts[0].AccountID)
	require.Zero(t, f.outlook.statsCalls)
}

func TestGetSummary_UsesCache(t *testing.T) {
	f := newFixture(t, 100)
	ctx := userContext("user-1")

	_, err := f.service.GetSummary(ctx)
	require.NoError(t, err)
	_, err = f.service.GetSummary(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, f.gmail.statsCalls)
	require.Equal(t, 1, f.outlook.statsCalls)
}

func TestGetSummary_MissingUserIsDenied(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.service.GetSummary(context.Background())
	require.ErrorIs(t, err, unimailerrors.ErrAccessDenied)
}
