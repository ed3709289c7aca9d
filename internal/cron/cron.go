package cron

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/cache"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/tracing"
)

const syncSchedule = "* * * * *"

// SyncScheduler drops cached folders for accounts whose sync frequency has
// elapsed. The next read repopulates from the provider, so the background
// refresh never talks to providers itself and never burns rate limit budget.
type SyncScheduler struct {
	accounts interfaces.MailAccountRepository
	cache    *cache.MessageCache
	log      logger.Logger

	c  *cron.Cron
	mu sync.Mutex
}

func NewSyncScheduler(accounts interfaces.MailAccountRepository, messageCache *cache.MessageCache, log logger.Logger) *SyncScheduler {
	return &SyncScheduler{
		accounts: accounts,
		cache:    messageCache,
		log:      log,
	}
}

func (s *SyncScheduler) Start() error {
	s.c = cron.New()
	_, err := s.c.AddFunc(syncSchedule, func() {
		s.runSyncCycle()
	})
	if err != nil {
		return err
	}
	s.c.Start()
	return nil
}

func (s *SyncScheduler) Stop() {
	if s.c == nil {
		return
	}
	ctx := s.c.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.log.Warn("sync scheduler stop timed out")
	}
}

func (s *SyncScheduler) runSyncCycle() {
	// Skip the cycle entirely if the previous one is still running.
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()

	span, ctx := tracing.StartTracerSpan(context.Background(), "SyncScheduler.runSyncCycle")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	accounts, err := s.accounts.GetEnabledAccounts(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("sync cycle: failed to load accounts: %v", err)
		return
	}

	now := time.Now()
	synced := 0
	for _, account := range accounts {
		if !account.SyncDue(now) {
			continue
		}

		s.cache.InvalidateAccount(account.ID)
		s.cache.InvalidateSummary(account.UserID)

		if err := s.accounts.MarkSynced(ctx, account.ID); err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("sync cycle: failed to mark account %s synced: %v", account.ID, err)
			continue
		}
		synced++
	}

	if synced > 0 {
		s.log.Infof("sync cycle: refreshed %d accounts", synced)
	}
	span.SetTag("accounts_refreshed", synced)
}
