package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/tracing"
)

type mailAccountRepository struct {
	db *gorm.DB
}

func NewMailAccountRepository(db *gorm.DB) interfaces.MailAccountRepository {
	return &mailAccountRepository{db: db}
}

func (r *mailAccountRepository) GetAccount(ctx context.Context, id string) (*models.MailAccount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailAccountRepository.GetAccount")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, id)

	var account models.MailAccount
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrAccountNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &account, nil
}

func (r *mailAccountRepository) GetAccountsForUser(ctx context.Context, userID string) ([]*models.MailAccount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailAccountRepository.GetAccountsForUser")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var accounts []*models.MailAccount
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc").Find(&accounts)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, result.Error
	}
	return accounts, nil
}

func (r *mailAccountRepository) GetEnabledAccounts(ctx context.Context) ([]*models.MailAccount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailAccountRepository.GetEnabledAccounts")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var accounts []*models.MailAccount
	result := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&accounts)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, result.Error
	}
	return accounts, nil
}

func (r *mailAccountRepository) SaveAccount(ctx context.Context, account *models.MailAccount) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailAccountRepository.SaveAccount")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)

	err := r.db.WithContext(ctx).Save(account).Error
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrAccountExists
		}
		tracing.TraceErr(span, err)
	}
	return err
}

// isUniqueViolation detects a postgres unique constraint failure, raised when
// the same (user, provider, email) tuple is linked twice concurrently.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (r *mailAccountRepository) MarkSynced(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailAccountRepository.MarkSynced")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, id)

	err := r.db.WithContext(ctx).
		Model(&models.MailAccount{}).
		Where("id = ?", id).
		Update("last_synced_at", time.Now().UTC()).Error
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (r *mailAccountRepository) DeleteAccount(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailAccountRepository.DeleteAccount")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, id)

	err := r.db.WithContext(ctx).Delete(&models.MailAccount{}, "id = ?", id).Error
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}
