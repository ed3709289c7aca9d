package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/tracing"
)

type accountTokenRepository struct {
	db *gorm.DB
}

func NewAccountTokenRepository(db *gorm.DB) interfaces.AccountTokenRepository {
	return &accountTokenRepository{db: db}
}

func (r *accountTokenRepository) GetTokenForAccount(ctx context.Context, accountID string) (*models.AccountToken, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountTokenRepository.GetTokenForAccount")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	var token models.AccountToken
	err := r.db.WithContext(ctx).First(&token, "account_id = ?", accountID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrTokenNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &token, nil
}

func (r *accountTokenRepository) SaveToken(ctx context.Context, token *models.AccountToken) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountTokenRepository.SaveToken")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, token.AccountID)

	err := r.db.WithContext(ctx).Save(token).Error
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (r *accountTokenRepository) DeleteTokenForAccount(ctx context.Context, accountID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountTokenRepository.DeleteTokenForAccount")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	err := r.db.WithContext(ctx).Delete(&models.AccountToken{}, "account_id = ?", accountID).Error
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}
