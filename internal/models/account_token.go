package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/unimailhq/unimail/internal/utils"
)

// AccountToken stores one account's provider credentials at rest. Every
// secret column holds vault ciphertext; plaintext exists only transiently
// inside the adapter call that needs it and is never logged or cached.
type AccountToken struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	AccountID string `gorm:"column:account_id;type:varchar(50);uniqueIndex;not null" json:"accountId"`

	AccessTokenCipher  string `gorm:"column:access_token_cipher;type:text;not null" json:"-"`
	AccessTokenIV      string `gorm:"column:access_token_iv;type:varchar(64);not null" json:"-"`
	AccessTokenAuthTag string `gorm:"column:access_token_auth_tag;type:varchar(64);not null" json:"-"`

	RefreshTokenCipher  string `gorm:"column:refresh_token_cipher;type:text" json:"-"`
	RefreshTokenIV      string `gorm:"column:refresh_token_iv;type:varchar(64)" json:"-"`
	RefreshTokenAuthTag string `gorm:"column:refresh_token_auth_tag;type:varchar(64)" json:"-"`

	// ExpiresAt is nil for IMAP credentials, which do not expire.
	ExpiresAt *time.Time `gorm:"column:expires_at;type:timestamp" json:"expiresAt"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (AccountToken) TableName() string {
	return "account_tokens"
}

func (t *AccountToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.GenerateNanoIDWithPrefix("tok", 16)
	}
	return nil
}

// HasRefreshToken reports whether a refresh token ciphertext is stored.
func (t *AccountToken) HasRefreshToken() bool {
	return t.RefreshTokenCipher != ""
}

// Expired reports whether the access token is past its expiry, with a small
// margin so calls do not race the provider clock.
func (t *AccountToken) Expired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return !now.Before(t.ExpiresAt.Add(-2 * time.Minute))
}
