package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/unimailhq/unimail/internal/enum"
	"github.com/unimailhq/unimail/internal/utils"
)

// MailAccount identifies one connected mailbox. One user may link the same
// address at most once per provider.
type MailAccount struct {
	ID          string            `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	UserID      string            `gorm:"column:user_id;type:varchar(50);index;not null;uniqueIndex:idx_user_provider_email" json:"userId"`
	Provider    enum.MailProvider `gorm:"column:provider;type:varchar(50);not null;uniqueIndex:idx_user_provider_email" json:"provider"`
	DisplayName string            `gorm:"column:display_name;type:varchar(255)" json:"displayName"`
	Email       string            `gorm:"column:email;type:varchar(255);not null;uniqueIndex:idx_user_provider_email" json:"email"`
	Enabled     bool              `gorm:"column:enabled;not null;default:true" json:"enabled"`
	// SyncFrequency is minutes between background refreshes of this account.
	SyncFrequency int        `gorm:"column:sync_frequency;not null;default:15" json:"syncFrequency"`
	LastSyncedAt  *time.Time `gorm:"column:last_synced_at;type:timestamp" json:"lastSyncedAt"`

	// IMAP connection settings, empty for OAuth providers
	ImapServer   string `gorm:"column:imap_server;type:varchar(255)" json:"imapServer,omitempty"`
	ImapPort     int    `gorm:"column:imap_port" json:"imapPort,omitempty"`
	ImapUsername string `gorm:"column:imap_username;type:varchar(255)" json:"imapUsername,omitempty"`
	ImapTLS      bool   `gorm:"column:imap_tls;default:true" json:"imapTls,omitempty"`

	// Standard timestamps
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (MailAccount) TableName() string {
	return "mail_accounts"
}

func (a *MailAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("acct", 16)
	}
	return nil
}

// SyncDue reports whether the account's sync frequency has elapsed since the
// last background refresh.
func (a *MailAccount) SyncDue(now time.Time) bool {
	if !a.Enabled {
		return false
	}
	if a.LastSyncedAt == nil {
		return true
	}
	return now.Sub(*a.LastSyncedAt) >= time.Duration(a.SyncFrequency)*time.Minute
}
