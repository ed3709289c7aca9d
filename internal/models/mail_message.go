package models

import (
	"time"

	"github.com/unimailhq/unimail/internal/enum"
)

// MailAddress is a value type: optional display name plus the address itself.
type MailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// MailMessage is the canonical provider-agnostic message shape. Every
// adapter must produce exactly this shape; callers never branch on
// provider-specific fields. Messages are reconstructed from provider
// responses on every cache miss and are never persisted; the provider
// remains the source of truth.
type MailMessage struct {
	ID             string            `json:"id"`
	AccountID      string            `json:"accountId"`
	Provider       enum.MailProvider `json:"provider"`
	Subject        string            `json:"subject"`
	From           MailAddress       `json:"from"`
	To             []MailAddress     `json:"to"`
	Cc             []MailAddress     `json:"cc,omitempty"`
	ReceivedAt     time.Time         `json:"receivedAt"`
	IsRead         bool              `json:"isRead"`
	HasAttachments bool              `json:"hasAttachments"`
	Preview        string            `json:"preview"`
	Importance     enum.Importance   `json:"importance,omitempty"`
	ThreadID       string            `json:"threadId,omitempty"`
}

// AccountSummary is one account's contribution to a user's cross-account
// summary.
type AccountSummary struct {
	AccountID   string            `json:"accountId"`
	Provider    enum.MailProvider `json:"provider"`
	Email       string            `json:"email"`
	TotalCount  int               `json:"totalCount"`
	UnreadCount int               `json:"unreadCount"`
}

// SummaryError records one account's failure during aggregation without
// aborting the whole summary.
type SummaryError struct {
	AccountID string `json:"accountId"`
	Message   string `json:"message"`
}

// MailSummary is the best-effort cross-account rollup: partial results plus
// per-account errors, never all-or-nothing.
type MailSummary struct {
	UserID      string           `json:"userId"`
	Accounts    []AccountSummary `json:"accounts"`
	Errors      []SummaryError   `json:"errors,omitempty"`
	TotalUnread int              `json:"totalUnread"`
	GeneratedAt time.Time        `json:"generatedAt"`
}
