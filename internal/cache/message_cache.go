package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/unimailhq/unimail/internal/models"
)

const (
	DefaultMessageTTL = 5 * time.Minute
	DefaultSummaryTTL = 1 * time.Minute

	DefaultMessageEntries = 4096
	DefaultSummaryEntries = 1024
)

// MessageCache is the short-TTL read cache in front of the provider
// adapters. Message lists are keyed by (account, folder), summaries by user.
// An empty list is a valid cached value; absence is reported separately.
type MessageCache struct {
	messages  *expirable.LRU[string, []models.MailMessage]
	summaries *expirable.LRU[string, *models.MailSummary]
}

func NewMessageCache(messageTTL, summaryTTL time.Duration) *MessageCache {
	if messageTTL <= 0 {
		messageTTL = DefaultMessageTTL
	}
	if summaryTTL <= 0 {
		summaryTTL = DefaultSummaryTTL
	}
	return &MessageCache{
		messages:  expirable.NewLRU[string, []models.MailMessage](DefaultMessageEntries, nil, messageTTL),
		summaries: expirable.NewLRU[string, *models.MailSummary](DefaultSummaryEntries, nil, summaryTTL),
	}
}

func messageKey(accountID, folder string) string {
	return accountID + ":" + folder
}

func (c *MessageCache) GetMessages(accountID, folder string) ([]models.MailMessage, bool) {
	return c.messages.Get(messageKey(accountID, folder))
}

func (c *MessageCache) SetMessages(accountID, folder string, messages []models.MailMessage) {
	c.messages.Add(messageKey(accountID, folder), messages)
}

// InvalidateMessages removes one (account, folder) entry. The next read is a
// guaranteed miss until repopulated.
func (c *MessageCache) InvalidateMessages(accountID, folder string) {
	c.messages.Remove(messageKey(accountID, folder))
}

// InvalidateAccount removes every cached folder for an account, used when an
// account is unlinked or resynced.
func (c *MessageCache) InvalidateAccount(accountID string) {
	prefix := accountID + ":"
	for _, key := range c.messages.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.messages.Remove(key)
		}
	}
}

func (c *MessageCache) GetSummary(userID string) (*models.MailSummary, bool) {
	return c.summaries.Get(userID)
}

func (c *MessageCache) SetSummary(userID string, summary *models.MailSummary) {
	c.summaries.Add(userID, summary)
}

func (c *MessageCache) InvalidateSummary(userID string) {
	c.summaries.Remove(userID)
}
