package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unimailhq/unimail/internal/enum"
	"github.com/unimailhq/unimail/internal/models"
)

func testMessages(accountID string, n int) []models.MailMessage {
	messages := make([]models.MailMessage, n)
	for i := range messages {
		messages[i] = models.MailMessage{
			ID:        "msg-" + string(rune('a'+i)),
			AccountID: accountID,
			Provider:  enum.ProviderGmail,
			Subject:   "hello",
		}
	}
	return messages
}

func TestMessageCache_SetGetRoundTrip(t *testing.T) {
	c := NewMessageCache(0, 0)

	_, ok := c.GetMessages("acct-1", "inbox")
	require.False(t, ok)

	c.SetMessages("acct-1", "inbox", testMessages("acct-1", 3))

	cached, ok := c.GetMessages("acct-1", "inbox")
	require.True(t, ok)
	require.Len(t, cached, 3)

	// Other folders of the same account stay cold.
	_, ok = c.GetMessages("acct-1", "sent")
	require.False(t, ok)
}

func TestMessageCache_EmptyListIsValidHit(t *testing.T) {
	c := NewMessageCache(0, 0)
	c.SetMessages("acct-1", "inbox", []models.MailMessage{})

	cached, ok := c.GetMessages("acct-1", "inbox")
	require.True(t, ok)
	require.Empty(t, cached)
}

func TestMessageCache_InvalidateMessages(t *testing.T) {
	c := NewMessageCache(0, 0)
	c.SetMessages("acct-1", "inbox", testMessages("acct-1", 2))
	c.SetMessages("acct-1", "sent", testMessages("acct-1", 1))

	c.InvalidateMessages("acct-1", "inbox")

	_, ok := c.GetMessages("acct-1", "inbox")
	require.False(t, ok)
	_, ok = c.GetMessages("acct-1", "sent")
	require.True(t, ok)
}

func TestMessageCache_InvalidateAccount(t *testing.T) {
	c := NewMessageCache(0, 0)
	c.SetMessages("acct-1", "inbox", testMessages("acct-1", 2))
	c.SetMessages("acct-1", "sent", testMessages("acct-1", 1))
	c.SetMessages("acct-2", "inbox", testMessages("acct-2", 1))

	c.InvalidateAccount("acct-1")

	_, ok := c.GetMessages("acct-1", "inbox")
	require.False(t, ok)
	_, ok = c.GetMessages("acct-1", "sent")
	require.False(t, ok)

	cached, ok := c.GetMessages("acct-2", "inbox")
	require.True(t, ok)
	require.Len(t, cached, 1)
}

func TestMessageCache_MessagesExpire(t *testing.T) {
	c := NewMessageCache(50*time.Millisecond, 0)
	c.SetMessages("acct-1", "inbox", testMessages("acct-1", 1))

	_, ok := c.GetMessages("acct-1", "inbox")
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := c.GetMessages("acct-1", "inbox")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMessageCache_SummaryLifecycle(t *testing.T) {
	c := NewMessageCache(0, 0)

	_, ok := c.GetSummary("user-1")
	require.False(t, ok)

	summary := &models.MailSummary{UserID: "user-1", TotalUnread: 7}
	c.SetSummary("user-1", summary)

	cached, ok := c.GetSummary("user-1")
	require.True(t, ok)
	require.Equal(t, 7, cached.TotalUnread)

	c.InvalidateSummary("user-1")
	_, ok = c.GetSummary("user-1")
	require.False(t, ok)
}
