package imapmail

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimailhq/unimail/internal/enum"
	"github.com/unimailhq/unimail/internal/models"
)

func imapMessage() *imap.Message {
	return &imap.Message{
		Uid:   4217,
		Flags: []string{imap.SeenFlag},
		Envelope: &imap.Envelope{
			Subject: "Server maintenance window",
			Date:    time.Date(2026, 8, 18, 22, 0, 0, 0, time.UTC),
			From: []*imap.Address{
				{PersonalName: "Ops", MailboxName: "ops", HostName: "example.com"},
			},
			To: []*imap.Address{
				{MailboxName: "me", HostName: "example.com"},
			},
		},
	}
}

func TestNormalizeMessage(t *testing.T) {
	section := &imap.BodySectionName{Peek: true}

	msg, err := normalizeMessage(&models.MailAccount{ID: "acct-3"}, imapMessage(), section)
	require.NoError(t, err)

	assert.Equal(t, "4217", msg.ID)
	assert.Equal(t, "acct-3", msg.AccountID)
	assert.Equal(t, enum.ProviderIMAP, msg.Provider)
	assert.Equal(t, "Server maintenance window", msg.Subject)
	assert.Equal(t, models.MailAddress{Name: "Ops", Email: "ops@example.com"}, msg.From)
	require.Len(t, msg.To, 1)
	assert.Equal(t, "me@example.com", msg.To[0].Email)
	assert.Equal(t, time.Date(2026, 8, 18, 22, 0, 0, 0, time.UTC), msg.ReceivedAt)
	assert.True(t, msg.IsRead)
	assert.False(t, msg.HasAttachments)
	assert.Empty(t, msg.Importance)
}

func TestNormalizeMessage_NoEnvelope(t *testing.T) {
	section := &imap.BodySectionName{Peek: true}

	_, err := normalizeMessage(&models.MailAccount{ID: "acct-3"}, &imap.Message{Uid: 1}, section)
	require.Error(t, err)
}

func TestNormalizeMessage_UnseenIsUnread(t *testing.T) {
	raw := imapMessage()
	raw.Flags = []string{imap.FlaggedFlag}
	section := &imap.BodySectionName{Peek: true}

	msg, err := normalizeMessage(&models.MailAccount{ID: "acct-3"}, raw, section)
	require.NoError(t, err)
	assert.False(t, msg.IsRead)
}

func TestHtmlToText(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body><p>Hello there</p><script>alert(1)</script></body></html>`
	text := htmlToText(html)
	assert.Contains(t, text, "Hello there")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestMailboxForFolder(t *testing.T) {
	mailbox, err := mailboxForFolder("")
	require.NoError(t, err)
	assert.Equal(t, "INBOX", mailbox)

	mailbox, err = mailboxForFolder("spam")
	require.NoError(t, err)
	assert.Equal(t, "Junk", mailbox)

	_, err = mailboxForFolder("archive")
	require.Error(t, err)
}
