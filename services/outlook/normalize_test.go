package outlook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimailhq/unimail/internal/enum"
	"github.com/unimailhq/unimail/internal/models"
)

const graphListPayload = `{
	"@odata.count": 128,
	"value": [
		{
			"id": "AAMkAD1",
			"subject": "Quarterly numbers",
			"from": {"emailAddress": {"name": "Finance", "address": "finance@example.com"}},
			"toRecipients": [
				{"emailAddress": {"address": "me@example.com"}}
			],
			"ccRecipients": [
				{"emailAddress": {"name": "Lead", "address": "lead@example.com"}}
			],
			"receivedDateTime": "2026-08-19T08:15:00Z",
			"isRead": false,
			"hasAttachments": true,
			"bodyPreview": "Please find attached the quarterly numbers.",
			"importance": "high",
			"conversationId": "conv-9"
		}
	]
}`

func TestGraphMessagePage_Decode(t *testing.T) {
	var page graphMessagePage
	require.NoError(t, json.Unmarshal([]byte(graphListPayload), &page))

	assert.Equal(t, 128, page.Count)
	require.Len(t, page.Value, 1)
	assert.Equal(t, "AAMkAD1", page.Value[0].ID)
	assert.True(t, page.Value[0].HasAttachments)
}

func TestNormalizeMessage(t *testing.T) {
	var page graphMessagePage
	require.NoError(t, json.Unmarshal([]byte(graphListPayload), &page))

	msg := normalizeMessage(&models.MailAccount{ID: "acct-2"}, page.Value[0])

	assert.Equal(t, "AAMkAD1", msg.ID)
	assert.Equal(t, "acct-2", msg.AccountID)
	assert.Equal(t, enum.ProviderOutlook, msg.Provider)
	assert.Equal(t, "Quarterly numbers", msg.Subject)
	assert.Equal(t, models.MailAddress{Name: "Finance", Email: "finance@example.com"}, msg.From)
	require.Len(t, msg.To, 1)
	assert.Equal(t, "me@example.com", msg.To[0].Email)
	require.Len(t, msg.Cc, 1)
	assert.Equal(t, time.Date(2026, 8, 19, 8, 15, 0, 0, time.UTC), msg.ReceivedAt)
	assert.False(t, msg.IsRead)
	assert.True(t, msg.HasAttachments)
	assert.Equal(t, "Please find attached the quarterly numbers.", msg.Preview)
	assert.Equal(t, enum.ImportanceHigh, msg.Importance)
	assert.Equal(t, "conv-9", msg.ThreadID)
}

func TestImportanceFromGraph(t *testing.T) {
	assert.Equal(t, enum.ImportanceLow, importanceFromGraph("low"))
	assert.Equal(t, enum.ImportanceNormal, importanceFromGraph("normal"))
	assert.Equal(t, enum.ImportanceHigh, importanceFromGraph("high"))
	assert.Empty(t, importanceFromGraph("urgent"))
}

func TestNormalizeMessages_Empty(t *testing.T) {
	out := normalizeMessages(&models.MailAccount{ID: "acct-2"}, nil)
	assert.Empty(t, out)
	assert.NotNil(t, out)
}
