package outlook

import (
	"time"

	"github.com/unimailhq/unimail/internal/enum"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/utils"
)

const previewLength = 160

type graphMessagePage struct {
	Count int            `json:"@odata.count"`
	Value []graphMessage `json:"value"`
}

type graphMessage struct {
	ID               string           `json:"id"`
	Subject          string           `json:"subject"`
	From             graphRecipient   `json:"from"`
	ToRecipients     []graphRecipient `json:"toRecipients"`
	CcRecipients     []graphRecipient `json:"ccRecipients"`
	ReceivedDateTime time.Time        `json:"receivedDateTime"`
	IsRead           bool             `json:"isRead"`
	HasAttachments   bool             `json:"hasAttachments"`
	BodyPreview      string           `json:"bodyPreview"`
	Importance       string           `json:"importance"`
	ConversationID   string           `json:"conversationId"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type graphFolder struct {
	TotalItemCount  int `json:"totalItemCount"`
	UnreadItemCount int `json:"unreadItemCount"`
}

func normalizeMessages(account *models.MailAccount, raw []graphMessage) []models.MailMessage {
	messages := make([]models.MailMessage, 0, len(raw))
	for _, m := range raw {
		messages = append(messages, normalizeMessage(account, m))
	}
	return messages
}

// normalizeMessage converts a Graph message into the canonical shape.
func normalizeMessage(account *models.MailAccount, m graphMessage) models.MailMessage {
	return models.MailMessage{
		ID:             m.ID,
		AccountID:      account.ID,
		Provider:       enum.ProviderOutlook,
		Subject:        m.Subject,
		From:           toAddress(m.From),
		To:             toAddressList(m.ToRecipients),
		Cc:             toAddressList(m.CcRecipients),
		ReceivedAt:     m.ReceivedDateTime.UTC(),
		IsRead:         m.IsRead,
		HasAttachments: m.HasAttachments,
		Preview:        utils.TruncatePreview(m.BodyPreview, previewLength),
		Importance:     importanceFromGraph(m.Importance),
		ThreadID:       m.ConversationID,
	}
}

// Graph importance is already the canonical low/normal/high enumeration.
func importanceFromGraph(importance string) enum.Importance {
	switch importance {
	case "low":
		return enum.ImportanceLow
	case "normal":
		return enum.ImportanceNormal
	case "high":
		return enum.ImportanceHigh
	default:
		return ""
	}
}

func toAddress(r graphRecipient) models.MailAddress {
	return models.MailAddress{Name: r.EmailAddress.Name, Email: r.EmailAddress.Address}
}

func toAddressList(recipients []graphRecipient) []models.MailAddress {
	if len(recipients) == 0 {
		return nil
	}
	out := make([]models.MailAddress, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, toAddress(r))
	}
	return out
}
