package gmail

import (
	"net/mail"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/unimailhq/unimail/internal/enum"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/utils"
)

const previewLength = 160

// normalizeMessage converts a Gmail API message into the canonical shape.
func normalizeMessage(account *models.MailAccount, msg *gmailapi.Message, hasAttachment bool) models.MailMessage {
	headers := headerMap(msg)

	return models.MailMessage{
		ID:             msg.Id,
		AccountID:      account.ID,
		Provider:       enum.ProviderGmail,
		Subject:        headers["subject"],
		From:           parseAddress(headers["from"]),
		To:             parseAddressList(headers["to"]),
		Cc:             parseAddressList(headers["cc"]),
		ReceivedAt:     time.UnixMilli(msg.InternalDate).UTC(),
		IsRead:         !hasLabel(msg, "UNREAD"),
		HasAttachments: hasAttachment,
		Preview:        utils.TruncatePreview(msg.Snippet, previewLength),
		Importance:     importanceFromLabels(msg),
		ThreadID:       msg.ThreadId,
	}
}

func headerMap(msg *gmailapi.Message) map[string]string {
	headers := make(map[string]string)
	if msg.Payload == nil {
		return headers
	}
	for _, h := range msg.Payload.Headers {
		headers[strings.ToLower(h.Name)] = h.Value
	}
	return headers
}

func hasLabel(msg *gmailapi.Message, label string) bool {
	for _, l := range msg.LabelIds {
		if l == label {
			return true
		}
	}
	return false
}

// Gmail has no low/normal/high field; the IMPORTANT system label maps to
// high and everything else stays unset.
func importanceFromLabels(msg *gmailapi.Message) enum.Importance {
	if hasLabel(msg, "IMPORTANT") {
		return enum.ImportanceHigh
	}
	return ""
}

func parseAddress(raw string) models.MailAddress {
	if raw == "" {
		return models.MailAddress{}
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return models.MailAddress{Email: strings.TrimSpace(raw)}
	}
	return models.MailAddress{Name: addr.Name, Email: addr.Address}
}

func parseAddressList(raw string) []models.MailAddress {
	if raw == "" {
		return nil
	}
	parsed, err := mail.ParseAddressList(raw)
	if err != nil {
		var out []models.MailAddress
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, models.MailAddress{Email: part})
			}
		}
		return out
	}

	out := make([]models.MailAddress, 0, len(parsed))
	for _, addr := range parsed {
		out = append(out, models.MailAddress{Name: addr.Name, Email: addr.Address})
	}
	return out
}
