package imapmail

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/unimailhq/unimail/internal/enum"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/utils"
)

const previewLength = 160

// normalizeMessage converts a fetched IMAP message into the canonical
// shape. The UID doubles as the provider-native message id.
func normalizeMessage(account *models.MailAccount, msg *imap.Message, section *imap.BodySectionName) (models.MailMessage, error) {
	if msg.Envelope == nil {
		return models.MailMessage{}, errors.New("message has no envelope")
	}

	preview, hasAttachments := extractBody(msg, section)

	received := msg.Envelope.Date
	if received.IsZero() {
		received = time.Now()
	}

	return models.MailMessage{
		ID:             strconv.FormatUint(uint64(msg.Uid), 10),
		AccountID:      account.ID,
		Provider:       enum.ProviderIMAP,
		Subject:        msg.Envelope.Subject,
		From:           firstAddress(msg.Envelope.From),
		To:             toAddressList(msg.Envelope.To),
		Cc:             toAddressList(msg.Envelope.Cc),
		ReceivedAt:     received.UTC(),
		IsRead:         hasFlag(msg.Flags, imap.SeenFlag),
		HasAttachments: hasAttachments,
		Preview:        preview,
		// IMAP has no importance concept; the field stays absent.
	}, nil
}

// extractBody parses the raw message to derive the text preview and the
// attachment flag. Parse failures degrade to an empty preview.
func extractBody(msg *imap.Message, section *imap.BodySectionName) (string, bool) {
	body := msg.GetBody(section)
	if body == nil {
		return "", false
	}

	env, err := enmime.ReadEnvelope(body)
	if err != nil {
		return "", false
	}

	text := strings.TrimSpace(env.Text)
	if text == "" && env.HTML != "" {
		text = htmlToText(env.HTML)
	}

	return utils.TruncatePreview(text, previewLength), len(env.Attachments) > 0
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Remove()
	return strings.TrimSpace(doc.Text())
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

func firstAddress(addresses []*imap.Address) models.MailAddress {
	if len(addresses) == 0 {
		return models.MailAddress{}
	}
	return toAddress(addresses[0])
}

func toAddress(addr *imap.Address) models.MailAddress {
	return models.MailAddress{
		Name:  addr.PersonalName,
		Email: addr.Address(),
	}
}

func toAddressList(addresses []*imap.Address) []models.MailAddress {
	if len(addresses) == 0 {
		return nil
	}
	out := make([]models.MailAddress, 0, len(addresses))
	for _, addr := range addresses {
		out = append(out, toAddress(addr))
	}
	return out
}
