package imapmail

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/enum"
	unimailerrors "github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/tracing"
)

// folder names the Unified Mail Service uses, mapped to common IMAP mailbox
// names
var folderMailboxes = map[string]string{
	"inbox":  "INBOX",
	"sent":   "Sent",
	"junk":   "Junk",
	"spam":   "Junk",
	"trash":  "Trash",
	"drafts": "Drafts",
}

type imapProvider struct {
	credentials interfaces.CredentialService
	log         logger.Logger
}

func NewIMAPProvider(credentials interfaces.CredentialService, log logger.Logger) interfaces.MailProvider {
	return &imapProvider{credentials: credentials, log: log}
}

func (p *imapProvider) ListMessages(ctx context.Context, account *models.MailAccount, folder string, maxResults int) ([]models.MailMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "imapProvider.ListMessages")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)

	mailbox, err := mailboxForFolder(folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	c, err := p.connect(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer logout(c)

	mbox, err := c.Select(mailbox, true)
	if err != nil {
		err = errors.Wrapf(unimailerrors.ErrProviderFailure, "select %s: %v", mailbox, err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	if mbox.Messages == 0 {
		return []models.MailMessage{}, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(maxResults) {
		from = mbox.Messages - uint32(maxResults) + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	messages, err := p.fetchMessages(account, c, seqSet, false)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	// newest first
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.After(messages[j].ReceivedAt)
	})
	return messages, nil
}

func (p *imapProvider) SearchMessages(ctx context.Context, account *models.MailAccount, request interfaces.SearchRequest) (*interfaces.SearchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "imapProvider.SearchMessages")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)

	mailbox, err := mailboxForFolder(request.Folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	c, err := p.connect(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer logout(c)

	if _, err := c.Select(mailbox, true); err != nil {
		err = errors.Wrapf(unimailerrors.ErrProviderFailure, "select %s: %v", mailbox, err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.Text = []string{request.Query}
	seqNums, err := c.Search(criteria)
	if err != nil {
		err = errors.Wrapf(unimailerrors.ErrProviderFailure, "search: %v", err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	totalCount := len(seqNums)
	if totalCount == 0 {
		return &interfaces.SearchResult{Messages: []models.MailMessage{}}, nil
	}

	// keep only the newest page of matches
	if len(seqNums) > request.MaxResults {
		seqNums = seqNums[len(seqNums)-request.MaxResults:]
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	messages, err := p.fetchMessages(account, c, seqSet, false)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.After(messages[j].ReceivedAt)
	})
	return &interfaces.SearchResult{Messages: messages, TotalCount: totalCount}, nil
}

func (p *imapProvider) PerformBulkAction(ctx context.Context, account *models.MailAccount, request interfaces.BulkActionRequest) (*interfaces.BulkActionResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "imapProvider.PerformBulkAction")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)
	span.SetTag("action", request.Action.String())

	if !request.Action.IsValid() {
		return &interfaces.BulkActionResult{
			Success:     false,
			FailedCount: len(request.MessageIDs),
			Error:       fmt.Sprintf("action %q is not supported by imap", request.Action),
		}, nil
	}

	mailbox, err := mailboxForFolder(request.Folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	c, err := p.connect(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer logout(c)

	if _, err := c.Select(mailbox, false); err != nil {
		err = errors.Wrapf(unimailerrors.ErrProviderFailure, "select %s: %v", mailbox, err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	result := &interfaces.BulkActionResult{}
	var lastErr error
	deleted := false
	for _, id := range request.MessageIDs {
		uid, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			result.FailedCount++
			lastErr = fmt.Errorf("message id %q is not a valid imap uid", id)
			continue
		}

		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uint32(uid))

		if err := p.applyAction(c, seqSet, request.Action); err != nil {
			result.FailedCount++
			lastErr = err
			continue
		}
		if request.Action == enum.BulkActionDelete {
			deleted = true
		}
		result.ProcessedCount++
	}

	if deleted {
		if err := c.Expunge(nil); err != nil {
			p.log.Warnf("imap: expunge failed for account %s: %v", account.ID, err)
		}
	}
	if lastErr != nil {
		result.Error = lastErr.Error()
	}
	result.Success = result.ProcessedCount > 0
	return result, nil
}

func (p *imapProvider) FolderStats(ctx context.Context, account *models.MailAccount, folder string) (*interfaces.FolderStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "imapProvider.FolderStats")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)

	mailbox, err := mailboxForFolder(folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	c, err := p.connect(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer logout(c)

	status, err := c.Status(mailbox, []imap.StatusItem{imap.StatusMessages, imap.StatusUnseen})
	if err != nil {
		err = errors.Wrapf(unimailerrors.ErrProviderFailure, "status %s: %v", mailbox, err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &interfaces.FolderStats{
		Total:  int(status.Messages),
		Unread: int(status.Unseen),
	}, nil
}

func (p *imapProvider) applyAction(c *client.Client, seqSet *imap.SeqSet, action enum.BulkAction) error {
	switch action {
	case enum.BulkActionMarkRead:
		return c.UidStore(seqSet, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.SeenFlag}, nil)
	case enum.BulkActionMarkUnread:
		return c.UidStore(seqSet, imap.FormatFlagsOp(imap.RemoveFlags, true), []interface{}{imap.SeenFlag}, nil)
	case enum.BulkActionJunk:
		return c.UidMove(seqSet, folderMailboxes["junk"])
	case enum.BulkActionDelete:
		return c.UidStore(seqSet, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.DeletedFlag}, nil)
	default:
		return errors.Wrapf(unimailerrors.ErrActionNotSupported, "action %q", action)
	}
}

// fetchMessages pulls envelope, flags, uid and body for the given set and
// normalizes every message. Individual parse failures are skipped, not
// fatal.
func (p *imapProvider) fetchMessages(account *models.MailAccount, c *client.Client, seqSet *imap.SeqSet, byUID bool) ([]models.MailMessage, error) {
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, 32)
	done := make(chan error, 1)
	go func() {
		if byUID {
			done <- c.UidFetch(seqSet, items, ch)
		} else {
			done <- c.Fetch(seqSet, items, ch)
		}
	}()

	var messages []models.MailMessage
	for msg := range ch {
		normalized, err := normalizeMessage(account, msg, section)
		if err != nil {
			p.log.Warnf("imap: skipping unparsable message uid=%d for account %s: %v", msg.Uid, account.ID, err)
			continue
		}
		messages = append(messages, normalized)
	}

	if err := <-done; err != nil {
		return nil, errors.Wrapf(unimailerrors.ErrProviderFailure, "fetch: %v", err)
	}
	if messages == nil {
		messages = []models.MailMessage{}
	}
	return messages, nil
}

func mailboxForFolder(folder string) (string, error) {
	if folder == "" {
		folder = interfaces.DefaultFolder
	}
	mailbox, ok := folderMailboxes[folder]
	if !ok {
		return "", errors.Wrapf(unimailerrors.ErrProviderFailure, "unknown folder %q", folder)
	}
	return mailbox, nil
}
