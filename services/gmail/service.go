package gmail

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/enum"
	unimailerrors "github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/tracing"
)

var metadataHeaders = []string{"Subject", "From", "To", "Cc", "Date"}

// folder names the Unified Mail Service uses, mapped to Gmail system labels
var folderLabels = map[string]string{
	"inbox":  "INBOX",
	"sent":   "SENT",
	"junk":   "SPAM",
	"spam":   "SPAM",
	"trash":  "TRASH",
	"drafts": "DRAFT",
}

type gmailProvider struct {
	credentials interfaces.CredentialService
	log         logger.Logger
}

func NewGmailProvider(credentials interfaces.CredentialService, log logger.Logger) interfaces.MailProvider {
	return &gmailProvider{credentials: credentials, log: log}
}

func (p *gmailProvider) ListMessages(ctx context.Context, account *models.MailAccount, folder string, maxResults int) ([]models.MailMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "gmailProvider.ListMessages")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)

	label, err := labelForFolder(folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	var messages []models.MailMessage
	err = p.withAuthRetry(ctx, account, func(svc *gmailapi.Service) error {
		list, err := svc.Users.Messages.List("me").
			LabelIds(label).
			MaxResults(int64(maxResults)).
			Context(ctx).Do()
		if err != nil {
			return err
		}

		withAttachments := p.attachmentMessageIDs(ctx, svc, label, maxResults)

		messages = messages[:0]
		for _, ref := range list.Messages {
			msg, err := svc.Users.Messages.Get("me", ref.Id).
				Format("metadata").
				MetadataHeaders(metadataHeaders...).
				Context(ctx).Do()
			if err != nil {
				p.log.Warnf("gmail: failed to fetch message %s for account %s: %v", ref.Id, account.ID, err)
				continue
			}
			messages = append(messages, normalizeMessage(account, msg, withAttachments[ref.Id]))
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return messages, nil
}

func (p *gmailProvider) SearchMessages(ctx context.Context, account *models.MailAccount, request interfaces.SearchRequest) (*interfaces.SearchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "gmailProvider.SearchMessages")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)

	label, err := labelForFolder(request.Folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result := &interfaces.SearchResult{Messages: []models.MailMessage{}}
	err = p.withAuthRetry(ctx, account, func(svc *gmailapi.Service) error {
		list, err := svc.Users.Messages.List("me").
			LabelIds(label).
			Q(request.Query).
			MaxResults(int64(request.MaxResults)).
			Context(ctx).Do()
		if err != nil {
			return err
		}

		result.Messages = result.Messages[:0]
		for _, ref := range list.Messages {
			msg, err := svc.Users.Messages.Get("me", ref.Id).
				Format("metadata").
				MetadataHeaders(metadataHeaders...).
				Context(ctx).Do()
			if err != nil {
				p.log.Warnf("gmail: failed to fetch search hit %s for account %s: %v", ref.Id, account.ID, err)
				continue
			}
			result.Messages = append(result.Messages, normalizeMessage(account, msg, false))
		}

		result.TotalCount = int(list.ResultSizeEstimate)
		if result.TotalCount < len(result.Messages) {
			result.TotalCount = len(result.Messages)
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return result, nil
}

func (p *gmailProvider) PerformBulkAction(ctx context.Context, account *models.MailAccount, request interfaces.BulkActionRequest) (*interfaces.BulkActionResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "gmailProvider.PerformBulkAction")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)
	span.SetTag("action", request.Action.String())

	modify, terminal, err := modifyForAction(request.Action)
	if err != nil {
		// Unsupported action: every id fails, no error is raised.
		return &interfaces.BulkActionResult{
			Success:     false,
			FailedCount: len(request.MessageIDs),
			Error:       err.Error(),
		}, nil
	}

	result := &interfaces.BulkActionResult{}
	err = p.withAuthRetry(ctx, account, func(svc *gmailapi.Service) error {
		result.ProcessedCount, result.FailedCount = 0, 0
		var lastErr error
		for _, id := range request.MessageIDs {
			var opErr error
			if terminal {
				_, opErr = svc.Users.Messages.Trash("me", id).Context(ctx).Do()
			} else {
				_, opErr = svc.Users.Messages.Modify("me", id, modify).Context(ctx).Do()
			}
			if opErr != nil {
				if isAuthError(opErr) && result.ProcessedCount == 0 && result.FailedCount == 0 {
					// Whole-call auth failure: surface for the retry path.
					return opErr
				}
				result.FailedCount++
				lastErr = opErr
				continue
			}
			result.ProcessedCount++
		}
		if lastErr != nil {
			result.Error = lastErr.Error()
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result.Success = result.ProcessedCount > 0
	return result, nil
}

func (p *gmailProvider) FolderStats(ctx context.Context, account *models.MailAccount, folder string) (*interfaces.FolderStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "gmailProvider.FolderStats")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)

	label, err := labelForFolder(folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	stats := &interfaces.FolderStats{}
	err = p.withAuthRetry(ctx, account, func(svc *gmailapi.Service) error {
		info, err := svc.Users.Labels.Get("me", label).Context(ctx).Do()
		if err != nil {
			return err
		}
		stats.Total = int(info.MessagesTotal)
		stats.Unread = int(info.MessagesUnread)
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return stats, nil
}

// attachmentMessageIDs resolves which of the folder's newest messages carry
// attachments in a single list call, since metadata fetches do not include
// body structure.
func (p *gmailProvider) attachmentMessageIDs(ctx context.Context, svc *gmailapi.Service, label string, maxResults int) map[string]bool {
	ids := make(map[string]bool)
	list, err := svc.Users.Messages.List("me").
		LabelIds(label).
		Q("has:attachment").
		MaxResults(int64(maxResults)).
		Context(ctx).Do()
	if err != nil {
		p.log.Warnf("gmail: attachment lookup failed: %v", err)
		return ids
	}
	for _, ref := range list.Messages {
		ids[ref.Id] = true
	}
	return ids
}

// withAuthRetry runs fn with a service built from current credentials; on a
// rejected bearer token it refreshes once and retries once.
func (p *gmailProvider) withAuthRetry(ctx context.Context, account *models.MailAccount, fn func(svc *gmailapi.Service) error) error {
	creds, err := p.credentials.GetCredentials(ctx, account.ID)
	if err != nil {
		return err
	}

	svc, err := p.newService(ctx, creds.AccessToken)
	if err != nil {
		return err
	}

	err = fn(svc)
	if err == nil {
		return nil
	}
	if !isAuthError(err) {
		return errors.Wrap(unimailerrors.ErrProviderFailure, err.Error())
	}

	creds, refreshErr := p.credentials.ForceRefresh(ctx, account.ID)
	if refreshErr != nil {
		return refreshErr
	}
	svc, err = p.newService(ctx, creds.AccessToken)
	if err != nil {
		return err
	}
	if err := fn(svc); err != nil {
		if isAuthError(err) {
			return errors.Wrap(unimailerrors.ErrAuthenticationFailed, err.Error())
		}
		return errors.Wrap(unimailerrors.ErrProviderFailure, err.Error())
	}
	return nil
}

func (p *gmailProvider) newService(ctx context.Context, accessToken string) (*gmailapi.Service, error) {
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
	))
	if err != nil {
		return nil, errors.Wrap(unimailerrors.ErrProviderFailure, err.Error())
	}
	return svc, nil
}

func labelForFolder(folder string) (string, error) {
	if folder == "" {
		folder = interfaces.DefaultFolder
	}
	label, ok := folderLabels[folder]
	if !ok {
		return "", errors.Wrapf(unimailerrors.ErrProviderFailure, "unknown folder %q", folder)
	}
	return label, nil
}

func modifyForAction(action enum.BulkAction) (*gmailapi.ModifyMessageRequest, bool, error) {
	switch action {
	case enum.BulkActionMarkRead:
		return &gmailapi.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}, false, nil
	case enum.BulkActionMarkUnread:
		return &gmailapi.ModifyMessageRequest{AddLabelIds: []string{"UNREAD"}}, false, nil
	case enum.BulkActionJunk:
		return &gmailapi.ModifyMessageRequest{AddLabelIds: []string{"SPAM"}, RemoveLabelIds: []string{"INBOX"}}, false, nil
	case enum.BulkActionDelete:
		return nil, true, nil
	default:
		return nil, false, fmt.Errorf("action %q is not supported by gmail", action)
	}
}

func isAuthError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 401
	}
	return false
}
