package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/enum"
	unimailerrors "github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/models"
	"github.com/unimailhq/unimail/internal/tracing"
)

const (
	graphBaseURL   = "https://graph.microsoft.com/v1.0"
	requestTimeout = 30 * time.Second

	messageSelect = "id,subject,from,toRecipients,ccRecipients,receivedDateTime,isRead,hasAttachments,bodyPreview,importance,conversationId"
)

// folder names the Unified Mail Service uses, mapped to Graph well-known
// folder ids
var folderIDs = map[string]string{
	"inbox":  "inbox",
	"sent":   "sentitems",
	"junk":   "junkemail",
	"spam":   "junkemail",
	"trash":  "deleteditems",
	"drafts": "drafts",
}

type outlookProvider struct {
	credentials interfaces.CredentialService
	httpClient  *http.Client
	log         logger.Logger
}

func NewOutlookProvider(credentials interfaces.CredentialService, log logger.Logger) interfaces.MailProvider {
	return &outlookProvider{
		credentials: credentials,
		httpClient:  &http.Client{Timeout: requestTimeout},
		log:         log,
	}
}

func (p *outlookProvider) ListMessages(ctx context.Context, account *models.MailAccount, folder string, maxResults int) ([]models.MailMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "outlookProvider.ListMessages")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)

	folderID, err := folderForName(folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	query := url.Values{}
	query.Set("$top", fmt.Sprintf("%d", maxResults))
	query.Set("$select", messageSelect)
	query.Set("$orderby", "receivedDateTime desc")
	endpoint := fmt.Sprintf("%s/me/mailFolders/%s/messages?%s", graphBaseURL, folderID, query.Encode())

	var messages []models.MailMessage
	err = p.withAuthRetry(ctx, account, func(token string) error {
		var page graphMessagePage
		if err := p.doJSON(ctx, token, http.MethodGet, endpoint, nil, nil, &page); err != nil {
			return err
		}
		messages = normalizeMessages(account, page.Value)
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return messages, nil
}

func (p *outlookProvider) SearchMessages(ctx context.Context, account *models.MailAccount, request interfaces.SearchRequest) (*interfaces.SearchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "outlookProvider.SearchMessages")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)

	folderID, err := folderForName(request.Folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	// $search requires the eventual consistency header and rejects $orderby
	query := url.Values{}
	query.Set("$search", fmt.Sprintf("%q", request.Query))
	query.Set("$top", fmt.Sprintf("%d", request.MaxResults))
	query.Set("$select", messageSelect)
	query.Set("$count", "true")
	endpoint := fmt.Sprintf("%s/me/mailFolders/%s/messages?%s", graphBaseURL, folderID, query.Encode())
	headers := map[string]string{"ConsistencyLevel": "eventual"}

	result := &interfaces.SearchResult{}
	err = p.withAuthRetry(ctx, account, func(token string) error {
		var page graphMessagePage
		if err := p.doJSON(ctx, token, http.MethodGet, endpoint, headers, nil, &page); err != nil {
			return err
		}
		result.Messages = normalizeMessages(account, page.Value)
		result.TotalCount = page.Count
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

func (p *outlookProvider) PerformBulkAction(ctx context.Context, account *models.MailAccount, request interfaces.BulkActionRequest) (*interfaces.BulkActionResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "outlookProvider.PerformBulkAction")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)
	span.SetTag("action", request.Action.String())

	apply, err := p.actionRequest(request.Action)
	if err != nil {
		// Unsupported action: every id fails, no error is raised.
		return &interfaces.BulkActionResult{
			Success:     false,
			FailedCount: len(request.MessageIDs),
			Error:       err.Error(),
		}, nil
	}

	result := &interfaces.BulkActionResult{}
	err = p.withAuthRetry(ctx, account, func(token string) error {
		result.ProcessedCount, result.FailedCount = 0, 0
		var lastErr error
		for _, id := range request.MessageIDs {
			opErr := apply(ctx, token, id)
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

func (p *outlookProvider) FolderStats(ctx context.Context, account *models.MailAccount, folder string) (*interfaces.FolderStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "outlookProvider.FolderStats")
	defer span.Finish()
	tracing.TagComponentProvider(span)
	tracing.TagAccount(span, account.ID)

	folderID, err := folderForName(folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/me/mailFolders/%s?$select=totalItemCount,unreadItemCount", graphBaseURL, folderID)

	stats := &interfaces.FolderStats{}
	err = p.withAuthRetry(ctx, account, func(token string) error {
		var folderInfo graphFolder
		if err := p.doJSON(ctx, token, http.MethodGet, endpoint, nil, nil, &folderInfo); err != nil {
			return err
		}
		stats.Total = folderInfo.TotalItemCount
		stats.Unread = folderInfo.UnreadItemCount
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return stats, nil
}

type applyFunc func(ctx context.Context, token, messageID string) error

func (p *outlookProvider) actionRequest(action enum.BulkAction) (applyFunc, error) {
	switch action {
	case enum.BulkActionMarkRead:
		return p.patchIsRead(true), nil
	case enum.BulkActionMarkUnread:
		return p.patchIsRead(false), nil
	case enum.BulkActionJunk:
		return p.moveTo("junkemail"), nil
	case enum.BulkActionDelete:
		return p.moveTo("deleteditems"), nil
	default:
		return nil, fmt.Errorf("action %q is not supported by outlook", action)
	}
}

func (p *outlookProvider) patchIsRead(isRead bool) applyFunc {
	return func(ctx context.Context, token, messageID string) error {
		endpoint := fmt.Sprintf("%s/me/messages/%s", graphBaseURL, url.PathEscape(messageID))
		body := map[string]bool{"isRead": isRead}
		return p.doJSON(ctx, token, http.MethodPatch, endpoint, nil, body, nil)
	}
}

func (p *outlookProvider) moveTo(destination string) applyFunc {
	return func(ctx context.Context, token, messageID string) error {
		endpoint := fmt.Sprintf("%s/me/messages/%s/move", graphBaseURL, url.PathEscape(messageID))
		body := map[string]string{"destinationId": destination}
		return p.doJSON(ctx, token, http.MethodPost, endpoint, nil, body, nil)
	}
}

// withAuthRetry runs fn with the current bearer token; on a rejected token
// it refreshes once and retries once.
func (p *outlookProvider) withAuthRetry(ctx context.Context, account *models.MailAccount, fn func(token string) error) error {
	creds, err := p.credentials.GetCredentials(ctx, account.ID)
	if err != nil {
		return err
	}

	err = fn(creds.AccessToken)
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
	if err := fn(creds.AccessToken); err != nil {
		if isAuthError(err) {
			return errors.Wrap(unimailerrors.ErrAuthenticationFailed, err.Error())
		}
		return errors.Wrap(unimailerrors.ErrProviderFailure, err.Error())
	}
	return nil
}

// doJSON issues one Graph request. A non-2xx status becomes a graphError so
// the retry path can distinguish 401s.
func (p *outlookProvider) doJSON(ctx context.Context, token, method, endpoint string, headers map[string]string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &graphError{StatusCode: resp.StatusCode, Body: string(payload)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type graphError struct {
	StatusCode int
	Body       string
}

func (e *graphError) Error() string {
	return fmt.Sprintf("graph request failed with status %d: %s", e.StatusCode, e.Body)
}

func isAuthError(err error) bool {
	var gErr *graphError
	if errors.As(err, &gErr) {
		return gErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

func folderForName(folder string) (string, error) {
	if folder == "" {
		folder = interfaces.DefaultFolder
	}
	id, ok := folderIDs[folder]
	if !ok {
		return "", errors.Wrapf(unimailerrors.ErrProviderFailure, "unknown folder %q", folder)
	}
	return id, nil
}
