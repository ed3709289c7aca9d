package imapmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/pkg/errors"

	unimailerrors "github.com/unimailhq/unimail/internal/errors"
	"github.com/unimailhq/unimail/internal/models"
)

const dialTimeout = 30 * time.Second

// connect dials and authenticates a fresh session. IMAP is stateful and
// connection-scoped, so every adapter call gets its own session and logs
// out when done.
func (p *imapProvider) connect(ctx context.Context, account *models.MailAccount) (*client.Client, error) {
	creds, err := p.credentials.GetCredentials(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", account.ImapServer, account.ImapPort)

	var c *client.Client
	if account.ImapTLS {
		c, err = client.DialTLS(addr, &tls.Config{ServerName: account.ImapServer})
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, errors.Wrapf(unimailerrors.ErrProviderFailure, "imap dial %s: %v", addr, err)
	}
	c.Timeout = dialTimeout

	if err := c.Login(account.ImapUsername, creds.AccessToken); err != nil {
		_ = c.Logout()
		return nil, errors.Wrap(unimailerrors.ErrAuthenticationFailed, err.Error())
	}

	return c, nil
}

func logout(c *client.Client) {
	c.Timeout = 5 * time.Second
	_ = c.Logout() // Ignore errors during teardown
}
