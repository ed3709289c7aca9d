package interfaces

import "context"

const (
	EventMailBulkAction  = "mail.bulk_action.applied"
	EventAccountLinked   = "mail.account.linked"
	EventAccountUnlinked = "mail.account.unlinked"
)

// MailEventPublisher notifies downstream consumers of mail mutations. A nil
// publisher is valid: the service runs without messaging when RabbitMQ is
// not configured.
type MailEventPublisher interface {
	Publish(ctx context.Context, eventType string, accountID string, data interface{}) error
	Close() error
}
