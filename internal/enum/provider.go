package enum

type MailProvider string

const (
	ProviderGmail   MailProvider = "gmail"
	ProviderOutlook MailProvider = "outlook"
	ProviderIMAP    MailProvider = "imap"
)

func (t MailProvider) String() string {
	return string(t)
}

func (t MailProvider) IsValid() bool {
	switch t {
	case ProviderGmail, ProviderOutlook, ProviderIMAP:
		return true
	}
	return false
}

type BulkAction string

const (
	BulkActionMarkRead   BulkAction = "mark_read"
	BulkActionMarkUnread BulkAction = "mark_unread"
	BulkActionJunk       BulkAction = "junk"
	BulkActionDelete     BulkAction = "delete"
)

func (t BulkAction) String() string {
	return string(t)
}

func (t BulkAction) IsValid() bool {
	switch t {
	case BulkActionMarkRead, BulkActionMarkUnread, BulkActionJunk, BulkActionDelete:
		return true
	}
	return false
}

type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

func (t Importance) String() string {
	return string(t)
}
