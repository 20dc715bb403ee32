package dto

import (
	"time"

	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// NoQuotesMessage accompanies an empty filtered list.
const NoQuotesMessage = "No quotes found for this category."

// AddQuoteRequest is the body of POST /api/v1/quotes.
type AddQuoteRequest struct {
	Text     string `json:"text"     validate:"required,notblank,max=1000"`
	Category string `json:"category" validate:"required,notblank,max=1000"`
}

// CategoryQuery selects a category; empty or "all" means every quote.
type CategoryQuery struct {
	Category string `form:"category" validate:"omitempty,max=1000"`
}

// Quote is a quote in responses.
type Quote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// QuoteList is the rendered, possibly filtered, collection.
type QuoteList struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Quotes   []Quote `json:"quotes"`
	Message  string  `json:"message,omitempty"`
}

// CategoryList holds the filter options, "all" first.
type CategoryList struct {
	Categories []string `json:"categories"`
}

// ImportResult is the response of POST /api/v1/quotes/import.
type ImportResult struct {
	Imported int `json:"imported"`
}

// ResolveRequest is the body of POST /api/v1/sync/resolve.
type ResolveRequest struct {
	UseRemote *bool `json:"useRemote" validate:"required"`
}

// SyncStatus describes the sync coordinator and the notification.
type SyncStatus struct {
	Phase               string     `json:"phase"`
	ConflictPending     bool       `json:"conflictPending"`
	NotificationVisible bool       `json:"notificationVisible"`
	Interval            string     `json:"interval"`
	LastCheckedAt       *time.Time `json:"lastCheckedAt,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	RemoteQuotes        []Quote    `json:"remoteQuotes,omitempty"`
}

// CheckOutcome is the response of POST /api/v1/sync/check.
type CheckOutcome struct {
	Result string     `json:"result"`
	Status SyncStatus `json:"status"`
}

// FromQuote converts a domain quote.
func FromQuote(q domain.Quote) Quote {
	return Quote{Text: q.Text, Category: q.Category}
}

// FromCollection converts a collection; nil becomes an empty slice.
func FromCollection(c domain.Collection) []Quote {
	out := make([]Quote, len(c))
	for i, q := range c {
		out[i] = FromQuote(q)
	}

	return out
}

// NewQuoteList renders a filtered collection.
func NewQuoteList(category string, c domain.Collection) QuoteList {
	if category == "" {
		category = domain.AllCategories
	}

	list := QuoteList{Category: category, Count: len(c), Quotes: FromCollection(c)}
	if len(c) == 0 {
		list.Message = NoQuotesMessage
	}

	return list
}

// NewSyncStatus renders coordinator state.
func NewSyncStatus(s app.SyncState, visible bool, interval time.Duration) SyncStatus {
	status := SyncStatus{
		Phase:               string(s.Phase),
		ConflictPending:     s.ConflictPending,
		NotificationVisible: visible,
		Interval:            interval.String(),
		LastError:           s.LastError,
	}

	if !s.LastCheckedAt.IsZero() {
		t := s.LastCheckedAt
		status.LastCheckedAt = &t
	}

	if s.ConflictPending {
		status.RemoteQuotes = FromCollection(s.RemoteSnapshot)
	}

	return status
}
