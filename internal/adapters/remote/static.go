// Package remote provides an in-process stand-in for the quote server.
package remote

import (
	"context"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// ServerQuotes is the fixed collection served by the static source.
func ServerQuotes() domain.Collection {
	return domain.Collection{
		{Text: "New quote from server!", Category: "Server"},
		{Text: "Another server quote.", Category: "Server"},
	}
}

// Static answers every fetch with a fixed collection after a delay.
// Implements ports.RemoteSource.
type Static struct {
	quotes domain.Collection
	delay  time.Duration
}

// NewStatic returns a source serving quotes after delay. A nil collection
// serves ServerQuotes.
func NewStatic(quotes domain.Collection, delay time.Duration) *Static {
	if quotes == nil {
		quotes = ServerQuotes()
	}

	return &Static{quotes: quotes.Clone(), delay: delay}
}

// FetchQuotes waits for the configured delay, or until ctx is done.
func (s *Static) FetchQuotes(ctx context.Context) (domain.Collection, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.quotes.Clone(), nil
}
