package eventsprovider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPaginatorExhausted is returned by Next once the stream has ended.
var ErrPaginatorExhausted = errors.New("events paginator exhausted")

// PageFetcher loads one cursor page of changed events.
type PageFetcher interface {
	FetchChangedPage(ctx context.Context, changedAt time.Time, cursor string) (*Page, error)
}

// Paginator flattens provider pages into a single pass stream of events.
// Pages are requested lazily as the previous one is drained. It is not
// restartable and not safe for concurrent use.
type Paginator struct {
	fetcher   PageFetcher
	changedAt time.Time

	items   []RawEvent
	index   int
	cursor  string
	fetched bool
	done    bool
}

// NewPaginator returns a stream over every event changed since changedAt.
func NewPaginator(fetcher PageFetcher, changedAt time.Time) *Paginator {
	return &Paginator{fetcher: fetcher, changedAt: changedAt}
}

// Next returns the following event. ok is false once a page without items
// or follow-up cursor has been seen; calls after that, or after a fetch
// error, return ErrPaginatorExhausted.
func (p *Paginator) Next(ctx context.Context) (event RawEvent, ok bool, err error) {
	if p.done {
		return RawEvent{}, false, ErrPaginatorExhausted
	}

	for p.index >= len(p.items) {
		if p.fetched && p.cursor == "" {
			p.done = true
			return RawEvent{}, false, nil
		}

		page, err := p.fetcher.FetchChangedPage(ctx, p.changedAt, p.cursor)
		if err != nil {
			p.done = true
			return RawEvent{}, false, err
		}
		next := page.NextCursor()
		if p.fetched && next != "" && next == p.cursor && len(page.Results) == 0 {
			p.done = true
			return RawEvent{}, false, fmt.Errorf("events provider cursor %q did not advance", next)
		}

		p.fetched = true
		p.items = page.Results
		p.index = 0
		p.cursor = next
	}

	event = p.items[p.index]
	p.index++
	return event, true, nil
}
