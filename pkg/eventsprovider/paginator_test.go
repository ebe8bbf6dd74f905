package eventsprovider

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeFetcher struct {
	pages   map[string]*Page
	err     error
	cursors []string
}

func (f *fakeFetcher) FetchChangedPage(_ context.Context, _ time.Time, cursor string) (*Page, error) {
	f.cursors = append(f.cursors, cursor)
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[cursor]
	if !ok {
		return &Page{}, nil
	}
	return page, nil
}

func nextLink(cursor string) *string {
	link := "http://provider/api/events/?changed_at=2000-01-01&cursor=" + cursor
	return &link
}

func drain(t *testing.T, p *Paginator) []string {
	t.Helper()
	var names []string
	for {
		event, ok, err := p.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			return names
		}
		names = append(names, event.Name)
	}
}

func TestPaginatorYieldsAcrossPages(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*Page{
		"":      {Next: nextLink("page2"), Results: []RawEvent{{Name: "A"}, {Name: "B"}}},
		"page2": {Results: []RawEvent{{Name: "C"}}},
	}}
	p := NewPaginator(fetcher, time.Time{})

	got := drain(t, p)
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("unexpected sequence %v", got)
	}
	if len(fetcher.cursors) != 2 || fetcher.cursors[1] != "page2" {
		t.Fatalf("unexpected fetches %v", fetcher.cursors)
	}

	if _, _, err := p.Next(context.Background()); !errors.Is(err, ErrPaginatorExhausted) {
		t.Fatalf("expected ErrPaginatorExhausted, got %v", err)
	}
	if len(fetcher.cursors) != 2 {
		t.Fatalf("exhausted paginator must not fetch again")
	}
}

func TestPaginatorEmptyDataset(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*Page{}}
	got := drain(t, NewPaginator(fetcher, time.Time{}))
	if len(got) != 0 {
		t.Fatalf("expected no events, got %v", got)
	}
	if len(fetcher.cursors) != 1 {
		t.Fatalf("expected a single fetch, got %d", len(fetcher.cursors))
	}
}

func TestPaginatorSkipsEmptyPageWithCursor(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*Page{
		"":      {Next: nextLink("page2")},
		"page2": {Results: []RawEvent{{Name: "A"}}},
	}}
	got := drain(t, NewPaginator(fetcher, time.Time{}))
	if len(got) != 1 || got[0] != "A" {
		t.Fatalf("unexpected sequence %v", got)
	}
}

func TestPaginatorStopsOnFetchError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPaginator(&fakeFetcher{err: boom}, time.Time{})

	if _, _, err := p.Next(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, _, err := p.Next(context.Background()); !errors.Is(err, ErrPaginatorExhausted) {
		t.Fatalf("expected ErrPaginatorExhausted, got %v", err)
	}
}

func TestPageNextCursor(t *testing.T) {
	if cursor := (&Page{}).NextCursor(); cursor != "" {
		t.Fatalf("expected empty cursor, got %q", cursor)
	}
	if cursor := (&Page{Next: nextLink("xyz")}).NextCursor(); cursor != "xyz" {
		t.Fatalf("unexpected cursor %q", cursor)
	}
}
