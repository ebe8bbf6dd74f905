package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPage is used when the page parameter is omitted.
	DefaultPage = 1
	// MaxPageSize caps how many rows a single page can request.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs. A zero PageSize returns every
// row in one response.
type Params struct {
	Page     int
	PageSize int
}

// Paged reports whether a page size was requested.
func (p Params) Paged() bool {
	return p.PageSize > 0
}

// Offset returns the number of rows to skip for the current page.
func (p Params) Offset() int {
	if !p.Paged() || p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// NormalizePageSize enforces the maximum page size.
func NormalizePageSize(size int) int {
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// ParseParams reads page and page_size from a query string. Both must be
// positive integers when present.
func ParseParams(values url.Values) (Params, error) {
	params := Params{Page: DefaultPage}
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, fmt.Errorf("page must be a positive integer")
		}
		params.Page = page
	}
	if raw := strings.TrimSpace(values.Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return Params{}, fmt.Errorf("page_size must be a positive integer")
		}
		params.PageSize = NormalizePageSize(size)
	}
	return params, nil
}

// Links builds absolute next/previous URLs from the current request URL.
// Unpaged responses have neither.
func Links(current *url.URL, params Params, count int64) (next, previous *string) {
	if current == nil || !params.Paged() {
		return nil, nil
	}
	if int64(params.Page)*int64(params.PageSize) < count {
		link := withPage(current, params.Page+1)
		next = &link
	}
	if params.Page > 1 {
		link := withPage(current, params.Page-1)
		previous = &link
	}
	return next, previous
}

func withPage(current *url.URL, page int) string {
	u := *current
	query := u.Query()
	query.Set("page", strconv.Itoa(page))
	u.RawQuery = query.Encode()
	return u.String()
}
