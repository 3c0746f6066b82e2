package pagination

import (
	"fmt"
	"strings"
)

// Type selects the pagination mode for a request.
type Type string

const (
	Offset Type = "offset"
	Cursor Type = "cursor"
)

const (
	MinPerPage     = 1
	MaxPerPage     = 100
	DefaultPerPage = 15
)

// ParseType normalizes a requested pagination_type. The engine's
// default mode is Cursor: anything that is not explicitly "offset"
// falls back to cursor pagination.
func ParseType(raw string) Type {
	if strings.EqualFold(strings.TrimSpace(raw), string(Offset)) {
		return Offset
	}
	return Cursor
}

// Pagination is the per-request window config. Construct via New so
// the clamps always hold: PerPage in [1,100], Page >= 1.
type Pagination struct {
	Page    int
	PerPage int
	Type    Type
	Cursor  string
}

func New(page, perPage int, typ Type, cursor string) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < MinPerPage {
		perPage = MinPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if typ != Offset {
		typ = Cursor
	}
	return Pagination{Page: page, PerPage: perPage, Type: typ, Cursor: cursor}
}

func (p Pagination) Offset() uint64 {
	return uint64(p.Page-1) * uint64(p.PerPage)
}

func (p Pagination) Limit() uint64 {
	return uint64(p.PerPage)
}

// Info is the response pagination envelope. Offset-only fields stay
// nil in cursor mode and vice versa.
type Info struct {
	PaginationType Type    `json:"pagination_type"`
	CurrentPage    *int    `json:"current_page,omitempty"`
	PerPage        int     `json:"per_page"`
	Total          *int64  `json:"total,omitempty"`
	TotalPages     *int    `json:"total_pages,omitempty"`
	From           *int64  `json:"from,omitempty"`
	To             *int64  `json:"to,omitempty"`
	HasMorePages   bool    `json:"has_more_pages"`
	PrevPage       *int    `json:"prev_page,omitempty"`
	NextPage       *int    `json:"next_page,omitempty"`
	PrevCursor     *string `json:"prev_cursor,omitempty"`
	NextCursor     *string `json:"next_cursor,omitempty"`
	FirstPageURL   *string `json:"first_page_url,omitempty"`
	LastPageURL    *string `json:"last_page_url,omitempty"`
	PrevPageURL    *string `json:"prev_page_url,omitempty"`
	NextPageURL    *string `json:"next_page_url,omitempty"`
	Path           string  `json:"path"`
}

// Result is the uniform paginated response envelope.
type Result[T any] struct {
	Data       []T  `json:"data"`
	Pagination Info `json:"pagination"`
}

// OffsetInfo derives the offset-mode metadata from a known total.
func OffsetInfo(p Pagination, total int64, path string) Info {
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	}

	info := Info{
		PaginationType: Offset,
		CurrentPage:    intPtr(p.Page),
		PerPage:        p.PerPage,
		Total:          int64Ptr(total),
		TotalPages:     intPtr(totalPages),
		HasMorePages:   p.Page < totalPages,
		Path:           path,
	}

	from := int64(p.Offset()) + 1
	if total > 0 && from <= total {
		to := from + int64(p.PerPage) - 1
		if to > total {
			to = total
		}
		info.From = int64Ptr(from)
		info.To = int64Ptr(to)
	}

	lastPage := totalPages
	if lastPage < 1 {
		lastPage = 1
	}
	info.FirstPageURL = strPtr(pageURL(path, 1, p.PerPage))
	info.LastPageURL = strPtr(pageURL(path, lastPage, p.PerPage))

	if p.Page > 1 {
		prev := p.Page - 1
		if prev > lastPage {
			prev = lastPage
		}
		info.PrevPage = intPtr(prev)
		info.PrevPageURL = strPtr(pageURL(path, prev, p.PerPage))
	}
	if p.Page < totalPages {
		next := p.Page + 1
		info.NextPage = intPtr(next)
		info.NextPageURL = strPtr(pageURL(path, next, p.PerPage))
	}

	return info
}

// CursorInfo derives the cursor-mode metadata. Cursor mode never
// issues a COUNT, so totals stay unknown.
func CursorInfo(p Pagination, hasMore bool, prevCursor, nextCursor, path string) Info {
	info := Info{
		PaginationType: Cursor,
		PerPage:        p.PerPage,
		HasMorePages:   hasMore,
		Path:           path,
	}
	if prevCursor != "" {
		info.PrevCursor = strPtr(prevCursor)
		info.PrevPageURL = strPtr(cursorURL(path, prevCursor, p.PerPage))
	}
	if nextCursor != "" {
		info.NextCursor = strPtr(nextCursor)
		info.NextPageURL = strPtr(cursorURL(path, nextCursor, p.PerPage))
	}
	return info
}

func pageURL(path string, page, perPage int) string {
	return fmt.Sprintf("%s?page=%d&per_page=%d", path, page, perPage)
}

func cursorURL(path, cursor string, perPage int) string {
	return fmt.Sprintf("%s?cursor=%s&per_page=%d", path, cursor, perPage)
}

func intPtr(v int) *int          { return &v }
func int64Ptr(v int64) *int64    { return &v }
func strPtr(v string) *string    { return &v }
