package backend

import (
	"net/http"
	"strconv"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 200
)

// PaginationMeta describes one page of a list response. It travels in
// response headers so that list bodies stay plain JSON arrays.
type PaginationMeta struct {
	TotalCount int
	Limit      int
	Offset     int
	HasMore    bool
}

func (m PaginationMeta) setHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("X-Total-Count", strconv.Itoa(m.TotalCount))
	h.Set("X-Limit", strconv.Itoa(m.Limit))
	h.Set("X-Offset", strconv.Itoa(m.Offset))
	h.Set("X-Has-More", strconv.FormatBool(m.HasMore))
}

// parsePagination reads "limit" and "offset" query parameters from the
// request. Missing or invalid values fall back to defaults (offset=0,
// limit=defaultPageLimit). Negative values are clamped to 0; limit is
// capped at maxPageLimit.
func parsePagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()

	limit = defaultPageLimit
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset = 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}

	return limit, offset
}

// paginateSlice returns (start, end) indices for slicing a collection of
// totalCount items, plus the filled PaginationMeta. If offset exceeds
// totalCount, start == end (empty page).
func paginateSlice(totalCount, limit, offset int) (start, end int, meta PaginationMeta) {
	start = offset
	if start > totalCount {
		start = totalCount
	}
	end = start + limit
	if end > totalCount {
		end = totalCount
	}
	meta = PaginationMeta{
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
		HasMore:    end < totalCount,
	}
	return start, end, meta
}
