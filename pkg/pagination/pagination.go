package pagination

import (
	"math"
	"net/http"
	"strconv"
)

// DefaultPageSize is the fixed number of results per search page.
const DefaultPageSize = 9

// Params holds a 1-based page and the derived row offset.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"-"`
	Offset   int `json:"-"`
}

// New returns Params for page with the given size. Pages below 1 are clamped
// to 1 and non-positive sizes fall back to DefaultPageSize. Pages are capped
// so that Offset+PageSize fits in an int.
func New(page, size int) Params {
	if size < 1 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if last := maxPage(size); page > last {
		page = last
	}
	return Params{
		Page:     page,
		PageSize: size,
		Offset:   (page - 1) * size,
	}
}

func maxPage(size int) int {
	return (math.MaxInt-size)/size + 1
}

// FromRequest reads the "page" query parameter. Missing or unparseable values
// default to page 1 rather than failing the request.
func FromRequest(r *http.Request, size int) Params {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	return New(page, size)
}

// TotalPages returns ceil(total/size), never less than 1.
func TotalPages(total, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}
