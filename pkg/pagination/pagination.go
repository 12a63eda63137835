package pagination

import (
	"net/http"
	"strconv"

	apperrors "github.com/Farylve/TEST/pkg/errors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds offset pagination parameters taken from the query string.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// DefaultParams returns page 1 with the default limit.
func DefaultParams() Params {
	return Params{Page: DefaultPage, Limit: DefaultLimit}
}

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Validate rejects out of range values instead of clamping them.
func (p Params) Validate() error {
	if p.Page < 1 {
		return apperrors.InvalidInput("page must be a positive integer")
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return apperrors.InvalidInput("limit must be between 1 and " + strconv.Itoa(MaxLimit))
	}
	return nil
}

// FromRequest reads page and limit from r. Absent parameters take their
// defaults; present but malformed or out of range values are an error.
func FromRequest(r *http.Request) (Params, error) {
	p := DefaultParams()
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, apperrors.InvalidInput("page must be a positive integer")
		}
		p.Page = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, apperrors.InvalidInput("limit must be between 1 and " + strconv.Itoa(MaxLimit))
		}
		p.Limit = v
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Info is the pagination block returned next to a page of results.
type Info struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewInfo derives the pagination block for params and a total row count.
func NewInfo(params Params, totalCount int) Info {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = totalCount / params.Limit
		if totalCount%params.Limit > 0 {
			totalPages++
		}
	}

	return Info{
		CurrentPage: params.Page,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		Limit:       params.Limit,
		HasNextPage: params.Page < totalPages,
		HasPrevPage: params.Page > 1,
	}
}
