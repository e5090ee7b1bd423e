package pagination

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var (
	ErrInvalidPage     = errors.New("page must be a positive integer")
	ErrInvalidPageSize = errors.New("page_size must be a positive integer")
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads page/page_size when either is present, otherwise
// limit/offset. An explicit page or page_size that is not a positive integer
// is an error; limit and offset are clamped silently.
func FromContext(c echo.Context) (Params, error) {
	pageStr, sizeStr := c.QueryParam("page"), c.QueryParam("page_size")
	if pageStr != "" || sizeStr != "" {
		page, size := 1, DefaultLimit
		if pageStr != "" {
			n, err := strconv.Atoi(pageStr)
			if err != nil || n <= 0 {
				return Params{}, ErrInvalidPage
			}
			page = n
		}
		if sizeStr != "" {
			n, err := strconv.Atoi(sizeStr)
			if err != nil || n <= 0 {
				return Params{}, ErrInvalidPageSize
			}
			size = n
		}
		if size > MaxLimit {
			size = MaxLimit
		}
		return Params{Limit: size, Offset: (page - 1) * size}, nil
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}, nil
}

// Page is the 1-based page number the offset falls on.
func (p Params) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset never goes below zero.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Response wraps a paginated API response.
type Response struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	HasMore    bool        `json:"has_more"`
	Links      []Link      `json:"links,omitempty"`
}

type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return &Response{
		Data:       data,
		Total:      total,
		Limit:      p.Limit,
		Offset:     p.Offset,
		Page:       p.Page(),
		TotalPages: totalPages,
		HasMore:    p.HasNext(total),
	}
}

// WithLinks adds self/next/previous links relative to basePath.
func (r *Response) WithLinks(basePath string) *Response {
	p := Params{Limit: r.Limit, Offset: r.Offset}
	r.Links = []Link{{Relation: "self", URL: fmt.Sprintf("%s?offset=%d&limit=%d", basePath, p.Offset, p.Limit)}}
	if p.HasNext(r.Total) {
		r.Links = append(r.Links, Link{Relation: "next", URL: fmt.Sprintf("%s?offset=%d&limit=%d", basePath, p.NextOffset(), p.Limit)})
	}
	if p.HasPrevious() {
		r.Links = append(r.Links, Link{Relation: "previous", URL: fmt.Sprintf("%s?offset=%d&limit=%d", basePath, p.PreviousOffset(), p.Limit)})
	}
	return r
}
