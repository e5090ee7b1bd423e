package pagination

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextFor(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"limit and offset", "?limit=50&offset=10", 50, 10},
		{"limit clamped", "?limit=500", MaxLimit, 0},
		{"negative offset", "?offset=-4", DefaultLimit, 0},
		{"garbage limit", "?limit=abc", DefaultLimit, 0},
		{"first page", "?page=1&page_size=10", 10, 0},
		{"third page", "?page=3&page_size=10", 10, 20},
		{"page only", "?page=2", DefaultLimit, DefaultLimit},
		{"page size only", "?page_size=5", 5, 0},
		{"page size clamped", "?page=2&page_size=1000", MaxLimit, MaxLimit},
		{"page wins over offset", "?page=2&page_size=10&offset=99", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromContext(contextFor(tt.query))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("got limit=%d offset=%d, want limit=%d offset=%d", p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestFromContext_InvalidPage(t *testing.T) {
	tests := []struct {
		query string
		want  error
	}{
		{"?page=0", ErrInvalidPage},
		{"?page=-1&page_size=10", ErrInvalidPage},
		{"?page=x", ErrInvalidPage},
		{"?page=1&page_size=0", ErrInvalidPageSize},
		{"?page_size=-5", ErrInvalidPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := FromContext(contextFor(tt.query))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 25, Params{Limit: 10, Offset: 10})
	if resp.Page != 2 {
		t.Errorf("expected page 2, got %d", resp.Page)
	}
	if resp.TotalPages != 3 {
		t.Errorf("expected 3 total pages, got %d", resp.TotalPages)
	}
	if !resp.HasMore {
		t.Error("expected has_more")
	}

	last := NewResponse(nil, 25, Params{Limit: 10, Offset: 20})
	if last.HasMore {
		t.Error("expected no more results on last page")
	}

	empty := NewResponse(nil, 0, Params{Limit: 10})
	if empty.TotalPages != 0 || empty.Page != 1 {
		t.Errorf("unexpected empty paging: page=%d total_pages=%d", empty.Page, empty.TotalPages)
	}
}

func TestResponse_WithLinks(t *testing.T) {
	resp := NewResponse(nil, 30, Params{Limit: 10, Offset: 10}).WithLinks("/api/v1/doctors")
	if len(resp.Links) != 3 {
		t.Fatalf("expected self, next and previous links, got %v", resp.Links)
	}
	if resp.Links[1].URL != "/api/v1/doctors?offset=20&limit=10" {
		t.Errorf("unexpected next link %s", resp.Links[1].URL)
	}
	if resp.Links[2].URL != "/api/v1/doctors?offset=0&limit=10" {
		t.Errorf("unexpected previous link %s", resp.Links[2].URL)
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	if got := (Params{Limit: 10, Offset: 5}).PreviousOffset(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
