package doctor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cmd/doctor/internal/platform/auth"
)

func newRouter(svc *Service, user string, roles ...string) *echo.Echo {
	e := echo.New()
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if user != "" {
				c.SetRequest(c.Request().WithContext(auth.WithUser(c.Request().Context(), user, roles)))
			}
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(api)
	return e
}

func doJSON(e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, strings.NewReader(string(b)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateDoctor(t *testing.T) {
	svc, _, _ := newTestService()
	e := newRouter(svc, "staff-1", auth.RoleStaff)

	rec := doJSON(e, http.MethodPost, "/api/v1/doctors", validRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got Doctor
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CreatedBy != "staff-1" || got.Gender != GenderFemale {
		t.Errorf("unexpected doctor %+v", got)
	}
}

func TestHandler_CreateDoctor_Errors(t *testing.T) {
	svc, _, _ := newTestService()
	e := newRouter(svc, "staff-1", auth.RoleStaff)

	bad := validRequest()
	bad.PhoneNo = "abc"
	rec := doJSON(e, http.MethodPost, "/api/v1/doctors", bad)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "phone_no") {
		t.Errorf("expected field name in body, got %s", rec.Body.String())
	}

	doJSON(e, http.MethodPost, "/api/v1/doctors", validRequest())
	if rec := doJSON(e, http.MethodPost, "/api/v1/doctors", validRequest()); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", rec.Code)
	}

	viewer := newRouter(svc, "v", auth.RoleViewer)
	if rec := doJSON(viewer, http.MethodPost, "/api/v1/doctors", validRequest()); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for viewer, got %d", rec.Code)
	}
}

func TestHandler_GetUpdateList(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), "u", validRequest())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	e := newRouter(svc, "admin", auth.RoleAdmin)

	if rec := doJSON(e, http.MethodGet, "/api/v1/doctors/"+created.ID.String(), nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/api/v1/doctors/"+uuid.New().String(), nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/api/v1/doctors/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	req := validRequest()
	req.Qualification = "DM"
	rec := doJSON(e, http.MethodPut, "/api/v1/doctors/"+created.ID.String(), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got Doctor
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Qualification != "DM" || got.ModifiedBy != "admin" {
		t.Errorf("unexpected update result %+v", got)
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/doctors?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page struct {
		Data  []Doctor `json:"data"`
		Total int      `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 1 || len(page.Data) != 1 {
		t.Errorf("unexpected page %+v", page)
	}
	if rec := doJSON(e, http.MethodGet, "/api/v1/doctors?page_size=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for page_size=0, got %d", rec.Code)
	}
}

func TestHandler_DirectoryUnavailable(t *testing.T) {
	dir := newFakeDirectory()
	dir.err = context.DeadlineExceeded
	svc := NewService(newMockRepo(), newTestValidator(dir), nil, zerolog.Nop())
	e := newRouter(svc, "admin", auth.RoleAdmin)
	if rec := doJSON(e, http.MethodPost, "/api/v1/doctors", validRequest()); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
