package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/agentworks/casestudio/internal/store"
)

func testAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return &AuthHandler{
		AdminEmail:        "admin@example.com",
		AdminPasswordHash: string(hash),
		Secret:            []byte("test-secret"),
	}
}

func TestLoginSuccess(t *testing.T) {
	e := echo.New()
	auth := testAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"admin@example.com","password":"correct-horse-battery"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := auth.login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["token"] == "" {
		t.Fatalf("no token in response")
	}
	if got := rec.Header().Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
		t.Errorf("Authorization header = %q", got)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	e := echo.New()
	auth := testAuthHandler(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"wrong password", `{"email":"admin@example.com","password":"incorrect-horse"}`, http.StatusUnauthorized},
		{"wrong email", `{"email":"intruder@example.com","password":"correct-horse-battery"}`, http.StatusUnauthorized},
		{"short password", `{"email":"admin@example.com","password":"short"}`, http.StatusBadRequest},
	}
	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			err := auth.login(e.NewContext(req, rec))
			he, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if he.Code != tt.code {
				t.Errorf("code = %d, want %d", he.Code, tt.code)
			}
		})
	}
}

func TestWithAuth(t *testing.T) {
	e := echo.New()
	secret := []byte("test-secret")

	handler := withAuth(func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("user_id").(string))
	}, secret)

	t.Run("valid bearer token", func(t *testing.T) {
		token, err := SignJWT("admin@example.com", secret, time.Hour)
		if err != nil {
			t.Fatalf("SignJWT: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler: %v", err)
		}
		if rec.Body.String() != "admin@example.com" {
			t.Errorf("subject = %q", rec.Body.String())
		}
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		err := handler(e.NewContext(req, rec))
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := SignJWT("admin@example.com", []byte("other-secret"), time.Hour)
		if err != nil {
			t.Fatalf("SignJWT: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		err = handler(e.NewContext(req, rec))
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := SignJWT("admin@example.com", secret, -time.Minute)
		if err != nil {
			t.Fatalf("SignJWT: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		err = handler(e.NewContext(req, rec))
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})
}

func TestListCaseStudies(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &CaseStudiesHandler{Store: &store.Store{DB: db}}
	created := time.Date(2026, 8, 20, 10, 15, 10, 0, time.UTC)

	mock.ExpectQuery(`SELECT cs.id, cs.agent_slug`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "agent_slug", "title", "subtitle", "display", "featured", "display_order", "step_count", "created_at",
		}).AddRow("cs-1", "fraud-trends", "Title", "Subtitle", true, true, 1, 6, created))

	req := httptest.NewRequest(http.MethodGet, "/api/case-studies", nil)
	rec := httptest.NewRecorder()

	if err := handler.list(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var items []store.CaseStudySummary
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].AgentSlug != "fraud-trends" || items[0].StepCount != 6 {
		t.Fatalf("items = %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListCaseStudiesEmptyIsArray(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &CaseStudiesHandler{Store: &store.Store{DB: db}}

	mock.ExpectQuery(`SELECT cs.id, cs.agent_slug`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "agent_slug", "title", "subtitle", "display", "featured", "display_order", "step_count", "created_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/case-studies", nil)
	rec := httptest.NewRecorder()

	if err := handler.list(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty array", got)
	}
}

func TestGetCaseStudyNotFound(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &CaseStudiesHandler{Store: &store.Store{DB: db}}

	mock.ExpectQuery(`SELECT id, agent_slug`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest(http.MethodGet, "/api/case-studies/missing", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("missing")

	err = handler.get(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestSetCuration(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &CaseStudiesHandler{Store: &store.Store{DB: db}}

	mock.ExpectExec(regexp.QuoteMeta(`
UPDATE case_studies
SET display=$2, featured=$3, display_order=$4, updated_at=NOW()
WHERE id=$1
`)).
		WithArgs("cs-1", true, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPatch, "/api/case-studies/cs-1/curation",
		strings.NewReader(`{"display":true,"featured":true,"display_order":3}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("cs-1")

	if err := handler.setCuration(ctx); err != nil {
		t.Fatalf("setCuration: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetCurationRejectsNegativeOrder(t *testing.T) {
	e := echo.New()
	handler := &CaseStudiesHandler{Store: &store.Store{}}

	req := httptest.NewRequest(http.MethodPatch, "/api/case-studies/cs-1/curation",
		strings.NewReader(`{"display":true,"display_order":-1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("cs-1")

	err := handler.setCuration(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHealthz(t *testing.T) {
	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}
