package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runAuth(t *testing.T, app *App, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	rec := httptest.NewRecorder()
	c := &AppContext{e.NewContext(req, rec), app}

	handler := AuthMiddleware(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestAuthMiddlewareAcceptsValidAPIKey(t *testing.T) {
	app := &App{APIKey: "secret-key"}
	rec := runAuth(t, app, http.Header{"X-Api-Key": []string{"secret-key"}})
	if rec.Code != http.StatusOK {
		t.Errorf("valid key rejected: %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsWrongAPIKey(t *testing.T) {
	app := &App{APIKey: "secret-key"}
	rec := runAuth(t, app, http.Header{"X-Api-Key": []string{"wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key accepted: %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsMissingCredentials(t *testing.T) {
	app := &App{APIKey: "secret-key"}
	rec := runAuth(t, app, http.Header{})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing credentials accepted: %d", rec.Code)
	}
}

func TestAuthMiddlewareOpenWhenUnconfigured(t *testing.T) {
	app := &App{}
	rec := runAuth(t, app, http.Header{})
	if rec.Code != http.StatusOK {
		t.Errorf("unconfigured auth should pass through: %d", rec.Code)
	}
}
