package clinic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func postSettings(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clinic-settings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_CreateSettings_SecondIsForbidden(t *testing.T) {
	h, e := newTestHandler()

	c, rec := postSettings(e, `{"name":"Clinic"}`)
	if err := h.CreateSettings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	c, _ = postSettings(e, `{"name":"Another"}`)
	err := h.CreateSettings(c)
	if code := httpCode(t, err); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
	if !strings.Contains(err.Error(), "not permitted") {
		t.Errorf("expected not permitted message, got %v", err)
	}
}

func TestHandler_GetSettings_NotConfigured(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if code := httpCode(t, h.GetSettings(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_GetSettings(t *testing.T) {
	h, e := newTestHandler()
	h.svc.CreateSettings(context.Background(), SettingsInput{Name: "Clinic"})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.GetSettings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Clinic"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_CreateSettings_BadRequest(t *testing.T) {
	h, e := newTestHandler()
	c, _ := postSettings(e, `{"address":"somewhere"}`)

	if code := httpCode(t, h.CreateSettings(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}
