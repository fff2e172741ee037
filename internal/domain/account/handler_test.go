package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/healthwatch/healthwatch/internal/platform/auth"
)

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Login(t *testing.T) {
	svc, _ := newTestService(t)
	svc.CreateAccount(context.Background(), CreateInput{Username: "admin", Password: "correcthorse", Role: "admin"})
	h, e := NewHandler(svc), echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"admin","password":"correcthorse"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var tok auth.IssuedToken
	json.Unmarshal(rec.Body.Bytes(), &tok)
	if tok.AccessToken == "" || tok.Role != auth.RoleAdmin {
		t.Errorf("unexpected token response: %s", rec.Body.String())
	}
}

func TestHandler_Login_BadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	svc.CreateAccount(context.Background(), CreateInput{Username: "admin", Password: "correcthorse", Role: "admin"})
	h, e := NewHandler(svc), echo.New()

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"admin","password":"nope-nope"}`), httptest.NewRecorder())
	if code := httpCode(t, h.Login(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"admin"}`), httptest.NewRecorder())
	if code := httpCode(t, h.Login(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Logout(t *testing.T) {
	svc, rev := newTestService(t)
	h, e := NewHandler(svc), echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), httptest.NewRecorder())
	if code := httpCode(t, h.Logout(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without claims, got %d", code)
	}

	svc.CreateAccount(context.Background(), CreateInput{Username: "doc", Password: "correcthorse", Role: "doctor"})
	tok, _ := svc.Login(context.Background(), LoginInput{Username: "doc", Password: "correcthorse"})
	claims, _ := auth.ParseToken(tok.AccessToken, testKey, "")

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if _, ok := rev.revoked[claims.ID]; !ok {
		t.Error("expected token to be revoked")
	}
}

func TestHandler_CreateAccount(t *testing.T) {
	svc, _ := newTestService(t)
	h, e := NewHandler(svc), echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/accounts", `{"username":"viewer","password":"longenough","role":"viewer"}`), rec)
	if err := h.CreateAccount(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("password hash must not be serialized: %s", rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/api/v1/accounts", `{"username":"viewer","password":"longenough","role":"viewer"}`), httptest.NewRecorder())
	if code := httpCode(t, h.CreateAccount(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/api/v1/accounts", `{"username":"x","password":"longenough","role":"root"}`), httptest.NewRecorder())
	if code := httpCode(t, h.CreateAccount(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_SetActive(t *testing.T) {
	svc, _ := newTestService(t)
	h, e := NewHandler(svc), echo.New()
	a, _ := svc.CreateAccount(context.Background(), CreateInput{Username: "doc", Password: "longenough", Role: "doctor"})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{"active":false}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.SetActive(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Account
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Active {
		t.Error("expected account to be deactivated")
	}

	c = e.NewContext(jsonRequest(http.MethodPut, "/", `{}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if code := httpCode(t, h.SetActive(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 without active flag, got %d", code)
	}
}

func TestHandler_SetActive_RevocationUnavailable(t *testing.T) {
	svc, rev := newTestService(t)
	h, e := NewHandler(svc), echo.New()
	a, _ := svc.CreateAccount(context.Background(), CreateInput{Username: "doc", Password: "longenough", Role: "doctor"})
	rev.err = errors.New("redis down")

	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{"active":false}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if code := httpCode(t, h.SetActive(c)); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
}

func TestHandler_SetActive_Self(t *testing.T) {
	svc, _ := newTestService(t)
	h, e := NewHandler(svc), echo.New()
	a, _ := svc.CreateAccount(context.Background(), CreateInput{Username: "admin", Password: "longenough", Role: "admin"})

	req := jsonRequest(http.MethodPut, "/", `{"active":false}`)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{
		Username: "admin",
		Roles:    []string{"admin"},
	}))
	req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, a.ID.String()))
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if code := httpCode(t, h.SetActive(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for self-deactivation, got %d", code)
	}
}

func TestRoutes_RequireManageUsers(t *testing.T) {
	svc, _ := newTestService(t)
	h, e := NewHandler(svc), echo.New()
	api := e.Group("/api/v1")
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := &auth.Claims{Username: "doc", Roles: []string{"doctor"}}
			c.SetRequest(c.Request().WithContext(auth.WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	})
	h.RegisterRoutes(api)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for doctor, got %d", rec.Code)
	}
}
