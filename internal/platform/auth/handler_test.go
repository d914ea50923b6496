package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestHandler_LoginSuccess(t *testing.T) {
	s := testSessions(t)
	h := NewHandler(s, nil, zerolog.Nop())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"admin","password":"s3cret"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" || resp.Name != "Dr. Admin" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if _, err := s.Verify(resp.Token); err != nil {
		t.Errorf("issued token does not verify: %v", err)
	}
}

func TestHandler_LoginFailure(t *testing.T) {
	h := NewHandler(testSessions(t), nil, zerolog.Nop())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"admin","password":"wrong"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Login(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_LogoutRevokesAndNotifies(t *testing.T) {
	s := testSessions(t)
	token, claims, err := s.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	loggedOut := false
	h := NewHandler(s, func() { loggedOut = true }, zerolog.Nop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if !loggedOut {
		t.Error("expected logout callback to run")
	}
	if _, err := s.Verify(token); err == nil {
		t.Error("expected token to be revoked")
	}
}

func TestHandler_Me(t *testing.T) {
	s := testSessions(t)
	_, claims, err := s.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	h := NewHandler(s, nil, zerolog.Nop())
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "Dr. Admin" || body["user_id"] != "admin" {
		t.Errorf("unexpected body: %v", body)
	}
}
