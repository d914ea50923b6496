package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSessionMiddleware_MissingHeader(t *testing.T) {
	s := testSessions(t)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil), httptest.NewRecorder())

	err := SessionMiddleware(s)(func(c echo.Context) error { return nil })(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestSessionMiddleware_BadScheme(t *testing.T) {
	s := testSessions(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic YWRtaW46czNjcmV0")
	c := e.NewContext(req, httptest.NewRecorder())

	err := SessionMiddleware(s)(func(c echo.Context) error { return nil })(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestSessionMiddleware_SetsActor(t *testing.T) {
	s := testSessions(t)
	token, _, err := s.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	var actor, uid string
	var authed bool
	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		actor = ActorNameFromContext(ctx)
		uid = UserIDFromContext(ctx)
		authed = IsAuthenticated(ctx)
		if ClaimsFromContext(ctx) == nil {
			t.Error("expected claims on context")
		}
		return nil
	}
	if err := SessionMiddleware(s)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor != "Dr. Admin" || uid != "admin" || !authed {
		t.Errorf("unexpected identity: actor=%q uid=%q authed=%v", actor, uid, authed)
	}
}

func TestDevAuthMiddleware_DefaultsToDeveloper(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	var actor string
	handler := func(c echo.Context) error {
		actor = ActorNameFromContext(c.Request().Context())
		return nil
	}
	if err := DevAuthMiddleware(nil)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor != "Dr. Developer" {
		t.Errorf("expected Dr. Developer, got %q", actor)
	}
}

func TestDevAuthMiddleware_VerifiesPresentedToken(t *testing.T) {
	s := testSessions(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer forged")
	c := e.NewContext(req, httptest.NewRecorder())

	err := DevAuthMiddleware(s)(func(c echo.Context) error { return nil })(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{"matching role", []string{RolePhysician}, http.StatusOK},
		{"admin passes", []string{RoleAdmin}, http.StatusOK},
		{"no role", nil, http.StatusForbidden},
		{"other role", []string{"nurse"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, tt.roles))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := RequireRole(RolePhysician)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)
			code := rec.Code
			if httpErr, ok := err.(*echo.HTTPError); ok {
				code = httpErr.Code
			}
			if code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, code)
			}
		})
	}
}

func TestActorNameFromContext_Empty(t *testing.T) {
	ctx := context.Background()
	if got := ActorNameFromContext(ctx); got != "" {
		t.Errorf("expected empty actor, got %q", got)
	}
	if IsAuthenticated(ctx) {
		t.Error("expected unauthenticated")
	}
}

func TestQueryToken_AuthenticatesUpgradeRequest(t *testing.T) {
	s := testSessions(t)
	token, _, err := s.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ws?"+TokenQueryParam+"="+token, nil), httptest.NewRecorder())

	var uid string
	h := QueryToken()(SessionMiddleware(s)(func(c echo.Context) error {
		uid = UserIDFromContext(c.Request().Context())
		return nil
	}))
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "admin" {
		t.Errorf("expected admin, got %q", uid)
	}
}

func TestQueryToken_HeaderWins(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?"+TokenQueryParam+"=from-query", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	c := e.NewContext(req, httptest.NewRecorder())

	var got string
	h := QueryToken()(func(c echo.Context) error {
		got = c.Request().Header.Get("Authorization")
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Bearer from-header" {
		t.Errorf("expected header token to be kept, got %q", got)
	}
}

func TestQueryToken_NoTokenStillRejected(t *testing.T) {
	s := testSessions(t)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ws", nil), httptest.NewRecorder())

	err := QueryToken()(SessionMiddleware(s)(func(c echo.Context) error { return nil }))(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
