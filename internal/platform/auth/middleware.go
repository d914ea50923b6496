package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserNameKey  contextKey = "user_name"
	UserRolesKey contextKey = "user_roles"
	ClaimsKey    contextKey = "session_claims"
)

// Roles.
const (
	RoleAdmin     = "admin"
	RolePhysician = "physician"
)

// SessionMiddleware requires a valid bearer session token and records the
// actor on the request context.
func SessionMiddleware(sessions *Sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := sessions.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as a development
// physician. Requests that carry a token are still verified when sessions is
// non-nil.
func DevAuthMiddleware(sessions *Sessions) echo.MiddlewareFunc {
	verify := SessionMiddleware(sessions)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		verified := verify(next)
		return func(c echo.Context) error {
			if sessions != nil && c.Request().Header.Get("Authorization") != "" {
				return verified(c)
			}
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, "dev-user")
			ctx = context.WithValue(ctx, UserNameKey, "Dr. Developer")
			ctx = context.WithValue(ctx, UserRolesKey, []string{RoleAdmin, RolePhysician})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// TokenQueryParam carries a session token on requests that cannot set
// headers, such as a browser websocket upgrade.
const TokenQueryParam = "access_token"

// QueryToken copies ?access_token= into the Authorization header when the
// request has none. Mount it only in front of routes that need it, ahead of
// SessionMiddleware or DevAuthMiddleware.
func QueryToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Header.Get("Authorization") == "" {
				if token := c.QueryParam(TokenQueryParam); token != "" {
					req.Header.Set("Authorization", "Bearer "+token)
				}
			}
			return next(c)
		}
	}
}

// WithClaims stores the session's identity on ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	ctx = context.WithValue(ctx, UserNameKey, claims.Name)
	ctx = context.WithValue(ctx, UserRolesKey, claims.Roles)
	return ctx
}

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

// ActorNameFromContext is the display name of the authenticated actor, used
// as the uploader and audit identity.
func ActorNameFromContext(ctx context.Context) string {
	if name, _ := ctx.Value(UserNameKey).(string); name != "" {
		return name
	}
	return UserIDFromContext(ctx)
}

// IsAuthenticated reports whether a middleware admitted this request.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}
