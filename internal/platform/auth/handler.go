package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler serves login, logout and whoami.
type Handler struct {
	sessions *Sessions
	onLogout func()
	logger   zerolog.Logger
}

// NewHandler returns a handler; onLogout runs after a session is revoked.
func NewHandler(sessions *Sessions, onLogout func(), logger zerolog.Logger) *Handler {
	return &Handler{sessions: sessions, onLogout: onLogout, logger: logger}
}

// RegisterPublicRoutes mounts login on a group without session checks.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
}

// RegisterRoutes mounts logout and whoami on an authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/logout", h.Logout)
	g.GET("/auth/me", h.Me)
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, claims, err := h.sessions.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Warn().Str("username", req.Username).Str("remote_ip", c.RealIP()).Msg("login failed")
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info().Str("username", req.Username).Msg("login")
	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		Name:      claims.Name,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	h.sessions.Logout(ClaimsFromContext(ctx))
	if h.onLogout != nil {
		h.onLogout()
	}
	h.logger.Info().Str("user_id", UserIDFromContext(ctx)).Msg("logout")
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id": UserIDFromContext(ctx),
		"name":    ActorNameFromContext(ctx),
		"roles":   RolesFromContext(ctx),
	})
}
