package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/platform/auth"
)

// Audit emits one structured "record_access" log line per API request,
// naming the actor, the collection and, when the route or query carries
// one, the patient id.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			ctx := req.Context()
			rid, _ := c.Get("request_id").(string)
			evt := logger.Info().
				Str("type", "audit").
				Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(ctx)).
				Str("actor", auth.ActorNameFromContext(ctx)).
				Str("resource", resourceFromPath(req.URL.Path)).
				Str("action", actionFromMethod(req.Method)).
				Int("status", c.Response().Status)
			if pid, ok := patientIDFromRequest(c); ok {
				evt = evt.Int64("patient_id", pid)
			}
			evt.Msg("record_access")

			return err
		}
	}
}

func actionFromMethod(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceFromPath maps /api/v1/patients/12 to "patients".
func resourceFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "unknown"
	}
	return rest
}

func patientIDFromRequest(c echo.Context) (int64, bool) {
	path := c.Request().URL.Path
	if strings.HasPrefix(path, "/api/v1/patients/") {
		seg := strings.TrimPrefix(path, "/api/v1/patients/")
		if i := strings.IndexByte(seg, '/'); i >= 0 {
			seg = seg[:i]
		}
		if id, err := strconv.ParseInt(seg, 10, 64); err == nil {
			return id, true
		}
	}
	if q := c.QueryParam("patientId"); q != "" {
		if id, err := strconv.ParseInt(q, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}
