package reporting

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/dashboard/internal/domain/records"
)

// SnapshotSource supplies the collections to report on. *records.Store
// satisfies it.
type SnapshotSource interface {
	Snapshot() records.Snapshot
}

type Handler struct {
	source        SnapshotSource
	activityLimit int
	now           func() time.Time
}

// NewHandler returns a handler whose recent-activity feed defaults to
// activityLimit entries.
func NewHandler(source SnapshotSource, activityLimit int) *Handler {
	if activityLimit <= 0 {
		activityLimit = 5
	}
	return &Handler{source: source, activityLimit: activityLimit, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.Summary)
	api.GET("/dashboard/statistics", h.Statistics)
	api.GET("/dashboard/activity", h.Activity)
	api.GET("/dashboard/trends", h.Trends)
	api.GET("/dashboard/diagnoses", h.Diagnoses)
}

func (h *Handler) Summary(c echo.Context) error {
	limit, err := h.intParam(c, "limit", h.activityLimit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Dashboard(h.now(), h.source.Snapshot(), limit, DefaultTopDiagnoses))
}

func (h *Handler) Statistics(c echo.Context) error {
	snap := h.source.Snapshot()
	return c.JSON(http.StatusOK, ComputeStatistics(h.now(), snap.Patients, snap.Examinations, snap.Files))
}

func (h *Handler) Activity(c echo.Context) error {
	limit, err := h.intParam(c, "limit", h.activityLimit)
	if err != nil {
		return err
	}
	snap := h.source.Snapshot()
	return c.JSON(http.StatusOK, RecentActivity(snap.Examinations, snap.Patients, limit))
}

func (h *Handler) Trends(c echo.Context) error {
	snap := h.source.Snapshot()
	return c.JSON(http.StatusOK, ComputeTrends(h.now(), snap.Examinations, snap.Patients))
}

func (h *Handler) Diagnoses(c echo.Context) error {
	top, err := h.intParam(c, "top", DefaultTopDiagnoses)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TopDiagnoses(h.source.Snapshot().Examinations, top))
}

func (h *Handler) intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}
