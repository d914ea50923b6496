package selection

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/dashboard/internal/domain/records"
)

// RecordReader is the slice of the record store the selection routes need.
type RecordReader interface {
	PatientLookup
	ListExaminationsForPatient(ctx context.Context, patientID int64) []records.Examination
	ListFilesForPatient(ctx context.Context, patientID int64) []records.File
}

type Handler struct {
	coord   *Coordinator
	records RecordReader
}

func NewHandler(coord *Coordinator, records RecordReader) *Handler {
	return &Handler{coord: coord, records: records}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/selection", h.GetSelection)
	api.PUT("/selection", h.SelectPatient)
	api.DELETE("/selection", h.ClearSelection)
	api.GET("/view", h.GetView)
	api.PUT("/view", h.SwitchView)
}

type selectionResponse struct {
	PatientID    *int64                `json:"patientId"`
	Patient      *records.Patient      `json:"patient,omitempty"`
	Examinations []records.Examination `json:"examinations,omitempty"`
	Files        []records.File        `json:"files,omitempty"`
}

// GetSelection returns the selected patient with its examinations and files.
func (h *Handler) GetSelection(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := h.coord.SelectedPatientID()
	if !ok {
		return c.JSON(http.StatusOK, selectionResponse{})
	}
	resp := selectionResponse{PatientID: &id}
	if p, found := h.records.GetPatient(ctx, id); found {
		resp.Patient = p
		resp.Examinations = h.records.ListExaminationsForPatient(ctx, id)
		resp.Files = h.records.ListFilesForPatient(ctx, id)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) SelectPatient(c echo.Context) error {
	var req struct {
		PatientID *int64 `json:"patientId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == nil {
		return h.ClearSelection(c)
	}
	if err := h.coord.SelectPatient(c.Request().Context(), *req.PatientID); err != nil {
		return coordinatorError(err)
	}
	return h.GetSelection(c)
}

func (h *Handler) ClearSelection(c echo.Context) error {
	if err := h.coord.ClearSelection(); err != nil {
		return coordinatorError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetView(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]ViewID{"view": h.coord.ActiveView()})
}

func (h *Handler) SwitchView(c echo.Context) error {
	var req struct {
		View ViewID `json:"view"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.coord.SwitchView(req.View); err != nil {
		return coordinatorError(err)
	}
	return h.GetView(c)
}

func coordinatorError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownPatient):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnknownView):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrReentrantDispatch):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
