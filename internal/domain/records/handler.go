package records

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/platform/auth"
	"github.com/ehr/dashboard/pkg/pagination"
)

// StorageWarningHeader is set on a successful response whose change could
// not be saved.
const StorageWarningHeader = "X-Storage-Warning"

// Filters narrows listings by a free-text query. The search package
// provides the implementations.
type Filters struct {
	Patients func(all []Patient, query string) []Patient
	Files    func(all []File, query, category string) []File
}

type Handler struct {
	store   *Store
	filters Filters
	logger  zerolog.Logger
}

func NewHandler(store *Store, filters Filters, logger zerolog.Logger) *Handler {
	return &Handler{store: store, filters: filters, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.GET("/patients/:id/examinations", h.ListPatientExaminations)
	api.GET("/patients/:id/files", h.ListPatientFiles)
	api.GET("/examinations", h.ListExaminations)
	api.GET("/files", h.ListFiles)

	write := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RolePhysician))
	write.POST("/patients", h.CreatePatient)
	write.PUT("/patients/:id", h.UpdatePatient)
	write.PATCH("/patients/:id", h.UpdatePatient)
	write.DELETE("/patients/:id", h.DeletePatient)
	write.POST("/examinations", h.CreateExamination)
	write.POST("/files", h.CreateFile)
	write.DELETE("/files/:id", h.DeleteFile)
}

// -- Patients --

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients := h.store.ListPatients(c.Request().Context())
	if q := c.QueryParam("q"); q != "" && h.filters.Patients != nil {
		patients = h.filters.Patients(patients, q)
	}
	if status := c.QueryParam("status"); status != "" {
		kept := patients[:0]
		for _, p := range patients {
			if p.Status == status {
				kept = append(kept, p)
			}
		}
		patients = kept
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(patients, pg), len(patients), pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, ok := h.store.GetPatient(c.Request().Context(), id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var in PatientInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.store.AddPatient(c.Request().Context(), in)
	if p == nil {
		return h.writeError(err)
	}
	h.storageWarning(c, err)
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var patch PatientPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.store.UpdatePatient(c.Request().Context(), id, patch)
	if p == nil {
		if err == nil {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return h.writeError(err)
	}
	h.storageWarning(c, err)
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, err := h.store.DeletePatient(c.Request().Context(), id)
	if p == nil {
		if err == nil {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return h.writeError(err)
	}
	h.storageWarning(c, err)
	return c.NoContent(http.StatusNoContent)
}

// -- Examinations --

func (h *Handler) ListExaminations(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	exams := h.store.ListExaminations(ctx)
	if raw := c.QueryParam("patientId"); raw != "" {
		pid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patientId")
		}
		exams = h.store.ListExaminationsForPatient(ctx, pid)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(exams, pg), len(exams), pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientExaminations(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.store.ListExaminationsForPatient(c.Request().Context(), id))
}

func (h *Handler) CreateExamination(c echo.Context) error {
	var in ExaminationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.store.AddExamination(c.Request().Context(), in)
	if e == nil {
		return h.writeError(err)
	}
	h.storageWarning(c, err)
	return c.JSON(http.StatusCreated, e)
}

// -- Files --

func (h *Handler) ListFiles(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	files := h.store.ListFiles(ctx)
	if raw := c.QueryParam("patientId"); raw != "" {
		pid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patientId")
		}
		files = h.store.ListFilesForPatient(ctx, pid)
	}
	q, category := c.QueryParam("q"), c.QueryParam("category")
	if (q != "" || category != "") && h.filters.Files != nil {
		files = h.filters.Files(files, q, category)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(files, pg), len(files), pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientFiles(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.store.ListFilesForPatient(c.Request().Context(), id))
}

func (h *Handler) CreateFile(c echo.Context) error {
	var in FileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.store.AddFile(c.Request().Context(), in)
	if f == nil {
		return h.writeError(err)
	}
	h.storageWarning(c, err)
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) DeleteFile(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	f, err := h.store.DeleteFile(c.Request().Context(), id)
	if f == nil {
		if err == nil {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return h.writeError(err)
	}
	h.storageWarning(c, err)
	return c.NoContent(http.StatusNoContent)
}

// -- helpers --

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// writeError maps a rejected write to an HTTP error.
func (h *Handler) writeError(err error) error {
	var verr *ValidationError
	var rerr *ReferentialIntegrityError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "validation failed",
			"fields":  verr.Fields,
		})
	case errors.As(err, &rerr):
		return echo.NewHTTPError(http.StatusConflict, rerr.Error())
	case err == nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "write returned no record")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// storageWarning flags a response whose change is held in memory only.
func (h *Handler) storageWarning(c echo.Context, err error) {
	if err == nil {
		return
	}
	h.logger.Warn().Err(err).Str("path", c.Request().URL.Path).Msg("responding with unsaved change")
	c.Response().Header().Set(StorageWarningHeader, err.Error())
}
