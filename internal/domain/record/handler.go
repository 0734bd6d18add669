package record

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/auth"
	"github.com/medtrack/medtrack/pkg/pagination"
)

type Handler struct {
	svc      *Service
	patients audit.PatientDirectory
}

func NewHandler(svc *Service, patients audit.PatientDirectory) *Handler {
	return &Handler{svc: svc, patients: patients}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	care := g.Group("", auth.RequireRole("doctor"))
	care.POST("/medical-records", h.Create)
	care.DELETE("/medical-records/:id", h.Delete)

	read := g.Group("", auth.RequireRole("patient", "doctor"))
	read.GET("/medical-records/:id", h.Get)
	read.GET("/patients/:patientID/medical-records", h.ListByPatient)
}

func (h *Handler) Create(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.Create(c.Request().Context(), actor, c.RealIP(), in)
	if err != nil {
		if errors.Is(err, audit.ErrAppendFailed) {
			return echo.NewHTTPError(http.StatusInternalServerError, "audit trail unavailable")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Delete(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), actor, c.RealIP(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "medical record not found")
		}
		if errors.Is(err, audit.ErrAppendFailed) {
			return echo.NewHTTPError(http.StatusInternalServerError, "audit trail unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Get(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "medical record not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.requireAccess(c, actor, m.PatientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if err := h.requireAccess(c, actor, patientID); err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	records, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, pg.Limit, pg.Offset))
}

// requireAccess lets doctors through and restricts patients to their own
// chart.
func (h *Handler) requireAccess(c echo.Context, actor audit.Actor, patientID uuid.UUID) error {
	if actor.Role == audit.RoleDoctor {
		return nil
	}
	own, err := h.patients.PatientIDForUser(c.Request().Context(), actor.ID)
	if err != nil || own != patientID {
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
	return nil
}

func actorFromContext(c echo.Context) (audit.Actor, error) {
	ident, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return audit.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return audit.Actor{ID: ident.UserID, Name: ident.Name, Role: ident.Role}, nil
}
