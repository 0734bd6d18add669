package appointment

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
	own := g.Group("", auth.RequireRole("patient"))
	own.POST("/appointments", h.Book)
	own.GET("/appointments/mine", h.ListMine)

	care := g.Group("", auth.RequireRole("doctor"))
	care.GET("/appointments/schedule", h.ListSchedule)
	care.PUT("/appointments/:id/status", h.UpdateStatus)

	read := g.Group("", auth.RequireRole("patient", "doctor"))
	read.GET("/appointments/:id", h.Get)
}

func (h *Handler) Book(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	patientID, err := h.patients.PatientIDForUser(c.Request().Context(), actor.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "no patient profile for user")
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Book(c.Request().Context(), actor, c.RealIP(), patientID, in)
	if err != nil {
		if errors.Is(err, audit.ErrAppendFailed) {
			return echo.NewHTTPError(http.StatusInternalServerError, "audit trail unavailable")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListMine(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	patientID, err := h.patients.PatientIDForUser(c.Request().Context(), actor.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "no patient profile for user")
	}
	pg := pagination.FromContext(c)
	appts, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListSchedule(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	appts, total, err := h.svc.ListByDoctor(c.Request().Context(), actor.ID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in StatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), actor, c.RealIP(), id, in.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrInvalidStatus):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		case errors.Is(err, audit.ErrAppendFailed):
			return echo.NewHTTPError(http.StatusInternalServerError, "audit trail unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
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
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if actor.Role != audit.RoleDoctor {
		own, err := h.patients.PatientIDForUser(c.Request().Context(), actor.ID)
		if err != nil || own != a.PatientID {
			return echo.NewHTTPError(http.StatusForbidden, "access denied")
		}
	}
	return c.JSON(http.StatusOK, a)
}

func actorFromContext(c echo.Context) (audit.Actor, error) {
	ident, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return audit.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return audit.Actor{ID: ident.UserID, Name: ident.Name, Role: ident.Role}, nil
}
