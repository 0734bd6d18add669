package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	// A patient manages their own profile
	own := g.Group("", auth.RequireRole("patient"))
	own.POST("/patients", h.CreateProfile)
	own.GET("/patients/me", h.GetOwnProfile)
	own.PUT("/patients/me", h.UpdateOwnProfile)

	// Doctors read and update any patient's profile
	care := g.Group("", auth.RequireRole("doctor"))
	care.GET("/patients/:id", h.GetProfile)
	care.PUT("/patients/:id", h.UpdateProfile)
}

func actorFromContext(c echo.Context) (audit.Actor, error) {
	ident, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return audit.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return audit.Actor{ID: ident.UserID, Name: ident.Name, Role: ident.Role}, nil
}

func (h *Handler) CreateProfile(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CreateProfile(c.Request().Context(), actor, c.RealIP(), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetOwnProfile(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetByUser(c.Request().Context(), actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateOwnProfile(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	own, err := h.svc.GetByUser(c.Request().Context(), actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.update(c, actor, own.ID)
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return h.update(c, actor, id)
}

func (h *Handler) update(c echo.Context, actor audit.Actor, id uuid.UUID) error {
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateProfile(c.Request().Context(), actor, c.RealIP(), id, in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient profile not found")
		}
		if errors.Is(err, audit.ErrAppendFailed) {
			return echo.NewHTTPError(http.StatusInternalServerError, "audit trail unavailable")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
