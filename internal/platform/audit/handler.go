package audit

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/auth"
	"github.com/medtrack/medtrack/pkg/pagination"
)

// PatientDirectory resolves a patient-role user to their patient profile
// id. The patient domain provides the implementation; the guard never
// trusts a caller-supplied patient_id for patient-role visibility.
type PatientDirectory interface {
	PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Handler serves the read side of the audit log.
type Handler struct {
	store    Store
	patients PatientDirectory
}

// NewHandler creates a Handler reading from store, resolving patient
// identities through patients.
func NewHandler(store Store, patients PatientDirectory) *Handler {
	return &Handler{store: store, patients: patients}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	logs := g.Group("", auth.RequireRole(RolePatient, RoleDoctor))
	logs.GET("/audit-logs", h.List)
	logs.GET("/audit-logs/mine", h.ListMine)
}

// List handles GET /audit-logs. The caller-supplied filter is re-scoped
// by the access guard before it reaches the store.
func (h *Handler) List(c echo.Context) error {
	return h.list(c, AuthorizeRead)
}

// ListMine handles GET /audit-logs/mine: the requesting actor's own
// actions, newest first.
func (h *Handler) ListMine(c echo.Context) error {
	return h.list(c, AuthorizeReadOwn)
}

func (h *Handler) list(c echo.Context, authorize func(Actor, uuid.UUID, Filter) (Filter, error)) error {
	ident, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	actor := Actor{ID: ident.UserID, Name: ident.Name, Role: ident.Role}

	filter, err := parseFilter(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var ownPatientID uuid.UUID
	if actor.Role == RolePatient {
		ownPatientID, err = h.patients.PatientIDForUser(c.Request().Context(), actor.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusForbidden, "no patient profile for user")
		}
	}

	filter, err = authorize(actor, ownPatientID, filter)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed to read audit logs")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	entries, err := h.store.Query(ctx, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	total, err := h.store.Count(ctx, filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func parseFilter(c echo.Context) (Filter, error) {
	var f Filter

	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return Filter{}, errors.New("invalid patient_id")
		}
		f.PatientID = id
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return Filter{}, errors.New("invalid user_id")
		}
		f.UserID = id
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := ResourceType(v)
		if !ValidResourceTypes[rt] {
			return Filter{}, errors.New("invalid resource_type")
		}
		f.ResourceType = rt
	}
	return f, nil
}
