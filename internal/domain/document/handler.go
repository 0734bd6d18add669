package document

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/auth"
	"github.com/medtrack/medtrack/internal/platform/blobstore"
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
	rw := g.Group("", auth.RequireRole("patient", "doctor"))
	rw.POST("/patients/:patientID/files", h.Upload)
	rw.GET("/patients/:patientID/files", h.ListByPatient)
	rw.GET("/files/:id", h.Download)
	rw.DELETE("/files/:id", h.Delete)
}

func (h *Handler) Upload(c echo.Context) error {
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

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	category := c.FormValue("category")
	if category == "" {
		category = "other"
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	contentType := fh.Header.Get("Content-Type")
	f, err := h.svc.Upload(c.Request().Context(), actor, c.RealIP(), patientID,
		fh.Filename, category, contentType, src)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, blobstore.ErrInvalidContentType),
			errors.Is(err, blobstore.ErrInvalidExtension),
			errors.Is(err, blobstore.ErrMissingFileName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, audit.ErrAppendFailed):
			return echo.NewHTTPError(http.StatusInternalServerError, "audit trail unavailable")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, f)
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
	files, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(files, total, pg.Limit, pg.Offset))
}

func (h *Handler) Download(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rc, f, err := h.svc.Download(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, blobstore.ErrBlobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	if err := h.requireAccess(c, actor, f.PatientID); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, f.FileName))
	return c.Stream(http.StatusOK, f.ContentType, rc)
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
	f, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.requireAccess(c, actor, f.PatientID); err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, c.RealIP(), id); err != nil {
		if errors.Is(err, audit.ErrAppendFailed) {
			return echo.NewHTTPError(http.StatusInternalServerError, "audit trail unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// requireAccess lets doctors through and restricts patients to their own
// files.
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
