package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/awv/awv/internal/platform/auth"
	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/pkg/pagination"
	"github.com/awv/awv/pkg/validation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Nurses register and update patients as well as read them.
	clinical := api.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleNurse))
	clinical.GET("/patients", h.ListPatients)
	clinical.GET("/patients/:id", h.GetPatient)
	clinical.POST("/patients", h.CreatePatient)
	clinical.PUT("/patients/:id", h.UpdatePatient)

	writeGroup := api.Group("", auth.RequireRole(auth.RolePhysician))
	writeGroup.POST("/patients/:id/deactivate", h.DeactivatePatient)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = ""
	p.UserID = auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListPatients serves both plain listing and search: q matches name, MRN,
// email or phone; mrn filters exactly; inactive=true includes deactivated
// patients.
func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := SearchParams{
		UserID:          auth.OwnerScope(c.Request().Context()),
		Query:           c.QueryParam("q"),
		MRN:             c.QueryParam("mrn"),
		IncludeInactive: c.QueryParam("inactive") == "true",
	}
	items, total, err := h.svc.SearchPatients(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = c.Param("id")
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeactivatePatient(c echo.Context) error {
	p, err := h.svc.DeactivatePatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func httpError(err error) error {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr)
	case errors.Is(err, docstore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, docstore.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
