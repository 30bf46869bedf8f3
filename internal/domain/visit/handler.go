package visit

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/awv/awv/internal/domain/patient"
	"github.com/awv/awv/internal/domain/template"
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
	clinical := api.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleNurse))
	clinical.GET("/visits", h.ListVisits)
	clinical.GET("/visits/:id", h.GetVisit)
	clinical.GET("/patients/:id/visits", h.ListPatientVisits)
	clinical.POST("/visits", h.ScheduleVisit)
	clinical.PUT("/visits/:id/status", h.Transition)
	clinical.PUT("/visits/:id/responses", h.RecordResponses)

	writeGroup := api.Group("", auth.RequireRole(auth.RolePhysician))
	writeGroup.POST("/visits/:id/complete", h.CompleteVisit)
	writeGroup.DELETE("/visits/:id", h.DeleteVisit)
}

type statusRequest struct {
	Status string `json:"status"`
}

type completeRequest struct {
	Recommendations []Recommendation `json:"recommendations"`
}

func (h *Handler) ScheduleVisit(c echo.Context) error {
	var v Visit
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.ID = ""
	v.Recommendations = nil
	v.UserID = auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.ScheduleVisit(c.Request().Context(), &v); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVisit(c echo.Context) error {
	v, err := h.svc.GetVisit(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVisits(c echo.Context) error {
	p := pagination.FromContext(c)
	filter := ListFilter{
		UserID:    auth.OwnerScope(c.Request().Context()),
		PatientID: c.QueryParam("patientId"),
	}
	if s := c.QueryParam("status"); s != "" {
		st, err := ParseStatus(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		filter.Status = st
	}
	return h.list(c, filter, p)
}

func (h *Handler) ListPatientVisits(c echo.Context) error {
	p := pagination.FromContext(c)
	return h.list(c, ListFilter{PatientID: c.Param("id")}, p)
}

func (h *Handler) list(c echo.Context, filter ListFilter, p pagination.Params) error {
	items, total, err := h.svc.ListVisits(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) DeleteVisit(c echo.Context) error {
	if err := h.svc.DeleteVisit(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Transition(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.Transition(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) RecordResponses(c echo.Context) error {
	// Decoded directly: Bind would also copy path params into the map.
	var responses template.Responses
	if err := json.NewDecoder(c.Request().Body).Decode(&responses); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.RecordResponses(c.Request().Context(), c.Param("id"), responses)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) CompleteVisit(c echo.Context) error {
	var req completeRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.CompleteVisit(c.Request().Context(), c.Param("id"), req.Recommendations)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func httpError(err error) error {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr)
	case errors.Is(err, docstore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, patient.ErrInactive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
