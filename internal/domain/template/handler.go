package template

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/awv/awv/internal/platform/auth"
	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleNurse), h.requireOwner)
	readGroup.GET("/templates", h.ListTemplates)
	readGroup.GET("/templates/:id", h.GetTemplate)
	readGroup.POST("/templates/:id/visibility", h.EvaluateVisibility)

	writeGroup := api.Group("", auth.RequireRole(auth.RolePhysician), h.requireOwner)
	writeGroup.POST("/templates", h.CreateTemplate)
	writeGroup.PUT("/templates/:id", h.UpdateTemplate)
	writeGroup.DELETE("/templates/:id", h.DeleteTemplate)
	writeGroup.POST("/templates/:id/duplicate", h.DuplicateTemplate)
	writeGroup.POST("/templates/:id/autosave", h.AutoSave)

	writeGroup.POST("/templates/:id/sections", h.AddSection)
	writeGroup.POST("/templates/:id/sections/move", h.MoveSection)
	writeGroup.DELETE("/templates/:id/sections/:section", h.RemoveSection)
	writeGroup.POST("/templates/:id/sections/:section/questions", h.AddQuestion)
	writeGroup.POST("/templates/:id/sections/:section/questions/move", h.MoveQuestion)
	writeGroup.DELETE("/templates/:id/sections/:section/questions/:question", h.RemoveQuestion)
	writeGroup.PUT("/templates/:id/sections/:section/questions/:question/type", h.ChangeQuestionType)
	writeGroup.POST("/templates/:id/sections/:section/questions/:question/options", h.AddOption)
	writeGroup.POST("/templates/:id/sections/:section/questions/:question/options/move", h.MoveOption)
	writeGroup.DELETE("/templates/:id/sections/:section/questions/:question/options/:option", h.RemoveOption)
}

// requireOwner guards routes addressing one template. A template owned by
// someone else answers 404 so its existence is not confirmed; admins pass.
func (h *Handler) requireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		owner := auth.OwnerScope(c.Request().Context())
		if id == "" || owner == "" {
			return next(c)
		}
		t, err := h.svc.GetTemplate(c.Request().Context(), id)
		if err != nil {
			return httpError(err)
		}
		if t.UserID != owner {
			return httpError(docstore.ErrNotFound)
		}
		return next(c)
	}
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type typeRequest struct {
	Type QuestionType `json:"type"`
}

type optionRequest struct {
	Text string `json:"text"`
}

type addSectionResponse struct {
	Template      *Template `json:"template"`
	ActiveSection int       `json:"activeSection"`
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	var t Template
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = ""
	t.UserID = auth.UserIDFromContext(c.Request().Context())

	create := h.svc.CreateTemplate
	if c.QueryParam("draft") == "true" {
		create = h.svc.CreateDraft
	}
	if err := create(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	t, err := h.svc.GetTemplate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	p := pagination.FromContext(c)
	owner := auth.OwnerScope(c.Request().Context())
	items, total, err := h.svc.ListTemplates(c.Request().Context(), owner, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) UpdateTemplate(c echo.Context) error {
	var t Template
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = c.Param("id")
	if err := h.svc.UpdateTemplate(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	if err := h.svc.DeleteTemplate(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DuplicateTemplate(c echo.Context) error {
	owner := auth.UserIDFromContext(c.Request().Context())
	t, err := h.svc.DuplicateTemplate(c.Request().Context(), c.Param("id"), owner)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

// AutoSave queues the posted tree for a debounced draft save.
func (h *Handler) AutoSave(c echo.Context) error {
	var t Template
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = c.Param("id")
	existing, err := h.svc.GetTemplate(c.Request().Context(), t.ID)
	if err != nil {
		return httpError(err)
	}
	t.UserID = existing.UserID
	queued := h.svc.ScheduleAutoSave(&t)
	return c.JSON(http.StatusAccepted, map[string]bool{"queued": queued})
}

func (h *Handler) EvaluateVisibility(c echo.Context) error {
	// Decoded directly: Bind would also copy path params into the map.
	var responses Responses
	if err := json.NewDecoder(c.Request().Body).Decode(&responses); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	vis, err := h.svc.EvaluateVisibility(c.Request().Context(), c.Param("id"), responses)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, vis)
}

func (h *Handler) AddSection(c echo.Context) error {
	t, idx, err := h.svc.AddSection(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, addSectionResponse{Template: t, ActiveSection: idx})
}

func (h *Handler) RemoveSection(c echo.Context) error {
	sec, err := intParam(c, "section")
	if err != nil {
		return err
	}
	t, err := h.svc.RemoveSection(c.Request().Context(), c.Param("id"), sec)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) MoveSection(c echo.Context) error {
	var req moveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.MoveSection(c.Request().Context(), c.Param("id"), req.From, req.To)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) AddQuestion(c echo.Context) error {
	sec, err := intParam(c, "section")
	if err != nil {
		return err
	}
	t, err := h.svc.AddQuestion(c.Request().Context(), c.Param("id"), sec)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) RemoveQuestion(c echo.Context) error {
	sec, err := intParam(c, "section")
	if err != nil {
		return err
	}
	q, err := intParam(c, "question")
	if err != nil {
		return err
	}
	t, err := h.svc.RemoveQuestion(c.Request().Context(), c.Param("id"), sec, q)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) MoveQuestion(c echo.Context) error {
	sec, err := intParam(c, "section")
	if err != nil {
		return err
	}
	var req moveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.MoveQuestion(c.Request().Context(), c.Param("id"), sec, req.From, req.To)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ChangeQuestionType(c echo.Context) error {
	sec, err := intParam(c, "section")
	if err != nil {
		return err
	}
	q, err := intParam(c, "question")
	if err != nil {
		return err
	}
	var req typeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.ChangeQuestionType(c.Request().Context(), c.Param("id"), sec, q, req.Type)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) AddOption(c echo.Context) error {
	sec, err := intParam(c, "section")
	if err != nil {
		return err
	}
	q, err := intParam(c, "question")
	if err != nil {
		return err
	}
	var req optionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.AddOption(c.Request().Context(), c.Param("id"), sec, q, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) RemoveOption(c echo.Context) error {
	sec, err := intParam(c, "section")
	if err != nil {
		return err
	}
	q, err := intParam(c, "question")
	if err != nil {
		return err
	}
	opt, err := intParam(c, "option")
	if err != nil {
		return err
	}
	t, err := h.svc.RemoveOption(c.Request().Context(), c.Param("id"), sec, q, opt)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) MoveOption(c echo.Context) error {
	sec, err := intParam(c, "section")
	if err != nil {
		return err
	}
	q, err := intParam(c, "question")
	if err != nil {
		return err
	}
	var req moveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.MoveOption(c.Request().Context(), c.Param("id"), sec, q, req.From, req.To)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func intParam(c echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

func httpError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr)
	case errors.Is(err, docstore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "template not found")
	case errors.Is(err, ErrIndexOutOfRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
