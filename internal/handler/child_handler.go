package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/response"
)

type childService interface {
	List(ctx context.Context, filter models.ChildFilter) ([]models.Child, error)
	Get(ctx context.Context, id int64) (*models.Child, error)
	Create(ctx context.Context, req models.ChildRequest) (*models.Child, error)
	Update(ctx context.Context, id int64, req models.ChildRequest) (*models.Child, error)
	Delete(ctx context.Context, id int64) error
	Issues(ctx context.Context, childID int64) ([]models.Issue, error)
	IssueMilk(ctx context.Context, childID int64, req models.IssueRequest) (*models.IssueResult, error)
}

// ChildHandler manages the registry of supported children and their supplement issues.
type ChildHandler struct {
	service childService
}

// NewChildHandler constructs the child handler.
func NewChildHandler(svc childService) *ChildHandler {
	return &ChildHandler{service: svc}
}

// List godoc
// @Summary List children
// @Tags Children
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name fragment"
// @Success 200 {object} response.Envelope
// @Router /admin/children [get]
func (h *ChildHandler) List(c *gin.Context) {
	children, err := h.service.List(c.Request.Context(), models.ChildFilter{Search: strings.TrimSpace(c.Query("search"))})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, children, nil)
}

// Get godoc
// @Summary Get child
// @Tags Children
// @Produce json
// @Security BearerAuth
// @Param id path int true "Child ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/children/{id} [get]
func (h *ChildHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	child, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, child, nil)
}

// Create godoc
// @Summary Register child
// @Tags Children
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChildRequest true "Child payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/children [post]
func (h *ChildHandler) Create(c *gin.Context) {
	var req models.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid child payload"))
		return
	}
	child, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, child)
}

// Update godoc
// @Summary Update child
// @Tags Children
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Child ID"
// @Param payload body models.ChildRequest true "Child payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/children/{id} [put]
func (h *ChildHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid child payload"))
		return
	}
	child, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, child, nil)
}

// Delete godoc
// @Summary Remove child
// @Tags Children
// @Security BearerAuth
// @Param id path int true "Child ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/children/{id} [delete]
func (h *ChildHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Issues godoc
// @Summary List supplement issues
// @Tags Children
// @Produce json
// @Security BearerAuth
// @Param id path int true "Child ID"
// @Success 200 {object} response.Envelope
// @Router /admin/children/{id}/issues [get]
func (h *ChildHandler) Issues(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	issues, err := h.service.Issues(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issues, nil)
}

// Issue godoc
// @Summary Record supplement issue
// @Description Record a hand-out and take one unit off the matching product
// @Tags Children
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Child ID"
// @Param payload body models.IssueRequest false "Issue payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/children/{id}/issues [post]
func (h *ChildHandler) Issue(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.IssueRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid issue payload"))
			return
		}
	}
	result, err := h.service.IssueMilk(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
