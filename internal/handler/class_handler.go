package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	"github.com/sankalp-sachan/ATTENDLY/internal/service"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/response"
)

type classService interface {
	List(ctx context.Context, user models.User, filter models.ClassFilter) ([]models.ClassRecord, *models.Pagination, error)
	ListAll(ctx context.Context, user models.User) ([]models.ClassRecord, error)
	Get(ctx context.Context, user models.User, id string) (*models.ClassRecord, error)
	Create(ctx context.Context, user models.User, req service.CreateClassRequest) (*models.ClassRecord, error)
	Update(ctx context.Context, user models.User, id string, req service.UpdateClassRequest) (*models.ClassRecord, error)
	Delete(ctx context.Context, user models.User, id string) error
}

// ClassHandler exposes class CRUD endpoints.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param all query bool false "Return every class with its attendance, unpaginated"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if all, _ := strconv.ParseBool(c.Query("all")); all {
		classes, err := h.service.ListAll(c.Request.Context(), user)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, classes, nil)
		return
	}
	page, size := pageParams(c)
	filter := models.ClassFilter{Search: strings.TrimSpace(c.Query("search")), Page: page, PageSize: size}

	classes, pagination, err := h.service.List(c.Request.Context(), user, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class with its attendance log
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	class, err := h.service.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.Create(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.UpdateClassRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [patch]
func (h *ClassHandler) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.Update(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Delete godoc
// @Summary Delete class and its attendance
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
