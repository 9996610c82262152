package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/sankalp-sachan/ATTENDLY/internal/dto"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/response"
)

type sessionController interface {
	Start(session models.Session) (models.Session, error)
	Stop(userID string) bool
	Session(userID string) (models.Session, bool)
	TickInterval() time.Duration
}

type notificationService interface {
	Tick(ctx context.Context, session models.Session) (*models.TickResult, error)
	Inbox(ctx context.Context, user models.User, page, size int) ([]models.InboxNotification, *models.Pagination, error)
	MarkRead(ctx context.Context, user models.User, id string) error
}

// NotificationHandler manages the caller's scheduler session and inbox.
type NotificationHandler struct {
	sessions  sessionController
	service   notificationService
	validator *validator.Validate
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(sessions sessionController, svc notificationService, validate *validator.Validate) *NotificationHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &NotificationHandler{sessions: sessions, service: svc, validator: validate}
}

// StartSession godoc
// @Summary Start the notification ticker for the caller
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.StartSessionRequest false "Session options"
// @Success 200 {object} response.Envelope
// @Router /notifications/session [post]
func (h *NotificationHandler) StartSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time zone"))
		return
	}

	session, err := h.sessions.Start(models.Session{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		TimeZone: req.TimeZone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.status(session, true), nil)
}

// StopSession godoc
// @Summary Stop the caller's notification ticker
// @Tags Notifications
// @Success 204
// @Router /notifications/session [delete]
func (h *NotificationHandler) StopSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	h.sessions.Stop(user.ID)
	response.NoContent(c)
}

// SessionStatus godoc
// @Summary Report whether the caller's ticker is running
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/session [get]
func (h *NotificationHandler) SessionStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	session, active := h.sessions.Session(user.ID)
	response.JSON(c, http.StatusOK, h.status(session, active), nil)
}

// Tick godoc
// @Summary Run one scheduler tick now
// @Description Requires an active session. Slots already fired today are not repeated.
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/tick [post]
func (h *NotificationHandler) Tick(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	session, active := h.sessions.Session(user.ID)
	if !active {
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "no active notification session"))
		return
	}
	result, err := h.service.Tick(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Inbox godoc
// @Summary List in-app notifications
// @Tags Notifications
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) Inbox(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	items, pagination, err := h.service.Inbox(c.Request.Context(), user, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *NotificationHandler) status(session models.Session, active bool) dto.SessionStatus {
	if !active {
		return dto.SessionStatus{}
	}
	return dto.SessionStatus{
		Active:       true,
		TimeZone:     session.TimeZone,
		TickInterval: h.sessions.TickInterval().String(),
	}
}
