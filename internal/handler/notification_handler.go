package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/internal/middleware"
	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/service"
	"github.com/noah-isme/brgy-records-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, caller models.Caller, filter models.NotificationFilter) (*service.NotificationPage, error)
	MarkRead(ctx context.Context, caller models.Caller, id string) error
}

// NotificationHandler serves the caller's in-app inbox.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var filter models.NotificationFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.UnreadOnly, _ = strconv.ParseBool(c.Query("unread"))

	page, err := h.service.List(c.Request.Context(), callerFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "unread", page.Unread)
	response.JSON(c, http.StatusOK, page.Items, page.Pagination, middleware.Meta(c))
}

// MarkRead godoc
// @Summary Mark notification read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), callerFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
