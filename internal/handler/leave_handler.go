package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/pkg/response"
)

type leaveService interface {
	File(ctx context.Context, caller models.Caller, req models.FileLeaveRequest) (*models.LeaveRequest, error)
	List(ctx context.Context, caller models.Caller, filter models.LeaveFilter) ([]models.LeaveRequest, *models.Pagination, error)
	Approve(ctx context.Context, caller models.Caller, id string, req models.ReviewLeaveRequest) (*models.LeaveRequest, error)
	Reject(ctx context.Context, caller models.Caller, id string, req models.ReviewLeaveRequest) (*models.LeaveRequest, error)
}

// LeaveHandler handles staff leave requests.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(svc leaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// Create godoc
// @Summary File a leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body models.FileLeaveRequest true "Leave request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves [post]
func (h *LeaveHandler) Create(c *gin.Context) {
	var req models.FileLeaveRequest
	if !bindJSON(c, &req, "invalid leave request") {
		return
	}
	leave, err := h.service.File(c.Request.Context(), callerFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// List godoc
// @Summary List leave requests
// @Description Admins see every request; other roles only their own
// @Tags Leaves
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param user_id query string false "Requester (admins only)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	var filter models.LeaveFilter
	filter.Page, filter.PageSize = pageParams(c)
	if status := strings.ToUpper(strings.TrimSpace(c.Query("status"))); status != "" {
		s := models.LeaveStatus(status)
		filter.Status = &s
	}
	var ok bool
	if filter.UserID, ok = optionalUUID(c, "user_id"); !ok {
		return
	}

	leaves, pagination, err := h.service.List(c.Request.Context(), callerFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, pagination)
}

// Approve godoc
// @Summary Approve leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body models.ReviewLeaveRequest false "Reviewer note"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/{id}/approve [post]
func (h *LeaveHandler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body models.ReviewLeaveRequest false "Reviewer note"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/{id}/reject [post]
func (h *LeaveHandler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject)
}

type reviewFunc func(ctx context.Context, caller models.Caller, id string, req models.ReviewLeaveRequest) (*models.LeaveRequest, error)

func (h *LeaveHandler) review(c *gin.Context, fn reviewFunc) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.ReviewLeaveRequest
	// the note is optional, so an empty body is fine
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid review payload") {
		return
	}
	leave, err := fn(c.Request.Context(), callerFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}
