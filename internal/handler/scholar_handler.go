package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/service"
	"github.com/noah-isme/brgy-records-api/pkg/export"
	"github.com/noah-isme/brgy-records-api/pkg/response"
)

type scholarService interface {
	Register(ctx context.Context, caller models.Caller, payload models.ScholarPayload) (*models.WriteResult, error)
	Update(ctx context.Context, caller models.Caller, id int64, payload models.ScholarPayload) (*models.WriteResult, error)
	Delete(ctx context.Context, caller models.Caller, id int64) error
	Get(ctx context.Context, caller models.Caller, id int64) (*models.ScholarRecord, error)
	List(ctx context.Context, caller models.Caller, filter models.RecordFilter) ([]models.ScholarRecord, *models.Pagination, error)
	Stats(ctx context.Context, caller models.Caller) (*models.RecordStats, error)
	Export(ctx context.Context, caller models.Caller, filter models.RecordFilter, format export.Format) (*service.ExportFile, error)
	Print(ctx context.Context, caller models.Caller, id int64) (*service.ExportFile, error)
}

// ScholarHandler exposes scholarship records. Students only ever see the
// records linked to their own account.
type ScholarHandler struct {
	service scholarService
}

// NewScholarHandler constructs the handler.
func NewScholarHandler(svc scholarService) *ScholarHandler {
	return &ScholarHandler{service: svc}
}

// List godoc
// @Summary List scholars
// @Tags Scholars
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "pending, active, rejected or expired"
// @Param search query string false "Search term"
// @Param detail_state query string false "MISSING, EMPTY or EXISTS"
// @Param user_id query string false "Owner account (staff only)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /scholars [get]
func (h *ScholarHandler) List(c *gin.Context) {
	filter, ok := recordFilter(c)
	if !ok {
		return
	}
	records, pagination, err := h.service.List(c.Request.Context(), callerFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get scholar
// @Tags Scholars
// @Produce json
// @Param id path int true "Scholar ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /scholars/{id} [get]
func (h *ScholarHandler) Get(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	record, err := h.service.Get(c.Request.Context(), callerFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Register scholar
// @Tags Scholars
// @Accept json
// @Produce json
// @Param payload body models.ScholarPayload true "Scholar payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /scholars [post]
func (h *ScholarHandler) Create(c *gin.Context) {
	var payload models.ScholarPayload
	if !bindJSON(c, &payload, "invalid scholar payload") {
		return
	}
	res, err := h.service.Register(c.Request.Context(), callerFromContext(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Update godoc
// @Summary Update scholar
// @Tags Scholars
// @Accept json
// @Produce json
// @Param id path int true "Scholar ID"
// @Param payload body models.ScholarPayload true "Scholar payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /scholars/{id} [put]
func (h *ScholarHandler) Update(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	var payload models.ScholarPayload
	if !bindJSON(c, &payload, "invalid scholar payload") {
		return
	}
	res, err := h.service.Update(c.Request.Context(), callerFromContext(c), id, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Delete godoc
// @Summary Delete scholar
// @Tags Scholars
// @Param id path int true "Scholar ID"
// @Success 204
// @Security BearerAuth
// @Router /scholars/{id} [delete]
func (h *ScholarHandler) Delete(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), callerFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Scholar statistics
// @Tags Scholars
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /scholars/stats [get]
func (h *ScholarHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), callerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export scholars
// @Tags Scholars
// @Produce octet-stream
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /scholars/export [get]
func (h *ScholarHandler) Export(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	filter, ok := recordFilter(c)
	if !ok {
		return
	}
	file, err := h.service.Export(c.Request.Context(), callerFromContext(c), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Print godoc
// @Summary Print scholar profile
// @Tags Scholars
// @Produce application/pdf
// @Param id path int true "Scholar ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /scholars/{id}/print [get]
func (h *ScholarHandler) Print(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	file, err := h.service.Print(c.Request.Context(), callerFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}
