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

type beneficiaryService interface {
	Register(ctx context.Context, caller models.Caller, payload models.BeneficiaryPayload) (*models.WriteResult, error)
	Update(ctx context.Context, caller models.Caller, id int64, payload models.BeneficiaryPayload) (*models.WriteResult, error)
	Delete(ctx context.Context, caller models.Caller, id int64) error
	Get(ctx context.Context, caller models.Caller, id int64) (*models.BeneficiaryRecord, error)
	List(ctx context.Context, caller models.Caller, filter models.RecordFilter) ([]models.BeneficiaryRecord, *models.Pagination, error)
	Stats(ctx context.Context, caller models.Caller) (*models.RecordStats, error)
	Export(ctx context.Context, caller models.Caller, filter models.RecordFilter, format export.Format) (*service.ExportFile, error)
	Print(ctx context.Context, caller models.Caller, id int64) (*service.ExportFile, error)
}

// BeneficiaryHandler exposes 4Ps beneficiary records over HTTP.
type BeneficiaryHandler struct {
	service beneficiaryService
}

// NewBeneficiaryHandler constructs the handler.
func NewBeneficiaryHandler(svc beneficiaryService) *BeneficiaryHandler {
	return &BeneficiaryHandler{service: svc}
}

// List godoc
// @Summary List beneficiaries
// @Description Paginated beneficiaries annotated with detail state and display name
// @Tags Beneficiaries
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Status filter"
// @Param search query string false "Matches household ID, head name or control number"
// @Param detail_state query string false "MISSING, EMPTY or EXISTS"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /beneficiaries [get]
func (h *BeneficiaryHandler) List(c *gin.Context) {
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
// @Summary Get beneficiary
// @Tags Beneficiaries
// @Produce json
// @Param id path int true "Beneficiary ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /beneficiaries/{id} [get]
func (h *BeneficiaryHandler) Get(c *gin.Context) {
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
// @Summary Register beneficiary
// @Description Creates the beneficiary and, when supplied, its household detail in one transaction
// @Tags Beneficiaries
// @Accept json
// @Produce json
// @Param payload body models.BeneficiaryPayload true "Beneficiary payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /beneficiaries [post]
func (h *BeneficiaryHandler) Create(c *gin.Context) {
	var payload models.BeneficiaryPayload
	if !bindJSON(c, &payload, "invalid beneficiary payload") {
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
// @Summary Update beneficiary
// @Description Updates the beneficiary and upserts its detail; the control number never changes once assigned
// @Tags Beneficiaries
// @Accept json
// @Produce json
// @Param id path int true "Beneficiary ID"
// @Param payload body models.BeneficiaryPayload true "Beneficiary payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /beneficiaries/{id} [put]
func (h *BeneficiaryHandler) Update(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	var payload models.BeneficiaryPayload
	if !bindJSON(c, &payload, "invalid beneficiary payload") {
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
// @Summary Delete beneficiary
// @Tags Beneficiaries
// @Param id path int true "Beneficiary ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /beneficiaries/{id} [delete]
func (h *BeneficiaryHandler) Delete(c *gin.Context) {
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
// @Summary Beneficiary statistics
// @Tags Beneficiaries
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /beneficiaries/stats [get]
func (h *BeneficiaryHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), callerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export beneficiaries
// @Description Streams the filtered listing as CSV, PDF or XLSX
// @Tags Beneficiaries
// @Produce octet-stream
// @Param format query string false "csv (default), pdf or xlsx"
// @Param status query string false "Status filter"
// @Param search query string false "Search term"
// @Param detail_state query string false "MISSING, EMPTY or EXISTS"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /beneficiaries/export [get]
func (h *BeneficiaryHandler) Export(c *gin.Context) {
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
// @Summary Print beneficiary profile
// @Tags Beneficiaries
// @Produce application/pdf
// @Param id path int true "Beneficiary ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /beneficiaries/{id}/print [get]
func (h *BeneficiaryHandler) Print(c *gin.Context) {
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
