package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/brgy-records-api/internal/middleware"
	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/service"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/export"
	"github.com/noah-isme/brgy-records-api/pkg/response"
)

func callerFromContext(c *gin.Context) models.Caller {
	return middleware.Caller(c)
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func recordID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

// uuidParam reads a UUID path parameter. Malformed ids are rejected here so
// they never reach a uuid column as a driver error.
func uuidParam(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		response.Error(c, appErrors.Validation(err, name+" must be a UUID", nil))
		return "", false
	}
	return raw, true
}

// optionalUUID reads an optional UUID query parameter.
func optionalUUID(c *gin.Context, name string) (*string, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	if _, err := uuid.Parse(raw); err != nil {
		response.Error(c, appErrors.Validation(err, name+" must be a UUID", map[string]string{name: "uuid"}))
		return nil, false
	}
	return &raw, true
}

// recordFilter reads the listing query shared by beneficiaries and scholars.
func recordFilter(c *gin.Context) (models.RecordFilter, bool) {
	userID, ok := optionalUUID(c, "user_id")
	if !ok {
		return models.RecordFilter{}, false
	}
	page, size := pageParams(c)
	filter := models.RecordFilter{
		Status:      strings.TrimSpace(c.Query("status")),
		Search:      c.Query("search"),
		DetailState: models.DetailState(strings.ToUpper(strings.TrimSpace(c.Query("detail_state")))),
		Page:        page,
		PageSize:    size,
		UserID:      userID,
	}
	return filter, true
}

func exportFormat(c *gin.Context) (export.Format, bool) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv, pdf or xlsx"))
		return "", false
	}
	return format, true
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("X-Export-Rows", strconv.Itoa(file.Rows))
	if file.Truncated {
		c.Header("X-Export-Truncated", "true")
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
