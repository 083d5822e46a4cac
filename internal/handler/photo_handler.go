package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/service"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/response"
)

// multipart framing allowance on top of the photo limit
const uploadOverhead = 64 << 10

type photoService interface {
	Upload(ctx context.Context, caller models.Caller, folder string, r io.Reader) (*service.UploadedPhoto, error)
	Open(token string) (io.ReadSeekCloser, string, error)
}

// PhotoHandler accepts record photo uploads and serves them back through
// signed links.
type PhotoHandler struct {
	service  photoService
	maxBytes int64
}

// NewPhotoHandler constructs the handler. maxBytes bounds the request body.
func NewPhotoHandler(svc photoService, maxBytes int64) *PhotoHandler {
	return &PhotoHandler{service: svc, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Upload record photo
// @Description Stores a JPEG or PNG for a beneficiary or scholar. Submit the returned photo name in the record detail.
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Param folder formData string true "beneficiaries or scholars"
// @Param photo formData file true "Photo file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Security BearerAuth
// @Router /uploads/photos [post]
func (h *PhotoHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+uploadOverhead)
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusRequestEntityTooLarge, "photo exceeds upload limit"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "photo file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable photo upload"))
		return
	}
	defer file.Close()

	uploaded, err := h.service.Upload(c.Request.Context(), callerFromContext(c), c.PostForm("folder"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, uploaded)
}

// Serve godoc
// @Summary Fetch photo by signed token
// @Tags Photos
// @Produce image/jpeg
// @Param token path string true "Signed photo token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/photos/{token} [get]
func (h *PhotoHandler) Serve(c *gin.Context) {
	body, name, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, path.Base(name), time.Time{}, body)
}
