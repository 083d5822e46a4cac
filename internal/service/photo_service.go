package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/internal/models"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/storage"
)

type photoUploader interface {
	Store(ctx context.Context, folder string, r io.Reader) (string, error)
	Open(name string) (io.ReadSeekCloser, error)
}

type photoTokens interface {
	Generate(name string) (string, time.Time, error)
	Parse(token string) (string, time.Time, error)
}

// UploadedPhoto is returned after a successful upload. Photo is the value to
// put in a record's detail payload.
type UploadedPhoto struct {
	Photo     string    `json:"photo"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PhotoService accepts photo uploads and serves them through signed links.
type PhotoService struct {
	store  photoUploader
	tokens photoTokens
	links  *PhotoLinks
	logger *zap.Logger
}

// NewPhotoService constructs the service.
func NewPhotoService(store photoUploader, tokens photoTokens, links *PhotoLinks, logger *zap.Logger) *PhotoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhotoService{store: store, tokens: tokens, links: links, logger: logger}
}

// Upload normalises and stores a photo for the given record folder.
func (s *PhotoService) Upload(ctx context.Context, caller models.Caller, folder string, r io.Reader) (*UploadedPhoto, error) {
	if err := requireWriter(caller); err != nil {
		return nil, err
	}
	name, err := s.store.Store(ctx, folder, r)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrPhotoTooLarge):
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, storage.ErrPhotoType), errors.Is(err, storage.ErrPhotoFolder), errors.Is(err, storage.ErrPhotoUndecoding):
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		default:
			s.logger.Error("photo upload failed", zap.String("folder", folder), zap.Error(err))
			return nil, appErrors.Storage(err, "failed to store photo")
		}
	}

	_, expiresAt, err := s.tokens.Generate(name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign photo link")
	}
	return &UploadedPhoto{Photo: name, URL: s.links.URL(&name), ExpiresAt: expiresAt}, nil
}

// Open resolves a signed token to the stored photo. The caller closes the
// returned reader.
func (s *PhotoService) Open(token string) (io.ReadSeekCloser, string, error) {
	name, _, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "photo link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
	}
	f, err := s.store.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidPath) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
		}
		return nil, "", appErrors.Storage(err, "failed to open photo")
	}
	return f, name, nil
}
