package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/storage"
)

type fakeUploader struct {
	folder   string
	name     string
	storeErr error
	files    map[string]string
}

func (f *fakeUploader) Store(ctx context.Context, folder string, r io.Reader) (string, error) {
	f.folder = folder
	if f.storeErr != nil {
		return "", f.storeErr
	}
	return f.name, nil
}

func (f *fakeUploader) Open(name string) (io.ReadSeekCloser, error) {
	body, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
	}
	return nopSeekCloser{bytes.NewReader([]byte(body))}, nil
}

type fakeTokens struct {
	parsed   string
	parseErr error
}

func (fakeTokens) Generate(name string) (string, time.Time, error) {
	return "tok-" + name, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func (f fakeTokens) Parse(token string) (string, time.Time, error) {
	if f.parseErr != nil {
		return "", time.Time{}, f.parseErr
	}
	return f.parsed, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func newPhotoService(store *fakeUploader, tokens fakeTokens) *PhotoService {
	return NewPhotoService(store, tokens, NewPhotoLinks(tokens, "/api/v1"), nil)
}

func TestPhotoUploadReturnsSignedLink(t *testing.T) {
	store := &fakeUploader{name: "beneficiaries/abc.jpg"}
	svc := newPhotoService(store, fakeTokens{})

	res, err := svc.Upload(context.Background(), staffCaller, storage.FolderBeneficiaries, bytes.NewReader([]byte("img")))
	require.NoError(t, err)
	assert.Equal(t, storage.FolderBeneficiaries, store.folder)
	assert.Equal(t, "beneficiaries/abc.jpg", res.Photo)
	assert.Equal(t, "/api/v1/files/photos/tok-beneficiaries/abc.jpg", res.URL)
	assert.Equal(t, 2026, res.ExpiresAt.Year())
}

func TestPhotoUploadErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"too large", storage.ErrPhotoTooLarge, http.StatusRequestEntityTooLarge, appErrors.ErrValidation.Code},
		{"wrong type", storage.ErrPhotoType, http.StatusBadRequest, appErrors.ErrValidation.Code},
		{"bad folder", storage.ErrPhotoFolder, http.StatusBadRequest, appErrors.ErrValidation.Code},
		{"undecodable", storage.ErrPhotoUndecoding, http.StatusBadRequest, appErrors.ErrValidation.Code},
		{"disk", errors.New("no space left on device"), http.StatusInternalServerError, appErrors.ErrStorage.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newPhotoService(&fakeUploader{storeErr: fmt.Errorf("store photo: %w", tc.err)}, fakeTokens{})
			_, err := svc.Upload(context.Background(), staffCaller, storage.FolderScholars, bytes.NewReader(nil))
			appErr := appErrors.FromError(err)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.status, appErr.Status)
		})
	}
}

func TestPhotoUploadRequiresWriter(t *testing.T) {
	store := &fakeUploader{name: "x"}
	svc := newPhotoService(store, fakeTokens{})
	_, err := svc.Upload(context.Background(), studentCaller, storage.FolderScholars, bytes.NewReader(nil))
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, store.folder)
}

func TestPhotoOpen(t *testing.T) {
	store := &fakeUploader{files: map[string]string{"scholars/a.png": "png-bytes"}}

	f, name, err := newPhotoService(store, fakeTokens{parsed: "scholars/a.png"}).Open("token")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "scholars/a.png", name)
	body, _ := io.ReadAll(f)
	assert.Equal(t, "png-bytes", string(body))

	_, _, err = newPhotoService(store, fakeTokens{parsed: "scholars/gone.png"}).Open("token")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, _, err = newPhotoService(store, fakeTokens{parseErr: storage.ErrTokenExpired}).Open("token")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, _, err = newPhotoService(store, fakeTokens{parseErr: storage.ErrInvalidToken}).Open("token")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
