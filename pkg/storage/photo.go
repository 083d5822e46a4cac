package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	ErrPhotoTooLarge   = errors.New("photo exceeds maximum upload size")
	ErrPhotoType       = errors.New("photo type not allowed")
	ErrPhotoFolder     = errors.New("unknown photo folder")
	ErrPhotoUndecoding = errors.New("photo could not be decoded")
)

// Photo folders, one per record family.
const (
	FolderBeneficiaries = "beneficiaries"
	FolderScholars      = "scholars"
)

// PhotoOptions bounds what PhotoStore accepts.
type PhotoOptions struct {
	MaxBytes     int64
	MaxDimension int
	AllowedMIMEs []string
}

// PhotoStore normalises uploaded photos to JPEG and keeps them in LocalStorage.
type PhotoStore struct {
	files   *LocalStorage
	opts    PhotoOptions
	allowed map[string]struct{}
	now     func() time.Time
}

// NewPhotoStore wraps files with upload limits.
func NewPhotoStore(files *LocalStorage, opts PhotoOptions) *PhotoStore {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 5 << 20
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 800
	}
	if len(opts.AllowedMIMEs) == 0 {
		opts.AllowedMIMEs = []string{"image/jpeg", "image/png"}
	}
	allowed := make(map[string]struct{}, len(opts.AllowedMIMEs))
	for _, m := range opts.AllowedMIMEs {
		allowed[m] = struct{}{}
	}
	return &PhotoStore{files: files, opts: opts, allowed: allowed, now: time.Now}
}

// Store validates, resizes and saves the photo, returning its storage name
// (folder/YYYYMMDD-uuid.jpg).
func (p *PhotoStore) Store(ctx context.Context, folder string, r io.Reader) (string, error) {
	if folder != FolderBeneficiaries && folder != FolderScholars {
		return "", ErrPhotoFolder
	}

	raw, err := io.ReadAll(io.LimitReader(r, p.opts.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if int64(len(raw)) > p.opts.MaxBytes {
		return "", ErrPhotoTooLarge
	}
	if _, ok := p.allowed[http.DetectContentType(raw)]; !ok {
		return "", ErrPhotoType
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPhotoUndecoding, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > p.opts.MaxDimension || bounds.Dy() > p.opts.MaxDimension {
		img = imaging.Fit(img, p.opts.MaxDimension, p.opts.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}

	name := path.Join(folder, fmt.Sprintf("%s-%s.jpg", p.now().Format("20060102"), uuid.NewString()))
	if err := p.files.Save(name, buf.Bytes()); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes a previously stored photo. Empty names are ignored.
func (p *PhotoStore) Remove(name string) error {
	if name == "" {
		return nil
	}
	return p.files.Delete(name)
}

// Open returns the stored photo for streaming.
func (p *PhotoStore) Open(name string) (io.ReadSeekCloser, error) {
	f, err := p.files.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}
