package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/repository"
	"github.com/noah-isme/brgy-records-api/pkg/database"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/export"
)

const defaultExportMaxRows = 10000

var errExportLimit = errors.New("export row limit reached")

type photoFiles interface {
	Remove(name string) error
	Open(name string) (io.ReadSeekCloser, error)
}

type photoSigner interface {
	Generate(name string) (string, time.Time, error)
}

type exportRenderer interface {
	Render(f export.Format, data export.Dataset, title string) ([]byte, error)
	Profile(p export.Profile) ([]byte, error)
}

// PhotoLinks turns stored photo names into signed download URLs.
type PhotoLinks struct {
	signer   photoSigner
	basePath string
}

// NewPhotoLinks builds links under apiPrefix + /files/photos/.
func NewPhotoLinks(signer photoSigner, apiPrefix string) *PhotoLinks {
	prefix := strings.TrimRight(apiPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &PhotoLinks{signer: signer, basePath: prefix + "/files/photos/"}
}

// URL returns the signed link for name, or "" when there is no photo.
func (l *PhotoLinks) URL(name *string) string {
	if l == nil || l.signer == nil || name == nil || *name == "" {
		return ""
	}
	token, _, err := l.signer.Generate(*name)
	if err != nil {
		return ""
	}
	return l.basePath + token
}

// RecordDeps groups collaborators shared by the record services. Everything
// except the store is optional.
type RecordDeps struct {
	Photos        photoFiles
	Links         *PhotoLinks
	Audit         *AuditService
	Cache         *CacheService
	Metrics       *MetricsService
	Renderer      exportRenderer
	ExportMaxRows int
	Logger        *zap.Logger
}

func (d RecordDeps) withDefaults() RecordDeps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Renderer == nil {
		d.Renderer = export.NewRenderer()
	}
	if d.ExportMaxRows <= 0 {
		d.ExportMaxRows = defaultExportMaxRows
	}
	return d
}

// afterCommit runs the side effects of a successful write. None of them can
// fail the write.
func (d RecordDeps) afterCommit(ctx context.Context, caller models.Caller, action, resource string, id int64, before, after interface{}, stalePhoto *string) {
	if stalePhoto != nil && *stalePhoto != "" && d.Photos != nil {
		err := d.Photos.Remove(*stalePhoto)
		d.Metrics.ObservePhotoCleanup(err)
		if err != nil {
			d.Logger.Warn("failed to remove stale photo",
				zap.String("resource", resource),
				zap.Int64("id", id),
				zap.String("photo", *stalePhoto),
				zap.Error(err),
			)
		}
	}
	d.Audit.Record(ctx, caller, action, resource, strconv.FormatInt(id, 10), before, after)
	d.Cache.Invalidate(ctx, cacheKeyDashboard)
}

// openPhoto returns the stored photo for printing, or nil when unavailable.
func (d RecordDeps) openPhoto(name *string) io.ReadSeekCloser {
	if d.Photos == nil || name == nil || *name == "" {
		return nil
	}
	f, err := d.Photos.Open(*name)
	if err != nil {
		d.Logger.Warn("photo unavailable for print", zap.String("photo", *name), zap.Error(err))
		return nil
	}
	return f
}

func requireCaller(caller models.Caller) error {
	if !caller.Authenticated() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	return nil
}

func requireWriter(caller models.Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.CanWrite() {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not modify records")
	}
	return nil
}

func requireDeleter(caller models.Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.CanDelete() {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not delete records")
	}
	return nil
}

// mapRecordError translates repository failures into the API taxonomy.
func mapRecordError(err error, noun, verb string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, noun+" not found")
	case errors.Is(err, repository.ErrDuplicateDetail):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, noun+" detail already exists")
	case errors.Is(err, repository.ErrControlNumberExhausted):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "could not allocate a unique control number, retry the request")
	case database.IsUniqueViolation(err, ""):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, noun+" conflicts with an existing record")
	default:
		return appErrors.Storage(err, fmt.Sprintf("failed to %s %s", verb, noun))
	}
}

func parseRecordFilter(filter models.RecordFilter) (models.RecordFilter, error) {
	filter.Normalize()
	if filter.DetailState != "" && !filter.DetailState.Valid() {
		return filter, appErrors.Clone(appErrors.ErrValidation, "detail_state must be MISSING, EMPTY or EXISTS")
	}
	return filter, nil
}

func text(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func dateText(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func exportFilename(resource string, format export.Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", resource, now.UTC().Format("20060102_150405"), format)
}
