package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/repository"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/export"
)

type scholarStore interface {
	Register(ctx context.Context, in models.ScholarInput, detail *models.ScholarBackgroundInput) (int64, *string, error)
	Update(ctx context.Context, id int64, in models.ScholarInput, detail *models.ScholarBackgroundInput) (*repository.DetailWriteResult, error)
	Delete(ctx context.Context, id int64) (*string, error)
	FindByID(ctx context.Context, id int64) (*models.ScholarRecord, error)
	List(ctx context.Context, filter models.RecordFilter) ([]models.ScholarRecord, int, error)
	Each(ctx context.Context, filter models.RecordFilter, fn func(models.ScholarRecord) error) error
	Stats(ctx context.Context, owner *string) (*models.RecordStats, error)
}

var scholarExportHeaders = []string{
	"Control No.", "Student No.", "Name", "School", "Course", "Year", "Status", "Grant", "Household Income", "Detail",
}

// ScholarService manages scholarship applicants. Students only ever see the
// applications linked to their own account.
type ScholarService struct {
	store     scholarStore
	validator *validator.Validate
	deps      RecordDeps
	now       func() time.Time
}

// NewScholarService constructs the service.
func NewScholarService(store scholarStore, validate *validator.Validate, deps RecordDeps) *ScholarService {
	if validate == nil {
		validate = NewValidator()
	}
	return &ScholarService{store: store, validator: validate, deps: deps.withDefaults(), now: time.Now}
}

// Register creates a scholar and, when any background field is present, its
// background row with a fresh control number.
func (s *ScholarService) Register(ctx context.Context, caller models.Caller, payload models.ScholarPayload) (*models.WriteResult, error) {
	if err := requireWriter(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, validationError(err, "invalid scholar payload")
	}

	start := time.Now()
	id, code, err := s.store.Register(ctx, payload.ScholarInput, payload.Detail)
	s.deps.Metrics.ObserveRecordOperation(models.AuditResourceScholar, "register", err, time.Since(start))
	if err != nil {
		s.deps.Logger.Error("register scholar failed", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, mapRecordError(err, "scholar", "register")
	}

	s.deps.afterCommit(ctx, caller, models.AuditActionRecordRegister, models.AuditResourceScholar, id, nil, payload, nil)
	return &models.WriteResult{ID: id, ControlNumber: code, DetailCreated: code != nil}, nil
}

// Update overwrites the scholar and upserts the background row.
func (s *ScholarService) Update(ctx context.Context, caller models.Caller, id int64, payload models.ScholarPayload) (*models.WriteResult, error) {
	if err := requireWriter(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, validationError(err, "invalid scholar payload")
	}

	start := time.Now()
	res, err := s.store.Update(ctx, id, payload.ScholarInput, payload.Detail)
	s.deps.Metrics.ObserveRecordOperation(models.AuditResourceScholar, "update", err, time.Since(start))
	if err != nil {
		mapped := mapRecordError(err, "scholar", "update")
		if !appErrors.Is(mapped, appErrors.ErrNotFound) {
			s.deps.Logger.Error("update scholar failed", zap.Int64("id", id), zap.Error(err))
		}
		return nil, mapped
	}

	s.deps.afterCommit(ctx, caller, models.AuditActionRecordUpdate, models.AuditResourceScholar, id, nil, payload, res.ReplacedPhoto)
	code := res.ControlNumber
	return &models.WriteResult{ID: id, ControlNumber: &code, DetailCreated: res.Created}, nil
}

// Delete removes the scholar and its background, then its photo file.
func (s *ScholarService) Delete(ctx context.Context, caller models.Caller, id int64) error {
	if err := requireDeleter(caller); err != nil {
		return err
	}

	start := time.Now()
	photo, err := s.store.Delete(ctx, id)
	s.deps.Metrics.ObserveRecordOperation(models.AuditResourceScholar, "delete", err, time.Since(start))
	if err != nil {
		return mapRecordError(err, "scholar", "delete")
	}

	s.deps.afterCommit(ctx, caller, models.AuditActionRecordDelete, models.AuditResourceScholar, id, map[string]int64{"id": id}, nil, photo)
	return nil
}

// Get returns one annotated scholar. A student asking for someone else's
// application gets NOT_FOUND.
func (s *ScholarService) Get(ctx context.Context, caller models.Caller, id int64) (*models.ScholarRecord, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, mapRecordError(err, "scholar", "load")
	}
	if !ownsScholar(caller, rec) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scholar not found")
	}
	s.link(rec)
	return rec, nil
}

// List returns one page of annotated scholars.
func (s *ScholarService) List(ctx context.Context, caller models.Caller, filter models.RecordFilter) ([]models.ScholarRecord, *models.Pagination, error) {
	filter, err := s.filter(caller, filter)
	if err != nil {
		return nil, nil, err
	}
	records, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, mapRecordError(err, "scholars", "list")
	}
	for i := range records {
		s.link(&records[i])
	}
	return records, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Stats summarises scholars by status, restricted to the caller's own
// applications for students.
func (s *ScholarService) Stats(ctx context.Context, caller models.Caller) (*models.RecordStats, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var owner *string
	if caller.IsStudent() {
		uid := caller.UserID
		owner = &uid
	}
	stats, err := s.store.Stats(ctx, owner)
	if err != nil {
		return nil, mapRecordError(err, "scholar statistics", "load")
	}
	return stats, nil
}

// Export streams every visible scholar matching filter into format.
func (s *ScholarService) Export(ctx context.Context, caller models.Caller, filter models.RecordFilter, format export.Format) (*ExportFile, error) {
	filter, err := s.filter(caller, filter)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: scholarExportHeaders}
	rows := 0
	err = s.store.Each(ctx, filter, func(rec models.ScholarRecord) error {
		if rows >= s.deps.ExportMaxRows {
			return errExportLimit
		}
		rows++
		data.Append(scholarExportRow(rec))
		return nil
	})
	truncated := err == errExportLimit
	if err != nil && !truncated {
		return nil, mapRecordError(err, "scholars", "export")
	}

	body, err := s.deps.Renderer.Render(format, data, "Scholars")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.deps.Metrics.AddExportRows(models.AuditResourceScholar, string(format), rows)
	if truncated {
		s.deps.Logger.Warn("scholar export truncated", zap.Int("rows", rows))
	}
	return &ExportFile{
		Filename:    exportFilename("scholars", format, s.now()),
		ContentType: format.ContentType(),
		Body:        body,
		Rows:        rows,
		Truncated:   truncated,
	}, nil
}

// Print renders a one-page PDF profile of the scholar.
func (s *ScholarService) Print(ctx context.Context, caller models.Caller, id int64) (*ExportFile, error) {
	rec, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	profile := export.Profile{
		Title:    rec.DisplayName,
		Subtitle: "Scholarship Application",
		Sections: []export.Section{{
			Heading: "Application",
			Fields: []export.Field{
				{Label: "Student number", Value: rec.StudentNumber},
				{Label: "School", Value: rec.School},
				{Label: "Course", Value: rec.Course},
				{Label: "Year level", Value: rec.YearLevel},
				{Label: "Status", Value: string(rec.Status)},
				{Label: "Grant amount", Value: rec.GrantAmount.StringFixed(2)},
			},
		}},
	}
	if d := rec.Detail; d != nil {
		profile.Subtitle = "Control No. " + d.ControlNumber
		income := ""
		if d.HouseholdIncome != nil {
			income = d.HouseholdIncome.StringFixed(2)
		}
		profile.Sections = append(profile.Sections, export.Section{
			Heading: "Family background",
			Fields: []export.Field{
				{Label: "Birth date", Value: dateText(d.BirthDate)},
				{Label: "Sex", Value: text(d.Sex)},
				{Label: "Address", Value: text(d.Address)},
				{Label: "Contact number", Value: text(d.ContactNumber)},
				{Label: "Father", Value: text(d.FatherName)},
				{Label: "Father's occupation", Value: text(d.FatherOccupation)},
				{Label: "Mother", Value: text(d.MotherName)},
				{Label: "Mother's occupation", Value: text(d.MotherOccupation)},
				{Label: "Guardian", Value: text(d.GuardianName)},
				{Label: "Household income", Value: income},
			},
		})
		if photo := s.deps.openPhoto(d.Photo); photo != nil {
			defer photo.Close() //nolint:errcheck
			profile.Photo = photo
		}
	}

	body, err := s.deps.Renderer.Profile(profile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render profile")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("scholar_%d.pdf", id),
		ContentType: export.FormatPDF.ContentType(),
		Body:        body,
		Rows:        1,
	}, nil
}

// filter validates paging and forces the owner restriction for students.
func (s *ScholarService) filter(caller models.Caller, filter models.RecordFilter) (models.RecordFilter, error) {
	if err := requireCaller(caller); err != nil {
		return filter, err
	}
	filter, err := parseRecordFilter(filter)
	if err != nil {
		return filter, err
	}
	if filter.Status != "" && !models.ScholarStatus(filter.Status).Valid() {
		return filter, appErrors.Clone(appErrors.ErrValidation, "unknown scholar status "+filter.Status)
	}
	if caller.IsStudent() {
		uid := caller.UserID
		filter.UserID = &uid
	}
	return filter, nil
}

func (s *ScholarService) link(rec *models.ScholarRecord) {
	if rec.Detail != nil {
		rec.PhotoURL = s.deps.Links.URL(rec.Detail.Photo)
	}
}

func ownsScholar(caller models.Caller, rec *models.ScholarRecord) bool {
	if !caller.IsStudent() {
		return true
	}
	return rec.UserID != nil && *rec.UserID == caller.UserID
}

func scholarExportRow(rec models.ScholarRecord) map[string]string {
	row := map[string]string{
		"Control No.": text(rec.ControlNumber),
		"Student No.": rec.StudentNumber,
		"Name":        rec.DisplayName,
		"School":      rec.School,
		"Course":      rec.Course,
		"Year":        rec.YearLevel,
		"Status":      string(rec.Status),
		"Grant":       rec.GrantAmount.StringFixed(2),
		"Detail":      string(rec.DetailState),
	}
	if d := rec.Detail; d != nil && d.HouseholdIncome != nil {
		row["Household Income"] = d.HouseholdIncome.StringFixed(2)
	}
	return row
}
