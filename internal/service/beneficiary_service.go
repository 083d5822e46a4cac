package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/repository"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/export"
)

type beneficiaryStore interface {
	Register(ctx context.Context, createdBy *string, in models.BeneficiaryInput, detail *models.BeneficiaryDetailInput) (int64, *string, error)
	Update(ctx context.Context, id int64, in models.BeneficiaryInput, detail *models.BeneficiaryDetailInput) (*repository.DetailWriteResult, error)
	Delete(ctx context.Context, id int64) (*string, error)
	FindByID(ctx context.Context, id int64) (*models.BeneficiaryRecord, error)
	List(ctx context.Context, filter models.RecordFilter) ([]models.BeneficiaryRecord, int, error)
	Each(ctx context.Context, filter models.RecordFilter, fn func(models.BeneficiaryRecord) error) error
	Stats(ctx context.Context) (*models.RecordStats, error)
}

// ExportFile is a rendered export ready to be served as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
	Truncated   bool
}

var beneficiaryExportHeaders = []string{
	"Control No.", "Household ID", "Name", "Status", "Monthly Grant", "Address", "Birth Date", "Sex", "Civil Status", "Contact", "Detail",
}

// BeneficiaryService registers and maintains 4Ps beneficiaries and their
// household detail.
type BeneficiaryService struct {
	store     beneficiaryStore
	validator *validator.Validate
	deps      RecordDeps
	now       func() time.Time
}

// NewBeneficiaryService constructs the service.
func NewBeneficiaryService(store beneficiaryStore, validate *validator.Validate, deps RecordDeps) *BeneficiaryService {
	if validate == nil {
		validate = NewValidator()
	}
	return &BeneficiaryService{store: store, validator: validate, deps: deps.withDefaults(), now: time.Now}
}

// Register creates a beneficiary and, when any detail field is present, its
// detail row with a fresh control number.
func (s *BeneficiaryService) Register(ctx context.Context, caller models.Caller, payload models.BeneficiaryPayload) (*models.WriteResult, error) {
	if err := requireWriter(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, validationError(err, "invalid beneficiary payload")
	}

	start := time.Now()
	createdBy := caller.UserID
	id, code, err := s.store.Register(ctx, &createdBy, payload.BeneficiaryInput, payload.Detail)
	s.deps.Metrics.ObserveRecordOperation(models.AuditResourceBeneficiary, "register", err, time.Since(start))
	if err != nil {
		s.deps.Logger.Error("register beneficiary failed", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, mapRecordError(err, "beneficiary", "register")
	}

	s.deps.afterCommit(ctx, caller, models.AuditActionRecordRegister, models.AuditResourceBeneficiary, id, nil, payload, nil)
	return &models.WriteResult{ID: id, ControlNumber: code, DetailCreated: code != nil}, nil
}

// Update overwrites the beneficiary and upserts its detail. The control number
// of an existing detail never changes.
func (s *BeneficiaryService) Update(ctx context.Context, caller models.Caller, id int64, payload models.BeneficiaryPayload) (*models.WriteResult, error) {
	if err := requireWriter(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, validationError(err, "invalid beneficiary payload")
	}

	start := time.Now()
	res, err := s.store.Update(ctx, id, payload.BeneficiaryInput, payload.Detail)
	s.deps.Metrics.ObserveRecordOperation(models.AuditResourceBeneficiary, "update", err, time.Since(start))
	if err != nil {
		mapped := mapRecordError(err, "beneficiary", "update")
		if !appErrors.Is(mapped, appErrors.ErrNotFound) {
			s.deps.Logger.Error("update beneficiary failed", zap.Int64("id", id), zap.Error(err))
		}
		return nil, mapped
	}

	s.deps.afterCommit(ctx, caller, models.AuditActionRecordUpdate, models.AuditResourceBeneficiary, id, nil, payload, res.ReplacedPhoto)
	code := res.ControlNumber
	return &models.WriteResult{ID: id, ControlNumber: &code, DetailCreated: res.Created}, nil
}

// Delete removes the beneficiary and its detail, then its photo file.
func (s *BeneficiaryService) Delete(ctx context.Context, caller models.Caller, id int64) error {
	if err := requireDeleter(caller); err != nil {
		return err
	}

	start := time.Now()
	photo, err := s.store.Delete(ctx, id)
	s.deps.Metrics.ObserveRecordOperation(models.AuditResourceBeneficiary, "delete", err, time.Since(start))
	if err != nil {
		return mapRecordError(err, "beneficiary", "delete")
	}

	s.deps.afterCommit(ctx, caller, models.AuditActionRecordDelete, models.AuditResourceBeneficiary, id, map[string]int64{"id": id}, nil, photo)
	return nil
}

// Get returns one annotated beneficiary.
func (s *BeneficiaryService) Get(ctx context.Context, caller models.Caller, id int64) (*models.BeneficiaryRecord, error) {
	if err := s.requireReader(caller); err != nil {
		return nil, err
	}
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, mapRecordError(err, "beneficiary", "load")
	}
	s.link(rec)
	return rec, nil
}

// List returns one page of annotated beneficiaries.
func (s *BeneficiaryService) List(ctx context.Context, caller models.Caller, filter models.RecordFilter) ([]models.BeneficiaryRecord, *models.Pagination, error) {
	if err := s.requireReader(caller); err != nil {
		return nil, nil, err
	}
	filter, err := s.filter(filter)
	if err != nil {
		return nil, nil, err
	}
	records, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, mapRecordError(err, "beneficiaries", "list")
	}
	for i := range records {
		s.link(&records[i])
	}
	return records, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Stats summarises beneficiaries by status.
func (s *BeneficiaryService) Stats(ctx context.Context, caller models.Caller) (*models.RecordStats, error) {
	if err := s.requireReader(caller); err != nil {
		return nil, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, mapRecordError(err, "beneficiary statistics", "load")
	}
	return stats, nil
}

// Export streams every beneficiary matching filter into the requested format,
// capped at the configured row limit.
func (s *BeneficiaryService) Export(ctx context.Context, caller models.Caller, filter models.RecordFilter, format export.Format) (*ExportFile, error) {
	if err := s.requireReader(caller); err != nil {
		return nil, err
	}
	filter, err := s.filter(filter)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: beneficiaryExportHeaders}
	rows := 0
	err = s.store.Each(ctx, filter, func(rec models.BeneficiaryRecord) error {
		if rows >= s.deps.ExportMaxRows {
			return errExportLimit
		}
		rows++
		data.Append(beneficiaryExportRow(rec))
		return nil
	})
	truncated := err == errExportLimit
	if err != nil && !truncated {
		return nil, mapRecordError(err, "beneficiaries", "export")
	}

	body, err := s.deps.Renderer.Render(format, data, "4Ps Beneficiaries")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.deps.Metrics.AddExportRows(models.AuditResourceBeneficiary, string(format), rows)
	if truncated {
		s.deps.Logger.Warn("beneficiary export truncated", zap.Int("rows", rows))
	}
	return &ExportFile{
		Filename:    exportFilename("beneficiaries", format, s.now()),
		ContentType: format.ContentType(),
		Body:        body,
		Rows:        rows,
		Truncated:   truncated,
	}, nil
}

// Print renders a one-page PDF profile of the beneficiary.
func (s *BeneficiaryService) Print(ctx context.Context, caller models.Caller, id int64) (*ExportFile, error) {
	if err := s.requireReader(caller); err != nil {
		return nil, err
	}
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, mapRecordError(err, "beneficiary", "load")
	}

	profile := export.Profile{
		Title:    rec.DisplayName,
		Subtitle: "4Ps Beneficiary Profile",
		Sections: []export.Section{{
			Heading: "Household",
			Fields: []export.Field{
				{Label: "Household ID", Value: rec.HouseholdID},
				{Label: "Head of household", Value: rec.HeadName},
				{Label: "Address", Value: rec.Address},
				{Label: "Status", Value: string(rec.Status)},
				{Label: "Monthly grant", Value: rec.MonthlyGrant.StringFixed(2)},
				{Label: "Remarks", Value: rec.Remarks},
			},
		}},
	}
	if d := rec.Detail; d != nil {
		profile.Subtitle = "Control No. " + d.ControlNumber
		size := ""
		if d.HouseholdSize != nil {
			size = strconv.Itoa(*d.HouseholdSize)
		}
		profile.Sections = append(profile.Sections, export.Section{
			Heading: "Personal information",
			Fields: []export.Field{
				{Label: "First name", Value: text(d.FirstName)},
				{Label: "Middle name", Value: text(d.MiddleName)},
				{Label: "Last name", Value: text(d.LastName)},
				{Label: "Birth date", Value: dateText(d.BirthDate)},
				{Label: "Sex", Value: text(d.Sex)},
				{Label: "Civil status", Value: text(d.CivilStatus)},
				{Label: "Contact number", Value: text(d.ContactNumber)},
				{Label: "Spouse", Value: text(d.SpouseName)},
				{Label: "Mother's maiden name", Value: text(d.MotherMaidenName)},
				{Label: "Household size", Value: size},
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
		Filename:    fmt.Sprintf("beneficiary_%d.pdf", id),
		ContentType: export.FormatPDF.ContentType(),
		Body:        body,
		Rows:        1,
	}, nil
}

// Students have no access to household records.
func (s *BeneficiaryService) requireReader(caller models.Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if caller.IsStudent() {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not view beneficiaries")
	}
	return nil
}

func (s *BeneficiaryService) filter(filter models.RecordFilter) (models.RecordFilter, error) {
	filter, err := parseRecordFilter(filter)
	if err != nil {
		return filter, err
	}
	filter.UserID = nil
	if filter.Status != "" && !models.BeneficiaryStatus(filter.Status).Valid() {
		return filter, appErrors.Clone(appErrors.ErrValidation, "unknown beneficiary status "+filter.Status)
	}
	return filter, nil
}

func (s *BeneficiaryService) link(rec *models.BeneficiaryRecord) {
	if rec.Detail != nil {
		rec.PhotoURL = s.deps.Links.URL(rec.Detail.Photo)
	}
}

func beneficiaryExportRow(rec models.BeneficiaryRecord) map[string]string {
	row := map[string]string{
		"Control No.":   text(rec.ControlNumber),
		"Household ID":  rec.HouseholdID,
		"Name":          rec.DisplayName,
		"Status":        string(rec.Status),
		"Monthly Grant": rec.MonthlyGrant.StringFixed(2),
		"Address":       rec.Address,
		"Detail":        string(rec.DetailState),
	}
	if d := rec.Detail; d != nil {
		row["Birth Date"] = dateText(d.BirthDate)
		row["Sex"] = text(d.Sex)
		row["Civil Status"] = text(d.CivilStatus)
		row["Contact"] = text(d.ContactNumber)
	}
	return row
}
