package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/pkg/database"
)

const beneficiaryDetailFKConstraint = "beneficiary_details_beneficiary_id_key"

var beneficiarySchema = recordSchema{
	primary:    "beneficiaries",
	detail:     "beneficiary_details",
	foreignKey: "beneficiary_id",
	search:     []string{"p.household_id", "p.head_name", "d.first_name", "d.last_name", "d.control_number"},
}

const beneficiarySelect = `SELECT p.id, p.household_id, p.head_name, p.address, p.status, p.monthly_grant, p.remarks, p.created_by, p.created_at, p.updated_at,
d.id AS d_id, d.first_name AS d_first_name, d.middle_name AS d_middle_name, d.last_name AS d_last_name, d.birth_date AS d_birth_date,
d.sex AS d_sex, d.civil_status AS d_civil_status, d.contact_number AS d_contact_number, d.photo AS d_photo, d.control_number AS d_control_number,
d.spouse_name AS d_spouse_name, d.mother_maiden_name AS d_mother_maiden_name, d.household_size AS d_household_size,
d.created_at AS d_created_at, d.updated_at AS d_updated_at`

const insertBeneficiaryDetail = `INSERT INTO beneficiary_details (beneficiary_id, first_name, middle_name, last_name, birth_date, sex, civil_status, contact_number, photo, spouse_name, mother_maiden_name, household_size, created_at, updated_at, control_number)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13, $14)
ON CONFLICT (control_number) DO NOTHING RETURNING id`

type beneficiaryRow struct {
	models.Beneficiary
	DetailID         *int64       `db:"d_id"`
	FirstName        *string      `db:"d_first_name"`
	MiddleName       *string      `db:"d_middle_name"`
	LastName         *string      `db:"d_last_name"`
	BirthDate        *models.Date `db:"d_birth_date"`
	Sex              *string      `db:"d_sex"`
	CivilStatus      *string      `db:"d_civil_status"`
	ContactNumber    *string      `db:"d_contact_number"`
	Photo            *string      `db:"d_photo"`
	ControlNumber    *string      `db:"d_control_number"`
	SpouseName       *string      `db:"d_spouse_name"`
	MotherMaidenName *string      `db:"d_mother_maiden_name"`
	HouseholdSize    *int         `db:"d_household_size"`
	DetailCreatedAt  *time.Time   `db:"d_created_at"`
	DetailUpdatedAt  *time.Time   `db:"d_updated_at"`
}

func (r beneficiaryRow) record() models.BeneficiaryRecord {
	rec := models.BeneficiaryRecord{Beneficiary: r.Beneficiary}
	if r.DetailID != nil {
		d := &models.BeneficiaryDetail{
			ID:               *r.DetailID,
			BeneficiaryID:    r.ID,
			FirstName:        r.FirstName,
			MiddleName:       r.MiddleName,
			LastName:         r.LastName,
			BirthDate:        r.BirthDate,
			Sex:              r.Sex,
			CivilStatus:      r.CivilStatus,
			ContactNumber:    r.ContactNumber,
			Photo:            r.Photo,
			SpouseName:       r.SpouseName,
			MotherMaidenName: r.MotherMaidenName,
			HouseholdSize:    r.HouseholdSize,
		}
		if r.ControlNumber != nil {
			d.ControlNumber = *r.ControlNumber
		}
		if r.DetailCreatedAt != nil {
			d.CreatedAt = *r.DetailCreatedAt
		}
		if r.DetailUpdatedAt != nil {
			d.UpdatedAt = *r.DetailUpdatedAt
		}
		rec.Detail = d
	}
	rec.Annotate()
	return rec
}

// DetailWriteResult reports what an update did to the detail row.
type DetailWriteResult struct {
	ControlNumber string
	Created       bool
	// ReplacedPhoto is the previous photo when the update changed it.
	ReplacedPhoto *string
}

// BeneficiaryRepository persists 4Ps beneficiaries and their details.
type BeneficiaryRepository struct {
	db          *sqlx.DB
	codes       ControlNumbers
	maxAttempts int
	now         func() time.Time
}

// NewBeneficiaryRepository creates a repository. codes supplies 4PS control numbers.
func NewBeneficiaryRepository(db *sqlx.DB, codes ControlNumbers, maxAttempts int) *BeneficiaryRepository {
	return &BeneficiaryRepository{db: db, codes: codes, maxAttempts: maxAttempts, now: func() time.Time { return time.Now().UTC() }}
}

// Register inserts the beneficiary and, when detail is non-empty, its detail
// row in one transaction. The control number is nil when no detail was written.
func (r *BeneficiaryRepository) Register(ctx context.Context, createdBy *string, in models.BeneficiaryInput, detail *models.BeneficiaryDetailInput) (id int64, controlNumber *string, err error) {
	err = withTx(ctx, r.db, "register beneficiary", func(tx *sqlx.Tx) error {
		now := r.now()
		const insertPrimary = `INSERT INTO beneficiaries (household_id, head_name, address, status, monthly_grant, remarks, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`
		if err := tx.QueryRowxContext(ctx, insertPrimary, in.HouseholdID, in.HeadName, in.Address, in.Status, in.MonthlyGrant, in.Remarks, createdBy, now).Scan(&id); err != nil {
			return fmt.Errorf("insert beneficiary: %w", err)
		}
		if detail.IsEmpty() {
			return nil
		}
		code, err := r.insertDetail(ctx, tx, id, detail, now)
		if err != nil {
			return err
		}
		controlNumber = &code
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return id, controlNumber, nil
}

// Update overwrites the beneficiary and upserts its detail under a row lock on
// the beneficiary. A nil detail leaves an existing detail row untouched but
// still creates one when missing. Returns sql.ErrNoRows when id is unknown.
func (r *BeneficiaryRepository) Update(ctx context.Context, id int64, in models.BeneficiaryInput, detail *models.BeneficiaryDetailInput) (*DetailWriteResult, error) {
	var result DetailWriteResult
	err := withTx(ctx, r.db, "update beneficiary", func(tx *sqlx.Tx) error {
		if err := lockPrimary(ctx, tx, beneficiarySchema, id); err != nil {
			return err
		}
		now := r.now()

		const updatePrimary = `UPDATE beneficiaries SET household_id = $2, head_name = $3, address = $4, status = $5, monthly_grant = $6, remarks = $7, updated_at = $8 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updatePrimary, id, in.HouseholdID, in.HeadName, in.Address, in.Status, in.MonthlyGrant, in.Remarks, now); err != nil {
			return fmt.Errorf("update beneficiary: %w", err)
		}

		var current struct {
			ID            int64   `db:"id"`
			ControlNumber string  `db:"control_number"`
			Photo         *string `db:"photo"`
		}
		const selectDetail = `SELECT id, control_number, photo FROM beneficiary_details WHERE beneficiary_id = $1 FOR UPDATE`
		err := tx.GetContext(ctx, &current, selectDetail, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			code, err := r.insertDetail(ctx, tx, id, detail, now)
			if err != nil {
				return err
			}
			result = DetailWriteResult{ControlNumber: code, Created: true}
			return nil
		case err != nil:
			return fmt.Errorf("lock beneficiary detail: %w", err)
		}

		result.ControlNumber = current.ControlNumber
		if detail == nil {
			return nil
		}
		const updateDetail = `UPDATE beneficiary_details SET first_name = $2, middle_name = $3, last_name = $4, birth_date = $5, sex = $6, civil_status = $7, contact_number = $8,
photo = CASE WHEN $9::boolean THEN $10::text ELSE photo END, spouse_name = $11, mother_maiden_name = $12, household_size = $13, updated_at = $14 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateDetail, current.ID, detail.FirstName, detail.MiddleName, detail.LastName, detail.BirthDate,
			detail.Sex, detail.CivilStatus, detail.ContactNumber, detail.Photo != nil, photoValue(detail.Photo),
			detail.SpouseName, detail.MotherMaidenName, detail.HouseholdSize, now); err != nil {
			return fmt.Errorf("update beneficiary detail: %w", err)
		}
		result.ReplacedPhoto = replacedPhoto(current.Photo, detail.Photo)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes the detail row then the beneficiary, returning the detail's
// photo so the caller can clean it up. Returns sql.ErrNoRows when id is unknown.
func (r *BeneficiaryRepository) Delete(ctx context.Context, id int64) (photo *string, err error) {
	err = withTx(ctx, r.db, "delete beneficiary", func(tx *sqlx.Tx) error {
		photo, err = deleteCascade(ctx, tx, beneficiarySchema, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// FindByID returns one annotated beneficiary or sql.ErrNoRows.
func (r *BeneficiaryRepository) FindByID(ctx context.Context, id int64) (*models.BeneficiaryRecord, error) {
	query := beneficiarySelect + beneficiarySchema.from() + " WHERE p.id = $1"
	var row beneficiaryRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find beneficiary: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

// List returns one page of annotated beneficiaries and the total match count.
func (r *BeneficiaryRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.BeneficiaryRecord, int, error) {
	filter.Normalize()
	where, args := whereClause(beneficiarySchema, filter)

	query := beneficiarySelect + beneficiarySchema.from() + where + recordOrder + fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, filter.Offset())
	var rows []beneficiaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list beneficiaries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+beneficiarySchema.from()+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count beneficiaries: %w", err)
	}

	records := make([]models.BeneficiaryRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, total, nil
}

// Each streams every beneficiary matching filter, newest first, ignoring
// paging. Each call re-runs the query; an error from fn stops iteration.
func (r *BeneficiaryRepository) Each(ctx context.Context, filter models.RecordFilter, fn func(models.BeneficiaryRecord) error) error {
	where, args := whereClause(beneficiarySchema, filter)
	rows, err := r.db.QueryxContext(ctx, beneficiarySelect+beneficiarySchema.from()+where+recordOrder, args...)
	if err != nil {
		return fmt.Errorf("stream beneficiaries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var row beneficiaryRow
		if err := rows.StructScan(&row); err != nil {
			return fmt.Errorf("scan beneficiary: %w", err)
		}
		if err := fn(row.record()); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("stream beneficiaries: %w", err)
	}
	return nil
}

// Stats aggregates counts per status, the Active grant total and missing details.
func (r *BeneficiaryRepository) Stats(ctx context.Context) (*models.RecordStats, error) {
	statuses := make([]string, len(models.BeneficiaryStatuses))
	for i, s := range models.BeneficiaryStatuses {
		statuses[i] = string(s)
	}
	return loadStats(ctx, r.db, beneficiarySchema, "monthly_grant", string(models.BeneficiaryActive), statuses, nil)
}

func (r *BeneficiaryRepository) insertDetail(ctx context.Context, tx *sqlx.Tx, beneficiaryID int64, d *models.BeneficiaryDetailInput, now time.Time) (string, error) {
	if d == nil {
		d = &models.BeneficiaryDetailInput{}
	}
	args := []interface{}{beneficiaryID, d.FirstName, d.MiddleName, d.LastName, d.BirthDate, d.Sex, d.CivilStatus, d.ContactNumber,
		photoValue(d.Photo), d.SpouseName, d.MotherMaidenName, d.HouseholdSize, now}
	_, code, err := insertWithControlNumber(ctx, tx, r.codes, r.maxAttempts, beneficiarySchema.detail, insertBeneficiaryDetail, args)
	if err != nil {
		if database.IsUniqueViolation(err, beneficiaryDetailFKConstraint) {
			return "", ErrDuplicateDetail
		}
		if errors.Is(err, ErrControlNumberExhausted) {
			return "", err
		}
		return "", fmt.Errorf("insert beneficiary detail: %w", err)
	}
	return code, nil
}

// photoValue maps an empty photo name to NULL.
func photoValue(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

func replacedPhoto(previous, next *string) *string {
	if previous == nil || *previous == "" || next == nil || *next == *previous {
		return nil
	}
	prev := *previous
	return &prev
}
