package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/pkg/database"
)

const scholarBackgroundFKConstraint = "scholar_backgrounds_scholar_id_key"

var scholarSchema = recordSchema{
	primary:    "scholars",
	detail:     "scholar_backgrounds",
	foreignKey: "scholar_id",
	search:     []string{"p.student_number", "p.full_name", "p.school", "d.first_name", "d.last_name", "d.control_number"},
	owner:      "user_id",
}

const scholarSelect = `SELECT p.id, p.user_id, p.student_number, p.full_name, p.school, p.course, p.year_level, p.status, p.grant_amount, p.remarks, p.created_at, p.updated_at,
d.id AS d_id, d.first_name AS d_first_name, d.middle_name AS d_middle_name, d.last_name AS d_last_name, d.birth_date AS d_birth_date,
d.sex AS d_sex, d.address AS d_address, d.contact_number AS d_contact_number, d.photo AS d_photo, d.control_number AS d_control_number,
d.father_name AS d_father_name, d.father_occupation AS d_father_occupation, d.mother_name AS d_mother_name, d.mother_occupation AS d_mother_occupation,
d.guardian_name AS d_guardian_name, d.household_income AS d_household_income, d.created_at AS d_created_at, d.updated_at AS d_updated_at`

const insertScholarBackground = `INSERT INTO scholar_backgrounds (scholar_id, first_name, middle_name, last_name, birth_date, sex, address, contact_number, photo, father_name, father_occupation, mother_name, mother_occupation, guardian_name, household_income, created_at, updated_at, control_number)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16, $17)
ON CONFLICT (control_number) DO NOTHING RETURNING id`

type scholarRow struct {
	models.Scholar
	DetailID         *int64           `db:"d_id"`
	FirstName        *string          `db:"d_first_name"`
	MiddleName       *string          `db:"d_middle_name"`
	LastName         *string          `db:"d_last_name"`
	BirthDate        *models.Date     `db:"d_birth_date"`
	Sex              *string          `db:"d_sex"`
	Address          *string          `db:"d_address"`
	ContactNumber    *string          `db:"d_contact_number"`
	Photo            *string          `db:"d_photo"`
	ControlNumber    *string          `db:"d_control_number"`
	FatherName       *string          `db:"d_father_name"`
	FatherOccupation *string          `db:"d_father_occupation"`
	MotherName       *string          `db:"d_mother_name"`
	MotherOccupation *string          `db:"d_mother_occupation"`
	GuardianName     *string          `db:"d_guardian_name"`
	HouseholdIncome  *decimal.Decimal `db:"d_household_income"`
	DetailCreatedAt  *time.Time       `db:"d_created_at"`
	DetailUpdatedAt  *time.Time       `db:"d_updated_at"`
}

func (r scholarRow) record() models.ScholarRecord {
	rec := models.ScholarRecord{Scholar: r.Scholar}
	if r.DetailID != nil {
		d := &models.ScholarBackground{
			ID:               *r.DetailID,
			ScholarID:        r.ID,
			FirstName:        r.FirstName,
			MiddleName:       r.MiddleName,
			LastName:         r.LastName,
			BirthDate:        r.BirthDate,
			Sex:              r.Sex,
			Address:          r.Address,
			ContactNumber:    r.ContactNumber,
			Photo:            r.Photo,
			FatherName:       r.FatherName,
			FatherOccupation: r.FatherOccupation,
			MotherName:       r.MotherName,
			MotherOccupation: r.MotherOccupation,
			GuardianName:     r.GuardianName,
			HouseholdIncome:  r.HouseholdIncome,
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

// ScholarRepository persists scholarship students and their family background.
type ScholarRepository struct {
	db          *sqlx.DB
	codes       ControlNumbers
	maxAttempts int
	now         func() time.Time
}

// NewScholarRepository creates a repository. codes supplies SCH control numbers.
func NewScholarRepository(db *sqlx.DB, codes ControlNumbers, maxAttempts int) *ScholarRepository {
	return &ScholarRepository{db: db, codes: codes, maxAttempts: maxAttempts, now: func() time.Time { return time.Now().UTC() }}
}

// Register inserts the scholar and, when detail is non-empty, the background row.
func (r *ScholarRepository) Register(ctx context.Context, in models.ScholarInput, detail *models.ScholarBackgroundInput) (id int64, controlNumber *string, err error) {
	err = withTx(ctx, r.db, "register scholar", func(tx *sqlx.Tx) error {
		now := r.now()
		const insertPrimary = `INSERT INTO scholars (user_id, student_number, full_name, school, course, year_level, status, grant_amount, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING id`
		if err := tx.QueryRowxContext(ctx, insertPrimary, in.UserID, in.StudentNumber, in.FullName, in.School, in.Course, in.YearLevel, in.Status, in.GrantAmount, in.Remarks, now).Scan(&id); err != nil {
			return fmt.Errorf("insert scholar: %w", err)
		}
		if detail.IsEmpty() {
			return nil
		}
		code, err := r.insertBackground(ctx, tx, id, detail, now)
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

// Update overwrites the scholar and upserts the background row under a row lock.
func (r *ScholarRepository) Update(ctx context.Context, id int64, in models.ScholarInput, detail *models.ScholarBackgroundInput) (*DetailWriteResult, error) {
	var result DetailWriteResult
	err := withTx(ctx, r.db, "update scholar", func(tx *sqlx.Tx) error {
		if err := lockPrimary(ctx, tx, scholarSchema, id); err != nil {
			return err
		}
		now := r.now()

		const updatePrimary = `UPDATE scholars SET user_id = $2, student_number = $3, full_name = $4, school = $5, course = $6, year_level = $7, status = $8, grant_amount = $9, remarks = $10, updated_at = $11 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updatePrimary, id, in.UserID, in.StudentNumber, in.FullName, in.School, in.Course, in.YearLevel, in.Status, in.GrantAmount, in.Remarks, now); err != nil {
			return fmt.Errorf("update scholar: %w", err)
		}

		var current struct {
			ID            int64   `db:"id"`
			ControlNumber string  `db:"control_number"`
			Photo         *string `db:"photo"`
		}
		const selectBackground = `SELECT id, control_number, photo FROM scholar_backgrounds WHERE scholar_id = $1 FOR UPDATE`
		err := tx.GetContext(ctx, &current, selectBackground, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			code, err := r.insertBackground(ctx, tx, id, detail, now)
			if err != nil {
				return err
			}
			result = DetailWriteResult{ControlNumber: code, Created: true}
			return nil
		case err != nil:
			return fmt.Errorf("lock scholar background: %w", err)
		}

		result.ControlNumber = current.ControlNumber
		if detail == nil {
			return nil
		}
		const updateBackground = `UPDATE scholar_backgrounds SET first_name = $2, middle_name = $3, last_name = $4, birth_date = $5, sex = $6, address = $7, contact_number = $8,
photo = CASE WHEN $9::boolean THEN $10::text ELSE photo END, father_name = $11, father_occupation = $12, mother_name = $13, mother_occupation = $14, guardian_name = $15, household_income = $16, updated_at = $17 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateBackground, current.ID, detail.FirstName, detail.MiddleName, detail.LastName, detail.BirthDate,
			detail.Sex, detail.Address, detail.ContactNumber, detail.Photo != nil, photoValue(detail.Photo),
			detail.FatherName, detail.FatherOccupation, detail.MotherName, detail.MotherOccupation, detail.GuardianName, detail.HouseholdIncome, now); err != nil {
			return fmt.Errorf("update scholar background: %w", err)
		}
		result.ReplacedPhoto = replacedPhoto(current.Photo, detail.Photo)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes the background row then the scholar, returning the photo.
func (r *ScholarRepository) Delete(ctx context.Context, id int64) (photo *string, err error) {
	err = withTx(ctx, r.db, "delete scholar", func(tx *sqlx.Tx) error {
		photo, err = deleteCascade(ctx, tx, scholarSchema, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// FindByID returns one annotated scholar or sql.ErrNoRows.
func (r *ScholarRepository) FindByID(ctx context.Context, id int64) (*models.ScholarRecord, error) {
	query := scholarSelect + scholarSchema.from() + " WHERE p.id = $1"
	var row scholarRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find scholar: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

// List returns one page of annotated scholars and the total match count.
func (r *ScholarRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.ScholarRecord, int, error) {
	filter.Normalize()
	where, args := whereClause(scholarSchema, filter)

	query := scholarSelect + scholarSchema.from() + where + recordOrder + fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, filter.Offset())
	var rows []scholarRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list scholars: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+scholarSchema.from()+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count scholars: %w", err)
	}

	records := make([]models.ScholarRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, total, nil
}

// Each streams every scholar matching filter, newest first.
func (r *ScholarRepository) Each(ctx context.Context, filter models.RecordFilter, fn func(models.ScholarRecord) error) error {
	where, args := whereClause(scholarSchema, filter)
	rows, err := r.db.QueryxContext(ctx, scholarSelect+scholarSchema.from()+where+recordOrder, args...)
	if err != nil {
		return fmt.Errorf("stream scholars: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var row scholarRow
		if err := rows.StructScan(&row); err != nil {
			return fmt.Errorf("scan scholar: %w", err)
		}
		if err := fn(row.record()); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("stream scholars: %w", err)
	}
	return nil
}

// Stats aggregates scholar figures; owner limits them to one student's records.
func (r *ScholarRepository) Stats(ctx context.Context, owner *string) (*models.RecordStats, error) {
	statuses := make([]string, len(models.ScholarStatuses))
	for i, s := range models.ScholarStatuses {
		statuses[i] = string(s)
	}
	return loadStats(ctx, r.db, scholarSchema, "grant_amount", string(models.ScholarActive), statuses, owner)
}

func (r *ScholarRepository) insertBackground(ctx context.Context, tx *sqlx.Tx, scholarID int64, d *models.ScholarBackgroundInput, now time.Time) (string, error) {
	if d == nil {
		d = &models.ScholarBackgroundInput{}
	}
	args := []interface{}{scholarID, d.FirstName, d.MiddleName, d.LastName, d.BirthDate, d.Sex, d.Address, d.ContactNumber,
		photoValue(d.Photo), d.FatherName, d.FatherOccupation, d.MotherName, d.MotherOccupation, d.GuardianName, d.HouseholdIncome, now}
	_, code, err := insertWithControlNumber(ctx, tx, r.codes, r.maxAttempts, scholarSchema.detail, insertScholarBackground, args)
	if err != nil {
		if database.IsUniqueViolation(err, scholarBackgroundFKConstraint) {
			return "", ErrDuplicateDetail
		}
		if errors.Is(err, ErrControlNumberExhausted) {
			return "", err
		}
		return "", fmt.Errorf("insert scholar background: %w", err)
	}
	return code, nil
}
