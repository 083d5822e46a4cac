package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScholarStatus enumerates scholarship application states.
type ScholarStatus string

const (
	ScholarPending  ScholarStatus = "pending"
	ScholarActive   ScholarStatus = "active"
	ScholarRejected ScholarStatus = "rejected"
	ScholarExpired  ScholarStatus = "expired"
)

// ScholarStatuses lists every status in display order.
var ScholarStatuses = []ScholarStatus{ScholarPending, ScholarActive, ScholarRejected, ScholarExpired}

// Valid reports whether s is a known status.
func (s ScholarStatus) Valid() bool {
	for _, known := range ScholarStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ScholarControlPrefix heads every scholar control number.
const ScholarControlPrefix = "SCH"

// Scholar is a row of the scholars table.
type Scholar struct {
	ID            int64           `db:"id" json:"id"`
	UserID        *string         `db:"user_id" json:"user_id,omitempty"`
	StudentNumber string          `db:"student_number" json:"student_number"`
	FullName      string          `db:"full_name" json:"full_name"`
	School        string          `db:"school" json:"school"`
	Course        string          `db:"course" json:"course"`
	YearLevel     string          `db:"year_level" json:"year_level"`
	Status        ScholarStatus   `db:"status" json:"status"`
	GrantAmount   decimal.Decimal `db:"grant_amount" json:"grant_amount"`
	Remarks       string          `db:"remarks" json:"remarks"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// ScholarBackground is the optional family background of a scholar.
type ScholarBackground struct {
	ID               int64            `db:"id" json:"id"`
	ScholarID        int64            `db:"scholar_id" json:"scholar_id"`
	FirstName        *string          `db:"first_name" json:"first_name,omitempty"`
	MiddleName       *string          `db:"middle_name" json:"middle_name,omitempty"`
	LastName         *string          `db:"last_name" json:"last_name,omitempty"`
	BirthDate        *Date            `db:"birth_date" json:"birth_date,omitempty"`
	Sex              *string          `db:"sex" json:"sex,omitempty"`
	Address          *string          `db:"address" json:"address,omitempty"`
	ContactNumber    *string          `db:"contact_number" json:"contact_number,omitempty"`
	Photo            *string          `db:"photo" json:"photo,omitempty"`
	ControlNumber    string           `db:"control_number" json:"control_number"`
	FatherName       *string          `db:"father_name" json:"father_name,omitempty"`
	FatherOccupation *string          `db:"father_occupation" json:"father_occupation,omitempty"`
	MotherName       *string          `db:"mother_name" json:"mother_name,omitempty"`
	MotherOccupation *string          `db:"mother_occupation" json:"mother_occupation,omitempty"`
	GuardianName     *string          `db:"guardian_name" json:"guardian_name,omitempty"`
	HouseholdIncome  *decimal.Decimal `db:"household_income" json:"household_income,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// ScholarRecord is a scholar annotated with its background classification.
type ScholarRecord struct {
	Scholar
	DetailState   DetailState        `json:"detail_state"`
	DisplayName   string             `json:"display_name"`
	ControlNumber *string            `json:"control_number,omitempty"`
	Detail        *ScholarBackground `json:"detail,omitempty"`
	PhotoURL      string             `json:"photo_url,omitempty"`
}

// Annotate fills DetailState, DisplayName and ControlNumber from Detail.
func (r *ScholarRecord) Annotate() {
	var first, middle, last *string
	if r.Detail != nil {
		first, middle, last = r.Detail.FirstName, r.Detail.MiddleName, r.Detail.LastName
		cn := r.Detail.ControlNumber
		r.ControlNumber = &cn
	}
	r.DetailState = ClassifyDetail(r.Detail != nil, first)
	r.DisplayName = DisplayName(r.DetailState, first, middle, last, r.FullName)
}

// ScholarInput carries the primary fields for register and update.
type ScholarInput struct {
	UserID        *string         `json:"user_id" validate:"omitempty,uuid"`
	StudentNumber string          `json:"student_number" validate:"required,max=50"`
	FullName      string          `json:"full_name" validate:"required,max=150"`
	School        string          `json:"school" validate:"max=150"`
	Course        string          `json:"course" validate:"max=150"`
	YearLevel     string          `json:"year_level" validate:"max=30"`
	Status        ScholarStatus   `json:"status" validate:"required,oneof=pending active rejected expired"`
	GrantAmount   decimal.Decimal `json:"grant_amount" validate:"decimal_gte0"`
	Remarks       string          `json:"remarks" validate:"max=1000"`
}

// ScholarBackgroundInput carries optional background fields. A nil Photo keeps
// the stored photo on update.
type ScholarBackgroundInput struct {
	FirstName        *string          `json:"first_name" validate:"omitempty,max=100"`
	MiddleName       *string          `json:"middle_name" validate:"omitempty,max=100"`
	LastName         *string          `json:"last_name" validate:"omitempty,max=100"`
	BirthDate        *Date            `json:"birth_date"`
	Sex              *string          `json:"sex" validate:"omitempty,oneof=Male Female"`
	Address          *string          `json:"address" validate:"omitempty,max=255"`
	ContactNumber    *string          `json:"contact_number" validate:"omitempty,max=20"`
	Photo            *string          `json:"photo" validate:"omitempty,max=255"`
	FatherName       *string          `json:"father_name" validate:"omitempty,max=150"`
	FatherOccupation *string          `json:"father_occupation" validate:"omitempty,max=100"`
	MotherName       *string          `json:"mother_name" validate:"omitempty,max=150"`
	MotherOccupation *string          `json:"mother_occupation" validate:"omitempty,max=100"`
	GuardianName     *string          `json:"guardian_name" validate:"omitempty,max=150"`
	HouseholdIncome  *decimal.Decimal `json:"household_income" validate:"omitempty,decimal_gte0"`
}

// IsEmpty is true when no background field was supplied.
func (d *ScholarBackgroundInput) IsEmpty() bool {
	if d == nil {
		return true
	}
	return d.FirstName == nil && d.MiddleName == nil && d.LastName == nil && d.BirthDate == nil &&
		d.Sex == nil && d.Address == nil && d.ContactNumber == nil && d.Photo == nil &&
		d.FatherName == nil && d.FatherOccupation == nil && d.MotherName == nil &&
		d.MotherOccupation == nil && d.GuardianName == nil && d.HouseholdIncome == nil
}

// ScholarPayload is the request body for register and update.
type ScholarPayload struct {
	ScholarInput
	Detail *ScholarBackgroundInput `json:"detail" validate:"omitempty"`
}
