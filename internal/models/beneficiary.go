package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BeneficiaryStatus enumerates 4Ps household states.
type BeneficiaryStatus string

const (
	BeneficiaryActive    BeneficiaryStatus = "Active"
	BeneficiaryInactive  BeneficiaryStatus = "Inactive"
	BeneficiarySuspended BeneficiaryStatus = "Suspended"
	BeneficiaryGraduated BeneficiaryStatus = "Graduated"
)

// BeneficiaryStatuses lists every status in display order.
var BeneficiaryStatuses = []BeneficiaryStatus{BeneficiaryActive, BeneficiaryInactive, BeneficiarySuspended, BeneficiaryGraduated}

// Valid reports whether s is a known status.
func (s BeneficiaryStatus) Valid() bool {
	for _, known := range BeneficiaryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// BeneficiaryControlPrefix heads every beneficiary control number.
const BeneficiaryControlPrefix = "4PS"

// Beneficiary is a row of the beneficiaries table.
type Beneficiary struct {
	ID           int64             `db:"id" json:"id"`
	HouseholdID  string            `db:"household_id" json:"household_id"`
	HeadName     string            `db:"head_name" json:"head_name"`
	Address      string            `db:"address" json:"address"`
	Status       BeneficiaryStatus `db:"status" json:"status"`
	MonthlyGrant decimal.Decimal   `db:"monthly_grant" json:"monthly_grant"`
	Remarks      string            `db:"remarks" json:"remarks"`
	CreatedBy    *string           `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// BeneficiaryDetail is the optional extended profile of a beneficiary.
type BeneficiaryDetail struct {
	ID               int64     `db:"id" json:"id"`
	BeneficiaryID    int64     `db:"beneficiary_id" json:"beneficiary_id"`
	FirstName        *string   `db:"first_name" json:"first_name,omitempty"`
	MiddleName       *string   `db:"middle_name" json:"middle_name,omitempty"`
	LastName         *string   `db:"last_name" json:"last_name,omitempty"`
	BirthDate        *Date     `db:"birth_date" json:"birth_date,omitempty"`
	Sex              *string   `db:"sex" json:"sex,omitempty"`
	CivilStatus      *string   `db:"civil_status" json:"civil_status,omitempty"`
	ContactNumber    *string   `db:"contact_number" json:"contact_number,omitempty"`
	Photo            *string   `db:"photo" json:"photo,omitempty"`
	ControlNumber    string    `db:"control_number" json:"control_number"`
	SpouseName       *string   `db:"spouse_name" json:"spouse_name,omitempty"`
	MotherMaidenName *string   `db:"mother_maiden_name" json:"mother_maiden_name,omitempty"`
	HouseholdSize    *int      `db:"household_size" json:"household_size,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// BeneficiaryRecord is a beneficiary annotated with its detail classification.
type BeneficiaryRecord struct {
	Beneficiary
	DetailState   DetailState        `json:"detail_state"`
	DisplayName   string             `json:"display_name"`
	ControlNumber *string            `json:"control_number,omitempty"`
	Detail        *BeneficiaryDetail `json:"detail,omitempty"`
	PhotoURL      string             `json:"photo_url,omitempty"`
}

// Annotate fills DetailState, DisplayName and ControlNumber from Detail.
func (r *BeneficiaryRecord) Annotate() {
	var first, middle, last *string
	if r.Detail != nil {
		first, middle, last = r.Detail.FirstName, r.Detail.MiddleName, r.Detail.LastName
		cn := r.Detail.ControlNumber
		r.ControlNumber = &cn
	}
	r.DetailState = ClassifyDetail(r.Detail != nil, first)
	r.DisplayName = DisplayName(r.DetailState, first, middle, last, r.HeadName)
}

// BeneficiaryInput carries the primary fields for register and update.
type BeneficiaryInput struct {
	HouseholdID  string            `json:"household_id" validate:"required,max=64"`
	HeadName     string            `json:"head_name" validate:"required,max=150"`
	Address      string            `json:"address" validate:"max=255"`
	Status       BeneficiaryStatus `json:"status" validate:"required,oneof=Active Inactive Suspended Graduated"`
	MonthlyGrant decimal.Decimal   `json:"monthly_grant" validate:"decimal_gte0"`
	Remarks      string            `json:"remarks" validate:"max=1000"`
}

// BeneficiaryDetailInput carries optional detail fields. A nil Photo keeps the
// stored photo on update.
type BeneficiaryDetailInput struct {
	FirstName        *string `json:"first_name" validate:"omitempty,max=100"`
	MiddleName       *string `json:"middle_name" validate:"omitempty,max=100"`
	LastName         *string `json:"last_name" validate:"omitempty,max=100"`
	BirthDate        *Date   `json:"birth_date"`
	Sex              *string `json:"sex" validate:"omitempty,oneof=Male Female"`
	CivilStatus      *string `json:"civil_status" validate:"omitempty,oneof=Single Married Widowed Separated"`
	ContactNumber    *string `json:"contact_number" validate:"omitempty,max=20"`
	Photo            *string `json:"photo" validate:"omitempty,max=255"`
	SpouseName       *string `json:"spouse_name" validate:"omitempty,max=150"`
	MotherMaidenName *string `json:"mother_maiden_name" validate:"omitempty,max=150"`
	HouseholdSize    *int    `json:"household_size" validate:"omitempty,min=1,max=50"`
}

// IsEmpty is true when no detail field was supplied.
func (d *BeneficiaryDetailInput) IsEmpty() bool {
	if d == nil {
		return true
	}
	return d.FirstName == nil && d.MiddleName == nil && d.LastName == nil && d.BirthDate == nil &&
		d.Sex == nil && d.CivilStatus == nil && d.ContactNumber == nil && d.Photo == nil &&
		d.SpouseName == nil && d.MotherMaidenName == nil && d.HouseholdSize == nil
}

// BeneficiaryPayload is the request body for register and update.
type BeneficiaryPayload struct {
	BeneficiaryInput
	Detail *BeneficiaryDetailInput `json:"detail" validate:"omitempty"`
}
