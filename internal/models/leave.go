package models

import "time"

// LeaveType enumerates the kinds of staff leave.
type LeaveType string

const (
	LeaveVacation  LeaveType = "VACATION"
	LeaveSick      LeaveType = "SICK"
	LeaveEmergency LeaveType = "EMERGENCY"
	LeaveOther     LeaveType = "OTHER"
)

// LeaveStatus tracks review state.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "PENDING"
	LeaveApproved LeaveStatus = "APPROVED"
	LeaveRejected LeaveStatus = "REJECTED"
)

// LeaveRequest is a row of leave_requests.
type LeaveRequest struct {
	ID         string      `db:"id" json:"id"`
	UserID     string      `db:"user_id" json:"user_id"`
	UserName   string      `db:"user_name" json:"user_name,omitempty"`
	LeaveType  LeaveType   `db:"leave_type" json:"leave_type"`
	StartDate  Date        `db:"start_date" json:"start_date"`
	EndDate    Date        `db:"end_date" json:"end_date"`
	Reason     string      `db:"reason" json:"reason"`
	Status     LeaveStatus `db:"status" json:"status"`
	ReviewedBy *string     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time  `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Note       *string     `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// Days returns the inclusive number of calendar days covered.
func (l LeaveRequest) Days() int {
	return int(l.EndDate.Sub(l.StartDate.Time).Hours()/24) + 1
}

// FileLeaveRequest is the payload for filing a leave.
type FileLeaveRequest struct {
	LeaveType LeaveType `json:"leave_type" validate:"required,oneof=VACATION SICK EMERGENCY OTHER"`
	StartDate Date      `json:"start_date" validate:"required"`
	EndDate   Date      `json:"end_date" validate:"required"`
	Reason    string    `json:"reason" validate:"max=500"`
}

// ReviewLeaveRequest carries an optional reviewer note.
type ReviewLeaveRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// LeaveFilter narrows leave listings.
type LeaveFilter struct {
	UserID   *string
	Status   *LeaveStatus
	Page     int
	PageSize int
}
