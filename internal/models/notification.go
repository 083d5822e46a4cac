package models

import "time"

// Notification kinds.
const (
	NotificationLeaveFiled    = "LEAVE_FILED"
	NotificationLeaveApproved = "LEAVE_APPROVED"
	NotificationLeaveRejected = "LEAVE_REJECTED"
)

// Notification is an inbox entry for one user.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Kind      string     `db:"kind" json:"kind"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// NotificationFilter narrows inbox listings.
type NotificationFilter struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}
