package models

import (
	"fmt"
	"strings"
	"time"
)

// RegistrationStatus is the staff triage label attached to a registration.
// Any value may be assigned from any other; there is no transition guard.
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusContacted RegistrationStatus = "contacted"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

// RegistrationStatuses lists the accepted labels in their conventional order.
var RegistrationStatuses = []RegistrationStatus{
	RegistrationStatusPending,
	RegistrationStatusContacted,
	RegistrationStatusConfirmed,
	RegistrationStatusCancelled,
}

// Valid reports whether the status is one of the known labels.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusContacted, RegistrationStatusConfirmed, RegistrationStatusCancelled:
		return true
	default:
		return false
	}
}

// OrDefault maps an absent status to pending.
func (s RegistrationStatus) OrDefault() RegistrationStatus {
	if s == "" {
		return RegistrationStatusPending
	}
	return s
}

// ParseRegistrationStatus normalises user input into a known status.
func ParseRegistrationStatus(raw string) (RegistrationStatus, error) {
	status := RegistrationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}

// Registration is a learner's sign-up for a session. The session fields are
// copied at submission time and never refreshed afterwards.
type Registration struct {
	ID           string             `db:"id" json:"id"`
	SessionID    string             `db:"session_id" json:"session_id"`
	SessionTitle string             `db:"session_title" json:"session_title"`
	SessionDate  string             `db:"session_date" json:"session_date"`
	SessionTime  string             `db:"session_time" json:"session_time"`
	FullName     string             `db:"full_name" json:"full_name"`
	Email        string             `db:"email" json:"email"`
	Phone        string             `db:"phone" json:"phone"`
	College      string             `db:"college" json:"college,omitempty"`
	Course       string             `db:"course" json:"course,omitempty"`
	Goals        string             `db:"goals" json:"goals,omitempty"`
	Status       RegistrationStatus `db:"status" json:"status"`
	RegisteredAt time.Time          `db:"registered_at" json:"registered_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// RegistrationFilter narrows registration listings and exports.
type RegistrationFilter struct {
	SessionID string
	Status    RegistrationStatus
	Search    string
	Page      int
	PageSize  int
	SortOrder string
}
