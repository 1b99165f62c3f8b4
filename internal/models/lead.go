package models

import "time"

// LeadKind identifies which public form produced a lead.
type LeadKind string

const (
	LeadKindCallback LeadKind = "callback"
	LeadKindPartner  LeadKind = "partner"
)

// Valid reports whether the kind is supported.
func (k LeadKind) Valid() bool {
	return k == LeadKindCallback || k == LeadKindPartner
}

// Lead is a callback or partner request captured from the marketing site.
// It shares the registration triage labels.
type Lead struct {
	ID           string             `db:"id" json:"id"`
	Kind         LeadKind           `db:"kind" json:"kind"`
	FullName     string             `db:"full_name" json:"full_name"`
	Email        string             `db:"email" json:"email"`
	Phone        string             `db:"phone" json:"phone"`
	Organization string             `db:"organization" json:"organization,omitempty"`
	Message      string             `db:"message" json:"message,omitempty"`
	Status       RegistrationStatus `db:"status" json:"status"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// LeadFilter narrows lead listings.
type LeadFilter struct {
	Kind     LeadKind
	Status   RegistrationStatus
	Search   string
	Page     int
	PageSize int
}
