package models

import (
	"time"

	"github.com/lib/pq"
)

// SessionState is the derived live state of a session.
type SessionState string

const (
	SessionStateScheduled SessionState = "scheduled"
	SessionStateLive      SessionState = "live"
)

// Session is a live session authored by staff and offered to learners.
type Session struct {
	ID              string         `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	InstructorName  string         `db:"instructor_name" json:"instructor_name"`
	InstructorBio   string         `db:"instructor_bio" json:"instructor_bio"`
	Date            string         `db:"date" json:"date"`
	Time            string         `db:"time" json:"time"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	MaxParticipants int            `db:"max_participants" json:"max_participants"`
	Topics          pq.StringArray `db:"topics" json:"topics"`
	Prerequisites   pq.StringArray `db:"prerequisites" json:"prerequisites"`
	MeetingLink     string         `db:"meeting_link" json:"meeting_link"`
	BannerURL       string         `db:"banner_url" json:"banner_url,omitempty"`
	IsActive        bool           `db:"is_active" json:"is_active"`
	IsLive          bool           `db:"is_live" json:"is_live"`
	CreatedBy       string         `db:"created_by" json:"created_by"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// State reports whether the session is currently flagged live.
func (s Session) State() SessionState {
	if s.IsLive {
		return SessionStateLive
	}
	return SessionStateScheduled
}

// SessionSummary adds the current registration count for staff views.
type SessionSummary struct {
	Session
	RegistrationCount int `db:"registration_count" json:"registration_count"`
}

// SessionFilter narrows the staff session listing.
type SessionFilter struct {
	Active    *bool
	Live      *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// SessionUpdate carries a partial edit; nil fields are left untouched.
type SessionUpdate struct {
	Title           *string
	Description     *string
	InstructorName  *string
	InstructorBio   *string
	Date            *string
	Time            *string
	DurationMinutes *int
	MaxParticipants *int
	Topics          *[]string
	Prerequisites   *[]string
	MeetingLink     *string
	BannerURL       *string
	IsActive        *bool
	IsLive          *bool
}

// Empty reports whether the update carries no changes.
func (u SessionUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.InstructorName == nil && u.InstructorBio == nil &&
		u.Date == nil && u.Time == nil && u.DurationMinutes == nil && u.MaxParticipants == nil &&
		u.Topics == nil && u.Prerequisites == nil && u.MeetingLink == nil && u.BannerURL == nil &&
		u.IsActive == nil && u.IsLive == nil
}

// SessionStats aggregates catalog counters for the refresher and metrics.
type SessionStats struct {
	Total         int `db:"total" json:"total"`
	Active        int `db:"active" json:"active"`
	Live          int `db:"live" json:"live"`
	Registrations int `db:"registrations" json:"registrations"`
}
