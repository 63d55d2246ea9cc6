package models

import (
	"strings"
	"time"
)

// FeedbackStatus tracks the lifecycle of a citizen report
type FeedbackStatus string

const (
	FeedbackReported  FeedbackStatus = "REPORTED"
	FeedbackInProcess FeedbackStatus = "IN_PROCESS"
	FeedbackSolved    FeedbackStatus = "SOLVED"
)

// ParseFeedbackStatus returns the status for raw and whether it was recognised
func ParseFeedbackStatus(raw string) (FeedbackStatus, bool) {
	switch s := FeedbackStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case FeedbackReported, FeedbackInProcess, FeedbackSolved:
		return s, true
	default:
		return "", false
	}
}

// Feedback is a report submitted by a citizen and handled by an authority.
type Feedback struct {
	ID             int64          `json:"id" db:"id"`
	UserID         int64          `json:"-" db:"user_id"`
	Category       string         `json:"category" db:"category"`
	Message        string         `json:"message" db:"message"`
	AuthorityType  *string        `json:"authority_type" db:"authority_type"`
	Priority       *string        `json:"priority" db:"priority"`
	Location       *string        `json:"location" db:"location"`
	Status         FeedbackStatus `json:"status" db:"status"`
	AuthorityNotes *string        `json:"authority_notes" db:"authority_notes"`
	AuthorityID    *int64         `json:"-" db:"authority_id"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`

	// Joined from users
	CitizenName    *string `json:"citizen_name" db:"citizen_name"`
	CitizenContact *string `json:"citizen_contact" db:"citizen_contact"`
	AuthorityName  *string `json:"authority_name" db:"authority_name"`
}

// TableName returns the table name for the Feedback model
func (Feedback) TableName() string {
	return "feedback"
}

// FeedbackStats holds dashboard counters
type FeedbackStats struct {
	Total     int `json:"total"`
	Reported  int `json:"reported"`
	InProcess int `json:"in_process"`
	Solved    int `json:"solved"`
}

// FeedbackScope describes which reports an authority may see.
type FeedbackScope struct {
	AuthorityID int64
	// Route is empty for authorities without a feedback route
	Route string
	// All is set for the mayor's office
	All bool
	// Status optionally narrows the listing
	Status *FeedbackStatus
}
