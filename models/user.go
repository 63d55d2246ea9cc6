package models

import (
	"strings"
	"time"
)

// Role is the access role carried by a subject and its session tokens.
// The set is closed: anything that does not parse to USER or AUTHORITY
// becomes RoleUnauthenticated.
type Role string

const (
	RoleUnauthenticated Role = ""
	RoleUser            Role = "USER"
	RoleAuthority       Role = "AUTHORITY"
)

// MayorsOfficeRoute is the feedback route with city-wide visibility.
const MayorsOfficeRoute = "mayor's office"

// ParseRole maps a raw role string to a Role. It never fails.
func ParseRole(raw string) Role {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(RoleUser):
		return RoleUser
	case string(RoleAuthority):
		return RoleAuthority
	default:
		return RoleUnauthenticated
	}
}

// Valid reports whether r is one of the assignable roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAuthority
}

func (r Role) String() string {
	if r == RoleUnauthenticated {
		return "UNAUTHENTICATED"
	}
	return string(r)
}

// Subject is a registered account: a citizen (USER) or an AUTHORITY member.
type Subject struct {
	ID            int64      `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	PhoneNumber   string     `json:"phone_number" db:"phone_number"`
	Email         *string    `json:"email" db:"email"`
	PasswordHash  *string    `json:"-" db:"password_hash"`
	Address       *string    `json:"address" db:"address"`
	Department    *string    `json:"department" db:"department"`
	Position      *string    `json:"position" db:"position"`
	FeedbackRoute *string    `json:"feedback_route" db:"feedback_route"`
	Role          Role       `json:"user_type" db:"user_type"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	IsApproved    bool       `json:"is_approved" db:"is_approved"`
	LastLogin     *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Subject model
func (Subject) TableName() string {
	return "users"
}

// NewCitizen creates an active, approved USER subject
func NewCitizen(name, phone string, email, address *string, passwordHash string) *Subject {
	now := time.Now().UTC()
	return &Subject{
		Name:         name,
		PhoneNumber:  phone,
		Email:        email,
		Address:      address,
		PasswordHash: &passwordHash,
		Role:         RoleUser,
		IsActive:     true,
		IsApproved:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewAuthority creates an active, approved AUTHORITY subject
func NewAuthority(name, position, feedbackRoute, phone, email, passwordHash string) *Subject {
	now := time.Now().UTC()
	return &Subject{
		Name:          name,
		PhoneNumber:   phone,
		Email:         &email,
		Position:      &position,
		FeedbackRoute: &feedbackRoute,
		PasswordHash:  &passwordHash,
		Role:          RoleAuthority,
		IsActive:      true,
		IsApproved:    true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsAuthority returns true if the subject holds the AUTHORITY role
func (s *Subject) IsAuthority() bool {
	return s.Role == RoleAuthority
}

// Route returns the normalised feedback route, or "" when none is set.
func (s *Subject) Route() string {
	if s.FeedbackRoute == nil {
		return ""
	}
	return strings.TrimSpace(*s.FeedbackRoute)
}

// IsMayorsOffice reports whether the subject routes city-wide feedback
func (s *Subject) IsMayorsOffice() bool {
	return strings.EqualFold(s.Route(), MayorsOfficeRoute)
}
