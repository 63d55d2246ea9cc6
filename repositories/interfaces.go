package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/upb/smart-city-assistant/models"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate wraps unique constraint violations; the message names the constraint
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error

	// Context returns a context carrying the transaction; repositories
	// called with it run their statements inside the transaction.
	Context() context.Context
}

// SubjectRepository handles account data operations
type SubjectRepository interface {
	// Create inserts the subject and sets its ID
	Create(ctx context.Context, subject *models.Subject) error

	GetByID(ctx context.Context, id int64) (*models.Subject, error)

	// FindByIdentifier matches phone number OR email
	FindByIdentifier(ctx context.Context, identifier string) (*models.Subject, error)

	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	SetActive(ctx context.Context, id int64, active bool) error

	// FirstActiveAuthorityForRoute returns the earliest-created active
	// authority whose feedback route equals route, or ErrNotFound.
	FirstActiveAuthorityForRoute(ctx context.Context, route string) (*models.Subject, error)
}

// FeedbackRepository handles citizen feedback
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	GetByID(ctx context.Context, id int64) (*models.Feedback, error)

	// ListByUser returns a citizen's reports, newest first
	ListByUser(ctx context.Context, userID int64) ([]*models.Feedback, error)

	// ListForAuthority returns the reports visible under scope, newest first
	ListForAuthority(ctx context.Context, scope models.FeedbackScope) ([]*models.Feedback, error)

	UpdateStatus(ctx context.Context, id int64, status models.FeedbackStatus, notes *string, authorityID int64, at time.Time) error

	Stats(ctx context.Context) (*models.FeedbackStats, error)
}

// AnnouncementRepository handles authority announcements
type AnnouncementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	GetByID(ctx context.Context, id int64) (*models.Announcement, error)

	// List returns all announcements, newest first
	List(ctx context.Context) ([]*models.Announcement, error)

	Delete(ctx context.Context, id int64) error
}

// ChatRepository stores assistant conversations
type ChatRepository interface {
	Append(ctx context.Context, message *models.ChatMessage) error

	// Recent returns up to limit of the newest messages in chronological order
	Recent(ctx context.Context, userID int64, limit int) ([]*models.ChatMessage, error)

	DeleteAll(ctx context.Context, userID int64) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Subjects      SubjectRepository
	Feedback      FeedbackRepository
	Announcements AnnouncementRepository
	Chat          ChatRepository
}
