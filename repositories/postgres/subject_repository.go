package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/repositories"
	"go.uber.org/zap"
)

const uniqueViolation = pq.ErrorCode("23505")

const subjectColumns = `id, name, phone_number, email, password_hash, address, department,
	position, feedback_route, user_type, is_active, is_approved, last_login, created_at, updated_at`

// SubjectRepository implements the repositories.SubjectRepository interface
type SubjectRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSubjectRepository creates a new subject repository
func NewSubjectRepository(db *DB, logger *zap.Logger) repositories.SubjectRepository {
	return &SubjectRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a subject and sets its generated ID
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	query := `
		INSERT INTO users (name, phone_number, email, password_hash, address, department,
			position, feedback_route, user_type, is_active, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		subject.Name,
		subject.PhoneNumber,
		subject.Email,
		subject.PasswordHash,
		subject.Address,
		subject.Department,
		subject.Position,
		subject.FeedbackRoute,
		string(subject.Role),
		subject.IsActive,
		subject.IsApproved,
		subject.CreatedAt,
		subject.UpdatedAt,
	).Scan(&subject.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", repositories.ErrDuplicate, pqErr.Constraint)
		}
		return fmt.Errorf("failed to create subject: %w", err)
	}

	r.logger.Debug("subject created",
		zap.Int64("id", subject.ID),
		zap.String("user_type", subject.Role.String()))
	return nil
}

// GetByID retrieves a subject by ID
func (r *SubjectRepository) GetByID(ctx context.Context, id int64) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM users WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	subject, err := scanSubject(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	return subject, nil
}

// FindByIdentifier retrieves a subject whose phone number or email equals identifier
func (r *SubjectRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + `
		FROM users
		WHERE phone_number = $1 OR email = $1
		ORDER BY id
		LIMIT 1`

	executor := GetExecutor(ctx, r.db)
	subject, err := scanSubject(executor.QueryRowContext(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find subject: %w", err)
	}

	return subject, nil
}

// ExistsByPhone reports whether the phone number is registered
func (r *SubjectRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE phone_number = $1)`, phone)
}

// ExistsByEmail reports whether the email is registered
func (r *SubjectRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *SubjectRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	executor := GetExecutor(ctx, r.db)

	var exists bool
	if err := executor.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check subject existence: %w", err)
	}
	return exists, nil
}

// TouchLastLogin records a successful login
func (r *SubjectRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`
	return r.updateOne(ctx, query, at, id)
}

// SetActive toggles the active flag
func (r *SubjectRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`
	return r.updateOne(ctx, query, active, id)
}

func (r *SubjectRepository) updateOne(ctx context.Context, query string, value interface{}, id int64) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update subject: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// FirstActiveAuthorityForRoute returns the earliest-created active authority for route
func (r *SubjectRepository) FirstActiveAuthorityForRoute(ctx context.Context, route string) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + `
		FROM users
		WHERE user_type = $1 AND feedback_route = $2 AND is_active = TRUE
		ORDER BY created_at ASC, id ASC
		LIMIT 1`

	executor := GetExecutor(ctx, r.db)
	subject, err := scanSubject(executor.QueryRowContext(ctx, query, string(models.RoleAuthority), route))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find authority for route: %w", err)
	}

	return subject, nil
}

func scanSubject(row *sql.Row) (*models.Subject, error) {
	subject := &models.Subject{}
	var role string
	var lastLogin sql.NullTime

	err := row.Scan(
		&subject.ID,
		&subject.Name,
		&subject.PhoneNumber,
		&subject.Email,
		&subject.PasswordHash,
		&subject.Address,
		&subject.Department,
		&subject.Position,
		&subject.FeedbackRoute,
		&role,
		&subject.IsActive,
		&subject.IsApproved,
		&lastLogin,
		&subject.CreatedAt,
		&subject.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	subject.Role = models.ParseRole(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		subject.LastLogin = &t
	}
	return subject, nil
}
