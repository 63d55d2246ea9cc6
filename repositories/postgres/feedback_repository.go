package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/repositories"
	"go.uber.org/zap"
)

const feedbackSelect = `
	SELECT f.id, f.user_id, f.category, f.message, f.authority_type, f.priority, f.location,
		f.status, f.authority_notes, f.authority_id, f.created_at, f.updated_at,
		c.name, c.phone_number, a.name
	FROM feedback f
	LEFT JOIN users c ON c.id = f.user_id
	LEFT JOIN users a ON a.id = f.authority_id`

// FeedbackRepository implements the repositories.FeedbackRepository interface
type FeedbackRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *DB, logger *zap.Logger) repositories.FeedbackRepository {
	return &FeedbackRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a feedback report and sets its generated ID
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	query := `
		INSERT INTO feedback (user_id, category, message, authority_type, priority, location,
			status, authority_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		feedback.UserID,
		feedback.Category,
		feedback.Message,
		feedback.AuthorityType,
		feedback.Priority,
		feedback.Location,
		string(feedback.Status),
		feedback.AuthorityID,
		feedback.CreatedAt,
		feedback.UpdatedAt,
	).Scan(&feedback.ID)

	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	r.logger.Debug("feedback created",
		zap.Int64("id", feedback.ID),
		zap.Int64("user_id", feedback.UserID))
	return nil
}

// GetByID retrieves a feedback report by ID
func (r *FeedbackRepository) GetByID(ctx context.Context, id int64) (*models.Feedback, error) {
	query := feedbackSelect + ` WHERE f.id = $1`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	defer rows.Close()

	list, err := scanFeedbackRows(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repositories.ErrNotFound
	}
	return list[0], nil
}

// ListByUser returns a citizen's reports, newest first
func (r *FeedbackRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Feedback, error) {
	query := feedbackSelect + ` WHERE f.user_id = $1 ORDER BY f.created_at DESC, f.id DESC`
	return r.list(ctx, query, userID)
}

// ListForAuthority returns the reports visible under scope, newest first
func (r *FeedbackRepository) ListForAuthority(ctx context.Context, scope models.FeedbackScope) ([]*models.Feedback, error) {
	var conditions []string
	var args []interface{}

	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !scope.All {
		self := next(scope.AuthorityID)
		if scope.Route != "" {
			route := next(scope.Route)
			conditions = append(conditions,
				fmt.Sprintf("(f.authority_id = %s OR f.authority_type = %s OR f.authority_id IS NULL)", self, route))
		} else {
			conditions = append(conditions,
				fmt.Sprintf("(f.authority_id = %s OR f.authority_id IS NULL)", self))
		}
	}
	if scope.Status != nil {
		conditions = append(conditions, "f.status = "+next(string(*scope.Status)))
	}

	query := feedbackSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY f.created_at DESC, f.id DESC"

	return r.list(ctx, query, args...)
}

func (r *FeedbackRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Feedback, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	return scanFeedbackRows(rows)
}

// UpdateStatus sets status, replaces notes and records the handling authority
func (r *FeedbackRepository) UpdateStatus(ctx context.Context, id int64, status models.FeedbackStatus, notes *string, authorityID int64, at time.Time) error {
	query := `
		UPDATE feedback
		SET status = $1, authority_notes = $2, authority_id = $3, updated_at = $4
		WHERE id = $5
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, string(status), notes, authorityID, at, id)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("feedback status updated",
		zap.Int64("id", id),
		zap.String("status", string(status)),
		zap.Int64("authority_id", authorityID))
	return nil
}

// Stats counts reports per status
func (r *FeedbackRepository) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'REPORTED'),
			COUNT(*) FILTER (WHERE status = 'IN_PROCESS'),
			COUNT(*) FILTER (WHERE status = 'SOLVED')
		FROM feedback
	`

	executor := GetExecutor(ctx, r.db)
	stats := &models.FeedbackStats{}
	err := executor.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Reported,
		&stats.InProcess,
		&stats.Solved,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}

	return stats, nil
}

func scanFeedbackRows(rows *sql.Rows) ([]*models.Feedback, error) {
	list := make([]*models.Feedback, 0)
	for rows.Next() {
		f := &models.Feedback{}
		var status string
		var authorityID sql.NullInt64

		if err := rows.Scan(
			&f.ID,
			&f.UserID,
			&f.Category,
			&f.Message,
			&f.AuthorityType,
			&f.Priority,
			&f.Location,
			&status,
			&f.AuthorityNotes,
			&authorityID,
			&f.CreatedAt,
			&f.UpdatedAt,
			&f.CitizenName,
			&f.CitizenContact,
			&f.AuthorityName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}

		f.Status = models.FeedbackStatus(status)
		if authorityID.Valid {
			id := authorityID.Int64
			f.AuthorityID = &id
		}
		list = append(list, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}
	return list, nil
}
