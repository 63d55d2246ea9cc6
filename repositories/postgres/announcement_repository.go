package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/repositories"
	"go.uber.org/zap"
)

// AnnouncementRepository implements the repositories.AnnouncementRepository interface
type AnnouncementRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAnnouncementRepository creates a new announcement repository
func NewAnnouncementRepository(db *DB, logger *zap.Logger) repositories.AnnouncementRepository {
	return &AnnouncementRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an announcement and sets its generated ID
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	query := `
		INSERT INTO announcements (title, content, audience, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		announcement.Title,
		announcement.Content,
		announcement.Audience,
		announcement.AuthorID,
		announcement.CreatedAt,
	).Scan(&announcement.ID)

	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}

	r.logger.Debug("announcement created", zap.Int64("id", announcement.ID))
	return nil
}

// GetByID retrieves an announcement by ID
func (r *AnnouncementRepository) GetByID(ctx context.Context, id int64) (*models.Announcement, error) {
	query := `
		SELECT a.id, a.title, a.content, a.audience, a.author_id, u.name, a.created_at
		FROM announcements a
		LEFT JOIN users u ON u.id = a.author_id
		WHERE a.id = $1
	`

	executor := GetExecutor(ctx, r.db)
	announcement := &models.Announcement{}
	var authorID sql.NullInt64

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&announcement.ID,
		&announcement.Title,
		&announcement.Content,
		&announcement.Audience,
		&authorID,
		&announcement.AuthorName,
		&announcement.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get announcement: %w", err)
	}

	if authorID.Valid {
		announcement.AuthorID = &authorID.Int64
	}
	return announcement, nil
}

// List returns all announcements, newest first
func (r *AnnouncementRepository) List(ctx context.Context) ([]*models.Announcement, error) {
	query := `
		SELECT a.id, a.title, a.content, a.audience, a.author_id, u.name, a.created_at
		FROM announcements a
		LEFT JOIN users u ON u.id = a.author_id
		ORDER BY a.created_at DESC, a.id DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	announcements := make([]*models.Announcement, 0)
	for rows.Next() {
		a := &models.Announcement{}
		var authorID sql.NullInt64

		if err := rows.Scan(
			&a.ID,
			&a.Title,
			&a.Content,
			&a.Audience,
			&authorID,
			&a.AuthorName,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}

		if authorID.Valid {
			id := authorID.Int64
			a.AuthorID = &id
		}
		announcements = append(announcements, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate announcements: %w", err)
	}
	return announcements, nil
}

// Delete removes an announcement
func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM announcements WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete announcement: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("announcement deleted", zap.Int64("id", id))
	return nil
}
