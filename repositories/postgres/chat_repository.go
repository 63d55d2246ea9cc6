package postgres

import (
	"context"
	"fmt"

	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/repositories"
	"go.uber.org/zap"
)

// ChatRepository implements the repositories.ChatRepository interface
type ChatRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB, logger *zap.Logger) repositories.ChatRepository {
	return &ChatRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one message of a conversation
func (r *ChatRepository) Append(ctx context.Context, message *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (user_id, sender, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		message.UserID,
		message.Sender,
		message.Message,
		message.CreatedAt,
	).Scan(&message.ID)

	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest messages, oldest first
func (r *ChatRepository) Recent(ctx context.Context, userID int64, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, user_id, sender, message, created_at FROM (
			SELECT id, user_id, sender, message, created_at
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.ChatMessage, 0)
	for rows.Next() {
		m := &models.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat history: %w", err)
	}
	return messages, nil
}

// DeleteAll clears a user's conversation
func (r *ChatRepository) DeleteAll(ctx context.Context, userID int64) error {
	query := `DELETE FROM chat_messages WHERE user_id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil {
		r.logger.Debug("chat history cleared", zap.Int64("user_id", userID), zap.Int64("deleted", n))
	}
	return nil
}
