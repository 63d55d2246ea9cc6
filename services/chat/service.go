// Package chat runs assistant conversations and keeps their history.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/upb/smart-city-assistant/internal/redact"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/repositories"
	"github.com/upb/smart-city-assistant/services"
	"go.uber.org/zap"
)

// History sizes
const (
	AskHistoryLimit = 50
	HistoryLimit    = 100
)

// Answerer produces an assistant reply; it never fails
type Answerer interface {
	AnswerQuestion(ctx context.Context, question string) string
}

// Exchange is the outcome of Ask
type Exchange struct {
	Response string
	History  []*models.ChatMessage
}

// Service handles chat operations
type Service struct {
	repo      repositories.ChatRepository
	assistant Answerer
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new chat service
func NewService(repo repositories.ChatRepository, assistant Answerer, logger *zap.Logger) *Service {
	return &Service{repo: repo, assistant: assistant, logger: logger, now: time.Now}
}

// Ask stores the question, asks the assistant, stores the reply and returns
// it with the most recent history.
func (s *Service) Ask(ctx context.Context, subject *models.Subject, message string) (*Exchange, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, services.NewValidation("Message cannot be empty")
	}

	s.logger.Debug("chat question received",
		zap.Int64("subject_id", subject.ID),
		zap.String("preview", redact.Preview(message, 80)))

	if err := s.append(ctx, subject.ID, models.SenderUser, message); err != nil {
		return nil, services.WrapInternal("failed to log chat message", err)
	}

	reply := s.assistant.AnswerQuestion(ctx, message)

	if err := s.append(ctx, subject.ID, models.SenderAssistant, reply); err != nil {
		return nil, services.WrapInternal("failed to persist assistant reply", err)
	}

	history, err := s.repo.Recent(ctx, subject.ID, AskHistoryLimit)
	if err != nil {
		return nil, services.WrapInternal("failed to load chat history", err)
	}

	return &Exchange{Response: reply, History: history}, nil
}

func (s *Service) append(ctx context.Context, userID int64, sender, text string) error {
	return s.repo.Append(ctx, &models.ChatMessage{
		UserID:    userID,
		Sender:    sender,
		Message:   text,
		CreatedAt: s.now().UTC(),
	})
}

// History returns up to HistoryLimit messages in chronological order
func (s *Service) History(ctx context.Context, subject *models.Subject) ([]*models.ChatMessage, error) {
	history, err := s.repo.Recent(ctx, subject.ID, HistoryLimit)
	if err != nil {
		return nil, services.WrapInternal("failed to load chat history", err)
	}
	return history, nil
}

// Clear deletes the subject's conversation
func (s *Service) Clear(ctx context.Context, subject *models.Subject) error {
	if err := s.repo.DeleteAll(ctx, subject.ID); err != nil {
		return services.WrapInternal("failed to delete history", err)
	}
	s.logger.Info("chat history cleared", zap.Int64("subject_id", subject.ID))
	return nil
}
