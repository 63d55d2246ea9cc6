// Package feedback manages citizen reports and their routing to authorities.
package feedback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/upb/smart-city-assistant/internal/redact"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/repositories"
	"github.com/upb/smart-city-assistant/services"
	"go.uber.org/zap"
)

// Submission is a new citizen report
type Submission struct {
	Category      string
	Message       string
	AuthorityType *string
	Priority      *string
	Location      *string
}

// StatusUpdate is an authority's change to a report
type StatusUpdate struct {
	Status         models.FeedbackStatus
	AuthorityNotes *string
}

// Service handles feedback operations
type Service struct {
	feedback repositories.FeedbackRepository
	subjects repositories.SubjectRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new feedback service
func NewService(feedback repositories.FeedbackRepository, subjects repositories.SubjectRepository, logger *zap.Logger) *Service {
	return &Service{
		feedback: feedback,
		subjects: subjects,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit records a citizen report. When an authority type is given the
// report is assigned to the earliest-registered active authority on that route.
func (s *Service) Submit(ctx context.Context, citizen *models.Subject, in Submission) (*models.Feedback, error) {
	now := s.now().UTC()
	entry := &models.Feedback{
		UserID:        citizen.ID,
		Category:      strings.TrimSpace(in.Category),
		Message:       strings.TrimSpace(in.Message),
		AuthorityType: in.AuthorityType,
		Priority:      in.Priority,
		Location:      in.Location,
		Status:        models.FeedbackReported,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if in.AuthorityType != nil && *in.AuthorityType != "" {
		authority, err := s.subjects.FirstActiveAuthorityForRoute(ctx, *in.AuthorityType)
		switch {
		case err == nil:
			entry.AuthorityID = &authority.ID
			entry.AuthorityName = &authority.Name
		case errors.Is(err, repositories.ErrNotFound):
			s.logger.Debug("no authority for route", zap.String("route", *in.AuthorityType))
		default:
			return nil, services.WrapInternal("failed to route feedback", err)
		}
	}

	if err := s.feedback.Create(ctx, entry); err != nil {
		return nil, services.WrapInternal("failed to save feedback", err)
	}

	entry.CitizenName = &citizen.Name
	entry.CitizenContact = &citizen.PhoneNumber

	s.logger.Info("feedback submitted",
		zap.Int64("feedback_id", entry.ID),
		zap.Int64("subject_id", citizen.ID),
		zap.String("category", entry.Category),
		zap.String("preview", redact.Preview(entry.Message, 80)))
	return entry, nil
}

// ListMine returns the citizen's own reports, newest first
func (s *Service) ListMine(ctx context.Context, citizen *models.Subject) ([]*models.Feedback, error) {
	list, err := s.feedback.ListByUser(ctx, citizen.ID)
	if err != nil {
		return nil, services.WrapInternal("failed to list feedback", err)
	}
	return list, nil
}

// ScopeFor builds the visibility scope of an authority
func ScopeFor(authority *models.Subject, status *models.FeedbackStatus) models.FeedbackScope {
	return models.FeedbackScope{
		AuthorityID: authority.ID,
		Route:       authority.Route(),
		All:         authority.IsMayorsOffice(),
		Status:      status,
	}
}

// ListForAuthority returns reports visible to authority. The mayor's office
// sees everything; other authorities see reports assigned to them, routed
// to their feedback route, or not yet assigned.
func (s *Service) ListForAuthority(ctx context.Context, authority *models.Subject, status *models.FeedbackStatus) ([]*models.Feedback, error) {
	list, err := s.feedback.ListForAuthority(ctx, ScopeFor(authority, status))
	if err != nil {
		return nil, services.WrapInternal("failed to list feedback", err)
	}
	return list, nil
}

// UpdateStatus sets the status and notes and assigns the report to authority
func (s *Service) UpdateStatus(ctx context.Context, authority *models.Subject, id int64, in StatusUpdate) (*models.Feedback, error) {
	err := s.feedback.UpdateStatus(ctx, id, in.Status, in.AuthorityNotes, authority.ID, s.now().UTC())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrFeedbackNotFound
		}
		return nil, services.WrapInternal("failed to update feedback", err)
	}

	updated, err := s.feedback.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrFeedbackNotFound
		}
		return nil, services.WrapInternal("failed to load feedback", err)
	}

	s.logger.Info("feedback status updated",
		zap.Int64("feedback_id", id),
		zap.String("status", string(in.Status)),
		zap.Int64("subject_id", authority.ID))
	return updated, nil
}

// Stats returns report counts by status
func (s *Service) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	stats, err := s.feedback.Stats(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to count feedback", err)
	}
	return stats, nil
}
