// Package announcements lets authorities publish notices to residents.
package announcements

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/repositories"
	"github.com/upb/smart-city-assistant/services"
	"go.uber.org/zap"
)

// Client-facing refusal messages
const (
	msgUnownedDelete = "Only mayor's office can delete unowned announcements"
	msgForeignDelete = "Cannot delete announcement created by another authority"
)

// Draft is a new announcement
type Draft struct {
	Title    string
	Content  string
	Audience *string
}

// Service handles announcement operations
type Service struct {
	repo   repositories.AnnouncementRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new announcement service
func NewService(repo repositories.AnnouncementRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// List returns all announcements, newest first
func (s *Service) List(ctx context.Context) ([]*models.Announcement, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list announcements", err)
	}
	return list, nil
}

// Create publishes an announcement authored by authority
func (s *Service) Create(ctx context.Context, authority *models.Subject, in Draft) (*models.Announcement, error) {
	announcement := &models.Announcement{
		Title:      strings.TrimSpace(in.Title),
		Content:    strings.TrimSpace(in.Content),
		Audience:   in.Audience,
		AuthorID:   &authority.ID,
		AuthorName: &authority.Name,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, services.WrapInternal("failed to create announcement", err)
	}

	s.logger.Info("announcement published",
		zap.Int64("announcement_id", announcement.ID),
		zap.Int64("subject_id", authority.ID))
	return announcement, nil
}

// Delete removes an announcement. Authors may delete their own; the
// mayor's office may delete any, including ones without an author.
func (s *Service) Delete(ctx context.Context, authority *models.Subject, id int64) error {
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrAnnouncementNotFound
		}
		return services.WrapInternal("failed to load announcement", err)
	}

	if err := CanDelete(authority, announcement); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrAnnouncementNotFound
		}
		return services.WrapInternal("failed to delete announcement", err)
	}

	s.logger.Info("announcement deleted",
		zap.Int64("announcement_id", id),
		zap.Int64("subject_id", authority.ID))
	return nil
}

// CanDelete applies the ownership rule for deleting announcement
func CanDelete(authority *models.Subject, announcement *models.Announcement) error {
	if authority.IsMayorsOffice() {
		return nil
	}
	if announcement.AuthorID == nil {
		return services.NewForbidden(msgUnownedDelete)
	}
	if *announcement.AuthorID != authority.ID {
		return services.NewForbidden(msgForeignDelete)
	}
	return nil
}
