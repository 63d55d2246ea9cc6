package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/repositories"
	"github.com/upb/smart-city-assistant/services"
	"go.uber.org/zap"
)

type MockFeedbackRepository struct {
	mock.Mock
}

func (m *MockFeedbackRepository) Create(ctx context.Context, f *models.Feedback) error {
	args := m.Called(ctx, f)
	if args.Error(0) == nil {
		f.ID = 42
	}
	return args.Error(0)
}

func (m *MockFeedbackRepository) GetByID(ctx context.Context, id int64) (*models.Feedback, error) {
	args := m.Called(ctx, id)
	if f := args.Get(0); f != nil {
		return f.(*models.Feedback), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFeedbackRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Feedback, error) {
	args := m.Called(ctx, userID)
	if l := args.Get(0); l != nil {
		return l.([]*models.Feedback), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFeedbackRepository) ListForAuthority(ctx context.Context, scope models.FeedbackScope) ([]*models.Feedback, error) {
	args := m.Called(ctx, scope)
	if l := args.Get(0); l != nil {
		return l.([]*models.Feedback), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFeedbackRepository) UpdateStatus(ctx context.Context, id int64, status models.FeedbackStatus, notes *string, authorityID int64, at time.Time) error {
	args := m.Called(ctx, id, status, notes, authorityID, at)
	return args.Error(0)
}

func (m *MockFeedbackRepository) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*models.FeedbackStats), args.Error(1)
	}
	return nil, args.Error(1)
}

// routeFinder implements the single subject lookup the service uses
type routeFinder struct {
	repositories.SubjectRepository
	authorities map[string]*models.Subject
	err         error
	calls       int
}

func (r *routeFinder) FirstActiveAuthorityForRoute(_ context.Context, route string) (*models.Subject, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if a, ok := r.authorities[route]; ok {
		return a, nil
	}
	return nil, repositories.ErrNotFound
}

func strPtr(s string) *string { return &s }

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *MockFeedbackRepository, finder *routeFinder) *Service {
	svc := NewService(repo, finder, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func citizen() *models.Subject {
	return &models.Subject{ID: 1, Name: "Ada", PhoneNumber: "555-0100", Role: models.RoleUser, IsActive: true}
}

func authority(id int64, route string) *models.Subject {
	return &models.Subject{ID: id, Name: "Officer", Role: models.RoleAuthority, FeedbackRoute: strPtr(route), IsActive: true}
}

func TestService_Submit_AssignsFirstAuthorityOnRoute(t *testing.T) {
	repo := new(MockFeedbackRepository)
	finder := &routeFinder{authorities: map[string]*models.Subject{"Sanitation": authority(4, "Sanitation")}}
	svc := newTestService(repo, finder)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(f *models.Feedback) bool {
		return f.AuthorityID != nil && *f.AuthorityID == 4 &&
			f.Status == models.FeedbackReported &&
			f.UserID == 1 &&
			f.CreatedAt.Equal(fixedNow)
	})).Return(nil)

	got, err := svc.Submit(context.Background(), citizen(), Submission{
		Category:      "Waste",
		Message:       "  Overflowing bins on 5th  ",
		AuthorityType: strPtr("Sanitation"),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "Overflowing bins on 5th", got.Message)
	assert.Equal(t, "Ada", *got.CitizenName)
	assert.Equal(t, "Officer", *got.AuthorityName)
	assert.Equal(t, 1, finder.calls)
	repo.AssertExpectations(t)
}

func TestService_Submit_NoAuthorityOnRouteLeavesUnassigned(t *testing.T) {
	repo := new(MockFeedbackRepository)
	finder := &routeFinder{}
	svc := newTestService(repo, finder)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(f *models.Feedback) bool {
		return f.AuthorityID == nil && *f.AuthorityType == "Parks"
	})).Return(nil)

	got, err := svc.Submit(context.Background(), citizen(), Submission{
		Category: "Parks", Message: "Broken swing", AuthorityType: strPtr("Parks"),
	})

	require.NoError(t, err)
	assert.Nil(t, got.AuthorityID)
	repo.AssertExpectations(t)
}

func TestService_Submit_WithoutAuthorityTypeSkipsLookup(t *testing.T) {
	repo := new(MockFeedbackRepository)
	finder := &routeFinder{}
	svc := newTestService(repo, finder)

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Submit(context.Background(), citizen(), Submission{Category: "Other", Message: "Hello"})

	require.NoError(t, err)
	assert.Zero(t, finder.calls)
}

func TestService_Submit_Errors(t *testing.T) {
	t.Run("route lookup fails", func(t *testing.T) {
		repo := new(MockFeedbackRepository)
		svc := newTestService(repo, &routeFinder{err: errors.New("db down")})

		_, err := svc.Submit(context.Background(), citizen(), Submission{Category: "x", Message: "y", AuthorityType: strPtr("Roads")})

		assert.True(t, services.IsInternalError(err))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("insert fails", func(t *testing.T) {
		repo := new(MockFeedbackRepository)
		svc := newTestService(repo, &routeFinder{})
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		_, err := svc.Submit(context.Background(), citizen(), Submission{Category: "x", Message: "y"})

		assert.True(t, services.IsInternalError(err))
	})
}

func TestScopeFor(t *testing.T) {
	solved := models.FeedbackSolved

	tests := []struct {
		name      string
		authority *models.Subject
		status    *models.FeedbackStatus
		want      models.FeedbackScope
	}{
		{
			name:      "mayor sees all",
			authority: authority(9, " Mayor's Office "),
			want:      models.FeedbackScope{AuthorityID: 9, Route: "Mayor's Office", All: true},
		},
		{
			name:      "routed authority",
			authority: authority(4, "Sanitation"),
			status:    &solved,
			want:      models.FeedbackScope{AuthorityID: 4, Route: "Sanitation", Status: &solved},
		},
		{
			name:      "no route",
			authority: &models.Subject{ID: 5, Role: models.RoleAuthority},
			want:      models.FeedbackScope{AuthorityID: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScopeFor(tt.authority, tt.status))
		})
	}
}

func TestService_ListForAuthority(t *testing.T) {
	repo := new(MockFeedbackRepository)
	svc := newTestService(repo, &routeFinder{})
	items := []*models.Feedback{{ID: 2}, {ID: 1}}

	repo.On("ListForAuthority", mock.Anything, models.FeedbackScope{AuthorityID: 4, Route: "Sanitation"}).Return(items, nil)

	got, err := svc.ListForAuthority(context.Background(), authority(4, "Sanitation"), nil)

	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestService_ListMine(t *testing.T) {
	repo := new(MockFeedbackRepository)
	svc := newTestService(repo, &routeFinder{})
	repo.On("ListByUser", mock.Anything, int64(1)).Return([]*models.Feedback{}, nil)

	got, err := svc.ListMine(context.Background(), citizen())

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_UpdateStatus(t *testing.T) {
	notes := strPtr("Crew dispatched")

	t.Run("success reassigns to caller", func(t *testing.T) {
		repo := new(MockFeedbackRepository)
		svc := newTestService(repo, &routeFinder{})
		updated := &models.Feedback{ID: 11, Status: models.FeedbackSolved, AuthorityNotes: notes}

		repo.On("UpdateStatus", mock.Anything, int64(11), models.FeedbackSolved, notes, int64(4), fixedNow).Return(nil)
		repo.On("GetByID", mock.Anything, int64(11)).Return(updated, nil)

		got, err := svc.UpdateStatus(context.Background(), authority(4, "Sanitation"), 11, StatusUpdate{
			Status: models.FeedbackSolved, AuthorityNotes: notes,
		})

		require.NoError(t, err)
		assert.Same(t, updated, got)
		repo.AssertExpectations(t)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := new(MockFeedbackRepository)
		svc := newTestService(repo, &routeFinder{})
		repo.On("UpdateStatus", mock.Anything, int64(99), models.FeedbackInProcess, (*string)(nil), int64(4), fixedNow).
			Return(repositories.ErrNotFound)

		_, err := svc.UpdateStatus(context.Background(), authority(4, ""), 99, StatusUpdate{Status: models.FeedbackInProcess})

		assert.True(t, services.IsNotFoundError(err))
		assert.Equal(t, "Feedback not found", services.PublicMessage(err))
	})
}

func TestService_Stats(t *testing.T) {
	repo := new(MockFeedbackRepository)
	svc := newTestService(repo, &routeFinder{})
	stats := &models.FeedbackStats{Total: 3, Reported: 1, InProcess: 1, Solved: 1}
	repo.On("Stats", mock.Anything).Return(stats, nil)

	got, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, stats, got)
}
