package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/smart-city-assistant/services"
	"github.com/upb/smart-city-assistant/services/ecotips"
	"go.uber.org/zap"
)

// MockEcoTipsService is a mock implementation of EcoTipsService
type MockEcoTipsService struct {
	mock.Mock
}

func (m *MockEcoTipsService) Generate(ctx context.Context, topic string) (*ecotips.Tips, error) {
	args := m.Called(ctx, topic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ecotips.Tips), args.Error(1)
}

func TestEcoTipsHandleGenerate(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(*MockEcoTipsService)
		wantStatus int
		wantDetail string
	}{
		{
			name:   "generated",
			target: "/api/eco-tips/generate?topic=composting",
			setup: func(m *MockEcoTipsService) {
				m.On("Generate", mock.Anything, "composting").Return(&ecotips.Tips{Topic: "composting", Tips: "Start a bin.", Status: "success"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "topic missing",
			target:     "/api/eco-tips/generate",
			setup:      func(*MockEcoTipsService) {},
			wantStatus: http.StatusBadRequest,
			wantDetail: "topic is required",
		},
		{
			name:   "topic blank",
			target: "/api/eco-tips/generate?topic=%20",
			setup: func(m *MockEcoTipsService) {
				m.On("Generate", mock.Anything, " ").Return(nil, services.NewValidation("Topic cannot be empty"))
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Topic cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockEcoTipsService)
			tt.setup(svc)

			w := httptest.NewRecorder()
			NewEcoTipsHandler(svc, zap.NewNop()).HandleGenerate(w, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, decodeErrorBody(t, w).Detail)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestEcoTipsHandlePopularTopics(t *testing.T) {
	w := httptest.NewRecorder()
	NewEcoTipsHandler(new(MockEcoTipsService), zap.NewNop()).HandlePopularTopics(w, httptest.NewRequest(http.MethodGet, "/api/eco-tips/popular-topics", nil))

	var body struct {
		Topics []ecotips.Topic `json:"topics"`
		Count  int             `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 8, body.Count)
	assert.Equal(t, "Energy Conservation", body.Topics[0].Name)
}
