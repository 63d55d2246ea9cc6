package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/services"
	"github.com/upb/smart-city-assistant/services/chat"
	"go.uber.org/zap"
)

// MockChatService is a mock implementation of ChatService
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Ask(ctx context.Context, subject *models.Subject, message string) (*chat.Exchange, error) {
	args := m.Called(ctx, subject, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Exchange), args.Error(1)
}

func (m *MockChatService) History(ctx context.Context, subject *models.Subject) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

func (m *MockChatService) Clear(ctx context.Context, subject *models.Subject) error {
	return m.Called(ctx, subject).Error(0)
}

func TestChatHandleAsk(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns reply and history", func(t *testing.T) {
		svc := new(MockChatService)
		svc.On("Ask", mock.Anything, testCitizen, "When is recycling collected?").Return(&chat.Exchange{
			Response: "Every Thursday.",
			History: []*models.ChatMessage{
				{Sender: "user", Message: "When is recycling collected?", CreatedAt: at},
				{Sender: "assistant", Message: "Every Thursday.", CreatedAt: at},
			},
		}, nil)

		req := withSubject(jsonRequest(http.MethodPost, "/api/chat/ask", `{"message":"When is recycling collected?"}`), testCitizen)
		w := httptest.NewRecorder()
		NewChatHandler(svc, zap.NewNop()).HandleAsk(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp AskResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Every Thursday.", resp.Response)
		assert.Equal(t, "success", resp.Status)
		assert.Len(t, resp.History, 2)
		assert.Equal(t, "assistant", resp.History[1].Sender)
	})

	t.Run("empty message", func(t *testing.T) {
		svc := new(MockChatService)
		svc.On("Ask", mock.Anything, testCitizen, "").Return(nil, services.NewValidation("Message cannot be empty"))

		req := withSubject(jsonRequest(http.MethodPost, "/api/chat/ask", `{"message":""}`), testCitizen)
		w := httptest.NewRecorder()
		NewChatHandler(svc, zap.NewNop()).HandleAsk(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Message cannot be empty", decodeErrorBody(t, w).Detail)
	})
}

func TestChatHandleHistoryAndClear(t *testing.T) {
	svc := new(MockChatService)
	svc.On("History", mock.Anything, testCitizen).Return([]*models.ChatMessage{{Sender: "user", Message: "hi"}}, nil)
	svc.On("Clear", mock.Anything, testCitizen).Return(nil).Once()
	h := NewChatHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleHistory(w, withSubject(httptest.NewRequest(http.MethodGet, "/api/chat/history", nil), testCitizen))
	require.Equal(t, http.StatusOK, w.Code)
	var resp HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "success", resp.Status)

	w = httptest.NewRecorder()
	h.HandleClear(w, withSubject(httptest.NewRequest(http.MethodDelete, "/api/chat/history", nil), testCitizen))
	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestChatHandleClear_StoreFailure(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Clear", mock.Anything, testCitizen).Return(services.WrapInternal("failed to delete history", errors.New("db down")))

	w := httptest.NewRecorder()
	NewChatHandler(svc, zap.NewNop()).HandleClear(w, withSubject(httptest.NewRequest(http.MethodDelete, "/api/chat/history", nil), testCitizen))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeErrorBody(t, w).Detail)
}
