package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/smart-city-assistant/services"
	"github.com/upb/smart-city-assistant/services/policy"
	"go.uber.org/zap"
)

// MockPolicyService is a mock implementation of PolicyService
type MockPolicyService struct {
	mock.Mock
}

func (m *MockPolicyService) Summarize(ctx context.Context, text, style string) (*policy.Summary, error) {
	args := m.Called(ctx, text, style)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*policy.Summary), args.Error(1)
}

func (m *MockPolicyService) SummarizeFile(ctx context.Context, filename string, content []byte, style string) (*policy.Summary, error) {
	args := m.Called(ctx, filename, content, style)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*policy.Summary), args.Error(1)
}

func multipartUpload(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPolicyHandleSummarize(t *testing.T) {
	t.Run("summarizes", func(t *testing.T) {
		svc := new(MockPolicyService)
		svc.On("Summarize", mock.Anything, "Bikes lanes on main avenues.", "executive").
			Return(&policy.Summary{OriginalLength: 28, Summary: "More bike lanes.", SummaryType: "executive", Status: "success"}, nil)

		w := httptest.NewRecorder()
		NewPolicyHandler(svc, zap.NewNop()).HandleSummarize(w,
			jsonRequest(http.MethodPost, "/api/policy/summarize", `{"text":"Bikes lanes on main avenues.","summary_type":"executive"}`))

		require.Equal(t, http.StatusOK, w.Code)
		var resp policy.Summary
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "More bike lanes.", resp.Summary)
		assert.Equal(t, 28, resp.OriginalLength)
	})

	t.Run("unknown summary type", func(t *testing.T) {
		svc := new(MockPolicyService)

		w := httptest.NewRecorder()
		NewPolicyHandler(svc, zap.NewNop()).HandleSummarize(w,
			jsonRequest(http.MethodPost, "/api/policy/summarize", `{"text":"x","summary_type":"poetic"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeErrorBody(t, w).Fields, "summary_type")
	})

	t.Run("empty text", func(t *testing.T) {
		svc := new(MockPolicyService)
		svc.On("Summarize", mock.Anything, "", "").Return(nil, services.NewValidation("Policy text cannot be empty"))

		w := httptest.NewRecorder()
		NewPolicyHandler(svc, zap.NewNop()).HandleSummarize(w, jsonRequest(http.MethodPost, "/api/policy/summarize", `{"text":""}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Policy text cannot be empty", decodeErrorBody(t, w).Detail)
	})
}

func TestPolicyHandleSummarizeFile(t *testing.T) {
	t.Run("text upload", func(t *testing.T) {
		content := []byte("Residents must separate organic waste.")
		svc := new(MockPolicyService)
		svc.On("SummarizeFile", mock.Anything, "waste.txt", content, "technical").
			Return(&policy.Summary{Summary: "Separate organics.", SummaryType: "technical", Status: "success"}, nil)

		w := httptest.NewRecorder()
		NewPolicyHandler(svc, zap.NewNop()).HandleSummarizeFile(w,
			multipartUpload(t, "/api/policy/summarize-file?summary_type=technical", "waste.txt", content))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unsupported type from service", func(t *testing.T) {
		svc := new(MockPolicyService)
		svc.On("SummarizeFile", mock.Anything, "plan.pdf", mock.Anything, "").
			Return(nil, services.NewValidation("Only .txt files are currently supported"))

		w := httptest.NewRecorder()
		NewPolicyHandler(svc, zap.NewNop()).HandleSummarizeFile(w, multipartUpload(t, "/api/policy/summarize-file", "plan.pdf", []byte("%PDF")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Only .txt files are currently supported", decodeErrorBody(t, w).Detail)
	})

	t.Run("missing file", func(t *testing.T) {
		svc := new(MockPolicyService)

		w := httptest.NewRecorder()
		NewPolicyHandler(svc, zap.NewNop()).HandleSummarizeFile(w, multipartUpload(t, "/api/policy/summarize-file", "", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "file is required", decodeErrorBody(t, w).Detail)
	})

	t.Run("oversized body", func(t *testing.T) {
		svc := new(MockPolicyService)
		big := bytes.Repeat([]byte("a"), policy.MaxUploadBytes+multipartOverhead+1)

		w := httptest.NewRecorder()
		NewPolicyHandler(svc, zap.NewNop()).HandleSummarizeFile(w, multipartUpload(t, "/api/policy/summarize-file", "big.txt", big))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "SummarizeFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPolicyHandleCategories(t *testing.T) {
	w := httptest.NewRecorder()
	NewPolicyHandler(new(MockPolicyService), zap.NewNop()).HandleCategories(w, httptest.NewRequest(http.MethodGet, "/api/policy/categories", nil))

	var body struct {
		Categories []policy.Category `json:"categories"`
		Count      int               `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 8, body.Count)
	assert.Len(t, body.Categories, 8)
}
