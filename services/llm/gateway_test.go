package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProvider emulates the identity, catalog and generation endpoints
type fakeProvider struct {
	mu sync.Mutex

	iamStatus    int
	catalog      []string
	catalogCalls int32

	// unsupported models answer 404 model_not_supported
	unsupported map[string]bool
	genStatus   int
	genText     string
	genCalls    []generationRequest
	authHeaders []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		iamStatus:   http.StatusOK,
		genStatus:   http.StatusOK,
		genText:     "generated",
		unsupported: map[string]bool{},
	}
}

func (p *fakeProvider) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/identity/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ibm:params:oauth:grant-type:apikey", r.PostForm.Get("grant_type"))
		assert.Equal(t, "test-api-key", r.PostForm.Get("apikey"))

		p.mu.Lock()
		status := p.iamStatus
		p.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "bearer-123", "expires_in": 3600})
	})

	mux.HandleFunc("/ml/v1/foundation_model_specs", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.catalogCalls, 1)
		assert.Equal(t, "2024-05-01", r.URL.Query().Get("version"))
		assert.Equal(t, "Bearer bearer-123", r.Header.Get("Authorization"))

		p.mu.Lock()
		resources := make([]interface{}, 0, len(p.catalog)+1)
		for _, id := range p.catalog {
			resources = append(resources, map[string]string{"model_id": id})
		}
		p.mu.Unlock()
		resources = append(resources, "not-an-object")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"resources": resources})
	})

	mux.HandleFunc("/ml/v1-beta/generation/text", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-05-01", r.URL.Query().Get("version"))

		var req generationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		p.mu.Lock()
		p.genCalls = append(p.genCalls, req)
		p.authHeaders = append(p.authHeaders, r.Header.Get("Authorization"))
		unsupported := p.unsupported[req.ModelID]
		status, text := p.genStatus, p.genText
		p.mu.Unlock()

		if unsupported {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[{"code":"model_not_supported","message":"Model '` + req.ModelID + `' is not supported"}]}`))
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"errors":[{"code":"internal_error"}]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]string{{"generated_text": text}},
		})
	})

	return mux
}

func newTestGateway(t *testing.T, p *fakeProvider, mutate func(*Config)) *Gateway {
	t.Helper()
	srv := httptest.NewServer(p.handler(t))
	t.Cleanup(srv.Close)

	cfg := Config{
		APIKey:          "test-api-key",
		ProjectID:       "project-1",
		BaseURL:         srv.URL,
		IAMURL:          srv.URL + "/identity/token",
		PreferredModel:  "m1",
		FallbackRanking: []string{"m1", "m2", "m3"},
		IAMTimeout:      2 * time.Second,
		CatalogTimeout:  2 * time.Second,
		GenerateTimeout: 2 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewGateway(context.Background(), cfg, srv.Client(), zap.NewNop())
}

func TestSelectModel(t *testing.T) {
	set := func(ids ...string) map[string]struct{} {
		m := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			m[id] = struct{}{}
		}
		return m
	}
	ranking := []string{"m1", "m2", "m3"}

	tests := []struct {
		name      string
		preferred string
		available map[string]struct{}
		want      string
		wantOK    bool
	}{
		{"first ranked member present", "m1", set("m2", "m3"), "m2", true},
		{"preferred kept", "m3", set("m2", "m3"), "m3", true},
		{"empty set leaves preferred", "m1", set(), "m1", false},
		{"nil set leaves preferred", "m1", nil, "m1", false},
		{"no ranked member present", "m1", set("x", "y"), "m1", false},
		{"preferred outside ranking", "custom", set("custom"), "custom", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectModel(tt.preferred, ranking, tt.available)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNewGateway_Initialize(t *testing.T) {
	t.Run("selects first available fallback", func(t *testing.T) {
		p := newFakeProvider()
		p.catalog = []string{"m2", "m3"}

		g := newTestGateway(t, p, nil)

		assert.True(t, g.HasCredential())
		assert.Equal(t, "m2", g.ActiveModel())
		assert.Equal(t, []string{"m2", "m3"}, g.AvailableModels())
	})

	t.Run("no api key skips exchange", func(t *testing.T) {
		p := newFakeProvider()
		g := newTestGateway(t, p, func(c *Config) { c.APIKey = "" })

		assert.False(t, g.HasCredential())
		assert.Equal(t, "m1", g.ActiveModel())
		assert.Zero(t, atomic.LoadInt32(&p.catalogCalls))
	})

	t.Run("credential exchange failure is not fatal", func(t *testing.T) {
		p := newFakeProvider()
		p.iamStatus = http.StatusBadRequest

		g := newTestGateway(t, p, nil)

		assert.False(t, g.HasCredential())
		assert.Equal(t, "m1", g.ActiveModel())
		assert.Empty(t, g.AvailableModels())

		text, ok := g.Generate(context.Background(), "hello", 50)
		assert.False(t, ok)
		assert.Empty(t, text)
	})

	t.Run("no matching fallback keeps preferred", func(t *testing.T) {
		p := newFakeProvider()
		p.catalog = []string{"other"}

		g := newTestGateway(t, p, nil)

		assert.Equal(t, "m1", g.ActiveModel())
	})
}

func TestGateway_Generate(t *testing.T) {
	t.Run("sends the generation payload", func(t *testing.T) {
		p := newFakeProvider()
		p.catalog = []string{"m1"}
		p.genText = "Use public transport."

		g := newTestGateway(t, p, nil)
		text, ok := g.Generate(context.Background(), "prompt text", 123)

		require.True(t, ok)
		assert.Equal(t, "Use public transport.", text)
		require.Len(t, p.genCalls, 1)
		call := p.genCalls[0]
		assert.Equal(t, "m1", call.ModelID)
		assert.Equal(t, "prompt text", call.Input)
		assert.Equal(t, "project-1", call.ProjectID)
		assert.Equal(t, generationParameters{
			DecodingMethod:    "greedy",
			MaxNewTokens:      123,
			Temperature:       0.7,
			TopK:              50,
			TopP:              1.0,
			RepetitionPenalty: 1.1,
		}, call.Parameters)
		assert.Equal(t, "Bearer bearer-123", p.authHeaders[0])
	})

	t.Run("missing project id", func(t *testing.T) {
		p := newFakeProvider()
		p.catalog = []string{"m1"}

		g := newTestGateway(t, p, func(c *Config) { c.ProjectID = "" })
		_, ok := g.Generate(context.Background(), "prompt", 10)

		assert.False(t, ok)
		assert.Empty(t, p.genCalls)
	})

	t.Run("general failure is not retried", func(t *testing.T) {
		p := newFakeProvider()
		p.catalog = []string{"m1", "m2"}
		p.genStatus = http.StatusInternalServerError

		g := newTestGateway(t, p, nil)
		catalogCalls := atomic.LoadInt32(&p.catalogCalls)

		_, ok := g.Generate(context.Background(), "prompt", 10)

		assert.False(t, ok)
		assert.Len(t, p.genCalls, 1)
		assert.Equal(t, catalogCalls, atomic.LoadInt32(&p.catalogCalls))
	})

	t.Run("empty text counts as none", func(t *testing.T) {
		p := newFakeProvider()
		p.catalog = []string{"m1"}
		p.genText = ""

		g := newTestGateway(t, p, nil)
		_, ok := g.Generate(context.Background(), "prompt", 10)

		assert.False(t, ok)
	})
}

func TestGateway_Generate_ModelNotSupportedRetry(t *testing.T) {
	p := newFakeProvider()
	p.catalog = []string{"m1", "m2"}
	p.genText = "second call text"

	g := newTestGateway(t, p, nil)
	require.Equal(t, "m1", g.ActiveModel())

	// the provider retires m1 after startup
	p.mu.Lock()
	p.unsupported["m1"] = true
	p.catalog = []string{"m2", "m3"}
	p.mu.Unlock()

	text := NewAssistant(g).AnswerQuestion(context.Background(), "How do I recycle batteries?")

	assert.Equal(t, "second call text", text)
	require.Len(t, p.genCalls, 2)
	assert.Equal(t, "m1", p.genCalls[0].ModelID)
	assert.Equal(t, "m2", p.genCalls[1].ModelID)
	assert.Equal(t, "m2", g.ActiveModel())
	assert.Equal(t, []string{"m2", "m3"}, g.AvailableModels())
}

func TestGateway_Generate_ModelNotSupportedWithoutAlternative(t *testing.T) {
	p := newFakeProvider()
	p.catalog = []string{"m1"}

	g := newTestGateway(t, p, nil)

	p.mu.Lock()
	p.unsupported["m1"] = true
	p.mu.Unlock()

	_, ok := g.Generate(context.Background(), "prompt", 10)

	assert.False(t, ok)
	assert.Len(t, p.genCalls, 1, "no retry when selection does not change")
	assert.Equal(t, "m1", g.ActiveModel())
}

func TestGateway_Generate_RetryIsBounded(t *testing.T) {
	p := newFakeProvider()
	p.catalog = []string{"m1", "m2", "m3"}

	g := newTestGateway(t, p, nil)

	p.mu.Lock()
	p.unsupported["m1"] = true
	p.unsupported["m2"] = true
	p.catalog = []string{"m2", "m3"}
	p.mu.Unlock()

	_, ok := g.Generate(context.Background(), "prompt", 10)

	assert.False(t, ok)
	require.Len(t, p.genCalls, 2, "exactly one retry")
	assert.Equal(t, "m2", p.genCalls[1].ModelID)
}

func TestGateway_Refresh(t *testing.T) {
	p := newFakeProvider()
	p.catalog = []string{"m1"}

	g := newTestGateway(t, p, nil)
	assert.Equal(t, "m1", g.ActiveModel())

	p.mu.Lock()
	p.catalog = []string{"m3"}
	p.mu.Unlock()

	require.NoError(t, g.Refresh(context.Background()))
	assert.Equal(t, "m3", g.ActiveModel())

	p.mu.Lock()
	p.iamStatus = http.StatusUnauthorized
	p.mu.Unlock()
	assert.Error(t, g.Refresh(context.Background()))
	assert.True(t, g.HasCredential(), "current credential kept")
	assert.Equal(t, "m3", g.ActiveModel())
	assert.Equal(t, []string{"m3"}, g.AvailableModels())
}

func TestGateway_FailedRefreshKeepsGenerating(t *testing.T) {
	p := newFakeProvider()
	p.catalog = []string{"m1", "m2"}
	g := newTestGateway(t, p, nil)

	text, ok := g.Generate(context.Background(), "prompt", 10)
	require.True(t, ok)
	assert.Equal(t, "generated", text)

	p.mu.Lock()
	p.iamStatus = http.StatusServiceUnavailable
	p.mu.Unlock()

	err := g.Refresh(context.Background())
	require.Error(t, err)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CodeNoCredential, perr.Code)

	text, ok = g.Generate(context.Background(), "prompt", 10)
	assert.True(t, ok)
	assert.Equal(t, "generated", text)
	assert.Equal(t, "Bearer bearer-123", p.authHeaders[len(p.authHeaders)-1])
}

func TestGateway_RefreshWithoutKeyIsNoop(t *testing.T) {
	p := newFakeProvider()
	g := newTestGateway(t, p, func(c *Config) { c.APIKey = "" })

	require.NoError(t, g.Refresh(context.Background()))
	assert.False(t, g.HasCredential())
	assert.Zero(t, atomic.LoadInt32(&p.catalogCalls))
}

func TestClassifyHTTPError(t *testing.T) {
	err := classifyHTTPError(404, []byte(`{"code":"model_not_supported"}`))
	assert.True(t, IsModelNotSupported(err))

	err = classifyHTTPError(404, []byte(`{"code":"not_found"}`))
	assert.False(t, IsModelNotSupported(err))

	err = classifyHTTPError(400, []byte(`model_not_supported`))
	assert.False(t, IsModelNotSupported(err), "only 404 counts")

	long := classifyHTTPError(500, []byte(strings.Repeat("x", 2000)))
	assert.Less(t, len(long.Error()), 700)
}
