// Package llm is the gateway to the hosted text-generation service. It
// holds the bearer credential and the active model, and falls back across a
// ranked model list when the provider rejects the configured one.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// APIVersion is the provider API version sent with every call
	APIVersion = "2024-05-01"

	// DefaultModel is used when no model is configured
	DefaultModel = "ibm/granite-3-8b-instruct"

	defaultBaseURL   = "https://us-south.ml.cloud.ibm.com"
	defaultIAMURL    = "https://iam.cloud.ibm.com/identity/token"
	maxResponseBytes = 4 << 20
)

// DefaultFallbackRanking lists instruct models, most preferred first
var DefaultFallbackRanking = []string{
	"ibm/granite-3-8b-instruct",
	"ibm/granite-3-3-8b-instruct",
	"ibm/granite-3-2-8b-instruct",
	"ibm/granite-3-2b-instruct",
}

// Config holds the gateway settings
type Config struct {
	APIKey          string
	ProjectID       string
	BaseURL         string
	IAMURL          string
	PreferredModel  string
	FallbackRanking []string
	IAMTimeout      time.Duration
	CatalogTimeout  time.Duration
	GenerateTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.IAMURL == "" {
		c.IAMURL = defaultIAMURL
	}
	if c.PreferredModel == "" {
		c.PreferredModel = DefaultModel
	}
	if len(c.FallbackRanking) == 0 {
		c.FallbackRanking = DefaultFallbackRanking
	}
	if c.IAMTimeout <= 0 {
		c.IAMTimeout = 15 * time.Second
	}
	if c.CatalogTimeout <= 0 {
		c.CatalogTimeout = 20 * time.Second
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 30 * time.Second
	}
}

// Status is a snapshot of the gateway state
type Status struct {
	HasCredential   bool   `json:"has_credential"`
	ActiveModel     string `json:"active_model"`
	AvailableModels int    `json:"available_models"`
	ProjectID       bool   `json:"project_configured"`
}

// Gateway calls the remote generation service. It is safe for concurrent use.
type Gateway struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger

	mu          sync.RWMutex
	token       string
	activeModel string
	available   map[string]struct{}
}

// NewGateway builds a gateway and runs Initialize. Initialization failures
// are logged and leave the gateway without a credential.
func NewGateway(ctx context.Context, cfg Config, client *http.Client, logger *zap.Logger) *Gateway {
	cfg.applyDefaults()
	if client == nil {
		client = &http.Client{}
	}

	g := &Gateway{
		cfg:         cfg,
		client:      client,
		logger:      logger,
		activeModel: cfg.PreferredModel,
		available:   map[string]struct{}{},
	}
	g.Initialize(ctx)
	return g
}

// Initialize obtains a credential, loads the catalog and selects a model.
// Any failure leaves the gateway without a credential.
func (g *Gateway) Initialize(ctx context.Context) {
	token := ""
	if g.cfg.APIKey == "" {
		g.logger.Warn("watsonx api key is not configured; generation disabled")
	} else {
		t, err := g.exchangeAPIKey(ctx)
		if err != nil {
			g.logger.Error("failed to obtain watsonx credential", zap.Error(err))
		} else {
			token = t
		}
	}

	available := map[string]struct{}{}
	if token != "" {
		available = g.loadCatalog(ctx, token, available)
	}

	g.install(token, available)
}

// Refresh exchanges the API key again and reloads the catalog. When the
// exchange fails the current credential and catalog stay in place.
func (g *Gateway) Refresh(ctx context.Context) error {
	if g.cfg.APIKey == "" {
		return nil
	}

	token, err := g.exchangeAPIKey(ctx)
	if err != nil {
		g.logger.Warn("credential refresh failed; keeping current credential",
			zap.Bool("has_credential", g.HasCredential()),
			zap.Error(err))
		return newProviderError(CodeNoCredential, "credential refresh failed", 0, err)
	}

	g.mu.RLock()
	current := g.available
	g.mu.RUnlock()

	g.install(token, g.loadCatalog(ctx, token, current))
	return nil
}

// loadCatalog fetches the catalog, returning fallback when the call fails
func (g *Gateway) loadCatalog(ctx context.Context, token string, fallback map[string]struct{}) map[string]struct{} {
	catalog, err := g.fetchCatalog(ctx, token)
	if err != nil {
		g.logger.Warn("unable to fetch model catalog", zap.Error(err))
		return fallback
	}
	return catalog
}

func (g *Gateway) install(token string, available map[string]struct{}) {
	g.mu.Lock()
	g.token = token
	g.available = available
	if len(available) > 0 {
		// a fresh catalog lets the configured model win again
		g.activeModel = g.cfg.PreferredModel
	}
	g.selectLocked()
	model := g.activeModel
	g.mu.Unlock()

	g.logger.Info("language model gateway initialized",
		zap.Bool("has_credential", token != ""),
		zap.Int("available_models", len(available)),
		zap.String("model_id", model))
}

// ActiveModel returns the model identifier used for generation
func (g *Gateway) ActiveModel() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.activeModel
}

// HasCredential reports whether a bearer credential is held
func (g *Gateway) HasCredential() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != ""
}

// AvailableModels returns the discovered availability set, sorted
func (g *Gateway) AvailableModels() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	models := make([]string, 0, len(g.available))
	for m := range g.available {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// Status returns a snapshot for health reporting
func (g *Gateway) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Status{
		HasCredential:   g.token != "",
		ActiveModel:     g.activeModel,
		AvailableModels: len(g.available),
		ProjectID:       g.cfg.ProjectID != "",
	}
}

// SelectModel keeps preferred when available, otherwise returns the first
// ranked model that is available. With an empty availability set, or when
// nothing matches, preferred is returned with ok=false.
func SelectModel(preferred string, ranking []string, available map[string]struct{}) (model string, ok bool) {
	if len(available) == 0 {
		return preferred, false
	}
	if _, found := available[preferred]; found {
		return preferred, true
	}
	for _, candidate := range ranking {
		if _, found := available[candidate]; found {
			return candidate, true
		}
	}
	return preferred, false
}

// selectLocked must be called with mu held for writing
func (g *Gateway) selectLocked() {
	if g.token == "" || len(g.available) == 0 {
		return
	}

	previous := g.activeModel
	model, ok := SelectModel(previous, g.cfg.FallbackRanking, g.available)
	if !ok {
		g.logger.Warn("no fallback model available; requests will keep failing",
			zap.String("model_id", previous))
		return
	}
	if model != previous {
		g.logger.Info("requested model unavailable; using fallback",
			zap.String("requested_model", previous),
			zap.String("model_id", model))
	}
	g.activeModel = model
}

// reselect refreshes the catalog and reruns selection. It reports whether
// the active model differs from failedModel afterwards.
func (g *Gateway) reselect(ctx context.Context, failedModel string) (string, bool) {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()

	catalog, err := g.fetchCatalog(ctx, token)
	if err != nil {
		g.logger.Warn("unable to refresh model catalog", zap.Error(err))
		catalog = map[string]struct{}{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.available = catalog
	g.selectLocked()
	return g.activeModel, g.activeModel != failedModel
}

type generationParameters struct {
	DecodingMethod    string  `json:"decoding_method"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	TopK              int     `json:"top_k"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

type generationRequest struct {
	ModelID    string               `json:"model_id"`
	Input      string               `json:"input"`
	ProjectID  string               `json:"project_id"`
	Parameters generationParameters `json:"parameters"`
}

type generationResponse struct {
	Results []struct {
		GeneratedText string `json:"generated_text"`
	} `json:"results"`
}

// Generate returns generated text, or ok=false when no text could be
// produced. A model rejection triggers one catalog refresh and, only if
// that changes the active model, one retry.
func (g *Gateway) Generate(ctx context.Context, prompt string, maxTokens int) (string, bool) {
	g.mu.RLock()
	token, model := g.token, g.activeModel
	g.mu.RUnlock()

	if token == "" {
		g.logger.Warn("generation skipped: no credential")
		return "", false
	}
	if g.cfg.ProjectID == "" {
		g.logger.Warn("generation skipped: project id missing")
		return "", false
	}

	text, err := g.generate(ctx, token, model, prompt, maxTokens)
	if err == nil {
		return text, text != ""
	}

	if !IsModelNotSupported(err) {
		g.logger.Error("generation failed", zap.String("model_id", model), zap.Error(err))
		return "", false
	}

	next, changed := g.reselect(ctx, model)
	if !changed {
		g.logger.Error("model rejected and no alternative selected", zap.String("model_id", model))
		return "", false
	}

	g.logger.Info("retrying generation with fallback model",
		zap.String("rejected_model", model),
		zap.String("model_id", next))

	text, err = g.generate(ctx, token, next, prompt, maxTokens)
	if err != nil {
		g.logger.Error("generation retry failed", zap.String("model_id", next), zap.Error(err))
		return "", false
	}
	return text, text != ""
}

// generate performs a single call to the generation endpoint
func (g *Gateway) generate(ctx context.Context, token, model, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.GenerateTimeout)
	defer cancel()

	payload := generationRequest{
		ModelID:   model,
		Input:     prompt,
		ProjectID: g.cfg.ProjectID,
		Parameters: generationParameters{
			DecodingMethod:    "greedy",
			MaxNewTokens:      maxTokens,
			Temperature:       0.7,
			TopK:              50,
			TopP:              1.0,
			RepetitionPenalty: 1.1,
		},
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", newProviderError(CodeBadResponse, "failed to marshal request", 0, err)
	}

	endpoint := g.cfg.BaseURL + "/ml/v1-beta/generation/text?" + url.Values{"version": {APIVersion}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", newProviderError(CodeHTTPError, "failed to create request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", newProviderError(CodeHTTPError, "HTTP request failed", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", newProviderError(CodeBadResponse, "failed to read response", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyHTTPError(resp.StatusCode, body)
	}

	var result generationResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", newProviderError(CodeBadResponse, "failed to unmarshal response", resp.StatusCode, err)
	}
	if len(result.Results) == 0 {
		return "", newProviderError(CodeBadResponse, "empty results", resp.StatusCode, fmt.Errorf("model %s returned no results", model))
	}

	return result.Results[0].GeneratedText, nil
}
