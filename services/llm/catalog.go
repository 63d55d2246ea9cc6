package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type catalogResponse struct {
	Resources []json.RawMessage `json:"resources"`
}

type catalogResource struct {
	ModelID string `json:"model_id"`
}

// fetchCatalog lists the model identifiers the tenant may use
func (g *Gateway) fetchCatalog(ctx context.Context, token string) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.CatalogTimeout)
	defer cancel()

	endpoint := g.cfg.BaseURL + "/ml/v1/foundation_model_specs?" + url.Values{"version": {APIVersion}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request failed: status %d", resp.StatusCode)
	}

	var catalog catalogResponse
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog response: %w", err)
	}

	available := make(map[string]struct{}, len(catalog.Resources))
	for _, raw := range catalog.Resources {
		var resource catalogResource
		// entries that are not objects are skipped
		if err := json.Unmarshal(raw, &resource); err != nil {
			continue
		}
		if resource.ModelID != "" {
			available[resource.ModelID] = struct{}{}
		}
	}

	return available, nil
}
