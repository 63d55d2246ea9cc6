package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const apiKeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"

// iamTokenResponse is the identity endpoint's token payload
type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// exchangeAPIKey trades the API key for a bearer credential
func (g *Gateway) exchangeAPIKey(ctx context.Context) (string, error) {
	if g.cfg.APIKey == "" {
		return "", errors.New("api key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.IAMTimeout)
	defer cancel()

	data := url.Values{
		"grant_type": {apiKeyGrantType},
		"apikey":     {g.cfg.APIKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.IAMURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed: status %d", resp.StatusCode)
	}

	var tokenResp iamTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", errors.New("no access_token in response")
	}

	return tokenResp.AccessToken, nil
}
