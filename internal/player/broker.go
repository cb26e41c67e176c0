package player

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/tempo/internal/shared"
)

// TokenBroker obtains short-lived bearer tokens from the backend for direct
// provider calls.
//
// The broker never retries: callers decide whether a failure should prompt
// re-authentication.
type TokenBroker struct {
	baseURL    string
	httpClient *http.Client
}

// NewTokenBroker creates a broker against the backend at baseURL. The
// client should carry the session cookie jar; it defaults to
// [http.DefaultClient].
func NewTokenBroker(baseURL string, client *http.Client) *TokenBroker {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenBroker{baseURL: baseURL, httpClient: client}
}

// GetPlaybackToken fetches a bearer token from the backend.
//
// A non-success response means the user is not logged in
// ([shared.ErrLoginRequired]); a success without a token field is
// [shared.ErrNoToken].
func (b *TokenBroker) GetPlaybackToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/playback-token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", shared.ErrLoginRequired
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if payload.AccessToken == "" {
		return "", shared.ErrNoToken
	}

	return payload.AccessToken, nil
}
