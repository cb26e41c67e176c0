package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/repositories"
	"github.com/desertthunder/tempo/internal/shared"
)

// TokenSource is the credential surface the proxy needs from the auth store.
type TokenSource interface {
	Current() (repositories.CredentialPair, error)
	Refresh(ctx context.Context) (repositories.CredentialPair, error)
}

// UpstreamError carries a non-auth non-2xx provider status verbatim to the
// route handler. No body guarantees.
type UpstreamError struct {
	Code int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%v: status %d", shared.ErrUpstream, e.Code)
}

// Proxy forwards GET requests to the provider API with the current bearer
// token, handling the at-most-one-retry refresh protocol.
//
// It is endpoint-agnostic: search, artist, album, track, and profile
// lookups all reuse it, parameterized only by the upstream URL.
type Proxy struct {
	tokens     TokenSource
	httpClient *http.Client
	logger     *log.Logger
}

// NewProxy creates a Proxy. client defaults to [http.DefaultClient].
func NewProxy(tokens TokenSource, client *http.Client, logger *log.Logger) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &Proxy{tokens: tokens, httpClient: client, logger: logger}
}

// Forward issues an upstream GET with the stored bearer token and returns
// the raw JSON body.
//
// Protocol:
//   - no access token and no refresh token: [shared.ErrUnauthenticated]
//   - no access token but a refresh token: implicit refresh first; this
//     does not consume the single-retry budget
//   - upstream 401: refresh once and retry once; a second 401 surfaces as
//     [shared.ErrUnauthenticated]
//   - other non-2xx: [UpstreamError] with the status propagated verbatim
//   - transport failure: [shared.ErrNetwork], logged
func (p *Proxy) Forward(ctx context.Context, upstreamURL string) ([]byte, error) {
	pair, err := p.tokens.Current()
	if err != nil {
		return nil, err
	}

	if !pair.HasAccessToken() {
		if !pair.HasRefreshToken() {
			return nil, shared.ErrUnauthenticated
		}
		if pair, err = p.tokens.Refresh(ctx); err != nil || !pair.HasAccessToken() {
			return nil, shared.ErrUnauthenticated
		}
	}

	refreshed := false
	for attempt := 0; attempt < 2; attempt++ {
		body, status, err := p.fetch(ctx, upstreamURL, pair.AccessToken)
		if err != nil {
			p.logger.Error("upstream request failed", "url", upstreamURL, "error", err)
			return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
		}

		if status >= 200 && status < 300 {
			return body, nil
		}

		if status == http.StatusUnauthorized {
			if refreshed {
				return nil, shared.ErrUnauthenticated
			}
			refreshed = true
			if pair, err = p.tokens.Refresh(ctx); err != nil || !pair.HasAccessToken() {
				return nil, shared.ErrUnauthenticated
			}
			continue
		}

		return nil, &UpstreamError{Code: status}
	}

	return nil, shared.ErrUnauthenticated
}

func (p *Proxy) fetch(ctx context.Context, upstreamURL, token string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}
