package player

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
)

// ProxyClient performs reads against the backend proxy and reshapes the
// provider payloads into display structs.
type ProxyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewProxyClient creates a client for the backend at baseURL. The client
// should carry the session cookie jar; it defaults to [http.DefaultClient].
func NewProxyClient(baseURL string, client *http.Client) *ProxyClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &ProxyClient{baseURL: baseURL, httpClient: client}
}

// get performs a GET against the backend, translating 401 into
// [shared.ErrLoginRequired].
func (c *ProxyClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, shared.ErrLoginRequired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// Me retrieves the authenticated user's profile.
func (c *ProxyClient) Me(ctx context.Context) (models.Profile, error) {
	body, err := c.get(ctx, "/me")
	if err != nil {
		return models.Profile{}, err
	}
	return models.ParseProfile(body)
}

// SearchArtists searches the provider catalog for artists.
func (c *ProxyClient) SearchArtists(ctx context.Context, q string) ([]models.Artist, error) {
	body, err := c.get(ctx, "/search/artist/"+url.PathEscape(q))
	if err != nil {
		return nil, err
	}
	return models.ParseSearchArtists(body)
}

// SearchAlbums searches the provider catalog for albums.
func (c *ProxyClient) SearchAlbums(ctx context.Context, q string) ([]models.Album, error) {
	body, err := c.get(ctx, "/search/album/"+url.PathEscape(q))
	if err != nil {
		return nil, err
	}
	return models.ParseSearchAlbums(body)
}

// SearchTracks searches the provider catalog for tracks.
func (c *ProxyClient) SearchTracks(ctx context.Context, q string) ([]models.Track, error) {
	body, err := c.get(ctx, "/search/track/"+url.PathEscape(q))
	if err != nil {
		return nil, err
	}
	return models.ParseSearchTracks(body)
}

// Track retrieves a single track by id.
func (c *ProxyClient) Track(ctx context.Context, id string) (models.Track, error) {
	body, err := c.get(ctx, "/track/"+url.PathEscape(id))
	if err != nil {
		return models.Track{}, err
	}
	return models.ParseTrack(body)
}

// Logout ends the backend session. Safe to call when not logged in.
func (c *ProxyClient) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	resp.Body.Close()

	return nil
}
