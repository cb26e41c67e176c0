// Spotify Web API playback client
//
// Endpoint shapes based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultBaseURL is the provider Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// TokenFunc returns a bearer token for a single API call.
type TokenFunc func(ctx context.Context) (string, error)

// StatusError reports a non-2xx provider response. The playback manager
// inspects the code to decide on its transfer-and-retry protocol.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify API error: status %d", e.Code)
}

// PlaybackAPI performs authenticated playback calls against the Web API.
type PlaybackAPI struct {
	baseURL    string
	httpClient *http.Client
	token      TokenFunc
}

// NewPlaybackAPI creates a playback client. baseURL defaults to
// [DefaultBaseURL] and client to [http.DefaultClient].
func NewPlaybackAPI(baseURL string, client *http.Client, token TokenFunc) *PlaybackAPI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &PlaybackAPI{
		baseURL:    baseURL,
		httpClient: client,
		token:      token,
	}
}

// Device represents a provider-recognized playback endpoint.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// PlayerState is the authoritative playback snapshot from /me/player.
type PlayerState struct {
	Device     Device `json:"device"`
	IsPlaying  bool   `json:"is_playing"`
	ProgressMS int    `json:"progress_ms"`
	Item       *Item  `json:"item"`
}

// Item is the track portion of a player state or currently-playing payload.
type Item struct {
	URI        string `json:"uri"`
	Name       string `json:"name"`
	DurationMS int    `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

// ArtistNames joins the item's artist names for display.
func (i *Item) ArtistNames() string {
	names := ""
	for _, a := range i.Artists {
		if a.Name == "" {
			continue
		}
		if names != "" {
			names += ", "
		}
		names += a.Name
	}
	return names
}

// CoverURL returns the first album image, if any.
func (i *Item) CoverURL() string {
	if len(i.Album.Images) == 0 {
		return ""
	}
	return i.Album.Images[0].URL
}

// do performs an authenticated request, fetching a fresh token first.
// Responses outside 2xx produce a [StatusError].
func (a *PlaybackAPI) do(ctx context.Context, method, endpoint string, body any, result any) error {
	token, err := a.token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func deviceQuery(deviceID string) string {
	if deviceID == "" {
		return ""
	}
	return "?device_id=" + url.QueryEscape(deviceID)
}

// Play starts playback of the given URIs on the device.
func (a *PlaybackAPI) Play(ctx context.Context, deviceID string, uris []string) error {
	body := map[string]any{"uris": uris}
	return a.do(ctx, http.MethodPut, "/me/player/play"+deviceQuery(deviceID), body, nil)
}

// Pause pauses playback on the device.
func (a *PlaybackAPI) Pause(ctx context.Context, deviceID string) error {
	return a.do(ctx, http.MethodPut, "/me/player/pause"+deviceQuery(deviceID), nil, nil)
}

// SeekMS moves the playhead to an absolute millisecond offset.
func (a *PlaybackAPI) SeekMS(ctx context.Context, deviceID string, positionMS int) error {
	endpoint := fmt.Sprintf("/me/player/seek?position_ms=%d", positionMS)
	if deviceID != "" {
		endpoint += "&device_id=" + url.QueryEscape(deviceID)
	}
	return a.do(ctx, http.MethodPut, endpoint, nil, nil)
}

// SetVolume sets the device volume as a percentage in [0,100].
func (a *PlaybackAPI) SetVolume(ctx context.Context, deviceID string, percent int) error {
	endpoint := fmt.Sprintf("/me/player/volume?volume_percent=%d", percent)
	if deviceID != "" {
		endpoint += "&device_id=" + url.QueryEscape(deviceID)
	}
	return a.do(ctx, http.MethodPut, endpoint, nil, nil)
}

// Transfer assigns the active playback session to the device. Transfer
// never auto-starts playback unless play is true.
func (a *PlaybackAPI) Transfer(ctx context.Context, deviceID string, play bool) error {
	body := map[string]any{"device_ids": []string{deviceID}, "play": play}
	return a.do(ctx, http.MethodPut, "/me/player", body, nil)
}

// State retrieves the current player state. A 204 from the provider (no
// active session) yields a nil state.
func (a *PlaybackAPI) State(ctx context.Context) (*PlayerState, error) {
	var state PlayerState
	if err := a.do(ctx, http.MethodGet, "/me/player", nil, &state); err != nil {
		return nil, err
	}
	if state.Item == nil && state.Device.ID == "" {
		return nil, nil
	}
	return &state, nil
}

// CurrentlyPlaying retrieves the item currently playing, or nil when idle.
func (a *PlaybackAPI) CurrentlyPlaying(ctx context.Context) (*Item, error) {
	var payload struct {
		Item *Item `json:"item"`
	}
	if err := a.do(ctx, http.MethodGet, "/me/player/currently-playing", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Item, nil
}

// Devices lists the user's available playback devices.
func (a *PlaybackAPI) Devices(ctx context.Context) ([]Device, error) {
	var payload struct {
		Devices []Device `json:"devices"`
	}
	if err := a.do(ctx, http.MethodGet, "/me/player/devices", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Devices, nil
}
