package player

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// DefaultLoginPollInterval paces the login watcher's profile checks.
	DefaultLoginPollInterval = 800 * time.Millisecond

	// DefaultLoginTimeout bounds how long the watcher waits for the user
	// to finish the external login flow.
	DefaultLoginTimeout = 20 * time.Second
)

// Popup abstracts the login popup window so the watcher can stop early
// when the user closes it.
type Popup interface {
	Closed() bool
	Close()
}

// AuthState tracks whether the backend session is logged in and exposes
// the current profile for rendering.
type AuthState struct {
	client *ProxyClient
	logger *log.Logger

	mu       sync.Mutex
	loggedIn bool
	profile  *models.Profile
}

// NewAuthState creates an AuthState over the given proxy client.
func NewAuthState(client *ProxyClient, logger *log.Logger) *AuthState {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthState{client: client, logger: logger}
}

// IsLoggedIn reports the last observed login state.
func (a *AuthState) IsLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loggedIn
}

// Profile returns the last fetched profile, nil when logged out.
func (a *AuthState) Profile() *models.Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile
}

// Refresh fetches the profile once and updates the login state. A fetch
// failure means logged out; it is not an error.
func (a *AuthState) Refresh(ctx context.Context) {
	profile, err := a.client.Me(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.loggedIn = false
		a.profile = nil
		return
	}
	a.loggedIn = true
	a.profile = &profile
}

// WatchLogin polls the backend profile endpoint until login completes, the
// popup closes, or the wall-clock timeout elapses, whichever happens first.
//
// On success the popup is closed and the profile stored. A timeout returns
// [shared.ErrTimeout]; a closed popup returns nil with the state unchanged.
func (a *AuthState) WatchLogin(ctx context.Context, popup Popup, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = DefaultLoginPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultLoginTimeout
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	deadline := time.Now().Add(timeout)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		if time.Now().After(deadline) {
			return shared.ErrTimeout
		}
		if popup != nil && popup.Closed() {
			return nil
		}

		profile, err := a.client.Me(ctx)
		if err != nil {
			// Not logged in yet.
			continue
		}

		a.mu.Lock()
		a.loggedIn = true
		a.profile = &profile
		a.mu.Unlock()

		if popup != nil && !popup.Closed() {
			popup.Close()
		}

		a.logger.Info("login complete", "user", profile.DisplayName)
		return nil
	}
}

// Logout ends the backend session and resets local state. Backend errors
// are ignored; the local state is cleared regardless.
func (a *AuthState) Logout(ctx context.Context) {
	if err := a.client.Logout(ctx); err != nil {
		a.logger.Warn("logout request failed", "error", err)
	}

	a.mu.Lock()
	a.loggedIn = false
	a.profile = nil
	a.mu.Unlock()
}
