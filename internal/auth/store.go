// Package auth owns the provider credential pair.
//
// The [Store] is the single source of truth for the access/refresh token
// pair: exchanges, refreshes, reads, and logout all funnel through it, and
// every successful mutation is persisted before it is visible to callers.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/repositories"
	"github.com/desertthunder/tempo/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes requested during login. The streaming scopes let the browser's
// playback SDK register a device and control playback directly.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"streaming",
	"user-modify-playback-state",
	"user-read-playback-state",
}

// Store manages the credential pair and its durable record.
//
// Concurrent refreshes triggered by simultaneous 401s collapse into a
// single upstream exchange via [singleflight.Group].
type Store struct {
	config *oauth2.Config
	repo   *repositories.CredentialsRepository
	logger *log.Logger

	mu     sync.Mutex
	pair   repositories.CredentialPair
	loaded bool

	flight singleflight.Group
}

// Option customizes a Store at construction.
type Option func(*Store)

// WithEndpoint overrides the provider authorize/token URLs. Tests point
// this at a fake provider.
func WithEndpoint(authURL, tokenURL string) Option {
	return func(s *Store) {
		s.config.Endpoint.AuthURL = authURL
		s.config.Endpoint.TokenURL = tokenURL
	}
}

// NewStore creates a Store for the given application credentials.
func NewStore(creds shared.SpotifyConfig, repo *repositories.CredentialsRepository, logger *log.Logger, opts ...Option) *Store {
	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyAuthURL,
			TokenURL:  spotifyTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	s := &Store{config: config, repo: repo, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthCodeURL builds the provider authorize URL for the login redirect.
// redirectURI overrides the configured one so the callback lands on the
// host the browser actually reached.
func (s *Store) AuthCodeURL(state, redirectURI string) string {
	opts := []oauth2.AuthCodeOption{}
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}
	return s.config.AuthCodeURL(state, opts...)
}

// load reads the persisted record once. Callers must hold s.mu.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}

	pair, ok, err := s.repo.Load()
	if err != nil {
		return err
	}
	if ok {
		s.pair = pair
	}
	s.loaded = true
	return nil
}

// persist writes the pair durably and updates the in-memory copy.
// Callers must hold s.mu.
func (s *Store) persist(pair repositories.CredentialPair) {
	s.pair = pair
	if err := s.repo.Save(pair); err != nil {
		// The in-memory pair stays authoritative for this process.
		s.logger.Warn("failed to persist credentials", "error", err)
	}
}

// Current returns a read-only snapshot of the credential pair, loading the
// persisted record on first access.
func (s *Store) Current() (repositories.CredentialPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return repositories.CredentialPair{}, err
	}
	return s.pair, nil
}

// ExchangeCode exchanges an authorization code for a token pair and
// persists it. On failure the stored credentials are unchanged.
func (s *Store) ExchangeCode(ctx context.Context, code, redirectURI string) (repositories.CredentialPair, error) {
	opts := []oauth2.AuthCodeOption{}
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	token, err := s.config.Exchange(ctx, code, opts...)
	if err != nil {
		return repositories.CredentialPair{}, fmt.Errorf("%w: %v", shared.ErrTokenExchangeFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return repositories.CredentialPair{}, err
	}

	pair := repositories.CredentialPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = s.pair.RefreshToken
	}

	s.persist(pair)
	s.logger.Info("exchanged authorization code", "has_refresh_token", pair.HasRefreshToken())

	return pair, nil
}

// Refresh mints a new access token from the stored refresh token and
// persists the result, keeping a rotated refresh token when the provider
// returns one. On failure the stale pair stays in place.
//
// Concurrent callers share a single upstream exchange.
func (s *Store) Refresh(ctx context.Context) (repositories.CredentialPair, error) {
	v, err, _ := s.flight.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return repositories.CredentialPair{}, err
	}
	return v.(repositories.CredentialPair), nil
}

func (s *Store) refresh(ctx context.Context) (repositories.CredentialPair, error) {
	s.mu.Lock()
	if err := s.load(); err != nil {
		s.mu.Unlock()
		return repositories.CredentialPair{}, err
	}
	refreshToken := s.pair.RefreshToken
	s.mu.Unlock()

	if refreshToken == "" {
		return repositories.CredentialPair{}, shared.ErrNoRefreshToken
	}

	source := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		s.logger.Error("token refresh failed", "error", err)
		return repositories.CredentialPair{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pair := repositories.CredentialPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}

	s.persist(pair)
	s.logger.Info("refreshed access token")

	return pair, nil
}

// Clear wipes the in-memory pair and the durable record. Idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = repositories.CredentialPair{}
	s.loaded = true

	if err := s.repo.Clear(); err != nil {
		return err
	}

	s.logger.Info("cleared credentials")
	return nil
}
