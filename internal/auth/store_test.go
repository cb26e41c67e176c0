package auth

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tempo/internal/repositories"
	"github.com/desertthunder/tempo/internal/shared"
	_ "github.com/mattn/go-sqlite3"
)

func newTestRepo(t *testing.T) *repositories.CredentialsRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	repo, err := repositories.NewCredentialsRepository(db)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	return repo
}

func newTestStore(t *testing.T, repo *repositories.CredentialsRepository, tokenURL string) *Store {
	t.Helper()

	creds := shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://localhost:8888/callback",
	}
	logger := shared.NewLogger(io.Discard)

	return NewStore(creds, repo, logger, WithEndpoint(tokenURL+"/authorize", tokenURL+"/token"))
}

// tokenEndpoint serves a fake provider token endpoint returning the given
// JSON body and counting hits.
func tokenEndpoint(t *testing.T, status int, body string, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("WithEndpoint", func(t *testing.T) {
		store := newTestStore(t, newTestRepo(t), "http://provider.test")

		if store.config.Endpoint.AuthURL != "http://provider.test/authorize" {
			t.Errorf("expected overridden auth URL, got %s", store.config.Endpoint.AuthURL)
		}
		if store.config.Endpoint.TokenURL != "http://provider.test/token" {
			t.Errorf("expected overridden token URL, got %s", store.config.Endpoint.TokenURL)
		}

		t.Run("Defaults Without Options", func(t *testing.T) {
			creds := shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}
			store := NewStore(creds, newTestRepo(t), shared.NewLogger(io.Discard))

			if !strings.Contains(store.config.Endpoint.TokenURL, "accounts.spotify.com") {
				t.Errorf("expected provider token URL, got %s", store.config.Endpoint.TokenURL)
			}
		})
	})

	t.Run("AuthCodeURL", func(t *testing.T) {
		store := newTestStore(t, newTestRepo(t), "http://provider.test")

		got := store.AuthCodeURL("test_state", "http://example.com/callback")
		if !strings.Contains(got, "state=test_state") {
			t.Error("authorize URL should carry the state")
		}
		if !strings.Contains(got, "client_id=test_client_id") {
			t.Error("authorize URL should carry the client id")
		}
		if !strings.Contains(got, "example.com%2Fcallback") {
			t.Error("authorize URL should carry the overridden redirect_uri")
		}
		if !strings.Contains(got, "streaming") {
			t.Error("authorize URL should request the streaming scope")
		}
	})

	t.Run("Current", func(t *testing.T) {
		t.Run("Empty Store", func(t *testing.T) {
			store := newTestStore(t, newTestRepo(t), "http://provider.test")

			pair, err := store.Current()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pair.HasAccessToken() || pair.HasRefreshToken() {
				t.Errorf("expected empty pair, got %+v", pair)
			}
		})

		t.Run("Loads Persisted Record", func(t *testing.T) {
			repo := newTestRepo(t)
			saved := repositories.CredentialPair{AccessToken: "at", RefreshToken: "rt"}
			if err := repo.Save(saved); err != nil {
				t.Fatalf("failed to seed repo: %v", err)
			}

			store := newTestStore(t, repo, "http://provider.test")
			pair, err := store.Current()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pair != saved {
				t.Errorf("expected %+v, got %+v", saved, pair)
			}
		})
	})

	t.Run("ExchangeCode", func(t *testing.T) {
		t.Run("Success Persists Pair", func(t *testing.T) {
			provider := tokenEndpoint(t, http.StatusOK,
				`{"access_token":"new_at","refresh_token":"new_rt","token_type":"Bearer","expires_in":3600}`, nil)
			repo := newTestRepo(t)
			store := newTestStore(t, repo, provider.URL)

			pair, err := store.ExchangeCode(ctx, "auth_code", "http://localhost:8888/callback")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pair.AccessToken != "new_at" || pair.RefreshToken != "new_rt" {
				t.Errorf("unexpected pair %+v", pair)
			}

			stored, ok, err := repo.Load()
			if err != nil || !ok {
				t.Fatalf("expected persisted record: ok=%v err=%v", ok, err)
			}
			if stored != pair {
				t.Errorf("persisted %+v, expected %+v", stored, pair)
			}
		})

		t.Run("Missing Refresh Token Keeps Old One", func(t *testing.T) {
			provider := tokenEndpoint(t, http.StatusOK,
				`{"access_token":"new_at","token_type":"Bearer","expires_in":3600}`, nil)
			repo := newTestRepo(t)
			if err := repo.Save(repositories.CredentialPair{AccessToken: "old_at", RefreshToken: "old_rt"}); err != nil {
				t.Fatalf("failed to seed repo: %v", err)
			}

			store := newTestStore(t, repo, provider.URL)
			pair, err := store.ExchangeCode(ctx, "auth_code", "")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pair.AccessToken != "new_at" {
				t.Errorf("expected new access token, got %s", pair.AccessToken)
			}
			if pair.RefreshToken != "old_rt" {
				t.Errorf("expected prior refresh token to survive, got %s", pair.RefreshToken)
			}
		})

		t.Run("Provider Failure", func(t *testing.T) {
			provider := tokenEndpoint(t, http.StatusBadRequest, `{"error":"invalid_grant"}`, nil)
			repo := newTestRepo(t)
			store := newTestStore(t, repo, provider.URL)

			_, err := store.ExchangeCode(ctx, "bad_code", "")
			if !errors.Is(err, shared.ErrTokenExchangeFailed) {
				t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
			}

			_, ok, _ := repo.Load()
			if ok {
				t.Error("failed exchange should not persist anything")
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("No Refresh Token", func(t *testing.T) {
			store := newTestStore(t, newTestRepo(t), "http://provider.test")

			_, err := store.Refresh(ctx)
			if !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
		})

		t.Run("Success Persists New Access Token", func(t *testing.T) {
			var hits atomic.Int64
			provider := tokenEndpoint(t, http.StatusOK,
				`{"access_token":"minted_at","token_type":"Bearer","expires_in":3600}`, &hits)
			repo := newTestRepo(t)
			if err := repo.Save(repositories.CredentialPair{RefreshToken: "rt"}); err != nil {
				t.Fatalf("failed to seed repo: %v", err)
			}

			store := newTestStore(t, repo, provider.URL)
			pair, err := store.Refresh(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pair.AccessToken != "minted_at" {
				t.Errorf("expected minted token, got %s", pair.AccessToken)
			}
			if pair.RefreshToken != "rt" {
				t.Errorf("refresh token should survive when provider omits it, got %s", pair.RefreshToken)
			}
			if hits.Load() != 1 {
				t.Errorf("expected 1 provider call, got %d", hits.Load())
			}

			stored, ok, _ := repo.Load()
			if !ok || stored.AccessToken != "minted_at" {
				t.Errorf("expected persisted token, got %+v (ok=%v)", stored, ok)
			}
		})

		t.Run("Concurrent Callers Share One Exchange", func(t *testing.T) {
			var hits atomic.Int64
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				// Hold the exchange open so the other callers pile up
				// behind the in-flight one.
				time.Sleep(50 * time.Millisecond)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token":"minted_at","token_type":"Bearer","expires_in":3600}`))
			}))
			t.Cleanup(provider.Close)

			repo := newTestRepo(t)
			if err := repo.Save(repositories.CredentialPair{RefreshToken: "rt"}); err != nil {
				t.Fatalf("failed to seed repo: %v", err)
			}
			store := newTestStore(t, repo, provider.URL)

			var wg sync.WaitGroup
			errs := make([]error, 8)
			pairs := make([]repositories.CredentialPair, 8)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					pairs[i], errs[i] = store.Refresh(ctx)
				}(i)
			}
			wg.Wait()

			for i := range errs {
				if errs[i] != nil {
					t.Fatalf("caller %d failed: %v", i, errs[i])
				}
				if pairs[i].AccessToken != "minted_at" {
					t.Errorf("caller %d got %s", i, pairs[i].AccessToken)
				}
			}
			if hits.Load() != 1 {
				t.Errorf("expected 1 provider exchange for 8 callers, got %d", hits.Load())
			}
		})

		t.Run("Rotated Refresh Token Is Kept", func(t *testing.T) {
			provider := tokenEndpoint(t, http.StatusOK,
				`{"access_token":"minted_at","refresh_token":"rotated_rt","token_type":"Bearer","expires_in":3600}`, nil)
			repo := newTestRepo(t)
			if err := repo.Save(repositories.CredentialPair{RefreshToken: "rt"}); err != nil {
				t.Fatalf("failed to seed repo: %v", err)
			}

			store := newTestStore(t, repo, provider.URL)
			pair, err := store.Refresh(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pair.RefreshToken != "rotated_rt" {
				t.Errorf("expected rotated refresh token, got %s", pair.RefreshToken)
			}
		})

		t.Run("Failure Keeps Stale Pair", func(t *testing.T) {
			provider := tokenEndpoint(t, http.StatusBadRequest, `{"error":"invalid_grant"}`, nil)
			repo := newTestRepo(t)
			seeded := repositories.CredentialPair{AccessToken: "stale_at", RefreshToken: "rt"}
			if err := repo.Save(seeded); err != nil {
				t.Fatalf("failed to seed repo: %v", err)
			}

			store := newTestStore(t, repo, provider.URL)
			_, err := store.Refresh(ctx)
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}

			pair, err := store.Current()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pair != seeded {
				t.Errorf("stale pair should remain, got %+v", pair)
			}
		})
	})

	t.Run("Clear", func(t *testing.T) {
		repo := newTestRepo(t)
		if err := repo.Save(repositories.CredentialPair{AccessToken: "at", RefreshToken: "rt"}); err != nil {
			t.Fatalf("failed to seed repo: %v", err)
		}

		store := newTestStore(t, repo, "http://provider.test")
		if err := store.Clear(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		pair, err := store.Current()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pair.HasAccessToken() || pair.HasRefreshToken() {
			t.Errorf("expected empty pair after clear, got %+v", pair)
		}

		_, ok, _ := repo.Load()
		if ok {
			t.Error("expected durable record to be gone after clear")
		}

		if err := store.Clear(); err != nil {
			t.Errorf("clearing twice should be a no-op, got %v", err)
		}
	})
}
