package player

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/tempo/internal/shared"
)

func TestProxyClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Me", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"id":"user123","display_name":"Test User","product":"premium"}`))
		}))
		defer server.Close()

		client := NewProxyClient(server.URL, server.Client())
		profile, err := client.Me(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.DisplayName != "Test User" || profile.Product != "premium" {
			t.Errorf("unexpected profile %+v", profile)
		}
	})

	t.Run("SearchArtists Reshapes Items", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/search/artist/test%20query" && r.URL.Path != "/search/artist/test query" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"artists":{"items":[
				{"id":"a1","name":"First Artist","uri":"spotify:artist:a1",
				 "images":[{"url":"http://img.test/a1.png"}]}
			]}}`))
		}))
		defer server.Close()

		client := NewProxyClient(server.URL, server.Client())
		artists, err := client.SearchArtists(ctx, "test query")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(artists) != 1 {
			t.Fatalf("expected 1 artist, got %d", len(artists))
		}
		if artists[0].Name != "First Artist" || artists[0].ImageURL != "http://img.test/a1.png" {
			t.Errorf("unexpected artist %+v", artists[0])
		}
	})

	t.Run("Track", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"t1","name":"Test Track","duration_ms":180000}`))
		}))
		defer server.Close()

		client := NewProxyClient(server.URL, server.Client())
		track, err := client.Track(ctx, "t1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if track.Name != "Test Track" || track.URI != "spotify:track:t1" {
			t.Errorf("unexpected track %+v", track)
		}
	})

	t.Run("Unauthorized Means Login Required", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"no_access_token","login":"/login"}`))
		}))
		defer server.Close()

		client := NewProxyClient(server.URL, server.Client())
		if _, err := client.Me(ctx); !errors.Is(err, shared.ErrLoginRequired) {
			t.Errorf("expected ErrLoginRequired, got %v", err)
		}
	})

	t.Run("Upstream Failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewProxyClient(server.URL, server.Client())
		if _, err := client.SearchTracks(ctx, "q"); !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})
}
