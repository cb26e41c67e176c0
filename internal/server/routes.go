package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/auth"
	"github.com/desertthunder/tempo/internal/shared"
)

const (
	originCookie = "spa_origin"
	stateCookie  = "oauth_state"
)

// App wires the HTTP surface: the OAuth flow, the proxied provider reads,
// the playback-token endpoint, and diagnostics.
type App struct {
	config      *shared.Config
	store       *auth.Store
	proxy       *Proxy
	logger      *log.Logger
	upstreamURL string
}

// NewApp creates the route handler set. upstreamURL overrides the provider
// API root (used in tests); empty means the real Web API.
func NewApp(config *shared.Config, store *auth.Store, proxy *Proxy, logger *log.Logger, upstreamURL string) *App {
	if upstreamURL == "" {
		upstreamURL = "https://api.spotify.com/v1"
	}
	return &App{
		config:      config,
		store:       store,
		proxy:       proxy,
		logger:      logger,
		upstreamURL: upstreamURL,
	}
}

// Register attaches every route to the router.
func (a *App) Register(router Router) {
	router.Handle(http.MethodGet, "/login", http.HandlerFunc(a.Login))
	router.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.Callback))
	router.Handle(http.MethodPost, "/logout", http.HandlerFunc(a.Logout))
	router.Handle(http.MethodGet, "/status", http.HandlerFunc(a.Status))
	router.Handle(http.MethodGet, "/playback-token", http.HandlerFunc(a.PlaybackToken))

	router.Handle(http.MethodGet, "/me", a.proxied(func(r *http.Request) string {
		return a.upstreamURL + "/me"
	}))
	router.Handle(http.MethodGet, "/search", a.proxied(func(r *http.Request) string {
		params := url.Values{}
		params.Set("q", r.URL.Query().Get("q"))
		category := r.URL.Query().Get("type")
		if category == "" {
			category = "artist"
		}
		params.Set("type", category)
		return a.upstreamURL + "/search?" + params.Encode()
	}))
	router.Handle(http.MethodGet, "/search/{category}/{q}", a.proxied(func(r *http.Request) string {
		params := url.Values{}
		params.Set("q", r.PathValue("q"))
		params.Set("type", r.PathValue("category"))
		return a.upstreamURL + "/search?" + params.Encode()
	}))

	artist := func(r *http.Request) string {
		return a.upstreamURL + "/artists/" + url.PathEscape(r.PathValue("id"))
	}
	artistAlbums := func(r *http.Request) string { return artist(r) + "/albums" }
	artistTopTracks := func(r *http.Request) string { return artist(r) + "/top-tracks?market=US" }
	router.Handle(http.MethodGet, "/artist/{id}", a.proxied(artist))
	router.Handle(http.MethodGet, "/artist/{id}/albums", a.proxied(artistAlbums))
	router.Handle(http.MethodGet, "/artist-albums/{id}", a.proxied(artistAlbums))
	router.Handle(http.MethodGet, "/artist/{id}/top-tracks", a.proxied(artistTopTracks))
	router.Handle(http.MethodGet, "/artist-top-tracks/{id}", a.proxied(artistTopTracks))

	album := func(r *http.Request) string {
		return a.upstreamURL + "/albums/" + url.PathEscape(r.PathValue("id"))
	}
	albumTracks := func(r *http.Request) string { return album(r) + "/tracks" }
	router.Handle(http.MethodGet, "/album/{id}", a.proxied(album))
	router.Handle(http.MethodGet, "/album/{id}/tracks", a.proxied(albumTracks))
	router.Handle(http.MethodGet, "/album-tracks/{id}", a.proxied(albumTracks))

	router.Handle(http.MethodGet, "/track/{id}", a.proxied(func(r *http.Request) string {
		return a.upstreamURL + "/tracks/" + url.PathEscape(r.PathValue("id"))
	}))
}

// spaOrigin resolves the browser origin for redirects and cookies:
// query param, then Origin header, then cookie, then the configured default.
func (a *App) spaOrigin(r *http.Request) string {
	candidate := r.URL.Query().Get("origin")
	if candidate == "" {
		candidate = r.Header.Get("Origin")
	}
	if candidate == "" {
		if c, err := r.Cookie(originCookie); err == nil {
			candidate = c.Value
		}
	}
	return a.config.Client.AllowedOrigin(candidate)
}

// redirectURI builds the callback URL for the host the browser reached.
func redirectURI(r *http.Request) string {
	host := r.Host
	if host == "" {
		host = "localhost:8888"
	}
	return fmt.Sprintf("http://%s/callback", host)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeProxyError maps Forward errors onto the response per the error
// taxonomy: 401 with a login hint, verbatim upstream statuses, 500 for
// transport failures.
func (a *App) writeProxyError(w http.ResponseWriter, err error) {
	var upstream *UpstreamError
	switch {
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrNoRefreshToken):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "no_access_token",
			"login": "/login",
		})
	case errors.As(err, &upstream):
		w.WriteHeader(upstream.Code)
	default:
		a.logger.Error("proxy error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
	}
}

// proxied builds a handler that forwards to the constructed upstream URL.
func (a *App) proxied(buildURL func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := a.proxy.Forward(r.Context(), buildURL(r))
		if err != nil {
			a.writeProxyError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
}

// Login redirects the browser to the provider authorize URL and remembers
// the SPA origin and a CSRF state token in cookies.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	origin := a.spaOrigin(r)
	state := shared.GenerateID()

	http.SetCookie(w, &http.Cookie{
		Name:     originCookie,
		Value:    origin,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, a.store.AuthCodeURL(state, redirectURI(r)), http.StatusFound)
}

// Callback exchanges the authorization code for tokens and sends the
// browser back to the SPA. Auth errors also redirect back so the popup
// flow always terminates.
func (a *App) Callback(w http.ResponseWriter, r *http.Request) {
	origin := a.spaOrigin(r)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		a.logger.Error("authorization failed", "error", errParam)
		http.Redirect(w, r, origin+"/", http.StatusFound)
		return
	}

	if c, err := r.Cookie(stateCookie); err == nil && c.Value != "" {
		if r.URL.Query().Get("state") != c.Value {
			a.logger.Error("state mismatch on callback")
			http.Redirect(w, r, origin+"/", http.StatusFound)
			return
		}
	}

	code := r.URL.Query().Get("code")
	if _, err := a.store.ExchangeCode(r.Context(), code, redirectURI(r)); err != nil {
		a.logger.Error("code exchange failed", "error", err)
	}

	http.Redirect(w, r, origin+"/", http.StatusFound)
}

// Logout clears the stored tokens and the origin cookie. Idempotent, 204.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Clear(); err != nil {
		a.logger.Error("failed to clear credentials", "error", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     originCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

// PlaybackToken returns the current access token for the browser playback
// SDK, or 401 with a login hint.
func (a *App) PlaybackToken(w http.ResponseWriter, r *http.Request) {
	pair, err := a.store.Current()
	if err != nil {
		a.logger.Error("failed to read credentials", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	if !pair.HasAccessToken() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "no_access_token",
			"login": "/login",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": pair.AccessToken})
}

// Status reports credential presence booleans for diagnostics.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	pair, err := a.store.Current()
	if err != nil {
		a.logger.Error("failed to read credentials", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hasClient":       a.config.Validate() == nil,
		"hasAccessToken":  pair.HasAccessToken(),
		"hasRefreshToken": pair.HasRefreshToken(),
		"redirect_uri":    redirectURI(r),
		"client_uri":      a.spaOrigin(r),
	})
}
