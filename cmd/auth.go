package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/tempo/internal/player"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login opens the provider login flow in the system browser and polls the
// running server until the session is established or the wait times out.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	base := r.baseURL()
	loginURL := fmt.Sprintf("%s/login?origin=%s", base, url.QueryEscape(r.config.Client.DefaultOrigin))

	r.logger.Info("opening browser for login", "url", loginURL)
	if err := shared.OpenBrowser(loginURL); err != nil {
		r.writePlain("Open this URL to log in:\n  %s\n", loginURL)
	}

	client := player.NewProxyClient(base, r.httpClient)
	state := player.NewAuthState(client, r.logger)

	if err := state.WatchLogin(ctx, nil, 0, cmd.Duration("timeout")); err != nil {
		return fmt.Errorf("login did not complete: %w", err)
	}

	if profile := state.Profile(); profile != nil {
		r.writePlain("✓ Logged in as %s\n", profile.DisplayName)
	}

	return nil
}

// Logout clears the stored tokens on the running server.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	client := player.NewProxyClient(r.baseURL(), r.httpClient)
	state := player.NewAuthState(client, r.logger)

	state.Logout(ctx)
	return r.writePlain("✓ Logged out\n")
}

var (
	statusTitle = lipgloss.NewStyle().Bold(true)
	statusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusBad   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func renderBool(label string, ok bool) string {
	if ok {
		return fmt.Sprintf("%s %s", statusOK.Render("✓"), label)
	}
	return fmt.Sprintf("%s %s", statusBad.Render("✗"), label)
}

// Status fetches the diagnostic endpoint from a running server and renders
// the credential booleans.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL()+"/status", nil)
	if err != nil {
		return err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: is the server running?", shared.ErrNetwork)
	}
	defer resp.Body.Close()

	var payload struct {
		HasClient       bool   `json:"hasClient"`
		HasAccessToken  bool   `json:"hasAccessToken"`
		HasRefreshToken bool   `json:"hasRefreshToken"`
		RedirectURI     string `json:"redirect_uri"`
		ClientURI       string `json:"client_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode status response: %w", err)
	}

	r.writePlain("%s\n", statusTitle.Render("tempo server status"))
	r.writePlain("%s\n", renderBool("provider client credentials", payload.HasClient))
	r.writePlain("%s\n", renderBool("access token", payload.HasAccessToken))
	r.writePlain("%s\n", renderBool("refresh token", payload.HasRefreshToken))
	r.writePlain("redirect_uri: %s\n", payload.RedirectURI)
	r.writePlain("client_uri:   %s\n", payload.ClientURI)

	return nil
}
