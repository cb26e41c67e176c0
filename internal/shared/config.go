package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Client      ClientConfig      `toml:"client"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains provider credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the Spotify application credential pair.
//
// The pair is immutable for the process lifetime; every token exchange uses it.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ServerConfig contains HTTP server settings for the auth proxy.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ClientConfig contains settings for the browser application the proxy serves.
type ClientConfig struct {
	// Origins lists the SPA origins allowed for CORS and post-login redirects.
	Origins []string `toml:"origins"`
	// DefaultOrigin is used when a request carries no recognizable origin.
	DefaultOrigin string `toml:"default_origin"`
}

// DatabaseConfig contains settings for the sqlite credential store.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Addr returns the host:port pair the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AllowedOrigin reports whether candidate is a configured SPA origin,
// returning the default origin when it is not.
func (c ClientConfig) AllowedOrigin(candidate string) string {
	for _, origin := range c.Origins {
		if origin == candidate {
			return candidate
		}
	}
	return c.DefaultOrigin
}

// Validate checks that the provider credential pair is present.
//
// Proxied routes cannot function without it, so callers treat a validation
// failure at startup as fatal.
func (c *Config) Validate() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
