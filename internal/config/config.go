// Package config provides structures and functions for loading and
// managing the server configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Supported MCP transports.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// ServerConfig holds the MCP serving configuration.
type ServerConfig struct {
	Transport  string `yaml:"transport"`
	ListenAddr string `yaml:"listen_addr"`
}

// SentryConfig holds the upstream API configuration.
type SentryConfig struct {
	BaseURL      string `yaml:"base_url"`
	Organization string `yaml:"organization"`
	// AuthToken is an optional pre-provisioned API token. When set, the
	// tools use it directly and the OAuth flow is not required.
	AuthToken string `yaml:"auth_token"`
}

// OAuthConfig holds the upstream OAuth application configuration.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	Scope        string `yaml:"scope"`
	// AuthorizeURL and TokenURL default to the upstream's standard
	// endpoints derived from Sentry.BaseURL.
	AuthorizeURL string `yaml:"authorize_url"`
	TokenURL     string `yaml:"token_url"`
}

// Config holds the complete configuration of the server.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Sentry SentryConfig `yaml:"sentry"`
	OAuth  OAuthConfig  `yaml:"oauth"`
}

// Load reads the configuration from a YAML file, then applies environment
// overrides and defaults. An empty path yields a config built from
// environment and defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		path = filepath.Clean(path)
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	return cfg, nil
}

// applyEnv overlays SENTRY_* environment variables. Credentials in the
// environment beat credentials in the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("SENTRY_BASE_URL"); v != "" {
		c.Sentry.BaseURL = v
	}
	if v := os.Getenv("SENTRY_ORGANIZATION"); v != "" {
		c.Sentry.Organization = v
	}
	if v := os.Getenv("SENTRY_AUTH_TOKEN"); v != "" {
		c.Sentry.AuthToken = v
	}
	if v := os.Getenv("SENTRY_OAUTH_CLIENT_ID"); v != "" {
		c.OAuth.ClientID = v
	}
	if v := os.Getenv("SENTRY_OAUTH_CLIENT_SECRET"); v != "" {
		c.OAuth.ClientSecret = v
	}
}

// ApplyDefaults fills zero-value fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Transport == "" {
		c.Server.Transport = TransportStdio
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8899"
	}
	if c.Sentry.BaseURL == "" {
		c.Sentry.BaseURL = "https://sentry.io"
	}
	c.Sentry.BaseURL = strings.TrimSuffix(c.Sentry.BaseURL, "/")
	if c.OAuth.Scope == "" {
		c.OAuth.Scope = "org:read project:read event:read"
	}
	if c.OAuth.AuthorizeURL == "" {
		c.OAuth.AuthorizeURL = c.Sentry.BaseURL + "/oauth/authorize/"
	}
	if c.OAuth.TokenURL == "" {
		c.OAuth.TokenURL = c.Sentry.BaseURL + "/oauth/token/"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport %q (use %q or %q)", c.Server.Transport, TransportStdio, TransportStreamableHTTP)
	}

	if c.Sentry.Organization == "" {
		return fmt.Errorf("sentry organization slug is required")
	}

	if _, err := url.Parse(c.Sentry.BaseURL); err != nil {
		return fmt.Errorf("invalid sentry base URL: %w", err)
	}

	// The OAuth leg is optional when a pre-provisioned token is set.
	if c.Sentry.AuthToken == "" && c.OAuth.ClientID != "" {
		if c.OAuth.RedirectURI == "" {
			return fmt.Errorf("oauth redirect URI is required when a client ID is configured")
		}
		parsed, err := url.Parse(c.OAuth.RedirectURI)
		if err != nil {
			return fmt.Errorf("invalid oauth redirect URI: %w", err)
		}
		// HTTP is only acceptable for loopback redirects.
		if parsed.Scheme == "http" {
			hostname := parsed.Hostname()
			if hostname != "localhost" && hostname != "127.0.0.1" && hostname != "::1" {
				return fmt.Errorf("http redirect URIs are only allowed for localhost/127.0.0.1/[::1], use https for other hosts")
			}
		} else if parsed.Scheme != "https" {
			return fmt.Errorf("redirect URI scheme must be http (localhost only) or https, got: %s", parsed.Scheme)
		}
	}

	return nil
}
