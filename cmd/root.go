package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stacklens/sentry-mcp/internal/config"
	"github.com/stacklens/sentry-mcp/internal/console"
	"github.com/stacklens/sentry-mcp/internal/logging"
	"github.com/stacklens/sentry-mcp/internal/sentry"
	"github.com/stacklens/sentry-mcp/internal/server"
)

var (
	version string

	cfgFile         string
	serverTransport string
	listenAddr      string
	sentryBaseURL   string
	organization    string
	authToken       string
	verbose         bool
	consoleMode     bool

	// OAuth flags
	oauthClientID     string
	oauthClientSecret string
	oauthRedirectURL  string
	oauthScope        string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sentry-mcp",
	Short: "MCP server exposing Sentry error search tools",
	Long: `sentry-mcp is an MCP (Model Context Protocol) server that lets an AI
agent authenticate against Sentry via OAuth and query it for application
errors tied to a source file, producing a Markdown incident summary with
stack traces.

The server runs in two transports:
- stdio (default): for integration with AI assistants
- streamable-http: serves MCP at /mcp and the OAuth authorization flow
  at /oauth/authorize and /oauth/callback on the same listener

With --console, an interactive prompt replaces the server so the tools
can be exercised locally without an MCP client.

Authentication uses either a pre-provisioned token (--auth-token or
SENTRY_AUTH_TOKEN) or the OAuth authorization-code flow against the
configured OAuth application.`,
	RunE: runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version for the application
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Path to YAML config file")
	rootCmd.Flags().StringVar(&serverTransport, "transport", "", "Transport for the MCP server (stdio, streamable-http)")
	rootCmd.Flags().StringVar(&listenAddr, "listen-addr", "", "Listen address for streamable-http (MCP path is fixed to /mcp)")
	rootCmd.Flags().StringVar(&sentryBaseURL, "sentry-url", "", "Sentry API base URL (default https://sentry.io)")
	rootCmd.Flags().StringVar(&organization, "organization", "", "Sentry organization slug (required)")
	rootCmd.Flags().StringVar(&authToken, "auth-token", "", "Pre-provisioned Sentry API token (skips the OAuth flow)")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.Flags().BoolVar(&consoleMode, "console", false, "Start the interactive console instead of the server")

	// OAuth flags
	rootCmd.Flags().StringVar(&oauthClientID, "oauth-client-id", "", "OAuth client ID of the Sentry application")
	rootCmd.Flags().StringVar(&oauthClientSecret, "oauth-client-secret", "", "OAuth client secret")
	rootCmd.Flags().StringVar(&oauthRedirectURL, "oauth-redirect-url", "", "OAuth redirect URL (the /oauth/callback endpoint)")
	rootCmd.Flags().StringVar(&oauthScope, "oauth-scope", "", "OAuth scopes to request")

	// Add subcommands
	rootCmd.AddCommand(newSelfUpdateCmd())
}

// buildConfig loads the config file and overlays the CLI flags.
func buildConfig(cmd *cobra.Command, logger *logging.Logger) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if serverTransport != "" {
		cfg.Server.Transport = serverTransport
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}
	if sentryBaseURL != "" {
		cfg.Sentry.BaseURL = sentryBaseURL
	}
	if organization != "" {
		cfg.Sentry.Organization = organization
	}
	if authToken != "" {
		cfg.Sentry.AuthToken = authToken
	}
	if oauthClientID != "" {
		cfg.OAuth.ClientID = oauthClientID
	}
	if oauthClientSecret != "" {
		cfg.OAuth.ClientSecret = oauthClientSecret
	}
	if oauthRedirectURL != "" {
		cfg.OAuth.RedirectURI = oauthRedirectURL
	}
	if oauthScope != "" {
		cfg.OAuth.Scope = oauthScope
	}

	// Flag overrides may change the base URL after defaults were applied.
	cfg.ApplyDefaults()

	// Secrets on the command line show up in process listings.
	if oauthClientSecret != "" && cmd.Flags().Changed("oauth-client-secret") {
		logger.Warning("Security Warning: Client secret passed via CLI flag is visible in process listings")
		logger.Info("Consider using environment variables instead: export SENTRY_OAUTH_CLIENT_SECRET=\"...\"")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupSignalHandler sets up graceful shutdown on interrupt signals
func setupSignalHandler(cancel context.CancelFunc, logger *logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger := logging.NewLogger(verbose)
	defer func() { _ = logger.Sync() }()

	setupSignalHandler(cancel, logger)

	cfg, err := buildConfig(cmd, logger)
	if err != nil {
		return err
	}

	client := sentry.NewClient(sentry.ClientConfig{BaseURL: cfg.Sentry.BaseURL})
	exchanger := sentry.NewTokenExchanger(nil)

	if consoleMode {
		return console.New(cfg, client, exchanger, logger).Run(ctx)
	}

	srv, err := server.New(server.Deps{
		Config:    cfg,
		Sentry:    client,
		Exchanger: exchanger,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.Info("Starting sentry-mcp server (transport: %s)...", cfg.Server.Transport)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
