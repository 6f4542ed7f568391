// Package server hosts the Sentry tools over MCP and, on the HTTP
// transport, serves the OAuth authorization endpoints next to the MCP
// endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/stacklens/sentry-mcp/internal/config"
	"github.com/stacklens/sentry-mcp/internal/logging"
	"github.com/stacklens/sentry-mcp/internal/observability"
	"github.com/stacklens/sentry-mcp/internal/sentry"
)

const (
	serverName    = "sentry-mcp"
	serverVersion = "1.0.0"

	mcpEndpointPath = "/mcp"
)

// MCPServer wraps the Sentry tooling and exposes it via MCP.
type MCPServer struct {
	cfg       *config.Config
	sentry    *sentry.Client
	exchanger *sentry.TokenExchanger
	tokens    TokenStore
	logger    *logging.Logger
	reporter  observability.Reporter
	mcpServer *mcpserver.MCPServer
	states    *stateRegistry
}

// Deps holds the collaborators an MCPServer is built from. Nil optional
// fields get in-process defaults.
type Deps struct {
	Config    *config.Config
	Sentry    *sentry.Client
	Exchanger *sentry.TokenExchanger
	Tokens    TokenStore
	Logger    *logging.Logger
	Reporter  observability.Reporter
}

// New creates an MCP server exposing the Sentry tools.
func New(deps Deps) (*MCPServer, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Sentry == nil {
		deps.Sentry = sentry.NewClient(sentry.ClientConfig{BaseURL: deps.Config.Sentry.BaseURL})
	}
	if deps.Exchanger == nil {
		deps.Exchanger = sentry.NewTokenExchanger(nil)
	}
	if deps.Tokens == nil {
		deps.Tokens = NewMemoryTokenStore()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewLogger(false)
	}
	if deps.Reporter == nil {
		deps.Reporter = observability.NewLogReporter(deps.Logger.Zap())
	}

	mcpSrv := mcpserver.NewMCPServer(
		serverName,
		serverVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithPromptCapabilities(false),
	)

	m := &MCPServer{
		cfg:       deps.Config,
		sentry:    deps.Sentry,
		exchanger: deps.Exchanger,
		tokens:    deps.Tokens,
		logger:    deps.Logger,
		reporter:  deps.Reporter,
		mcpServer: mcpSrv,
		states:    newStateRegistry(),
	}

	m.registerTools()

	return m, nil
}

// Start serves MCP on the configured transport and blocks until the
// context is cancelled or the transport fails.
func (m *MCPServer) Start(ctx context.Context) error {
	switch m.cfg.Server.Transport {
	case config.TransportStdio:
		return mcpserver.ServeStdio(m.mcpServer)

	case config.TransportStreamableHTTP:
		httpServer := mcpserver.NewStreamableHTTPServer(
			m.mcpServer,
			mcpserver.WithEndpointPath(mcpEndpointPath),
		)

		// Isolated mux: the MCP endpoint plus the OAuth leg.
		mux := http.NewServeMux()
		mux.Handle(mcpEndpointPath, httpServer)
		mux.HandleFunc(authorizePath, m.handleAuthorize)
		mux.HandleFunc(callbackPath, m.handleCallback)

		srv := &http.Server{
			Addr:         m.cfg.Server.ListenAddr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		m.logger.Info("Serving MCP at %s%s", m.cfg.Server.ListenAddr, mcpEndpointPath)

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errChan:
			return fmt.Errorf("http server error: %w", err)
		}

	default:
		return fmt.Errorf("unsupported server transport: %s", m.cfg.Server.Transport)
	}
}
