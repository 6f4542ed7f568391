// Package console provides an interactive prompt for exercising the
// Sentry tools locally, without attaching an MCP client.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/stacklens/sentry-mcp/internal/config"
	"github.com/stacklens/sentry-mcp/internal/logging"
	"github.com/stacklens/sentry-mcp/internal/sentry"
)

// errExit is a sentinel error used to signal console exit
var errExit = errors.New("exit")

// Console is the interactive loop around the Sentry client.
type Console struct {
	cfg             *config.Config
	client          *sentry.Client
	exchanger       *sentry.TokenExchanger
	logger          *logging.Logger
	accessToken     string
	commandHandlers map[string]commandHandler
}

// New creates a console. The access token starts from the configured
// auth token and can be replaced at the prompt via `token` or `exchange`.
func New(cfg *config.Config, client *sentry.Client, exchanger *sentry.TokenExchanger, logger *logging.Logger) *Console {
	c := &Console{
		cfg:         cfg,
		client:      client,
		exchanger:   exchanger,
		logger:      logger,
		accessToken: cfg.Sentry.AuthToken,
	}
	c.commandHandlers = c.buildCommandHandlers()
	return c
}

// Run starts the console loop and blocks until exit or context
// cancellation.
func (c *Console) Run(ctx context.Context) error {
	historyFile := filepath.Join(os.TempDir(), ".sentry_mcp_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              "sentry> ",
		HistoryFile:         historyFile,
		AutoComplete:        c.createCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer func() { _ = rl.Close() }()

	c.logger.Info("Sentry console started. Type 'help' for available commands. Use TAB for completion.")
	fmt.Println()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Console shutting down...")
			return nil
		default:
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
		} else if err == io.EOF {
			c.logger.Info("Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := c.executeCommand(ctx, input); err != nil {
			if errors.Is(err, errExit) {
				c.logger.Info("Goodbye!")
				return nil
			}
			c.logger.Error("Error: %v", err)
		}

		fmt.Println()
	}
}

// createCompleter creates the tab completion configuration
func (c *Console) createCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("?"),
		readline.PcItem("search"),
		readline.PcItem("authurl"),
		readline.PcItem("exchange"),
		readline.PcItem("token"),
		readline.PcItem("whoami"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

// filterInput filters input characters for readline
func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// commandHandler defines a console command with its handler and argument
// requirements
type commandHandler struct {
	minArgs int
	usage   string
	handler func(ctx context.Context, parts []string) error
}

// buildCommandHandlers creates the map of command handlers
func (c *Console) buildCommandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"help": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return c.showHelp()
		}},
		"?": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return c.showHelp()
		}},
		"exit": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return errExit
		}},
		"quit": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return errExit
		}},
		"search": {
			minArgs: 2,
			usage:   "usage: search <filename>",
			handler: func(ctx context.Context, parts []string) error {
				return c.handleSearch(ctx, parts[1])
			},
		},
		"authurl": {
			minArgs: 1,
			handler: func(ctx context.Context, parts []string) error {
				return c.handleAuthURL()
			},
		},
		"exchange": {
			minArgs: 2,
			usage:   "usage: exchange <authorization-code>",
			handler: func(ctx context.Context, parts []string) error {
				return c.handleExchange(ctx, parts[1])
			},
		},
		"token": {
			minArgs: 2,
			usage:   "usage: token <access-token>",
			handler: func(ctx context.Context, parts []string) error {
				c.accessToken = parts[1]
				fmt.Println("Access token set.")
				return nil
			},
		},
		"whoami": {
			minArgs: 1,
			handler: func(ctx context.Context, parts []string) error {
				fmt.Printf("authenticated: %t\n", c.accessToken != "")
				fmt.Printf("organization:  %s\n", c.cfg.Sentry.Organization)
				fmt.Printf("upstream:      %s\n", c.client.BaseURL())
				return nil
			},
		},
	}
}

// executeCommand parses and executes a command
func (c *Console) executeCommand(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	command := strings.ToLower(parts[0])

	handler, exists := c.commandHandlers[command]
	if !exists {
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", command)
	}

	if len(parts) < handler.minArgs {
		return errors.New(handler.usage)
	}

	return handler.handler(ctx, parts)
}

// showHelp displays available commands
func (c *Console) showHelp() error {
	fmt.Println("Available commands:")
	fmt.Println("  help, ?                - Show this help message")
	fmt.Println("  search <filename>      - Search unresolved errors in a source file")
	fmt.Println("  authurl                - Print the upstream authorization URL")
	fmt.Println("  exchange <code>        - Exchange an authorization code for a token")
	fmt.Println("  token <value>          - Use an existing access token")
	fmt.Println("  whoami                 - Show authentication state")
	fmt.Println("  exit, quit             - Exit the console")
	return nil
}

// handleSearch runs the issue search pipeline and prints the report.
func (c *Console) handleSearch(ctx context.Context, filename string) error {
	if c.accessToken == "" {
		return fmt.Errorf("no access token: use 'token <value>' or the authurl/exchange flow first")
	}

	report, err := c.client.SearchErrorsInFile(ctx, sentry.SearchRequest{
		Filename:     filename,
		AccessToken:  c.accessToken,
		Organization: c.cfg.Sentry.Organization,
	})
	if err != nil {
		return err
	}

	fmt.Println(report)
	return nil
}

// handleAuthURL prints the authorization URL the browser must visit.
func (c *Console) handleAuthURL() error {
	authURL, err := sentry.BuildAuthorizeURL(sentry.AuthorizeURLParams{
		UpstreamURL: c.cfg.OAuth.AuthorizeURL,
		ClientID:    c.cfg.OAuth.ClientID,
		RedirectURI: c.cfg.OAuth.RedirectURI,
		Scope:       c.cfg.OAuth.Scope,
	})
	if err != nil {
		return err
	}

	fmt.Println("Open this URL in your browser, then run 'exchange <code>' with the code from the callback:")
	fmt.Println(authURL)
	return nil
}

// handleExchange exchanges an authorization code and keeps the token for
// subsequent searches.
func (c *Console) handleExchange(ctx context.Context, code string) error {
	token, err := c.exchanger.ExchangeCode(ctx, sentry.ExchangeRequest{
		UpstreamURL:  c.cfg.OAuth.TokenURL,
		ClientID:     c.cfg.OAuth.ClientID,
		ClientSecret: c.cfg.OAuth.ClientSecret,
		Code:         code,
		RedirectURI:  c.cfg.OAuth.RedirectURI,
	})
	if err != nil {
		return err
	}

	c.accessToken = token.AccessToken
	c.logger.Success("Access token obtained")
	return nil
}
