// MooAgent is a conversational assistant with a tool-using reasoning
// loop.
//
// It exposes an HTTP API with JWT authentication, chats through a
// configurable Groq-hosted model with automatic fallback, and can call
// both built-in tools and tools advertised by a remote tool server.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	mooagent serve              Start the API server
//	mooagent ask <question>     Ask a single question (for testing)
//	mooagent version            Print version and build information
//	mooagent -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mooagent/mooagent/internal/agent"
	"github.com/mooagent/mooagent/internal/api"
	"github.com/mooagent/mooagent/internal/auth"
	"github.com/mooagent/mooagent/internal/buildinfo"
	"github.com/mooagent/mooagent/internal/config"
	"github.com/mooagent/mooagent/internal/llm"
	"github.com/mooagent/mooagent/internal/mcp"
	"github.com/mooagent/mooagent/internal/tools"
	"github.com/mooagent/mooagent/internal/users"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the mooagent command. All OS-level
// dependencies are injected as parameters. It returns nil on clean
// shutdown and a non-nil error for any failure; the caller (main) is
// responsible for printing the error and exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call run()
	// concurrently from tests. Our argument surface is small enough that
	// manual parsing is clearer than bringing in a CLI framework.
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: mooagent ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "MooAgent - Conversational assistant with tools")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: mooagent [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/mooagent/config.yaml, /etc/mooagent/config.yaml")
	return nil
}

// runAsk handles the "mooagent ask <question>" subcommand. It boots a
// minimal agent (no HTTP server, no auth) and processes a single
// question, printing the response to stdout. Useful for quick smoke
// tests and debugging without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)

	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	llmClient := llm.NewGroqClient(cfg.Groq.BaseURL, cfg.Groq.APIKey, logger)
	selector := newSelector(cfg, logger)

	var src tools.RemoteSource
	if cfg.MCP.URL != "" {
		client := mcp.NewClient(cfg.MCP.URL, mcp.WithTimeout(cfg.MCP.Timeout()), mcp.WithLogger(logger))
		src = tools.NewMCPSource(client, mcp.NewBridge(cfg.MCP.Timeout(), logger))
	}
	registry := tools.NewRegistry(src, logger)

	orch := agent.NewOrchestrator(llmClient, selector, registry, logger,
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithDeadline(cfg.Agent.Deadline()),
	)

	res := orch.Run(ctx, &agent.Request{Input: question})
	if res.Failed {
		return fmt.Errorf("ask failed (%s): %s", res.Reason, res.Message)
	}

	fmt.Fprintln(stdout, res.Answer)
	return nil
}

// runServe handles the "mooagent serve" subcommand. It is the primary
// operating mode: loads config, wires the model client, tool server
// client, user store, and token issuer into the API server, and blocks
// until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting MooAgent", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure logger now that we know the desired level. The initial
	// Info-level logger is used only for the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Models.Default,
	)

	if cfg.Groq.APIKey == "" {
		return fmt.Errorf("groq.api_key is not set (set GROQ_API_KEY or edit %s)", cfgPath)
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is not set (set AUTH_SECRET_KEY or edit %s)", cfgPath)
	}

	llmClient := llm.NewGroqClient(cfg.Groq.BaseURL, cfg.Groq.APIKey, logger)
	selector := newSelector(cfg, logger)

	var mcpClient *mcp.Client
	if cfg.MCP.URL != "" {
		mcpClient = mcp.NewClient(cfg.MCP.URL, mcp.WithTimeout(cfg.MCP.Timeout()), mcp.WithLogger(logger))
		logger.Info("tool server configured", "url", cfg.MCP.URL)
	} else {
		logger.Warn("no tool server configured - only built-in tools available")
	}

	issuer, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL())
	if err != nil {
		return err
	}

	// Accounts live in memory: this is a single-process deployment and
	// the store interface keeps the door open for a database later.
	store := users.NewMemoryStore()

	server := api.NewServer(cfg, llmClient, selector, mcpClient, store, issuer, logger)

	// --- Signal handling and graceful shutdown ---
	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	if err := server.Start(); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("MooAgent stopped")
	return nil
}

// newLogger creates a structured text logger that writes to w at the
// given level. All log output goes through slog; this helper
// standardizes the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig loads .env, then locates and parses the YAML configuration
// file. If explicit is non-empty, that exact path is used (and must
// exist). Otherwise [config.FindConfig] searches the default locations.
func loadConfig(explicit string) (*config.Config, string, error) {
	config.LoadDotenv()

	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// newSelector builds the model selector from the configured catalog.
func newSelector(cfg *config.Config, logger *slog.Logger) *llm.Selector {
	models := make([]llm.ModelInfo, 0, len(cfg.Models.Available))
	chains := make(map[string][]string, len(cfg.Models.Available))
	for _, m := range cfg.Models.Available {
		models = append(models, llm.ModelInfo{
			Name:          m.Name,
			Description:   m.Description,
			ContextWindow: m.ContextWindow,
		})
		if len(m.Fallbacks) > 0 {
			chains[m.Name] = m.Fallbacks
		}
	}
	return llm.NewSelector(cfg.Models.Default, models, chains, logger)
}
