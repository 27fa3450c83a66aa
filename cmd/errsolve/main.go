package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/errsolve/errsolve/internal/config"
	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/embed"
	"github.com/errsolve/errsolve/internal/mcp"
	"github.com/errsolve/errsolve/internal/ops"
	"github.com/errsolve/errsolve/internal/remote"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"save": true, "get": true, "get-many": true, "search": true,
	"list": true, "delete": true, "count": true, "push": true,
	"reindex": true, "health": true, "web": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
                            _
   ___ _ __ _ __ ___  ___ | |_   _____
  / _ \ '__| '__/ __|/ _ \| \ \ / / _ \
 |  __/ |  | |  \__ \ (_) | |\ V /  __/
  \___|_|  |_|  |___/\___/|_| \_/ \___|

  Personal error-resolution knowledge base

  Usage: errsolve <command> [options]
         errsolve --help

  MCP server mode requires piped input.`)
}

// buildEnv wires the store, config, and collaborators for one process.
func buildEnv(baseDir string) (*ops.Env, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db.ConfigurePool(database, cfg)

	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to recover indexes: %w", err)
	}

	env := &ops.Env{
		DB:       database,
		Cfg:      cfg,
		Embedder: embed.NewClient(cfg.EmbedURL, cfg.EmbedModel),
		BaseDir:  baseDir,
	}
	if rc := cfg.ResolveRemote("", ""); rc != nil {
		env.Remote = remote.NewClient(rc.BaseURL, rc.APIKey)
	}
	return env, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := os.Getenv("ERRSOLVE_HOME")
	if baseDir == "" {
		baseDir = filepath.Join(homeDir, ".errsolve")
	}

	env, err := buildEnv(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer env.DB.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'errsolve --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(env, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
