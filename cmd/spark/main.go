package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hpungsan/spark/internal/config"
	"github.com/hpungsan/spark/internal/db"
	"github.com/hpungsan/spark/internal/db/postgres"
	"github.com/hpungsan/spark/internal/generate"
	"github.com/hpungsan/spark/internal/logging"
	"github.com/hpungsan/spark/internal/mcp"
	"github.com/hpungsan/spark/internal/ops"
	"github.com/hpungsan/spark/internal/query"
	"github.com/hpungsan/spark/internal/search"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "mcp": true,
	"recommend": true, "check": true,
	"list": true, "get": true, "import": true, "delete": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
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
   ___  ___  ___  ___ _  __
  / __|| _ \/   \| _ \ |/ /
  \__ \|  _/| - ||   / ' <
  |___/|_|  |_|_||_|_\_|\_\

  Project recommendations from a sentence

  Usage: spark <command> [options]
         spark --help

  MCP server mode requires piped input.`)
}

// baseDir returns $SPARK_HOME, or ~/.spark.
func baseDir() (string, error) {
	if home := os.Getenv("SPARK_HOME"); home != "" {
		return home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".spark"), nil
}

// openCatalog opens the store selected by cfg.Database.Driver.
func openCatalog(ctx context.Context, cfg *config.Config, dir string) (ops.Catalog, error) {
	switch cfg.Database.Driver {
	case "postgres":
		store, err := postgres.Open(ctx, cfg.Database.URL, postgres.Options{
			TextSearchConfig: cfg.Database.TextSearchConfig,
			MaxConns:         cfg.Database.MaxOpenConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return store, nil
	default:
		database, err := openSQLite(cfg, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		db.ConfigurePool(database, cfg)
		return db.NewStore(database), nil
	}
}

func openSQLite(cfg *config.Config, dir string) (*sql.DB, error) {
	if cfg.Database.Path != "" {
		return db.Open(cfg.Database.Path)
	}
	return db.Init(dir)
}

func closeCatalog(catalog ops.Catalog) {
	if c, ok := catalog.(io.Closer); ok {
		_ = c.Close()
	}
}

// newService wires the configured catalog, generator, and search options.
func newService(catalog ops.Catalog, cfg *config.Config) (*ops.Service, error) {
	logger := logging.Logger()

	generator, err := generate.FromConfig(cfg.AI, logger)
	if err != nil {
		return nil, err
	}

	mode, err := query.ParseMode(cfg.Search.Mode)
	if err != nil {
		return nil, err
	}

	return ops.NewService(catalog, ops.Options{
		Search: search.Options{
			Mode:         mode,
			StageTimeout: cfg.Search.StageTimeout,
		},
		Limit:         cfg.Search.Limit,
		CombinedLimit: cfg.Search.CombinedLimit,
		Generator:     generator,
		Logger:        logger,
	}), nil
}

// openCatalogFunc is replaced in tests.
var openCatalogFunc = openCatalog

// setup opens the catalog and builds the service over it. On error nothing
// is left open.
func setup(ctx context.Context, cfg *config.Config, dir string) (ops.Catalog, *ops.Service, error) {
	catalog, err := openCatalogFunc(ctx, cfg, dir)
	if err != nil {
		return nil, nil, err
	}
	svc, err := newService(catalog, cfg)
	if err != nil {
		closeCatalog(catalog)
		return nil, nil, err
	}
	return catalog, svc, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'spark --help' for usage.\n")
		os.Exit(1)
	}

	dir, err := baseDir()
	if err != nil {
		fatal("%v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	catalog, svc, err := setup(context.Background(), cfg, dir)
	if err != nil {
		fatal("%v", err)
	}
	defer closeCatalog(catalog)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(svc, cfg)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			closeCatalog(catalog)
			os.Exit(1)
		}
		return
	}

	// MCP server mode (default)
	if err := mcp.Run(svc, cfg.MCP, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeCatalog(catalog)
		os.Exit(1)
	}
}
