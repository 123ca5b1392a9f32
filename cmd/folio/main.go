// Package main is the folio CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/folio/internal/cli"
	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/fileid"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/server"
	"github.com/hyperjump/folio/internal/tui"
	"github.com/hyperjump/folio/internal/vector"
	"github.com/hyperjump/folio/internal/watcher"
	"github.com/hyperjump/folio/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// loadConfig loads config from path. A missing file at the default path is not
// an error: every setting then takes its default. Returns the config and the
// path that was actually loaded, or "" when defaults were used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	var err error
	switch command := os.Args[1]; command {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "collections":
		err = runCollections(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "repl":
		err = runREPL(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("folio version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every subcommand accepts.
func commonFlags(fs *flag.FlagSet) (configPath *string, debug *bool) {
	configPath = fs.String("config", defaultConfigPath, "config file path")
	debug = fs.Bool("debug", false, "enable debug logging")
	return configPath, debug
}

// argsReorder moves any flags (and their values) that appear after positional
// arguments to the front so that flag.Parse sees them. The flag package stops at
// the first non-flag argument, so "folio search notes rivers --top-k 3" would
// otherwise leave --top-k unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func setup(configPath string, debug bool, cliLogger bool) (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || debug
	newLogger := utils.NewLogger
	if cliLogger {
		newLogger = utils.NewCLILogger
	}
	logger, err := newLogger(debugMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if resolved == "" {
		resolved = "(defaults)"
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, logger, nil
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	collection := fs.String("collection", "", "collection name (default: derived from the file path)")
	showProgress := fs.Bool("progress", cli.DefaultProgressEnabled(), "show a progress bar")
	_ = fs.Parse(argsReorder(args))
	if fs.NArg() != 1 {
		return errors.New("usage: folio ingest [flags] <file>")
	}
	path := fs.Arg(0)
	if *collection == "" {
		*collection = fileid.CollectionName(path)
	}

	cfg, logger, err := setup(*configPath, *debug, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	progress := cli.NewProgress(os.Stderr, *showProgress)
	var idxOpts []indexer.IndexerOption
	if fn := progress.Func(); fn != nil {
		idxOpts = append(idxOpts, indexer.WithProgress(fn))
	}
	components, err := initializeComponents(cfg, logger, false, idxOpts...)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := components.Indexer.IndexFile(ctx, path, *collection)
	progress.Finish()
	if err != nil {
		var se *indexer.StageError
		if errors.As(err, &se) && se.Partial {
			return fmt.Errorf("%w (collection %q may hold partial data)", err, se.Collection)
		}
		return err
	}
	fmt.Println(indexer.FormatResult(res))
	if res.SkippedPages > 0 {
		fmt.Printf("skipped %d unreadable pages\n", res.SkippedPages)
	}
	return nil
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: folio search [flags] <collection> <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	topK := fs.Int("top-k", 0, "number of results (default from config)")
	format := fs.String("format", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(argsReorder(args))
	if fs.NArg() < 2 {
		printSearchUsage(fs)
		return errors.New("collection and query are required")
	}
	outFormat, err := cli.ParseOutputFormat(*format)
	if err != nil {
		return err
	}

	cfg, logger, err := setup(*configPath, *debug, true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		return err
	}
	defer components.Close()

	k := *topK
	if k <= 0 {
		k = cfg.Search.TopK
	}
	q := &models.SearchQuery{
		Collection: fs.Arg(0),
		Query:      buildSearchQuery(fs.Args()[1:]),
		TopK:       k,
	}
	ctx := context.Background()
	response, err := components.Engine.Search(ctx, q)
	if err != nil {
		if errors.Is(err, vector.ErrCollectionNotFound) {
			return withSuggestion(ctx, components.Indexer.Collections(), q.Collection, err)
		}
		return fmt.Errorf("search failed: %w", err)
	}
	return cli.WriteSearchResults(os.Stdout, response, outFormat)
}

func runCollections(args []string) error {
	fs := flag.NewFlagSet("collections", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	format := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(args))

	sub := fs.Arg(0)
	if sub == "" {
		sub = "list"
	}
	outFormat, err := cli.ParseOutputFormat(*format)
	if err != nil {
		return err
	}
	cfg, logger, err := setup(*configPath, *debug, true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx := context.Background()
	cols := components.Indexer.Collections()
	switch sub {
	case "list":
		names, err := cols.List(ctx)
		if err != nil {
			return err
		}
		return cli.WriteCollections(os.Stdout, names, outFormat)
	case "delete":
		if fs.NArg() != 2 {
			return errors.New("usage: folio collections delete <name>")
		}
		name := fs.Arg(1)
		exists, err := cols.Exists(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			return withSuggestion(ctx, cols, name, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name))
		}
		if err := cols.Delete(ctx, name); err != nil {
			return err
		}
		fmt.Printf("Collection deleted: %s\n", name)
		return nil
	default:
		return fmt.Errorf("unknown collections subcommand %q (want list or delete)", sub)
	}
}

// withSuggestion appends close collection names to a not-found error.
func withSuggestion(ctx context.Context, cols *indexer.Collections, name string, err error) error {
	names, listErr := cols.List(ctx)
	if listErr != nil {
		return err
	}
	if hints := cli.Suggest(name, names, 3); len(hints) > 0 {
		return fmt.Errorf("%w (did you mean %s?)", err, strings.Join(hints, ", "))
	}
	return err
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	watch := fs.Bool("watch", false, "ingest files dropped into watch.paths (overrides watch.enabled)")
	_ = fs.Parse(args)

	cfg, logger, err := setup(*configPath, *debug, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch.Enabled || *watch {
		w := watcher.New(cfg.Watch.Paths,
			watcher.NewIngestHandler(components.Indexer, components.Registry, logger),
			watcher.WithExtensions(cfg.Watch.Extensions),
			watcher.WithExclude(cfg.Watch.Exclude),
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
			watcher.WithLogger(logger),
		)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
		w.SyncExisting()
	}

	srv := server.NewServer(components.Engine, components.Indexer, components.Registry, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runREPL(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	collection := fs.String("collection", "", "collection to search initially")
	_ = fs.Parse(args)

	cfg, logger, err := setup(*configPath, *debug, true)
	if err != nil {
		return err
	}
	defer logger.Sync()
	// log lines would corrupt the full-screen UI
	if !*debug && !cfg.Debug {
		logger = zap.NewNop()
	}
	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		return err
	}
	defer components.Close()

	backend := &tui.Service{Indexer: components.Indexer, Engine: components.Engine}
	return tui.Run(context.Background(), backend, *collection, cfg.Search.TopK)
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	if name == "" || name == "." {
		name = "folio"
	}
	fmt.Printf(`%[1]s - page-aware document search over a vector store

Usage:
  %[1]s ingest [flags] <file>                 Index a document into a collection
  %[1]s search [flags] <collection> <query>   Search a collection
  %[1]s collections list|delete <name>        Manage collections
  %[1]s serve [flags]                         Start the HTTP server
  %[1]s repl [flags]                          Start the interactive shell
  %[1]s version                               Show version
  %[1]s help                                  Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, defaults when missing)
  --debug            Enable debug logging

Ingest Flags:
  --collection string  Collection name (default: derived from the file path)
  --progress           Show a progress bar (default: on when stderr is a terminal)

Search Flags:
  --top-k int        Number of results (default: search.top_k)
  --format string    Output format: text or json (default: text)

Serve Flags:
  --watch            Ingest files dropped into watch.paths

Examples:
  %[1]s ingest report.pdf --collection reports
  %[1]s search reports quarterly revenue --top-k 3
  %[1]s collections delete reports
  %[1]s serve --config /etc/folio/config.yaml
`, name)
}
