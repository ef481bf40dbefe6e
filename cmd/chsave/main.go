// CLAUDE:SUMMARY CLI entry point for chsave — one-shot export, HTTP API, and MCP stdio modes.
// Command chsave drives a headless Chromium to download page content as files.
//
// Usage:
//
//	chsave -url https://example.com -selector "#chart" -format vector
//	chsave -serve -config chsave.yaml      # HTTP export API
//	chsave -mcp -config chsave.yaml        # MCP server on stdio
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/chsave/browser"
	"github.com/hazyhaar/chsave/journal"
	"github.com/hazyhaar/chsave/snapshot"
)

func main() {
	configPath := flag.String("config", "", "path to chsave.yaml config file")
	pageURL := flag.String("url", "", "page URL for a one-shot export")
	selector := flag.String("selector", "", "CSS selector of the node (default: body)")
	format := flag.String("format", "vector", "export format: vector, raster, pdf, markdown")
	filename := flag.String("out", "", "download filename (default per format)")
	serve := flag.Bool("serve", false, "run the HTTP export API")
	mcpMode := flag.Bool("mcp", false, "run as an MCP server on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("chsave: load config", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, logger, cfg, *pageURL, *selector, *format, *filename, *serve, *mcpMode); err != nil {
		logger.Error("chsave: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *Config, pageURL, selector, format, filename string, serve, mcpMode bool) error {
	switch {
	case serve:
		return runServe(ctx, logger, cfg)
	case mcpMode:
		return runMCP(ctx, logger, cfg)
	case pageURL != "":
		return runOnce(ctx, logger, cfg, pageURL, selector, format, filename)
	}
	fmt.Fprintln(os.Stderr, "usage: chsave -url <url> [-selector <css>] [-format vector|raster|pdf|markdown] | -serve | -mcp")
	os.Exit(1)
	return nil
}

func newManager(cfg *Config, logger *slog.Logger) *browser.Manager {
	return browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		DownloadDir:     cfg.Browser.DownloadDir,
		Stealth:         cfg.Browser.Stealth,
		NavigateTimeout: cfg.Browser.NavigateTimeout,
		Logger:          logger,
	})
}

// hostLinger is how long an export tab stays open after being handed out.
// The trigger click only starts the download and closing the tab right after
// would abort it, so the tab must outlive the request; after the window it is
// reaped so serve/mcp modes never accumulate tabs across exports.
const hostLinger = 2 * time.Minute

// reapAfter closes c once the linger window elapses.
func reapAfter(c io.Closer, d time.Duration) *time.Timer {
	return time.AfterFunc(d, func() { _ = c.Close() })
}

// openerFor adapts the browser manager to the snapshot opener contract.
func openerFor(m *browser.Manager) snapshot.Opener {
	return func(ctx context.Context, pageURL, selector string) (snapshot.Host, snapshot.Node, error) {
		host, err := m.OpenPage(ctx, pageURL)
		if err != nil {
			return nil, nil, err
		}
		node, err := host.Element(ctx, selector)
		if err != nil {
			host.Close()
			return nil, nil, err
		}
		reapAfter(host, hostLinger)
		return host, node, nil
	}
}

// openJournal opens the journal database, or returns nil when disabled.
func openJournal(ctx context.Context, cfg *Config, logger *slog.Logger) (*journal.Journal, *sql.DB, error) {
	if cfg.Journal.Path == "" {
		return nil, nil, nil
	}
	if dir := filepath.Dir(cfg.Journal.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", cfg.Journal.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("journal db: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := journal.New(db)
	if err := j.Init(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("journal init: %w", err)
	}
	if err := j.Cleanup(ctx, cfg.Journal.RetentionDays); err != nil {
		logger.Warn("chsave: journal cleanup", "error", err)
	}
	return j, db, nil
}

func runOnce(ctx context.Context, logger *slog.Logger, cfg *Config, pageURL, selector, format, filename string) error {
	runner, ok := exportRunners[format]
	if !ok {
		return fmt.Errorf("unknown format %q", format)
	}

	m := newManager(cfg, logger)
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Close()

	host, node, err := openerFor(m)(ctx, pageURL, selector)
	if err != nil {
		return err
	}

	if filename == "" {
		filename = runner.defaultName
	}
	e := snapshot.New(node, host, snapshot.WithLogger(logger))
	if err := runner.run(e, ctx, filename); err != nil {
		return err
	}

	// The click only starts the download; give Chrome a moment to stream
	// it to disk before tearing the browser down.
	logger.Info("chsave: export triggered", "format", format, "filename", filename)
	select {
	case <-time.After(3 * time.Second):
	case <-ctx.Done():
	}
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *Config) error {
	m := newManager(cfg, logger)
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Close()

	jrnl, db, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(openerFor(m), jrnl, logger),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("chsave: server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("chsave: server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("chsave: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("chsave: shutdown", "error", err)
	}
	logger.Info("chsave: server stopped")
	return nil
}

func runMCP(ctx context.Context, logger *slog.Logger, cfg *Config) error {
	m := newManager(cfg, logger)
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Close()

	jrnl, db, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "chsave",
		Version: "1.0.0",
	}, nil)
	snapshot.RegisterMCP(srv, openerFor(m), jrnl)

	logger.Info("chsave: mcp server on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}
