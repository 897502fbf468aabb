package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/akazakov/sklad/internal/api"
	"github.com/akazakov/sklad/internal/config"
	"github.com/akazakov/sklad/internal/db"
	"github.com/akazakov/sklad/internal/ledger"
	"github.com/akazakov/sklad/internal/remote"
	"github.com/akazakov/sklad/internal/store"
	"github.com/akazakov/sklad/internal/sync"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	fs := flag.NewFlagSet("sklad", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", "sklad.sqlite3", "")
	fs.StringVar(&dbPath, "d", "sklad.sqlite3", "")

	var addr string
	fs.StringVar(&addr, "addr", ":8080", "")
	fs.StringVar(&addr, "a", ":8080", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var envFile string
	fs.StringVar(&envFile, "env", "", "")
	fs.StringVar(&envFile, "e", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: sklad [flags]

Flags:
  -d, -db <path>          SQLite database path (default: sklad.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -e, -env <path>         env file path (default: .env if present)
  -h, -help               show this help and exit

Environment:
  SKLAD_REMOTE_URI        MongoDB connection string (empty: local-only mode)
  SKLAD_REMOTE_DB         remote database name (default: sklad)
  SKLAD_REFRESH_SCHEDULE  cron schedule for recent-activity pulls (default: */15 * * * *)
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Open database and ensure schema (idempotent).
	database, err := db.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", dbPath)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		os.Exit(1)
	}

	if n, err := store.PurgeExpiredTokens(context.Background(), database); err != nil {
		slog.Warn("failed to purge expired token revocations", "error", err)
	} else if n > 0 {
		slog.Info("purged expired token revocations", "count", n)
	}

	// Remote store is optional; without it the server runs local-only.
	var remoteStore remote.Store
	if cfg.Remote.URI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoStore, err := remote.NewMongoStore(ctx, cfg.Remote.URI, cfg.Remote.DBName)
		cancel()
		if err != nil {
			slog.Error("failed to connect to remote store", "error", err)
			os.Exit(1)
		}
		defer mongoStore.Close(context.Background())
		remoteStore = mongoStore
		slog.Info("remote store connected", "database", cfg.Remote.DBName)
	} else {
		slog.Info("no remote store configured, running local-only")
	}

	reconciler := sync.New(database, remoteStore)
	inventory := ledger.New(database)

	// Scheduled recent-activity pull for every signed-in owner.
	var scheduler *cron.Cron
	if reconciler.Enabled() {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Refresh.CronSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			for _, owner := range reconciler.ActiveOwners() {
				if err := reconciler.RefreshRecent(ctx, owner); err != nil {
					slog.Warn("scheduled refresh failed", "owner", owner, "error", err)
				}
			}
		})
		if err != nil {
			slog.Error("failed to schedule refresh", "schedule", cfg.Refresh.CronSchedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
		slog.Info("refresh scheduled", "schedule", cfg.Refresh.CronSchedule)
	}

	handler := api.LoggingMiddleware(api.NewRouter(database, inventory, reconciler, jwtSecret))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}
