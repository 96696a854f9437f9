package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/listenview/internal/config"
	"github.com/wesm/listenview/internal/dashboard"
	"github.com/wesm/listenview/internal/inbox"
	"github.com/wesm/listenview/internal/metrics"
	"github.com/wesm/listenview/internal/server"
	"github.com/wesm/listenview/internal/store"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const (
	inboxDebounce   = 500 * time.Millisecond
	shutdownTimeout = 10 * time.Second
	maxLogSize      = 10 << 20
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "stats":
			runStats(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("listenview %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`listenview %s - listening history dashboard backend

Parses streaming-history exports, splits them into listening
sessions and serves metrics over HTTP.

Usage:
  listenview [flags]              Start the server (default command)
  listenview serve [flags]        Start the server (explicit)
  listenview stats [flags] file.. Print metrics for export files
  listenview version              Show version information
  listenview help                 Show this help

Server flags:
  -host string        Host to bind to (default "127.0.0.1")
  -port int           Port to listen on (default 8000)
  -store string       Dataset store: memory, sqlite or redis (default "memory")
  -redis-url string   Redis URL for the redis store
  -tz string          Analysis timezone (default "Asia/Kolkata")
  -inbox string       Directory to watch for export files

Stats flags:
  -from string        Start of the window (date or timestamp)
  -to string          End of the window, inclusive
  -tz string          Analysis timezone (default "Asia/Kolkata")

Environment variables:
  LISTENVIEW_DATA_DIR     Data directory (config.json, debug.log)
  LISTENVIEW_STORE        Dataset store backend
  LISTENVIEW_REDIS_URL    Redis URL
  LISTENVIEW_TIMEZONE     Analysis timezone
  LISTENVIEW_INBOX_DIR    Inbox directory
  LISTENVIEW_STORE_TTL    Dataset lifetime, e.g. 24h (0 keeps forever)
  LISTENVIEW_STORE_MAX    Maximum stored datasets (0 is unbounded)

A .env file in the working directory is read before the
environment. Data is stored in ~/.listenview/ by default.
`, version)
}

func runServe(args []string) {
	cfg := mustLoadConfig(args)
	setupLogFile(cfg.DataDir)

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	st := mustOpenStore(ctx, cfg)
	defer st.Close()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("loading timezone: %v", err)
	}
	svc := dashboard.New(st, metrics.New(metrics.Options{Location: loc}))

	stopInbox := startInbox(cfg, svc)
	defer stopInbox()

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Printf("Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, svc,
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
	)

	fmt.Printf("listenview %s listening at http://%s:%d (store %s)\n",
		version, cfg.Host, cfg.Port, cfg.StoreBackend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func mustLoadConfig(args []string) config.Config {
	fs := flag.NewFlagSet("listenview", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: listenview [serve] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	return cfg
}

func mustOpenStore(ctx context.Context, cfg config.Config) store.Store {
	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		log.Fatalf("opening %s store: %v", cfg.StoreBackend, err)
	}
	return st
}

func startInbox(cfg config.Config, svc *dashboard.Service) func() {
	if cfg.InboxDir == "" {
		return func() {}
	}
	in, err := inbox.New(cfg.InboxDir, inboxDebounce, svc)
	if err != nil {
		log.Printf("warning: inbox unavailable: %v", err)
		return func() {}
	}
	if err := in.Start(); err != nil {
		log.Printf("warning: inbox unavailable: %v", err)
		return func() {}
	}
	return in.Stop
}

// setupLogFile mirrors the standard logger into debug.log in
// dataDir.
func setupLogFile(dataDir string) {
	path := filepath.Join(dataDir, "debug.log")
	truncateLogFile(path, maxLogSize)
	f, err := os.OpenFile(
		path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644,
	)
	if err != nil {
		log.Printf("warning: cannot open log file: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}

// truncateLogFile empties path when it has grown past limit.
// Symlinks and other non-regular files are left alone.
func truncateLogFile(path string, limit int64) {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if info.Size() <= limit {
		return
	}
	if err := os.Truncate(path, 0); err != nil {
		log.Printf("warning: truncating log file: %v", err)
	}
}
