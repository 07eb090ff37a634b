// Command update-manager serves update manifests for the app and the
// web interface used to upload and promote releases.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"appupdates/internal/config"
	"appupdates/internal/debug"
	"appupdates/internal/server"
	"appupdates/internal/store"
)

type managerOptions struct {
	addr   string
	dbPath string
	server server.Config
	debug  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	if err := config.Initialize(); err != nil {
		logger.Error("config load failed", "err", err)
		return 1
	}

	opts, err := parseOptions(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if err := debug.Init("update-manager", opts.debug); err != nil {
		logger.Warn("debug log unavailable", "err", err)
	}
	defer debug.Close()
	if debug.Enabled() {
		logger.Info("debug log enabled", "path", debug.Path())
	}

	st, err := store.OpenPath(opts.dbPath)
	if err != nil {
		logger.Error("open database failed", "path", opts.dbPath, "err", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	srv, err := server.New(opts.server, st, server.WithLogger(logger))
	if err != nil {
		logger.Error("server setup failed", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, opts.addr); err != nil {
		logger.Error("server failed", "addr", opts.addr, "err", err)
		return 1
	}
	return 0
}

// parseOptions applies the flags given on the command line as config
// overrides, so flags beat files and AU_* variables.
func parseOptions(args []string, stderr io.Writer) (managerOptions, error) {
	fs := flag.NewFlagSet("update-manager", flag.ContinueOnError)
	fs.SetOutput(stderr)

	flagKeys := map[string]string{
		"addr":    config.KeyServerAddr,
		"db-path": config.KeyDatabasePath,
		"apk-dir": config.KeyServerAPKDir,
		"domain":  config.KeyServerDomain,
		"debug":   config.KeyDebug,
	}
	fs.String("addr", config.GetString(config.KeyServerAddr), "Listen address")
	fs.String("db-path", config.GetString(config.KeyDatabasePath), "Path to the release database")
	fs.String("apk-dir", config.GetString(config.KeyServerAPKDir), "Directory holding uploaded apks")
	fs.String("domain", config.GetString(config.KeyServerDomain), "Public base URL used in apk links")
	fs.Bool("debug", config.GetBool(config.KeyDebug), "Write a debug log to ~/.appupdates/update-manager.log")
	if err := fs.Parse(args); err != nil {
		return managerOptions{}, err
	}
	if fs.NArg() > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return managerOptions{}, fmt.Errorf("unexpected arguments")
	}

	overrides := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	if err := config.ApplyOverrides(overrides); err != nil {
		return managerOptions{}, err
	}

	cfg := server.Config{
		Domain:            strings.TrimSpace(config.GetString(config.KeyServerDomain)),
		APKDir:            strings.TrimSpace(config.GetString(config.KeyServerAPKDir)),
		APKPrefix:         config.GetString(config.KeyServerAPKPrefix),
		CacheMaxAge:       time.Duration(config.GetInt(config.KeyServerCacheMaxAge)) * time.Second,
		MinAndroidVersion: config.GetInt(config.KeyServerMinAndroidVersion),
		StaleThreshold:    config.GetInt(config.KeyServerStaleThreshold),
	}
	return managerOptions{
		addr:   strings.TrimSpace(config.GetString(config.KeyServerAddr)),
		dbPath: strings.TrimSpace(config.GetString(config.KeyDatabasePath)),
		server: cfg,
		debug:  config.GetBool(config.KeyDebug),
	}, nil
}
