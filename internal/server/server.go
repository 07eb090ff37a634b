// Package server publishes release manifests to the app and hosts the
// update manager used to upload and promote releases.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"appupdates/internal/apk"
	"appupdates/internal/domain"
)

// Releases is the persistence the server needs. *store.Store implements it.
type Releases interface {
	CreateRelease(ctx context.Context, r domain.Release) error
	DeleteRelease(ctx context.Context, code int) error
	ReleaseExists(ctx context.Context, code int) (bool, error)
	Release(ctx context.Context, code int) (domain.Release, error)
	Latest(ctx context.Context, limit int) ([]domain.Release, error)
	ChannelRelease(ctx context.Context, ch domain.Channel) (domain.Release, error)
	PromoteRelease(ctx context.Context, ch domain.Channel, code int) error
	SetNotice(ctx context.Context, code int, notice string) error
	InfoMessage(ctx context.Context) (domain.InfoMessage, error)
	SaveInfoMessage(ctx context.Context, m domain.InfoMessage) error
	ToggleEndOfLife(ctx context.Context, code int) (domain.InfoMessage, error)
}

// Config holds the publishing settings.
type Config struct {
	// Domain prefixes every published APK URL, e.g. "http://app.pr0gramm.com".
	Domain string
	// APKDir is where uploaded packages are stored.
	APKDir string
	// APKPrefix names stored packages "<prefix>-<versionStr>.apk".
	APKPrefix string
	// CacheMaxAge is the public max-age of manifest and info responses.
	CacheMaxAge time.Duration
	// MinAndroidVersion is the lowest Android SDK level still offered updates.
	MinAndroidVersion int
	// StaleThreshold is how many version codes a client may trail stable
	// before it is told to update.
	StaleThreshold int
}

// DefaultConfig mirrors the production deployment.
func DefaultConfig() Config {
	return Config{
		Domain:            "http://app.pr0gramm.com",
		APKDir:            "apks",
		APKPrefix:         "pr0gramm",
		CacheMaxAge:       60 * time.Second,
		MinAndroidVersion: 21,
		StaleThreshold:    20,
	}
}

// indexLimit is how many releases the manager index lists.
const indexLimit = 16

// maxUploadMemory bounds the multipart form held in memory; larger uploads
// spill to temporary files.
const maxUploadMemory = 32 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithVersionReader replaces APK manifest parsing for uploads.
func WithVersionReader(fn func(r io.ReaderAt, size int64) (int, error)) Option {
	return func(s *Server) {
		if fn != nil {
			s.versionCode = fn
		}
	}
}

// Server serves the public update endpoints and the update manager.
type Server struct {
	cfg         Config
	releases    Releases
	log         *slog.Logger
	index       *template.Template
	versionCode func(r io.ReaderAt, size int64) (int, error)
	handler     http.Handler
}

// New builds a Server backed by releases.
func New(cfg Config, releases Releases, opts ...Option) (*Server, error) {
	if releases == nil {
		return nil, fmt.Errorf("server: releases store is nil")
	}
	if strings.TrimSpace(cfg.APKDir) == "" {
		return nil, fmt.Errorf("server: apk directory is empty")
	}
	cfg.Domain = strings.TrimRight(strings.TrimSpace(cfg.Domain), "/")

	tmpl, err := loadIndexTemplate()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:         cfg,
		releases:    releases,
		log:         slog.Default(),
		index:       tmpl,
		versionCode: apk.VersionCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.withRequestLog(s.routes())
	return s, nil
}

// Handler returns the HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	for _, ch := range domain.Channels {
		h := s.handleUpdateJSON(ch)
		mux.HandleFunc("GET /"+ch.String()+"/update.json", h)
		mux.HandleFunc("GET /updates/"+ch.String()+"/update.json", h)
	}
	mux.HandleFunc("GET /pr0gramm-latest.apk", s.handleLatestAPK)
	mux.HandleFunc("GET /apk/{code}/{name...}", s.handleAPK)
	mux.HandleFunc("GET /info-message.json", s.handleInfoMessage)

	mux.HandleFunc("GET /update-manager/{$}", s.handleIndex)
	mux.HandleFunc("POST /update-manager/version/{code}/notice", s.handleSetNotice)
	mux.HandleFunc("GET /update-manager/version/{code}/set/{target}", s.handleSetTarget)
	mux.HandleFunc("POST /update-manager/info-message", s.handleSetInfoMessage)
	mux.HandleFunc("POST /update-manager/upload", s.handleUpload)

	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		return fmt.Errorf("server addr is empty")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("update server listening", "addr", addr, "domain", s.cfg.Domain, "apk_dir", s.cfg.APKDir)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("update server stopped")
	return nil
}

func (s *Server) apkURL(r domain.Release) string {
	return fmt.Sprintf("%s/apk/%d/%s", s.cfg.Domain, r.Code, r.Filename)
}
