package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"appupdates/internal/debug"
	appErrors "appupdates/internal/errors"
)

type ctxKey int

const requestIDKey ctxKey = iota

const managerIndexPath = "/update-manager/"

// statusFor maps structured error codes onto HTTP statuses.
func statusFor(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.CodeNotFound:
		return http.StatusNotFound
	case appErrors.CodeAlreadyExists:
		return http.StatusConflict
	case appErrors.CodeInvalidInput, appErrors.CodeInvalidAPK:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := s.requestLogger(r)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	logger.Info("request rejected", "status", status, "err", err)
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) setPublicCache(w http.ResponseWriter) {
	seconds := int(s.cfg.CacheMaxAge / time.Second)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", seconds))
}

func redirectIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, managerIndexPath, http.StatusSeeOther)
}

func pathCode(r *http.Request) (int, error) {
	raw := r.PathValue("code")
	code, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.New(appErrors.CodeInvalidInput, fmt.Sprintf("invalid version code %q", raw), err)
	}
	return code, nil
}

func (s *Server) requestLogger(r *http.Request) *slog.Logger {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return s.log.With("request_id", id)
	}
	return s.log
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags each request with an id, echoed in X-Request-ID.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		debug.Logf("server: %s %s -> %d (%s) id=%s", r.Method, r.URL.Path, rec.status, elapsed, id)
		s.log.Debug("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}
