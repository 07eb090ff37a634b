package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"appupdates/internal/apk"
	"appupdates/internal/debug"
	"appupdates/internal/domain"
	appErrors "appupdates/internal/errors"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	releases, err := s.releases.Latest(r.Context(), indexLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	info, err := s.releases.InfoMessage(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := indexData{Info: info}
	for _, rel := range releases {
		data.Releases = append(data.Releases, releaseRow{
			Release:    rel,
			Size:       s.fileSize(rel.Filename),
			EndOfLife:  info.EndOfLifeVersion != nil && *info.EndOfLifeVersion == rel.Code,
			VersionStr: rel.VersionString(),
		})
	}
	if len(releases) > 0 {
		data.MostRecent = releases[0].Code
	}

	var buf bytes.Buffer
	if err := s.index.Execute(&buf, data); err != nil {
		s.writeError(w, r, fmt.Errorf("render index: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// fileSize is the stored package size, or -1 when the file is unreadable.
func (s *Server) fileSize(name string) int64 {
	info, err := os.Stat(filepath.Join(s.cfg.APKDir, filepath.Base(name)))
	if err != nil {
		return -1
	}
	return info.Size()
}

func (s *Server) handleSetNotice(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.releases.SetNotice(r.Context(), code, r.FormValue("notice")); err != nil {
		s.writeError(w, r, err)
		return
	}
	redirectIndex(w, r)
}

func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	target := r.PathValue("target")
	if target == "eol" {
		info, err := s.releases.ToggleEndOfLife(r.Context(), code)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.requestLogger(r).Info("end of life toggled", "code", code, "info", info.String())
		redirectIndex(w, r)
		return
	}

	ch, err := domain.ParseChannel(target)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := s.releases.PromoteRelease(r.Context(), ch, code); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.requestLogger(r).Info("release promoted", "code", code, "channel", ch.String())
	redirectIndex(w, r)
}

func (s *Server) handleSetInfoMessage(w http.ResponseWriter, r *http.Request) {
	info, err := s.releases.InfoMessage(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	info.SetText(r.FormValue("message"), r.FormValue("messageId"))
	if err := s.releases.SaveInfoMessage(r.Context(), info); err != nil {
		s.writeError(w, r, err)
		return
	}
	redirectIndex(w, r)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, r, appErrors.New(appErrors.CodeInvalidInput, "invalid upload form", err))
		return
	}
	file, header, err := r.FormFile("apk")
	if err != nil {
		s.writeError(w, r, appErrors.New(appErrors.CodeInvalidInput, "missing apk upload", err))
		return
	}
	defer file.Close()

	if err := apk.CheckExtension(header.Filename); err != nil {
		s.writeError(w, r, err)
		return
	}

	code, err := s.versionCode(file, header.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	exists, err := s.releases.ReleaseExists(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if exists {
		s.writeError(w, r, domain.ReleaseExists(code))
		return
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		s.writeError(w, r, fmt.Errorf("rewind upload: %w", err))
		return
	}
	rel := domain.Release{
		Code:     code,
		Filename: domain.APKFilename(s.cfg.APKPrefix, code),
		Notice:   domain.DefaultNotice(code),
	}
	if err := s.storeRelease(r, rel, file); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.requestLogger(r).Info("release uploaded", "code", code, "file", rel.Filename, "bytes", header.Size)
	redirectIndex(w, r)
}

// storeRelease writes the package next to its final name, records the
// release and only then moves the file into place.
func (s *Server) storeRelease(r *http.Request, rel domain.Release, src io.Reader) error {
	//nolint:gosec // G301: apk directory is served publicly
	if err := os.MkdirAll(s.cfg.APKDir, 0755); err != nil {
		return fmt.Errorf("create apk directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.cfg.APKDir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write apk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close apk: %w", err)
	}

	if err := s.releases.CreateRelease(r.Context(), rel); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, filepath.Join(s.cfg.APKDir, rel.Filename)); err != nil {
		// Without the file the row would block every later upload of this code.
		if delErr := s.releases.DeleteRelease(context.WithoutCancel(r.Context()), rel.Code); delErr != nil {
			s.requestLogger(r).Error("roll back release", "code", rel.Code, "err", delErr)
		}
		return fmt.Errorf("move apk into place: %w", err)
	}
	committed = true
	debug.Logf("server: stored %s for version %d", rel.Filename, rel.Code)
	return nil
}
