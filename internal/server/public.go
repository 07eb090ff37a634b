package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"appupdates/internal/domain"
	appErrors "appupdates/internal/errors"
	"appupdates/internal/update"
)

// unsupportedManifest is served to Android versions below the minimum.
// It points nowhere and carries version 0, so clients never update.
func unsupportedManifest() update.Manifest {
	return update.Manifest{
		APK:       "https://example.com",
		Version:   0,
		Changelog: json.RawMessage(`[]`),
	}
}

func (s *Server) handleUpdateJSON(ch domain.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.Query().Get("androidVersion"); raw != "" {
			sdk, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				s.writeError(w, r, appErrors.New(appErrors.CodeInvalidInput,
					fmt.Sprintf("invalid androidVersion %q", raw), err))
				return
			}
			if sdk < s.cfg.MinAndroidVersion {
				writeJSON(w, unsupportedManifest())
				return
			}
		}

		rel, err := s.releases.ChannelRelease(r.Context(), ch)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.setPublicCache(w)
		writeJSON(w, update.NewManifest(s.apkURL(rel), rel.Code, rel.VersionString(), rel.Notice))
	}
}

func (s *Server) handleLatestAPK(w http.ResponseWriter, r *http.Request) {
	rel, err := s.releases.ChannelRelease(r.Context(), domain.ChannelStable)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, s.apkURL(rel), http.StatusFound)
}

// handleAPK serves the stored package for a version code. The trailing
// file name in the URL is cosmetic.
func (s *Server) handleAPK(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rel, err := s.releases.Release(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := filepath.Base(rel.Filename)
	f, err := os.Open(filepath.Join(s.cfg.APKDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, r, appErrors.New(appErrors.CodeNotFound,
				fmt.Sprintf("apk file for version %d is missing", code), err))
			return
		}
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.android.package-archive")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

type infoMessageResponse struct {
	Message   *string `json:"message"`
	MessageID *string `json:"messageId"`
	EndOfLife *int    `json:"endOfLife"`
}

func (s *Server) handleInfoMessage(w http.ResponseWriter, r *http.Request) {
	info, err := s.releases.InfoMessage(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	clientCode, haveClient := domain.ParseUserAgentVersion(r.Header.Get("User-Agent"))

	var stableCode int
	haveStable := false
	if haveClient && info.Message == nil {
		stable, err := s.releases.ChannelRelease(r.Context(), domain.ChannelStable)
		switch {
		case err == nil:
			stableCode, haveStable = stable.Code, true
		case appErrors.IsCode(err, appErrors.CodeNotFound):
		default:
			s.writeError(w, r, err)
			return
		}
	}

	w.Header().Set("Vary", "User-Agent")
	s.setPublicCache(w)
	writeJSON(w, infoMessageResponse{
		Message:   info.Resolve(clientCode, stableCode, haveClient, haveStable, s.cfg.StaleThreshold),
		MessageID: info.PublicID(),
		EndOfLife: info.EndOfLifeVersion,
	})
}
