package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"appupdates/internal/debug"
)

// Error variables for downloader-specific errors.
var (
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrBadAPKURL        = fmt.Errorf("apk URL has no file name")
)

// probeRange is the byte range requested when checking that an APK URL is live.
const probeRange = "bytes=0-128"

// Downloader fetches the APK a manifest points at.
type Downloader struct {
	httpClient *http.Client
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithDownloaderHTTPClient sets a custom HTTP client for the downloader.
func WithDownloaderHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// NewDownloader creates a downloader. Downloads have no client timeout.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Probe asks for the first bytes of the APK and reports whether the server
// answered with a partial response.
func (d *Downloader) Probe(ctx context.Context, apkURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apkURL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Range", probeRange)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	debug.Logf("update: probe %s -> %d", apkURL, resp.StatusCode)
	return resp.StatusCode == http.StatusPartialContent, nil
}

// Download streams the APK into dir and returns the final path. The file only
// appears under its final name once it has been written completely.
func (d *Downloader) Download(ctx context.Context, apkURL, dir string) (string, error) {
	name, err := FileNameFromURL(apkURL)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := checkWritePermission(dir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apkURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.android.package-archive, application/octet-stream")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(dir, ".apk-download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close temp file: %w", err)
	}

	finalPath := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		cleanup()
		return "", fmt.Errorf("install download: %w", err)
	}

	debug.Logf("update: downloaded %s (%d bytes) to %s", apkURL, n, finalPath)
	return finalPath, nil
}

// FileNameFromURL returns the last path segment of an APK URL.
func FileNameFromURL(apkURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(apkURL))
	if err != nil {
		return "", fmt.Errorf("parse apk URL: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: %s", ErrBadAPKURL, apkURL)
	}
	return name, nil
}

// checkWritePermission verifies the current process can create files in dir.
func checkWritePermission(dir string) error {
	testFile := filepath.Join(dir, ".apk-download-test")

	//nolint:gosec // G304: Path is constructed from the chosen download directory
	f, err := os.Create(testFile)
	if err != nil {
		return err
	}
	_ = f.Close()
	_ = os.Remove(testFile)
	return nil
}
