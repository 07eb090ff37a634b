package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"appupdates/internal/debug"
	appErrors "appupdates/internal/errors"
)

// Built-in manifest locations. Both have been published historically and
// neither is known to be authoritative, so the choice is configuration.
const (
	VariantOpen    = "open"
	VariantDefault = "default"

	OpenManifestURL    = "https://rawgit.com/mopsalarm/pr0gramm-updates/master/open/update.json"
	DefaultManifestURL = "https://rawgit.com/mopsalarm/pr0gramm-updates/master/update.json"
)

// Error variables for specific error conditions.
var (
	ErrNetworkFailure = fmt.Errorf("network request failed")
	ErrHTTPStatus     = fmt.Errorf("unexpected HTTP status")
	ErrDecode         = fmt.Errorf("malformed manifest")
	ErrUnknownVariant = fmt.Errorf("unknown manifest variant")
)

// ManifestURL returns the built-in URL for a variant name.
func ManifestURL(variant string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(variant)) {
	case VariantOpen:
		return OpenManifestURL, nil
	case VariantDefault:
		return DefaultManifestURL, nil
	default:
		return "", appErrors.New(
			appErrors.CodeConfigurationError,
			fmt.Sprintf("unknown manifest variant %q (want %q or %q)", variant, VariantOpen, VariantDefault),
			ErrUnknownVariant,
		)
	}
}

// ResolveManifestURL picks the explicit URL when set, otherwise the variant's.
func ResolveManifestURL(explicit, variant string) (string, error) {
	if u := strings.TrimSpace(explicit); u != "" {
		return u, nil
	}
	return ManifestURL(variant)
}

// Checker fetches the update manifest from a single URL.
// It holds no per-call state; concurrent calls are independent requests.
type Checker struct {
	url        string
	userAgent  string
	httpClient *http.Client
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithHTTPClient sets a custom HTTP client for the checker.
func WithHTTPClient(client *http.Client) CheckerOption {
	return func(c *Checker) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent sends a User-Agent header. Without it no custom headers are set.
func WithUserAgent(ua string) CheckerOption {
	return func(c *Checker) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// NewChecker creates a checker for the given manifest URL.
func NewChecker(url string, opts ...CheckerOption) *Checker {
	c := &Checker{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the manifest URL the checker requests.
func (c *Checker) URL() string {
	return c.url
}

// FetchManifest performs one GET against the manifest URL and decodes the body.
func (c *Checker) FetchManifest(ctx context.Context) (*Manifest, error) {
	if c.url == "" {
		return nil, appErrors.New(appErrors.CodeConfigurationError, "manifest URL is empty", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeConfigurationError, fmt.Sprintf("create request: %v", err), err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	debug.Logf("update: GET %s", c.url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		debug.Logf("update: GET %s failed: %v", c.url, err)
		return nil, appErrors.New(
			appErrors.CodeNetworkFailure,
			fmt.Sprintf("fetch manifest %s: %v", c.url, err),
			fmt.Errorf("%w: %w", ErrNetworkFailure, err),
		)
	}
	defer func() { _ = resp.Body.Close() }()

	debug.Logf("update: GET %s -> %d", c.url, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, appErrors.New(
			appErrors.CodeHTTPStatus,
			fmt.Sprintf("fetch manifest %s: status %d", c.url, resp.StatusCode),
			fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode),
		)
	}

	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, appErrors.New(
			appErrors.CodeDecodeFailed,
			fmt.Sprintf("decode manifest %s: %v", c.url, err),
			fmt.Errorf("%w: %w", ErrDecode, err),
		)
	}
	return &m, nil
}

// CurrentVersion fetches the manifest and returns its "apk" value.
// A manifest without the key yields "" and no error.
func (c *Checker) CurrentVersion(ctx context.Context) (string, error) {
	m, err := c.FetchManifest(ctx)
	if err != nil {
		return "", err
	}
	if !m.HasAPK() {
		debug.Logf("update: manifest from %s has no apk key", c.url)
	}
	return m.APK, nil
}

// FetchManifestAsync starts FetchManifest without blocking the caller.
func (c *Checker) FetchManifestAsync(ctx context.Context) *Future[*Manifest] {
	return goFuture(ctx, c.FetchManifest)
}

// CurrentVersionAsync starts CurrentVersion without blocking the caller.
func (c *Checker) CurrentVersionAsync(ctx context.Context) *Future[string] {
	return goFuture(ctx, c.CurrentVersion)
}

// GetUpdateJSON fetches the manifest in the background and invokes callback
// exactly once, with the manifest or with the error that prevented it.
func (c *Checker) GetUpdateJSON(ctx context.Context, callback func(*Manifest, error)) {
	f := c.FetchManifestAsync(ctx)
	if callback == nil {
		return
	}
	go func() {
		<-f.Done()
		callback(f.val, f.err)
	}()
}

// GetCurrentVersion fetches the manifest in the background and invokes
// callback exactly once, with the "apk" value or with the error.
func (c *Checker) GetCurrentVersion(ctx context.Context, callback func(string, error)) {
	f := c.CurrentVersionAsync(ctx)
	if callback == nil {
		return
	}
	go func() {
		<-f.Done()
		callback(f.val, f.err)
	}()
}
