// Package domain holds the release and info message model shared by the
// store and the update server.
package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Release is one uploaded APK, keyed by its Android version code.
type Release struct {
	Code     int
	Created  time.Time
	Filename string
	Stable   bool
	Beta     bool
	Notice   string
}

// VersionString renders the release's code with FormatVersionCode.
func (r Release) VersionString() string {
	return FormatVersionCode(r.Code)
}

// DefaultNotice is the changelog stored for a freshly uploaded release.
func DefaultNotice(code int) string {
	return fmt.Sprintf("Version %d", code)
}

// ValidateVersionCode rejects codes Android would never produce.
func ValidateVersionCode(code int) error {
	if code <= 0 {
		return invalidVersionCodeError(code)
	}
	return nil
}

// FormatVersionCode renders a version code as "major.minor.patch" where
// major = code/1000, minor = code/10 and patch = code%10. The minor part is
// not reduced modulo 100; published version strings depend on that.
func FormatVersionCode(code int) string {
	major, minor, patch := code/1000, code/10, code%10
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}

// APKFilename is the on-disk name used for an uploaded release.
func APKFilename(prefix string, code int) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return FormatVersionCode(code) + ".apk"
	}
	return fmt.Sprintf("%s-%s.apk", prefix, FormatVersionCode(code))
}

var userAgentVersion = regexp.MustCompile(`^pr0gramm-app/v([0-9]+)`)

// ParseUserAgentVersion extracts the app's version code from its User-Agent.
func ParseUserAgentVersion(ua string) (int, bool) {
	m := userAgentVersion.FindStringSubmatch(ua)
	if m == nil {
		return 0, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return code, true
}
