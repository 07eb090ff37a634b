// Package apk reads release metadata out of uploaded Android packages.
package apk

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	androidapk "github.com/shogo82148/androidbinary/apk"

	appErrors "appupdates/internal/errors"
)

// Extension is the only file extension accepted for uploads.
const Extension = ".apk"

// CheckExtension rejects file names that do not end in .apk.
func CheckExtension(name string) error {
	if !strings.EqualFold(filepath.Ext(name), Extension) {
		return appErrors.New(appErrors.CodeInvalidAPK,
			fmt.Sprintf("%q is not an apk file", filepath.Base(name)), nil)
	}
	return nil
}

// VersionCode parses the binary AndroidManifest.xml of the package held in
// r and returns android:versionCode.
func VersionCode(r io.ReaderAt, size int64) (int, error) {
	pkg, err := androidapk.OpenZipReader(r, size)
	if err != nil {
		return 0, appErrors.New(appErrors.CodeInvalidAPK, "could not read apk manifest", err)
	}
	defer pkg.Close()

	code, err := pkg.Manifest().VersionCode.Int32()
	if err != nil {
		return 0, appErrors.New(appErrors.CodeInvalidAPK, "apk manifest has no version code", err)
	}
	if code <= 0 {
		return 0, appErrors.New(appErrors.CodeInvalidAPK,
			fmt.Sprintf("apk version code %d is not positive", code), nil)
	}
	return int(code), nil
}
