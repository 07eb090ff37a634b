// Package update fetches the app update manifest and exposes the current
// distributable identifier stored under its "apk" key.
//
// This package handles:
//   - Resolving the manifest URL from configuration (built-in variants or an
//     explicit URL)
//   - Fetching and decoding the manifest, fresh on every call
//   - Delivering results synchronously, as a Future, or to a callback
//   - Probing and downloading the APK the manifest points at
//
// Every failure (network, non-2xx status, malformed JSON) is returned as an
// error; asynchronous callers receive it through the Future or callback, which
// always completes exactly once.
//
// Example usage:
//
//	url, err := update.ResolveManifestURL("", update.VariantOpen)
//	if err != nil {
//	    // handle error
//	}
//	checker := update.NewChecker(url)
//	checker.GetCurrentVersion(ctx, func(apk string, err error) {
//	    // apk is "" when the manifest has no "apk" key
//	})
package update
