package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"appupdates/internal/config"
)

func useTestConfig(t *testing.T) {
	t.Helper()
	cleanup := config.ResetForTesting(t)
	t.Cleanup(cleanup)
}

func manifestServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRunCheckPrintsAPK(t *testing.T) {
	useTestConfig(t)
	ts := manifestServer(t, `{"apk":"1.2.3"}`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--url", ts.URL, "check"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "1.2.3\n" {
		t.Fatalf("stdout = %q, want %q", got, "1.2.3\n")
	}
}

func TestRunCheckJSONAndCopy(t *testing.T) {
	useTestConfig(t)
	ts := manifestServer(t, `{"apk":"https://example.test/app.apk","version":3}`)

	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	defer func() { copyToClipboard = orig }()

	var stdout, stderr bytes.Buffer
	code := run([]string{"--url", ts.URL, "check", "--json", "--copy"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	var out map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("stdout is not JSON: %q", stdout.String())
	}
	if out["apk"] != "https://example.test/app.apk" {
		t.Errorf("apk = %q", out["apk"])
	}
	if copied != "https://example.test/app.apk" {
		t.Errorf("clipboard = %q", copied)
	}
}

func TestRunCheckMissingKeyPrintsEmptyLine(t *testing.T) {
	useTestConfig(t)
	ts := manifestServer(t, `{"version":1}`)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--url", ts.URL, "check"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if stdout.String() != "\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunCheckReportsHTTPError(t *testing.T) {
	useTestConfig(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer ts.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"--no-color", "--url", ts.URL, "check"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be empty, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Error:") || !strings.Contains(stderr.String(), "http_status") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunManifestPrintsFields(t *testing.T) {
	useTestConfig(t)
	ts := manifestServer(t, `{"apk":"https://example.test/a.apk","version":1230,"versionStr":"1.123.0","changelog":"Version 1230","channel":"stable"}`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--no-color", "--output-format", "plain", "--url", ts.URL, "manifest"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"https://example.test/a.apk", "1230", "1.123.0", "Version 1230", "channel", `"stable"`} {
		if !strings.Contains(out, want) {
			t.Errorf("manifest output missing %q:\n%s", want, out)
		}
	}
}

func TestRunDownloadSavesAPK(t *testing.T) {
	useTestConfig(t)
	payload := bytes.Repeat([]byte("apk-bytes "), 100)

	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()
	mux.HandleFunc("/update.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"apk":"` + ts.URL + `/apk/1230/pr0gramm-1.123.0.apk"}`))
	})
	mux.HandleFunc("/apk/1230/pr0gramm-1.123.0.apk", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "pr0gramm-1.123.0.apk", time.Now(), bytes.NewReader(payload))
	})

	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := run([]string{"--no-color", "--url", ts.URL + "/update.json", "download", "--dir", dir}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	got, err := os.ReadFile(filepath.Join(dir, "pr0gramm-1.123.0.apk"))
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("downloaded content mismatch")
	}
	if !strings.Contains(stdout.String(), "Saved") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunDownloadRefusesURLWithoutRangeSupport(t *testing.T) {
	useTestConfig(t)
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()
	mux.HandleFunc("/update.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"apk":"` + ts.URL + `/app.apk"}`))
	})
	mux.HandleFunc("/app.apk", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("full body, no ranges"))
	})

	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := run([]string{"--url", ts.URL + "/update.json", "download", "--dir", dir}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "range request") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "app.apk")); !os.IsNotExist(err) {
		t.Error("nothing should be saved when the probe fails")
	}
}

func TestRunUsageErrors(t *testing.T) {
	useTestConfig(t)

	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Errorf("no command: exit %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "Usage: appupdates") {
		t.Errorf("usage not printed: %q", stderr.String())
	}

	stderr.Reset()
	if code := run([]string{"frobnicate"}, &stdout, &stderr); code != 2 {
		t.Errorf("unknown command: exit %d, want 2", code)
	}

	stderr.Reset()
	if code := run([]string{"check", "--bogus"}, &stdout, &stderr); code != 2 {
		t.Errorf("unknown check flag: exit %d, want 2", code)
	}
	if got := strings.Count(stderr.String(), "flag provided but not defined: -bogus"); got != 1 {
		t.Errorf("flag error reported %d times, want once: %q", got, stderr.String())
	}
	if strings.Contains(stderr.String(), "Error:") {
		t.Errorf("flag error should not go through printError: %q", stderr.String())
	}

	stderr.Reset()
	if code := run([]string{"download", "--dir"}, &stdout, &stderr); code != 2 {
		t.Errorf("missing flag value: exit %d, want 2", code)
	}

	stderr.Reset()
	if code := run([]string{"--variant", "nightly", "check"}, &stdout, &stderr); code != 1 {
		t.Errorf("unknown variant: exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "configuration_error") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunVersionCommand(t *testing.T) {
	useTestConfig(t)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout.String(), "appupdates version") {
		t.Fatalf("stdout = %q", stdout.String())
	}
}
