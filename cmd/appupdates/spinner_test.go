package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStageSpinnerRendersAfterDelay(t *testing.T) {
	var out syncBuffer
	sp := newCustomStageSpinner(&out, 0, 10*time.Millisecond)
	sp.Stage(stageFetchingManifest, "https://example.test/update.json")

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(out.String(), "Fetching update manifest") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	sp.Stop()

	got := out.String()
	if !strings.Contains(got, "Fetching update manifest... - https://example.test/update.json") {
		t.Fatalf("spinner output = %q", got)
	}
	if !strings.HasSuffix(got, "\r\033[2K") {
		t.Fatalf("spinner should clear its line on stop, got %q", got)
	}
}

func TestStageSpinnerQuietBeforeDelay(t *testing.T) {
	var out syncBuffer
	sp := newCustomStageSpinner(&out, time.Hour, 10*time.Millisecond)
	sp.Stage(stageDownloadingAPK, "")
	time.Sleep(30 * time.Millisecond)
	sp.Stop()
	sp.Stop()

	if got := out.String(); got != "" {
		t.Fatalf("spinner drew before its delay: %q", got)
	}
}

func TestFormatStageMessage(t *testing.T) {
	tests := []struct {
		stage  stage
		detail string
		want   string
	}{
		{stageProbingAPK, "", "Checking apk URL..."},
		{stageDownloadingAPK, "  x.apk ", "Downloading apk... - x.apk"},
		{stage(99), "", "Working..."},
	}
	for _, tt := range tests {
		if got := formatStageMessage(tt.stage, tt.detail); got != tt.want {
			t.Errorf("formatStageMessage(%d, %q) = %q, want %q", tt.stage, tt.detail, got, tt.want)
		}
	}
}
