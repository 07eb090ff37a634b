package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"appupdates/internal/domain"
	appErrors "appupdates/internal/errors"
)

func seedRelease(t *testing.T, s *Store, code int) {
	t.Helper()
	r := domain.Release{
		Code:     code,
		Created:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Filename: domain.APKFilename("pr0gramm", code),
		Notice:   domain.DefaultNotice(code),
	}
	if err := s.CreateRelease(context.Background(), r); err != nil {
		t.Fatalf("CreateRelease(%d): %v", code, err)
	}
}

func TestCreateAndLoadRelease(t *testing.T) {
	s := OpenTestDB(t)
	ctx := context.Background()
	seedRelease(t, s, 1234)

	r, err := s.Release(ctx, 1234)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if r.Filename != "pr0gramm-1.123.4.apk" {
		t.Errorf("Filename = %q", r.Filename)
	}
	if r.Notice != "Version 1234" {
		t.Errorf("Notice = %q", r.Notice)
	}
	if !r.Created.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Created = %v", r.Created)
	}
	if r.Stable || r.Beta {
		t.Errorf("new release should not be promoted: %+v", r)
	}

	ok, err := s.ReleaseExists(ctx, 1234)
	if err != nil || !ok {
		t.Fatalf("ReleaseExists = %v, %v", ok, err)
	}
	ok, err = s.ReleaseExists(ctx, 999)
	if err != nil || ok {
		t.Fatalf("ReleaseExists(999) = %v, %v", ok, err)
	}
}

func TestCreateReleaseRejectsDuplicate(t *testing.T) {
	s := OpenTestDB(t)
	seedRelease(t, s, 1000)

	err := s.CreateRelease(context.Background(), domain.Release{Code: 1000, Filename: "x.apk"})
	if !appErrors.IsCode(err, appErrors.CodeAlreadyExists) {
		t.Fatalf("expected already_exists, got %v", err)
	}
}

func TestCreateReleaseRejectsInvalidCode(t *testing.T) {
	s := OpenTestDB(t)
	err := s.CreateRelease(context.Background(), domain.Release{Code: 0})
	if !appErrors.IsCode(err, appErrors.CodeInvalidInput) {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestReleaseNotFound(t *testing.T) {
	s := OpenTestDB(t)
	_, err := s.Release(context.Background(), 42)
	if !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestLatestOrdersByCodeDescending(t *testing.T) {
	s := OpenTestDB(t)
	for _, code := range []int{1100, 1300, 1200} {
		seedRelease(t, s, code)
	}

	got, err := s.Latest(context.Background(), 2)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(got) != 2 || got[0].Code != 1300 || got[1].Code != 1200 {
		t.Fatalf("Latest(2) = %+v", got)
	}

	all, err := s.Latest(context.Background(), 0)
	if err != nil {
		t.Fatalf("Latest(0): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Latest(0) returned %d releases, want 3", len(all))
	}
}

func TestPromoteReleaseKeepsOnePerChannel(t *testing.T) {
	s := OpenTestDB(t)
	ctx := context.Background()
	seedRelease(t, s, 1100)
	seedRelease(t, s, 1200)

	if _, err := s.ChannelRelease(ctx, domain.ChannelStable); !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("empty channel: expected not_found, got %v", err)
	}

	if err := s.PromoteRelease(ctx, domain.ChannelStable, 1200); err != nil {
		t.Fatalf("promote 1200: %v", err)
	}
	if err := s.PromoteRelease(ctx, domain.ChannelStable, 1100); err != nil {
		t.Fatalf("promote 1100: %v", err)
	}
	if err := s.PromoteRelease(ctx, domain.ChannelBeta, 1200); err != nil {
		t.Fatalf("promote beta: %v", err)
	}

	stable, err := s.ChannelRelease(ctx, domain.ChannelStable)
	if err != nil || stable.Code != 1100 {
		t.Fatalf("stable = %+v, %v", stable, err)
	}
	beta, err := s.ChannelRelease(ctx, domain.ChannelBeta)
	if err != nil || beta.Code != 1200 {
		t.Fatalf("beta = %+v, %v", beta, err)
	}

	r, err := s.Release(ctx, 1200)
	if err != nil {
		t.Fatal(err)
	}
	if r.Stable {
		t.Error("1200 should have lost the stable flag")
	}
}

func TestPromoteMissingReleaseKeepsChannel(t *testing.T) {
	s := OpenTestDB(t)
	ctx := context.Background()
	seedRelease(t, s, 1100)
	if err := s.PromoteRelease(ctx, domain.ChannelStable, 1100); err != nil {
		t.Fatal(err)
	}

	err := s.PromoteRelease(ctx, domain.ChannelStable, 9999)
	if !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	stable, err := s.ChannelRelease(ctx, domain.ChannelStable)
	if err != nil || stable.Code != 1100 {
		t.Fatalf("failed promote should roll back, stable = %+v, %v", stable, err)
	}
}

func TestSetNotice(t *testing.T) {
	s := OpenTestDB(t)
	ctx := context.Background()
	seedRelease(t, s, 1100)

	if err := s.SetNotice(ctx, 1100, "- Fehler behoben"); err != nil {
		t.Fatalf("SetNotice: %v", err)
	}
	r, _ := s.Release(ctx, 1100)
	if r.Notice != "- Fehler behoben" {
		t.Fatalf("Notice = %q", r.Notice)
	}
	if err := s.SetNotice(ctx, 7, "x"); !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestDeleteRelease(t *testing.T) {
	s := OpenTestDB(t)
	ctx := context.Background()
	seedRelease(t, s, 1200)

	if err := s.DeleteRelease(ctx, 1200); err != nil {
		t.Fatalf("DeleteRelease: %v", err)
	}
	if ok, _ := s.ReleaseExists(ctx, 1200); ok {
		t.Fatal("release still present after delete")
	}
	if err := s.DeleteRelease(ctx, 1200); err != nil {
		t.Fatalf("deleting a missing release: %v", err)
	}
	seedRelease(t, s, 1200)
}

func TestInfoMessageLifecycle(t *testing.T) {
	s := OpenTestDB(t)
	ctx := context.Background()

	m, err := s.InfoMessage(ctx)
	if err != nil {
		t.Fatalf("InfoMessage: %v", err)
	}
	if m.Message != nil || m.MessageID != nil || m.EndOfLifeVersion != nil {
		t.Fatalf("fresh info message should be empty, got %s", m)
	}

	m.SetText("Serverwartung", "maint")
	if err := s.SaveInfoMessage(ctx, m); err != nil {
		t.Fatalf("SaveInfoMessage: %v", err)
	}

	m, err = s.ToggleEndOfLife(ctx, 1100)
	if err != nil {
		t.Fatalf("ToggleEndOfLife: %v", err)
	}
	if m.EndOfLifeVersion == nil || *m.EndOfLifeVersion != 1100 {
		t.Fatalf("EndOfLifeVersion = %v", m.EndOfLifeVersion)
	}

	loaded, err := s.InfoMessage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Message == nil || *loaded.Message != "Serverwartung" {
		t.Errorf("Message = %v", loaded.Message)
	}
	if loaded.EndOfLifeVersion == nil || *loaded.EndOfLifeVersion != 1100 {
		t.Errorf("EndOfLifeVersion = %v", loaded.EndOfLifeVersion)
	}

	m, err = s.ToggleEndOfLife(ctx, 1100)
	if err != nil {
		t.Fatal(err)
	}
	if m.EndOfLifeVersion != nil {
		t.Fatal("second toggle should clear end of life")
	}
}

func TestOpenPathCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "updates.db")
	s, err := OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer s.Close()
	seedRelease(t, s, 1000)

	if _, err := OpenPath("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
