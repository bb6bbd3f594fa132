package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenSessionCreatesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs") // not yet existing
	cfg := SessionConfig{Dir: dir, Prefix: "FX"}
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	s, err := cfg.OpenSession("fx", now)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer func() { _ = s.Close() }()

	if filepath.Base(s.Path) != "FX_20260314_092653.log" {
		t.Fatalf("unexpected session path: %s", s.Path)
	}
	if _, err := s.Writer().Write([]byte("cycle 1\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(b), "cycle 1") {
		t.Fatalf("log content missing: %q", string(b))
	}
}

func TestOpenSessionExistingDir(t *testing.T) {
	dir := t.TempDir()
	cfg := SessionConfig{Dir: dir}
	if _, err := cfg.OpenSession("xau", time.Now()); err != nil {
		t.Fatalf("existing dir must not error: %v", err)
	}
}

func TestOpenSessionLatestAlias(t *testing.T) {
	dir := t.TempDir()
	cfg := SessionConfig{Dir: dir, Prefix: "IDX"}
	s, err := cfg.OpenSession("idx", time.Now())
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if s.LinkErr != nil {
		t.Skipf("symlinks unsupported here: %v", s.LinkErr)
	}
	link := filepath.Join(dir, "IDX.latest.log")
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != filepath.Base(s.Path) {
		t.Fatalf("alias points at %s, want %s", target, filepath.Base(s.Path))
	}

	// A second session must retarget the alias, not fail on the existing link.
	s2, err := cfg.OpenSession("idx", time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("second OpenSession: %v", err)
	}
	if s2.LinkErr != nil {
		t.Fatalf("alias update failed: %v", s2.LinkErr)
	}
}

func TestOpenSessionConsoleMode(t *testing.T) {
	s, err := SessionConfig{Console: true, Dir: "ignored"}.OpenSession("fx", time.Now())
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if s.Writer() != nil || s.Path != "" {
		t.Fatal("console mode must not open a file")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("warning").String() != "WARN" {
		t.Fatalf("WARNING should map to warn")
	}
	if ParseLevel("nonsense").String() != "INFO" {
		t.Fatalf("unknown levels default to info")
	}
}
