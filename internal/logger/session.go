package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters (lumberjack semantics).
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// SessionConfig describes where a bot's stdout/stderr goes.
// With Console set the child inherits the launcher's stdio and no file is
// created. Otherwise a timestamped file <Prefix>_<YYYYMMDD_HHMMSS>.log is
// opened under Dir at supervisor start; restart cycles within one
// supervisor run append to the same file.
type SessionConfig struct {
	Dir        string `json:"dir" mapstructure:"dir"`
	Prefix     string `json:"prefix" mapstructure:"prefix"` // defaults to the bot name
	Console    bool   `json:"console" mapstructure:"console"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// Session is the open log destination for one supervisor run.
type Session struct {
	Path    string // timestamped log file ("" in console mode)
	LinkErr error  // non-nil when the .latest.log alias could not be made
	w       io.WriteCloser
}

// OpenSession creates the log directory if needed, opens the timestamped
// session file, and best-effort updates the <prefix>.latest.log symlink.
// A failed alias is reported via Session.LinkErr, never as a hard error.
func (c SessionConfig) OpenSession(name string, now time.Time) (*Session, error) {
	if c.Console || c.Dir == "" {
		return &Session{}, nil
	}
	prefix := c.Prefix
	if prefix == "" {
		prefix = name
	}
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", c.Dir, err)
	}
	path := filepath.Join(c.Dir, fmt.Sprintf("%s_%s.log", prefix, now.Format("20060102_150405")))
	s := &Session{
		Path: path,
		w: &lj.Logger{
			Filename:   path,
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		},
	}
	s.LinkErr = updateLatestLink(c.Dir, prefix, path)
	return s, nil
}

// Writer returns the destination for child stdout/stderr, or nil in
// console mode (caller falls back to the launcher's own stdio).
func (s *Session) Writer() io.Writer {
	if s == nil || s.w == nil {
		return nil
	}
	return s.w
}

func (s *Session) Close() error {
	if s == nil || s.w == nil {
		return nil
	}
	return s.w.Close()
}

// updateLatestLink points <prefix>.latest.log at the current session file.
// Symlinks are unsupported on some filesystems; callers treat failure as a
// warning only.
func updateLatestLink(dir, prefix, target string) error {
	link := filepath.Join(dir, prefix+".latest.log")
	_ = os.Remove(link)
	return os.Symlink(filepath.Base(target), link)
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
