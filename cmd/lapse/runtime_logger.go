package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/evanschultz/lapse/internal/config"
)

const (
	consoleSinkName = "console"
	fileSinkName    = "dev-file"
)

// logSink is one destination for runtime events.
type logSink struct {
	name  string
	log   *charmLog.Logger
	muted bool
}

// runtimeLogger fans events out to a styled console and, in dev mode, a daily
// logfmt file under the profile's log directory. It satisfies app.Logger so
// the store and surface report through the same sinks.
type runtimeLogger struct {
	sinks   []*logSink
	file    *os.File
	devPath string
}

// newRuntimeLogger builds the sinks for one command run. cfg.DevFile.Dir must
// already be absolute when the dev file is enabled.
func newRuntimeLogger(stderr io.Writer, profile string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if now == nil {
		now = time.Now
	}

	l := &runtimeLogger{}
	l.add(consoleSinkName, stderr, level, profile, charmLog.TextFormatter)
	if !devMode || !cfg.DevFile.Enabled {
		return l, nil
	}

	path, err := dailyLogPath(cfg.DevFile.Dir, profile, now())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log: %w", err)
	}
	l.file = f
	l.devPath = path
	l.add(fileSinkName, f, level, profile, charmLog.LogfmtFormatter)
	return l, nil
}

func (l *runtimeLogger) add(name string, w io.Writer, level charmLog.Level, prefix string, formatter charmLog.Formatter) {
	l.sinks = append(l.sinks, &logSink{
		name: name,
		log: charmLog.NewWithOptions(w, charmLog.Options{
			Level:           level,
			Prefix:          prefix,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Formatter:       formatter,
		}),
	})
}

// DevLogPath returns the dev log file, or "" when none is open.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devPath
}

// muteConsole stops console output, used while the board owns the terminal.
func (l *runtimeLogger) muteConsole(muted bool) {
	if s := l.sink(consoleSinkName); s != nil {
		s.muted = muted
	}
}

// consoleLive reports whether console output is reaching the terminal.
func (l *runtimeLogger) consoleLive() bool {
	s := l.sink(consoleSinkName)
	return s != nil && !s.muted
}

func (l *runtimeLogger) sink(name string) *logSink {
	if l == nil {
		return nil
	}
	for _, s := range l.sinks {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Close flushes and closes the dev log file.
func (l *runtimeLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *runtimeLogger) emit(level charmLog.Level, msg any, keyvals []any) {
	if l == nil {
		return
	}
	for _, s := range l.sinks {
		if !s.muted {
			s.log.Log(level, msg, keyvals...)
		}
	}
}

func (l *runtimeLogger) Debug(msg any, keyvals ...any) { l.emit(charmLog.DebugLevel, msg, keyvals) }
func (l *runtimeLogger) Info(msg any, keyvals ...any)  { l.emit(charmLog.InfoLevel, msg, keyvals) }
func (l *runtimeLogger) Warn(msg any, keyvals ...any)  { l.emit(charmLog.WarnLevel, msg, keyvals) }
func (l *runtimeLogger) Error(msg any, keyvals ...any) { l.emit(charmLog.ErrorLevel, msg, keyvals) }

// dailyLogPath names the log file for one profile and day.
func dailyLogPath(dir, profile string, day time.Time) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("dev log dir is required")
	}
	name := fmt.Sprintf("%s-%s.log", logFileStem(profile), day.UTC().Format("20060102"))
	return filepath.Join(filepath.Clean(dir), name), nil
}

// logFileStem turns a profile name into a safe file-name segment.
func logFileStem(profile string) string {
	stem := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		}
		return r
	}, strings.TrimSpace(profile))
	if stem = strings.Trim(stem, "-"); stem == "" {
		return "lapse"
	}
	return stem
}
