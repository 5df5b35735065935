package log

import (
	"fmt"
	"io"
	"lemon/internal/util"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

// LevelTrace sits below slog.LevelDebug for per-allocation chatter.
const LevelTrace = slog.Level(-8)

// LevelNone is above every level the interpreter logs at.
const LevelNone = slog.Level(12)

var levelColors = map[slog.Level]string{
	LevelTrace:      "\033[90m", // Grey
	slog.LevelDebug: "\033[36m", // Cyan
	slog.LevelInfo:  "\033[32m", // Green
	slog.LevelWarn:  "\033[33m", // Yellow
	slog.LevelError: "\033[31m", // Red
}

const resetColor = "\033[0m"

// Logger owns the output of one session's *slog.Logger.
type Logger struct {
	*slog.Logger
	out  *reopenWriter
	sigs chan os.Signal
}

// New builds a logger from the log section of the configuration. Logging to
// a file falls back to stderr when the file cannot be opened.
func New(cfg util.LogConfig) (*Logger, error) {
	lvl := parseLevel(cfg.Level)
	out := &reopenWriter{w: os.Stderr}

	if cfg.File != "" {
		fh, err := openLogFile(cfg.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", cfg.File, err)
		} else {
			out.w = fh
			out.fh = fh
			out.path = cfg.File
		}
	}

	opts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: replaceLevelNames,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		if cfg.Color && out.fh == nil && isTerminal(os.Stderr) {
			opts.ReplaceAttr = colorLevelNames
		}
		handler = slog.NewTextHandler(out, opts)
	case "json", "":
		handler = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	l := &Logger{Logger: slog.New(handler), out: out}
	l.setupLogRotation()
	return l, nil
}

// Discard returns a logger that drops everything, for tests and embedding.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelNone}))
}

func (l *Logger) Close() error {
	if l.sigs != nil {
		signal.Stop(l.sigs)
		close(l.sigs)
		l.sigs = nil
	}
	return l.out.close()
}

/*
 * if we're logging to a file listen for SIGHUP on log file rotation
 * mv lemon.log lemon.bak && kill -HUP <pid>
 */
func (l *Logger) setupLogRotation() {
	if l.out.fh == nil {
		return
	}
	l.sigs = make(chan os.Signal, 1)
	signal.Notify(l.sigs, syscall.SIGHUP)
	go func(sigs chan os.Signal) {
		for range sigs {
			if err := l.out.reopen(); err != nil {
				fmt.Fprintf(os.Stderr, "could not reopen log file: %v\n", err)
			}
		}
	}(l.sigs)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return LevelNone
	}
}

func levelName(level slog.Level) string {
	if level == LevelTrace {
		return "TRACE"
	}
	return level.String()
}

func replaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(levelName(level))
		}
	}
	return a
}

func colorLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	color, ok := levelColors[level]
	if !ok {
		return replaceLevelNames(groups, a)
	}
	a.Value = slog.StringValue(fmt.Sprintf("%s%-5s%s", color, levelName(level), resetColor))
	return a
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return false
		}
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

type reopenWriter struct {
	mu   sync.Mutex
	w    io.Writer
	fh   *os.File
	path string
}

func (r *reopenWriter) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Write(p)
}

func (r *reopenWriter) reopen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fh == nil {
		return nil
	}
	_ = r.fh.Close()
	fh, err := openLogFile(r.path)
	if err != nil {
		r.w, r.fh = os.Stderr, nil
		return err
	}
	r.w, r.fh = fh, fh
	return nil
}

func (r *reopenWriter) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fh == nil {
		return nil
	}
	err := r.fh.Close()
	r.w, r.fh = io.Discard, nil
	return err
}
