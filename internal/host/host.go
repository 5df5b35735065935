package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"lemon/internal/diag"
	"lemon/internal/evaluator"
	"lemon/internal/log"
	"lemon/internal/native"
	"lemon/internal/object"
	"lemon/internal/util"
	"log/slog"
	"sort"
	"time"
)

var ErrClosed = errors.New("host: session is closed")

// Version is stamped at build time:
// go build -ldflags "-X lemon/internal/host.Version=1.2.0"
var Version = "dev"

// Session is one interpreter together with the logger and native libraries
// configured for it.
type Session struct {
	cfg     util.Configuration
	logger  *log.Logger
	interp  *evaluator.Interpreter
	natives *native.Library
	closed  bool
}

type options struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type Option func(*options)

func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithStdio replaces the process streams seen by print and the STDIN,
// STDOUT and STDERR globals.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdin, o.stdout, o.stderr = stdin, stdout, stderr
	}
}

// New builds the logger, the interpreter, the native libraries and the preset
// globals, in that order.
func New(cfg util.Configuration, opts ...Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Version == "" {
		cfg.Version = Version
	}

	logger, err := log.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	interp := evaluator.New(
		evaluator.WithLogger(logger.Logger),
		evaluator.WithContext(o.ctx),
	)

	natives, err := native.Install(interp, native.Options{
		File:   cfg.Natives.File,
		SQL:    cfg.Natives.SQL,
		Root:   cfg.RootPath,
		Stdin:  o.stdin,
		Stdout: o.stdout,
		Stderr: o.stderr,
	})
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	s := &Session{cfg: cfg, logger: logger, interp: interp, natives: natives}
	if err := s.presetGlobals(); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Debug("session ready",
		slog.String("version", cfg.Version),
		slog.Int("global-count", len(cfg.Globals)))
	return s, nil
}

func (s *Session) Builder() *evaluator.Builder         { return s.interp.Builder() }
func (s *Session) Interpreter() *evaluator.Interpreter { return s.interp }
func (s *Session) Logger() *slog.Logger                { return s.logger.Logger }
func (s *Session) Configuration() util.Configuration   { return s.cfg }

func (s *Session) RegisterNative(name string, fn evaluator.NativeFunc) error {
	return s.interp.RegisterNativeFunction(name, fn)
}

// Run executes the program assembled through Builder.
func (s *Session) Run() error {
	if s.closed {
		return ErrClosed
	}
	start := time.Now()
	err := s.interp.Interpret()
	stats := s.interp.Pool().Stats()
	s.logger.Debug("run finished",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int64("strings-allocated", stats.Allocated),
		slog.Int64("strings-live", stats.Live),
		slog.Bool("failed", err != nil))
	return err
}

// Close disposes the interpreter, then the native handles, then the log
// output. Calling it again is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.interp.Dispose()
	return errors.Join(s.natives.Close(), s.logger.Close())
}

func (s *Session) presetGlobals() error {
	names := make([]string, 0, len(s.cfg.Globals))
	for name := range s.cfg.Globals {
		names = append(names, name)
	}
	sort.Strings(names)

	pool := s.interp.Pool()
	for _, name := range names {
		v, err := toValue(pool, s.cfg.Globals[name])
		if err != nil {
			return fmt.Errorf("host: global %s: %w", name, err)
		}
		s.interp.RegisterGlobal(name, v)
		object.ReleaseValue(v)
	}
	return nil
}

func toValue(pool *object.Pool, v any) (object.Value, error) {
	switch v := v.(type) {
	case nil:
		return object.NULL, nil
	case bool:
		return object.Bool(v), nil
	case int:
		return object.FromInt64(int64(v)), nil
	case int64:
		return object.FromInt64(v), nil
	case float64:
		return object.Double{Value: v}, nil
	case string:
		return pool.Owned(v), nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

// Report writes the formatted error, followed by the offending source lines
// when src is available.
func Report(w io.Writer, err error, src string) {
	fmt.Fprintln(w, diag.Format(err))

	var de *diag.Error
	if src == "" || !errors.As(err, &de) || de.Line < 1 {
		return
	}
	if lines := util.GetContextLines(src, de.Line); lines != "" {
		fmt.Fprintln(w, lines)
	}
}
