package native

import (
	"errors"
	"fmt"
	"io"
	"lemon/internal/diag"
	"lemon/internal/evaluator"
	"lemon/internal/object"
	"lemon/internal/util"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Options struct {
	File util.FileConfig
	SQL  util.SQLConfig

	// Root anchors relative fopen paths and sqlite database files.
	Root string

	// Stdin, Stdout and Stderr back the STDIN, STDOUT and STDERR globals.
	// print writes to Stdout. Nil means the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Library owns every handle the natives hand out to scripts.
type Library struct {
	logger *slog.Logger
	opts   Options

	stdout io.Writer
	files  []*fileHandle
	dbs    []*dbHandle
	rows   []*rowsHandle
}

type entry struct {
	name string
	fn   evaluator.NativeFunc
}

// Install registers the enabled native libraries on the interpreter.
func Install(in *evaluator.Interpreter, opts Options) (*Library, error) {
	lib := &Library{
		logger: in.Logger(),
		opts:   opts,
		stdout: opts.Stdout,
	}
	if lib.stdout == nil {
		lib.stdout = os.Stdout
	}

	var entries []entry
	if opts.File.Enabled {
		entries = append(entries, lib.fileFunctions()...)
	}
	if opts.SQL.Enabled {
		entries = append(entries, lib.sqlFunctions()...)
	}
	for _, e := range entries {
		if err := in.RegisterNativeFunction(e.name, e.fn); err != nil {
			return nil, err
		}
	}
	if opts.File.Enabled && opts.File.Stdio {
		lib.addStdio(in)
	}

	lib.logger.Debug("natives installed",
		slog.Bool("file", opts.File.Enabled),
		slog.Bool("sql", opts.SQL.Enabled),
		slog.Int("function-count", len(entries)))
	return lib, nil
}

// Close releases files, cursors and databases still open at session end.
func (lib *Library) Close() error {
	var errs []error
	for _, r := range lib.rows {
		if err := r.close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, db := range lib.dbs {
		if err := db.close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, f := range lib.files {
		if err := f.close(); err != nil {
			errs = append(errs, err)
		}
	}
	lib.rows, lib.dbs, lib.files = nil, nil, nil
	return errors.Join(errs...)
}

func (lib *Library) resolve(path string) string {
	if lib.opts.Root == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(lib.opts.Root, path)
}

// resolveDSN anchors a relative sqlite database file at Root. In-memory and
// file: URI names, and every other driver's DSN, pass through unchanged.
func (lib *Library) resolveDSN(driver, dsn string) string {
	if driver != "sqlite" && driver != "sqlite3" {
		return dsn
	}
	if strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	path, query, found := strings.Cut(dsn, "?")
	path = lib.resolve(path)
	if found {
		return path + "?" + query
	}
	return path
}

func checkArgCount(args []object.Value, want int) error {
	if len(args) < want {
		return diag.NewRuntime(0, diag.ARGUMENT_TOO_FEW)
	}
	if len(args) > want {
		return diag.NewRuntime(0, diag.ARGUMENT_TOO_MANY)
	}
	return nil
}

func checkMinArgs(args []object.Value, min int) error {
	if len(args) < min {
		return diag.NewRuntime(0, diag.ARGUMENT_TOO_FEW)
	}
	return nil
}

func argumentType(function, expected string) error {
	return diag.NewRuntime(0, diag.NATIVE_ARGUMENT_TYPE,
		diag.A("function", function), diag.A("expected", expected))
}

func failure(function string, format string, a ...any) error {
	return diag.Native(fmt.Errorf(format, a...), diag.A("function", function))
}
