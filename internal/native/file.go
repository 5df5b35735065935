package native

import (
	"bufio"
	"errors"
	"io"
	"lemon/internal/diag"
	"lemon/internal/evaluator"
	"lemon/internal/object"
	"log/slog"
	"os"
	"slices"
	"strings"
)

var FileInfo = &object.PointerInfo{Name: "lemon.lang.file"}

type fileHandle struct {
	name   string
	f      *os.File
	r      *bufio.Reader
	w      io.Writer
	closed bool
}

func (h *fileHandle) close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.f == nil {
		return nil
	}
	return h.f.Close()
}

func (lib *Library) fileFunctions() []entry {
	return []entry{
		{"print", lib.print},
		{"fopen", lib.fopen},
		{"fclose", lib.fclose},
		{"fgets", lib.fgets},
		{"fputs", lib.fputs},
	}
}

func (lib *Library) addStdio(in *evaluator.Interpreter) {
	stdin := lib.opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stderr := lib.opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	in.RegisterGlobal("STDIN", object.NativePointer{Info: FileInfo, Handle: &fileHandle{name: "STDIN", r: bufio.NewReader(stdin)}})
	in.RegisterGlobal("STDOUT", object.NativePointer{Info: FileInfo, Handle: &fileHandle{name: "STDOUT", w: lib.stdout}})
	in.RegisterGlobal("STDERR", object.NativePointer{Info: FileInfo, Handle: &fileHandle{name: "STDERR", w: stderr}})
}

func (lib *Library) print(_ *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	if err := checkArgCount(args, 1); err != nil {
		return nil, err
	}
	if _, err := io.WriteString(lib.stdout, object.Stringify(args[0])); err != nil {
		return nil, failure("print", "write: %w", err)
	}
	return object.NULL, nil
}

// fopen returns null when the file cannot be opened or the mode is not one of
// r, w, a, r+, w+, a+ (each optionally carrying a b).
func (lib *Library) fopen(_ *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	if err := checkArgCount(args, 2); err != nil {
		return nil, err
	}
	path, ok1 := args[0].(*object.String)
	mode, ok2 := args[1].(*object.String)
	if !ok1 || !ok2 {
		return nil, diag.NewRuntime(0, diag.FOPEN_ARGUMENT_TYPE)
	}

	flag, readable, writable, ok := parseMode(mode.Bytes())
	if !ok {
		lib.logger.Debug("fopen bad mode", slog.String("mode", mode.Bytes()))
		return object.NULL, nil
	}
	name := lib.resolve(path.Bytes())
	f, err := os.OpenFile(name, flag, 0o644)
	if err != nil {
		lib.logger.Debug("fopen failed", slog.String("path", name), slog.Any("error", err))
		return object.NULL, nil
	}

	h := &fileHandle{name: name, f: f}
	if readable {
		h.r = bufio.NewReader(f)
	}
	if writable {
		h.w = f
	}
	lib.files = append(lib.files, h)
	lib.logger.Debug("file opened", slog.String("path", h.name), slog.String("mode", mode.Bytes()))
	return object.NativePointer{Info: FileInfo, Handle: h}, nil
}

func parseMode(mode string) (flag int, readable, writable, ok bool) {
	switch strings.Replace(mode, "b", "", 1) {
	case "r":
		return os.O_RDONLY, true, false, true
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, false, true, true
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, false, true, true
	case "r+":
		return os.O_RDWR, true, true, true
	case "w+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, true, true, true
	case "a+":
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, true, true, true
	default:
		return 0, false, false, false
	}
}

func fileArg(v object.Value) (*fileHandle, bool) {
	p, ok := v.(object.NativePointer)
	if !ok || !p.Is(FileInfo) {
		return nil, false
	}
	h, ok := p.Handle.(*fileHandle)
	return h, ok
}

func (lib *Library) fclose(_ *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	if err := checkArgCount(args, 1); err != nil {
		return nil, err
	}
	h, ok := fileArg(args[0])
	if !ok {
		return nil, diag.NewRuntime(0, diag.FCLOSE_ARGUMENT_TYPE)
	}
	if h.closed {
		return nil, failure("fclose", "%s is already closed", h.name)
	}
	err := h.close()
	lib.files = slices.DeleteFunc(lib.files, func(f *fileHandle) bool { return f == h })
	if err != nil {
		return nil, failure("fclose", "close %s: %w", h.name, err)
	}
	lib.logger.Debug("file closed", slog.String("path", h.name))
	return object.NULL, nil
}

// fgets reads up to and including the next newline. It returns null once
// nothing is left to read.
func (lib *Library) fgets(in *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	if err := checkArgCount(args, 1); err != nil {
		return nil, err
	}
	h, ok := fileArg(args[0])
	if !ok {
		return nil, diag.NewRuntime(0, diag.FGETS_ARGUMENT_TYPE)
	}
	if h.closed {
		return nil, failure("fgets", "%s is closed", h.name)
	}
	if h.r == nil {
		return nil, failure("fgets", "%s is not open for reading", h.name)
	}

	line, err := h.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, failure("fgets", "read %s: %w", h.name, err)
	}
	if line == "" {
		return object.NULL, nil
	}
	return in.Pool().Owned(line), nil
}

func (lib *Library) fputs(_ *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	if err := checkArgCount(args, 2); err != nil {
		return nil, err
	}
	s, ok := args[0].(*object.String)
	h, isFile := fileArg(args[1])
	if !ok || !isFile {
		return nil, diag.NewRuntime(0, diag.FPUTS_ARGUMENT_TYPE)
	}
	if h.closed {
		return nil, failure("fputs", "%s is closed", h.name)
	}
	if h.w == nil {
		return nil, failure("fputs", "%s is not open for writing", h.name)
	}
	if err := h.syncReader(); err != nil {
		return nil, failure("fputs", "seek %s: %w", h.name, err)
	}
	if _, err := io.WriteString(h.w, s.Bytes()); err != nil {
		return nil, failure("fputs", "write %s: %w", h.name, err)
	}
	return object.NULL, nil
}

// syncReader moves the file offset back over read-ahead still sitting in the
// reader, so a write lands right after the last line fgets returned.
func (h *fileHandle) syncReader() error {
	if h.r == nil || h.f == nil {
		return nil
	}
	if n := h.r.Buffered(); n > 0 {
		if _, err := h.f.Seek(int64(-n), io.SeekCurrent); err != nil {
			return err
		}
	}
	h.r.Reset(h.f)
	return nil
}
