package host

import (
	"bytes"
	"errors"
	"lemon/internal/ast"
	"lemon/internal/diag"
	"lemon/internal/object"
	"lemon/internal/util"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newSession(t *testing.T, cfg util.Configuration, stdout *bytes.Buffer) *Session {
	t.Helper()
	s, err := New(cfg, WithStdio(strings.NewReader(""), stdout, &bytes.Buffer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPresetGlobals(t *testing.T) {
	cfg := util.DefaultConfiguration()
	cfg.Globals = map[string]any{
		"NAME":    "lemon",
		"COUNT":   3,
		"BIG":     int64(1) << 40,
		"PI":      3.5,
		"ENABLED": true,
		"NOTHING": nil,
	}
	var out bytes.Buffer
	s := newSession(t, cfg, &out)

	tests := []struct {
		name string
		kind object.Kind
		want string
	}{
		{"NAME", object.STRING_VALUE, "lemon"},
		{"COUNT", object.INT_VALUE, "3"},
		{"BIG", object.DOUBLE_VALUE, "1099511627776.000000"},
		{"PI", object.DOUBLE_VALUE, "3.500000"},
		{"ENABLED", object.BOOLEAN_VALUE, "true"},
		{"NOTHING", object.NULL_VALUE, "null"},
	}
	for _, tt := range tests {
		v, ok := s.Interpreter().Global(tt.name)
		if !ok {
			t.Errorf("global %s missing", tt.name)
			continue
		}
		if v.Kind() != tt.kind || object.Stringify(v) != tt.want {
			t.Errorf("%s = %s %q, want %s %q", tt.name, v.Kind(), object.Stringify(v), tt.kind, tt.want)
		}
	}
	if str, _ := s.Interpreter().Global("NAME"); str.(*object.String).RefCount() != 1 {
		t.Errorf("preset string should be held once, ref count %d", str.(*object.String).RefCount())
	}
}

func TestSessionRun(t *testing.T) {
	cfg := util.DefaultConfiguration()
	cfg.Globals = map[string]any{"NAME": "lemon"}
	var out bytes.Buffer
	s := newSession(t, cfg, &out)
	b := s.Builder()

	greeting := b.CreateBinaryExpression(ast.ADD,
		b.CreateStringExpression("hi "),
		b.CreateIdentifierExpression("NAME"))
	b.AddStatement(b.CreateExpressionStatement(
		b.CreateFunctionCallExpression("print", ast.ArgumentList{greeting})))

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "hi lemon" {
		t.Errorf("output = %q", out.String())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if stats := s.Interpreter().Pool().Stats(); stats.Live != 0 {
		t.Errorf("strings leaked after Close: %+v", stats)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.Run(); !errors.Is(err, ErrClosed) {
		t.Errorf("Run after Close = %v, want ErrClosed", err)
	}
}

func TestSessionLogsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemon.log")
	cfg := util.DefaultConfiguration()
	cfg.Log.Level = "debug"
	cfg.Log.File = path
	s := newSession(t, cfg, &bytes.Buffer{})

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, msg := range []string{"natives installed", "session ready", `"version":"dev"`, "run finished", "interpreter disposed"} {
		if !bytes.Contains(data, []byte(msg)) {
			t.Errorf("log file is missing %q:\n%s", msg, data)
		}
	}
}

func TestNewRejectsBadLogFormat(t *testing.T) {
	cfg := util.DefaultConfiguration()
	cfg.Log.Format = "xml"
	if _, err := New(cfg); err == nil {
		t.Errorf("expected an error for an unknown log format")
	}
}

func TestNewRejectsUnsupportedGlobal(t *testing.T) {
	cfg := util.DefaultConfiguration()
	cfg.Globals = map[string]any{"LIST": []any{1, 2}}
	if _, err := New(cfg); err == nil || !strings.Contains(err.Error(), "global LIST") {
		t.Errorf("expected a global conversion error, got %v", err)
	}
}

func TestRuntimeErrorReachesHost(t *testing.T) {
	var out bytes.Buffer
	s := newSession(t, util.DefaultConfiguration(), &out)
	b := s.Builder()

	b.SetLine(2)
	b.AddStatement(b.CreateExpressionStatement(b.CreateIdentifierExpression("missing")))

	err := s.Run()
	if !diag.Is(err, diag.VARIABLE_NOT_FOUND) {
		t.Fatalf("expected VARIABLE_NOT_FOUND, got %v", err)
	}

	var report bytes.Buffer
	Report(&report, err, "a = 1;\nmissing;\n")
	want := "2: variable not found (missing)\n" +
		"       1 | a = 1;\n" +
		"  >    2 | missing;\n" +
		"           ^^^^^^^^\n"
	if report.String() != want {
		t.Errorf("report =\n%q\nwant\n%q", report.String(), want)
	}
}

func TestReportWithoutSource(t *testing.T) {
	tests := []struct {
		name string
		err  error
		src  string
		want string
	}{
		{"no source", diag.NewRuntime(4, diag.DIVISION_BY_ZERO), "", "4: division by zero\n"},
		{"line past end", diag.NewRuntime(9, diag.DIVISION_BY_ZERO), "x;\n", "9: division by zero\n"},
		{"plain error", errors.New("disk full"), "x;\n", "disk full\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Report(&buf, tt.err, tt.src)
			if buf.String() != tt.want {
				t.Errorf("Report() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestSessionUsesRootAndVersion(t *testing.T) {
	root := t.TempDir()
	cfg := util.DefaultConfiguration()
	cfg.RootPath = root
	s := newSession(t, cfg, &bytes.Buffer{})
	b := s.Builder()

	if got := s.Configuration().Version; got != Version {
		t.Errorf("version = %q, want %q", got, Version)
	}

	fp := b.CreateFunctionCallExpression("fopen", ast.ArgumentList{
		b.CreateStringExpression("note.txt"),
		b.CreateStringExpression("w"),
	})
	b.AddStatement(b.CreateExpressionStatement(b.CreateAssignExpression("fp", fp)))
	b.AddStatement(b.CreateExpressionStatement(b.CreateFunctionCallExpression("fclose",
		ast.ArgumentList{b.CreateIdentifierExpression("fp")})))

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "note.txt")); err != nil {
		t.Errorf("relative fopen did not resolve against the root: %v", err)
	}
}
