package diag

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

type Phase int

const (
	Compile Phase = iota + 1
	Runtime
)

func (p Phase) String() string {
	switch p {
	case Compile:
		return "compile"
	case Runtime:
		return "runtime"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Kind string

// compile errors
const (
	PARSE                    Kind = "PARSE"
	CHARACTER_INVALID        Kind = "CHARACTER_INVALID"
	FUNCTION_MULTIPLE_DEFINE Kind = "FUNCTION_MULTIPLE_DEFINE"
)

// runtime errors
const (
	VARIABLE_NOT_FOUND           Kind = "VARIABLE_NOT_FOUND"
	FUNCTION_NOT_FOUND           Kind = "FUNCTION_NOT_FOUND"
	ARGUMENT_TOO_MANY            Kind = "ARGUMENT_TOO_MANY"
	ARGUMENT_TOO_FEW             Kind = "ARGUMENT_TOO_FEW"
	NOT_BOOLEAN_TYPE             Kind = "NOT_BOOLEAN_TYPE"
	MINUS_OPERAND_TYPE           Kind = "MINUS_OPERAND_TYPE"
	BAD_OPERAND_TYPE             Kind = "BAD_OPERAND_TYPE"
	NOT_BOOLEAN_OPERATOR         Kind = "NOT_BOOLEAN_OPERATOR"
	FOPEN_ARGUMENT_TYPE          Kind = "FOPEN_ARGUMENT_TYPE"
	FCLOSE_ARGUMENT_TYPE         Kind = "FCLOSE_ARGUMENT_TYPE"
	FGETS_ARGUMENT_TYPE          Kind = "FGETS_ARGUMENT_TYPE"
	FPUTS_ARGUMENT_TYPE          Kind = "FPUTS_ARGUMENT_TYPE"
	NOT_NULL_OPERATOR            Kind = "NOT_NULL_OPERATOR"
	DIVISION_BY_ZERO             Kind = "DIVISION_BY_ZERO"
	GLOBAL_VARIABLE_NOT_FOUND    Kind = "GLOBAL_VARIABLE_NOT_FOUND"
	GLOBAL_STATEMENT_IN_TOPLEVEL Kind = "GLOBAL_STATEMENT_IN_TOPLEVEL"
	BAD_OPERATOR_FOR_STRING      Kind = "BAD_OPERATOR_FOR_STRING"
	NATIVE_ARGUMENT_TYPE         Kind = "NATIVE_ARGUMENT_TYPE"
	NATIVE_FAILURE               Kind = "NATIVE_FAILURE"
)

// Arg is one named substitution argument for a message.
type Arg struct {
	Name  string
	Value any
}

func A(name string, value any) Arg {
	return Arg{Name: name, Value: value}
}

// Error is a language-level failure. It is always fatal to the session that
// raised it; hosts decide how to report it.
type Error struct {
	Phase Phase
	Kind  Kind
	Line  int
	Args  []Arg
	Cause error
}

func (e *Error) Error() string {
	var out bytes.Buffer
	fmt.Fprintf(&out, "%s error at line %d: %s", e.Phase, e.Line, e.Kind)
	for _, a := range e.Args {
		fmt.Fprintf(&out, " %s=%v", a.Name, a.Value)
	}
	if e.Cause != nil {
		out.WriteString(": ")
		out.WriteString(e.Cause.Error())
	}
	return out.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Arg returns the named argument, if present.
func (e *Error) Arg(name string) (any, bool) {
	for _, a := range e.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

func NewCompile(line int, kind Kind, args ...Arg) *Error {
	return &Error{Phase: Compile, Kind: kind, Line: line, Args: args}
}

func NewRuntime(line int, kind Kind, args ...Arg) *Error {
	return &Error{Phase: Runtime, Kind: kind, Line: line, Args: args}
}

// Native wraps a failure reported by a native collaborator. The line is left
// at zero and filled in by the evaluator from the call site.
func Native(cause error, args ...Arg) *Error {
	return &Error{Phase: Runtime, Kind: NATIVE_FAILURE, Args: args, Cause: cause}
}

// Is reports whether err, or anything it wraps, is a diag error of the kind.
func Is(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// Formatter renders errors from a message table keyed by kind. Templates use
// $(name) placeholders that are filled from the error's arguments.
type Formatter struct {
	Messages map[Kind]string
}

var defaultMessages = map[Kind]string{
	PARSE:                        "syntax error near $(token)",
	CHARACTER_INVALID:            "invalid character ($(bad_char))",
	FUNCTION_MULTIPLE_DEFINE:     "function $(name) is already defined at line $(line)",
	VARIABLE_NOT_FOUND:           "variable not found ($(name))",
	FUNCTION_NOT_FOUND:           "function not found ($(name))",
	ARGUMENT_TOO_MANY:            "too many arguments passed to the function",
	ARGUMENT_TOO_FEW:             "too few arguments passed to the function",
	NOT_BOOLEAN_TYPE:             "condition is not a boolean",
	MINUS_OPERAND_TYPE:           "bad operand type for unary minus",
	BAD_OPERAND_TYPE:             "bad operand types for operator $(operator)",
	NOT_BOOLEAN_OPERATOR:         "operator $(operator) cannot be applied to booleans",
	FOPEN_ARGUMENT_TYPE:          "fopen expects (string path, string mode)",
	FCLOSE_ARGUMENT_TYPE:         "fclose expects a file pointer",
	FGETS_ARGUMENT_TYPE:          "fgets expects a file pointer",
	FPUTS_ARGUMENT_TYPE:          "fputs expects (string, file pointer)",
	NOT_NULL_OPERATOR:            "operator $(operator) cannot be applied to null",
	DIVISION_BY_ZERO:             "division by zero",
	GLOBAL_VARIABLE_NOT_FOUND:    "global variable not found ($(name))",
	GLOBAL_STATEMENT_IN_TOPLEVEL: "global statement used at top level",
	BAD_OPERATOR_FOR_STRING:      "operator $(operator) cannot be applied to strings",
	NATIVE_ARGUMENT_TYPE:         "bad argument for $(function): $(expected)",
	NATIVE_FAILURE:               "$(function) failed",
}

var DefaultFormatter = &Formatter{Messages: defaultMessages}

func (f *Formatter) Format(err error) string {
	var de *Error
	if !errors.As(err, &de) {
		return err.Error()
	}

	tmpl, ok := f.Messages[de.Kind]
	if !ok {
		tmpl = string(de.Kind)
	}
	msg := expand(tmpl, de)
	if de.Cause != nil {
		msg += ": " + de.Cause.Error()
	}
	return fmt.Sprintf("%d: %s", de.Line, msg)
}

// Format renders err with the default English table.
func Format(err error) string {
	return DefaultFormatter.Format(err)
}

func expand(tmpl string, e *Error) string {
	var out strings.Builder
	for {
		start := strings.Index(tmpl, "$(")
		if start < 0 {
			out.WriteString(tmpl)
			return out.String()
		}
		end := strings.IndexByte(tmpl[start:], ')')
		if end < 0 {
			out.WriteString(tmpl)
			return out.String()
		}
		out.WriteString(tmpl[:start])
		name := tmpl[start+2 : start+end]
		if v, ok := e.Arg(name); ok {
			fmt.Fprintf(&out, "%v", v)
		} else {
			out.WriteString(tmpl[start : start+end+1])
		}
		tmpl = tmpl[start+end+1:]
	}
}
