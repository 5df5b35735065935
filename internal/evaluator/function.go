package evaluator

import (
	"lemon/internal/ast"
	"lemon/internal/object"
)

// NativeFunc is the calling convention for functions implemented in Go.
// Arguments are borrowed: the evaluator releases them after the call, so a
// native must retain any string it keeps.
type NativeFunc func(in *Interpreter, args []object.Value) (object.Value, error)

type FunctionDefinition struct {
	Name       string
	Line       int
	Parameters ast.ParameterList
	Body       ast.BlockID
	Native     NativeFunc
}

func (fd *FunctionDefinition) IsNative() bool { return fd.Native != nil }
