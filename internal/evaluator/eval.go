package evaluator

import (
	"errors"
	"fmt"
	"lemon/internal/ast"
	"lemon/internal/diag"
	"lemon/internal/object"
	"log/slog"
)

// Eval evaluates one expression at the top level. The caller owns the
// returned value and must release it if it is a string.
func (in *Interpreter) Eval(expr ast.ExprID) (object.Value, error) {
	return in.evalExpression(nil, expr)
}

func (in *Interpreter) evalExpression(env *LocalEnvironment, id ast.ExprID) (object.Value, error) {
	switch node := in.program.Expression(id).(type) {
	case *ast.BoolLiteral:
		return object.Bool(node.Value), nil
	case *ast.IntLiteral:
		return object.Int{Value: node.Value}, nil
	case *ast.DoubleLiteral:
		return object.Double{Value: node.Value}, nil
	case *ast.StringLiteral:
		return in.pool.Literal(node.Value), nil
	case *ast.NullLiteral:
		return object.NULL, nil
	case *ast.Identifier:
		return in.evalIdentifierExpression(env, node)
	case *ast.AssignExpression:
		return in.evalAssignExpression(env, node)
	case *ast.BinaryExpression:
		if node.Operator.IsLogical() {
			return in.evalLogicalExpression(env, node)
		}
		return in.evalBinaryExpression(env, node)
	case *ast.MinusExpression:
		operand, err := in.evalExpression(env, node.Operand)
		if err != nil {
			return nil, err
		}
		return evalMinusValue(operand, in.program.Expression(node.Operand).LineNumber())
	case *ast.CallExpression:
		return in.evalFunctionCallExpression(env, node)
	default:
		panic(fmt.Sprintf("bad expression type..%T", node))
	}
}

func (in *Interpreter) evalIdentifierExpression(env *LocalEnvironment, node *ast.Identifier) (object.Value, error) {
	variable := in.searchVariable(env, node.Name)
	if variable == nil {
		return nil, diag.NewRuntime(node.Line, diag.VARIABLE_NOT_FOUND, diag.A("name", node.Name))
	}
	object.RetainValue(variable.Value)
	return variable.Value, nil
}

// evalAssignExpression stores v in the newest matching variable, creating a
// local (or, at the top level, a global) when none is reachable.
func (in *Interpreter) evalAssignExpression(env *LocalEnvironment, node *ast.AssignExpression) (object.Value, error) {
	v, err := in.evalExpression(env, node.Operand)
	if err != nil {
		return nil, err
	}

	if variable := in.searchVariable(env, node.Name); variable != nil {
		object.ReleaseValue(variable.Value)
		variable.Value = v
	} else if env != nil {
		env.add(node.Name, v)
	} else {
		in.globals.add(node.Name, v)
	}
	object.RetainValue(v)
	return v, nil
}

func (in *Interpreter) evalLogicalExpression(env *LocalEnvironment, node *ast.BinaryExpression) (object.Value, error) {
	left, err := in.evalExpression(env, node.Left)
	if err != nil {
		return nil, err
	}
	lb, ok := left.(object.Boolean)
	if !ok {
		return nil, diag.NewRuntime(in.program.Expression(node.Left).LineNumber(), diag.NOT_BOOLEAN_TYPE)
	}

	switch node.Operator {
	case ast.AND:
		if !lb.Value {
			return object.FALSE, nil
		}
	case ast.OR:
		if lb.Value {
			return object.TRUE, nil
		}
	default:
		panic(fmt.Sprintf("bad logical operator..%s", node.Operator))
	}

	right, err := in.evalExpression(env, node.Right)
	if err != nil {
		return nil, err
	}
	rb, ok := right.(object.Boolean)
	if !ok {
		return nil, diag.NewRuntime(in.program.Expression(node.Right).LineNumber(), diag.NOT_BOOLEAN_TYPE)
	}
	return rb, nil
}

func (in *Interpreter) evalFunctionCallExpression(env *LocalEnvironment, node *ast.CallExpression) (object.Value, error) {
	fn := in.searchFunction(node.Name)
	if fn == nil {
		return nil, diag.NewRuntime(node.Line, diag.FUNCTION_NOT_FOUND, diag.A("name", node.Name))
	}

	in.logger.Debug("function call",
		slog.String("function", node.Name),
		slog.Int("argument-count", len(node.Arguments)),
		slog.Bool("native", fn.IsNative()),
		slog.Int("line", node.Line))

	if fn.IsNative() {
		return in.callNativeFunction(env, node, fn)
	}
	return in.callUserFunction(env, node, fn)
}

// callUserFunction binds arguments evaluated in the caller's scope to a fresh
// local environment. An argument without a parameter is reported before it
// is evaluated.
func (in *Interpreter) callUserFunction(env *LocalEnvironment, node *ast.CallExpression, fn *FunctionDefinition) (object.Value, error) {
	local := newLocalEnvironment()

	i := 0
	for _, arg := range node.Arguments {
		if i >= len(fn.Parameters) {
			return nil, diag.NewRuntime(node.Line, diag.ARGUMENT_TOO_MANY)
		}
		v, err := in.evalExpression(env, arg)
		if err != nil {
			return nil, err
		}
		local.add(fn.Parameters[i], v)
		i++
	}
	if i < len(fn.Parameters) {
		return nil, diag.NewRuntime(node.Line, diag.ARGUMENT_TOO_FEW)
	}

	result, err := in.executeBlock(local, fn.Body)
	if err != nil {
		return nil, err
	}

	var value object.Value = object.NULL
	if result.Kind == ReturnResult {
		value = result.Value
	}
	local.dispose()
	return value, nil
}

func (in *Interpreter) callNativeFunction(env *LocalEnvironment, node *ast.CallExpression, fn *FunctionDefinition) (object.Value, error) {
	args := make([]object.Value, 0, len(node.Arguments))
	for _, arg := range node.Arguments {
		v, err := in.evalExpression(env, arg)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	value, err := fn.Native(in, args)
	for _, v := range args {
		object.ReleaseValue(v)
	}
	if err != nil {
		return nil, stampNativeError(err, node)
	}
	if value == nil {
		value = object.NULL
	}
	return value, nil
}

// stampNativeError gives a native failure the call site's line, wrapping
// plain Go errors as NATIVE_FAILURE.
func stampNativeError(err error, node *ast.CallExpression) error {
	var de *diag.Error
	if !errors.As(err, &de) {
		de = diag.Native(err, diag.A("function", node.Name))
	}
	if de.Line == 0 {
		de.Line = node.Line
	}
	return de
}
