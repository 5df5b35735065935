package evaluator

import (
	"fmt"
	"lemon/internal/ast"
	"lemon/internal/diag"
	"lemon/internal/object"
	"math"
	"strings"
)

func (in *Interpreter) evalBinaryExpression(env *LocalEnvironment, node *ast.BinaryExpression) (object.Value, error) {
	left, err := in.evalExpression(env, node.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.evalExpression(env, node.Right)
	if err != nil {
		return nil, err
	}
	line := in.program.Expression(node.Left).LineNumber()
	return in.evalBinaryValues(node.Operator, left, right, line)
}

// evalBinaryValues applies an arithmetic or comparison operator. String
// operands are consumed; line is the left operand's line.
func (in *Interpreter) evalBinaryValues(op ast.Operator, left, right object.Value, line int) (object.Value, error) {
	switch l := left.(type) {
	case object.Int:
		switch r := right.(type) {
		case object.Int:
			return evalBinaryInt(op, l.Value, r.Value, line)
		case object.Double:
			return evalBinaryDouble(op, float64(l.Value), r.Value), nil
		}
	case object.Double:
		switch r := right.(type) {
		case object.Int:
			return evalBinaryDouble(op, l.Value, float64(r.Value)), nil
		case object.Double:
			return evalBinaryDouble(op, l.Value, r.Value), nil
		}
	case object.Boolean:
		if r, ok := right.(object.Boolean); ok {
			return evalBinaryBoolean(op, l.Value, r.Value, line)
		}
	case *object.String:
		if op == ast.ADD {
			return in.chainString(l, right), nil
		}
		if r, ok := right.(*object.String); ok {
			return evalCompareString(op, l, r, line)
		}
	}

	if isNull(left) || isNull(right) {
		return evalBinaryNull(op, left, right, line)
	}
	return nil, diag.NewRuntime(line, diag.BAD_OPERAND_TYPE, diag.A("operator", op.String()))
}

func evalBinaryInt(op ast.Operator, left, right int32, line int) (object.Value, error) {
	switch op {
	case ast.ADD:
		return object.Int{Value: left + right}, nil
	case ast.SUB:
		return object.Int{Value: left - right}, nil
	case ast.MUL:
		return object.Int{Value: left * right}, nil
	case ast.DIV:
		if right == 0 {
			return nil, diag.NewRuntime(line, diag.DIVISION_BY_ZERO)
		}
		return object.Int{Value: left / right}, nil
	case ast.MOD:
		if right == 0 {
			return nil, diag.NewRuntime(line, diag.DIVISION_BY_ZERO)
		}
		return object.Int{Value: left % right}, nil
	case ast.EQ:
		return object.Bool(left == right), nil
	case ast.NE:
		return object.Bool(left != right), nil
	case ast.GT:
		return object.Bool(left > right), nil
	case ast.GE:
		return object.Bool(left >= right), nil
	case ast.LT:
		return object.Bool(left < right), nil
	case ast.LE:
		return object.Bool(left <= right), nil
	default:
		panic(fmt.Sprintf("bad int operator..%s", op))
	}
}

func evalBinaryDouble(op ast.Operator, left, right float64) object.Value {
	switch op {
	case ast.ADD:
		return object.Double{Value: left + right}
	case ast.SUB:
		return object.Double{Value: left - right}
	case ast.MUL:
		return object.Double{Value: left * right}
	case ast.DIV:
		return object.Double{Value: left / right}
	case ast.MOD:
		return object.Double{Value: math.Mod(left, right)}
	case ast.EQ:
		return object.Bool(left == right)
	case ast.NE:
		return object.Bool(left != right)
	case ast.GT:
		return object.Bool(left > right)
	case ast.GE:
		return object.Bool(left >= right)
	case ast.LT:
		return object.Bool(left < right)
	case ast.LE:
		return object.Bool(left <= right)
	default:
		panic(fmt.Sprintf("bad double operator..%s", op))
	}
}

func evalBinaryBoolean(op ast.Operator, left, right bool, line int) (object.Value, error) {
	switch op {
	case ast.EQ:
		return object.Bool(left == right), nil
	case ast.NE:
		return object.Bool(left != right), nil
	default:
		return nil, diag.NewRuntime(line, diag.NOT_BOOLEAN_OPERATOR, diag.A("operator", op.String()))
	}
}

func evalCompareString(op ast.Operator, left, right *object.String, line int) (object.Value, error) {
	cmp := strings.Compare(left.Bytes(), right.Bytes())

	var result bool
	switch op {
	case ast.EQ:
		result = cmp == 0
	case ast.NE:
		result = cmp != 0
	case ast.GT:
		result = cmp > 0
	case ast.GE:
		result = cmp >= 0
	case ast.LT:
		result = cmp < 0
	case ast.LE:
		result = cmp <= 0
	default:
		return nil, diag.NewRuntime(line, diag.BAD_OPERATOR_FOR_STRING, diag.A("operator", op.String()))
	}
	left.Release()
	right.Release()
	return object.Bool(result), nil
}

func evalBinaryNull(op ast.Operator, left, right object.Value, line int) (object.Value, error) {
	bothNull := isNull(left) && isNull(right)

	var result bool
	switch op {
	case ast.EQ:
		result = bothNull
	case ast.NE:
		result = !bothNull
	default:
		return nil, diag.NewRuntime(line, diag.NOT_NULL_OPERATOR, diag.A("operator", op.String()))
	}
	object.ReleaseValue(left)
	object.ReleaseValue(right)
	return object.Bool(result), nil
}

// chainString concatenates left with the text form of right, consuming both.
func (in *Interpreter) chainString(left *object.String, right object.Value) *object.String {
	var rs *object.String
	switch r := right.(type) {
	case *object.String:
		rs = r
	case object.Int, object.Double, object.Boolean, object.NativePointer, object.Null:
		rs = in.pool.Owned(object.Stringify(r))
	default:
		panic(fmt.Sprintf("bad right operand for concatenation..%T", right))
	}
	return in.pool.Concat(left, rs)
}

func evalMinusValue(v object.Value, line int) (object.Value, error) {
	switch v := v.(type) {
	case object.Int:
		return object.Int{Value: -v.Value}, nil
	case object.Double:
		return object.Double{Value: -v.Value}, nil
	default:
		return nil, diag.NewRuntime(line, diag.MINUS_OPERAND_TYPE)
	}
}

func isNull(v object.Value) bool {
	_, ok := v.(object.Null)
	return ok
}
