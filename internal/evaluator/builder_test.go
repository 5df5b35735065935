package evaluator

import (
	"lemon/internal/ast"
	"lemon/internal/diag"
	"lemon/internal/object"
	"testing"
)

func numberLiteral(b *Builder, v object.Value) ast.ExprID {
	switch v := v.(type) {
	case object.Int:
		return b.CreateIntExpression(v.Value)
	case object.Double:
		return b.CreateDoubleExpression(v.Value)
	}
	panic("not a number")
}

func TestFoldingMatchesRuntimeEvaluation(t *testing.T) {
	operands := []object.Value{
		object.Int{Value: 7},
		object.Int{Value: -3},
		object.Double{Value: 2.5},
		object.Double{Value: -0.5},
	}
	ops := []ast.Operator{
		ast.ADD, ast.SUB, ast.MUL, ast.DIV, ast.MOD,
		ast.EQ, ast.NE, ast.GT, ast.GE, ast.LT, ast.LE,
	}

	in := New()
	defer in.Dispose()
	b := in.Builder()
	in.RegisterGlobal("l", object.NULL)
	in.RegisterGlobal("r", object.NULL)
	lv := in.globals.Search("l")
	rv := in.globals.Search("r")

	for _, op := range ops {
		for _, l := range operands {
			for _, r := range operands {
				folded := b.CreateBinaryExpression(op, numberLiteral(b, l), numberLiteral(b, r))
				if _, ok := in.program.Expression(folded).(*ast.BinaryExpression); ok {
					t.Fatalf("%s %s %s was not folded", l.Inspect(), op, r.Inspect())
				}

				lv.Value, rv.Value = l, r
				unfolded := b.CreateBinaryExpression(op, b.CreateIdentifierExpression("l"), b.CreateIdentifierExpression("r"))

				want, err := in.Eval(unfolded)
				if err != nil {
					t.Fatalf("runtime evaluation failed: %v", err)
				}
				got, err := in.Eval(folded)
				if err != nil {
					t.Fatalf("folded evaluation failed: %v", err)
				}
				if got.Kind() != want.Kind() || object.Stringify(got) != object.Stringify(want) {
					t.Errorf("%s %s %s: folded %s, runtime %s",
						l.Inspect(), op, r.Inspect(), got.Inspect(), want.Inspect())
				}
			}
		}
	}
}

func TestFoldingScenario(t *testing.T) {
	in := New()
	defer in.Dispose()
	b := in.Builder()

	mul := b.CreateBinaryExpression(ast.MUL, b.CreateIntExpression(2), b.CreateIntExpression(3))
	sum := b.CreateBinaryExpression(ast.ADD, b.CreateIntExpression(1), mul)

	lit, ok := in.program.Expression(sum).(*ast.IntLiteral)
	if !ok {
		t.Fatalf("1 + 2 * 3 should fold to an int literal, got %T", in.program.Expression(sum))
	}
	if lit.Value != 7 {
		t.Errorf("folded value = %d, want 7", lit.Value)
	}

	v, err := in.Eval(sum)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v != (object.Int{Value: 7}) {
		t.Errorf("Eval = %v, want Int(7)", v)
	}
}

func TestFoldedNodeKeepsLeftLine(t *testing.T) {
	in := New()
	defer in.Dispose()
	b := in.Builder()

	b.SetLine(3)
	left := b.CreateDoubleExpression(1.5)
	b.SetLine(5)
	right := b.CreateIntExpression(2)
	b.SetLine(6)
	folded := b.CreateBinaryExpression(ast.LT, left, right)

	lit, ok := in.program.Expression(folded).(*ast.BoolLiteral)
	if !ok || !lit.Value {
		t.Fatalf("1.5 < 2 should fold to true, got %#v", in.program.Expression(folded))
	}
	if lit.Line != 3 {
		t.Errorf("folded line = %d, want 3", lit.Line)
	}
}

func TestFoldingSkipsFailingOperations(t *testing.T) {
	tests := []struct {
		name string
		op   ast.Operator
	}{
		{"division", ast.DIV},
		{"modulo", ast.MOD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := New()
			defer in.Dispose()
			b := in.Builder()
			b.SetLine(4)

			expr := b.CreateBinaryExpression(tt.op, b.CreateIntExpression(1), b.CreateIntExpression(0))
			if _, ok := in.program.Expression(expr).(*ast.BinaryExpression); !ok {
				t.Fatalf("division by zero must not fold")
			}

			_, err := in.Eval(expr)
			if !diag.Is(err, diag.DIVISION_BY_ZERO) {
				t.Fatalf("expected DIVISION_BY_ZERO, got %v", err)
			}
			if err.(*diag.Error).Line != 4 {
				t.Errorf("error line = %d, want 4", err.(*diag.Error).Line)
			}
		})
	}
}

func TestFoldingLeavesLogicalAndNonNumericAlone(t *testing.T) {
	in := New()
	defer in.Dispose()
	b := in.Builder()

	exprs := []ast.ExprID{
		b.CreateBinaryExpression(ast.AND, b.CreateBooleanExpression(true), b.CreateBooleanExpression(false)),
		b.CreateBinaryExpression(ast.ADD, b.CreateStringExpression("a"), b.CreateIntExpression(1)),
		b.CreateBinaryExpression(ast.ADD, b.CreateIdentifierExpression("x"), b.CreateIntExpression(1)),
	}
	for _, id := range exprs {
		if _, ok := in.program.Expression(id).(*ast.BinaryExpression); !ok {
			t.Errorf("%s should not fold", in.program.Format(id))
		}
	}

	neg := b.CreateMinusExpression(b.CreateDoubleExpression(2.5))
	if lit, ok := in.program.Expression(neg).(*ast.DoubleLiteral); !ok || lit.Value != -2.5 {
		t.Errorf("-2.5 should fold to a double literal, got %#v", in.program.Expression(neg))
	}
	negIdent := b.CreateMinusExpression(b.CreateIdentifierExpression("x"))
	if _, ok := in.program.Expression(negIdent).(*ast.MinusExpression); !ok {
		t.Errorf("-x should not fold")
	}
}

func TestFunctionDefineRejectsDuplicates(t *testing.T) {
	in := New()
	defer in.Dispose()
	b := in.Builder()

	b.SetLine(2)
	if err := b.FunctionDefine("f", nil, b.CreateBlock(nil)); err != nil {
		t.Fatalf("first define: %v", err)
	}
	b.SetLine(8)
	err := b.FunctionDefine("f", ast.ParameterList{"a"}, b.CreateBlock(nil))
	if !diag.Is(err, diag.FUNCTION_MULTIPLE_DEFINE) {
		t.Fatalf("expected FUNCTION_MULTIPLE_DEFINE, got %v", err)
	}
	de := err.(*diag.Error)
	if name, _ := de.Arg("name"); name != "f" {
		t.Errorf("name arg = %v", name)
	}
	if line, _ := de.Arg("line"); line != 2 {
		t.Errorf("line arg = %v, want 2", line)
	}

	if err := in.RegisterNativeFunction("f", nil); !diag.Is(err, diag.FUNCTION_MULTIPLE_DEFINE) {
		t.Errorf("native registration over a user function should fail, got %v", err)
	}
	if n := len(in.Functions()); n != 1 {
		t.Errorf("Functions() = %d entries, want 1", n)
	}
}
