package evaluator

import (
	"fmt"
	"lemon/internal/ast"
	"lemon/internal/diag"
	"lemon/internal/log"
	"lemon/internal/object"
	"log/slog"
)

// Builder is the construction API a parser drives. Every node it creates is
// stamped with the current line set through SetLine.
type Builder struct {
	in      *Interpreter
	program *ast.Program
	line    int
}

func (b *Builder) SetLine(line int) { b.line = line }
func (b *Builder) Line() int        { return b.line }

// FunctionDefine registers a user function. Redefining a name is a compile
// error that reports where the first definition lives.
func (b *Builder) FunctionDefine(name string, params ast.ParameterList, body ast.BlockID) error {
	if prev := b.in.searchFunction(name); prev != nil {
		return diag.NewCompile(b.line, diag.FUNCTION_MULTIPLE_DEFINE,
			diag.A("name", name), diag.A("line", prev.Line))
	}
	b.in.addFunction(&FunctionDefinition{
		Name:       name,
		Line:       b.line,
		Parameters: params,
		Body:       body,
	})
	b.in.logger.Debug("function defined",
		slog.String("function", name),
		slog.Int("parameter-count", len(params)),
		slog.Int("line", b.line))
	return nil
}

// AddStatement appends to the top-level statement list.
func (b *Builder) AddStatement(stmt ast.StmtID) {
	b.in.statements = ast.ChainStatement(b.in.statements, stmt)
}

func (b *Builder) CreateBooleanExpression(value bool) ast.ExprID {
	return b.program.AddExpression(&ast.BoolLiteral{Line: b.line, Value: value})
}

func (b *Builder) CreateIntExpression(value int32) ast.ExprID {
	return b.program.AddExpression(&ast.IntLiteral{Line: b.line, Value: value})
}

func (b *Builder) CreateDoubleExpression(value float64) ast.ExprID {
	return b.program.AddExpression(&ast.DoubleLiteral{Line: b.line, Value: value})
}

func (b *Builder) CreateStringExpression(value string) ast.ExprID {
	return b.program.AddExpression(&ast.StringLiteral{Line: b.line, Value: value})
}

func (b *Builder) CreateNullExpression() ast.ExprID {
	return b.program.AddExpression(&ast.NullLiteral{Line: b.line})
}

func (b *Builder) CreateIdentifierExpression(name string) ast.ExprID {
	return b.program.AddExpression(&ast.Identifier{Line: b.line, Name: name})
}

func (b *Builder) CreateAssignExpression(name string, operand ast.ExprID) ast.ExprID {
	return b.program.AddExpression(&ast.AssignExpression{Line: b.line, Name: name, Operand: operand})
}

// CreateBinaryExpression folds operations on two numeric literals into a new
// literal carrying the left operand's line. Operations that would fail at run
// time are left unfolded so the error keeps its run-time behaviour.
func (b *Builder) CreateBinaryExpression(op ast.Operator, left, right ast.ExprID) ast.ExprID {
	l, r := b.program.Expression(left), b.program.Expression(right)
	if !op.IsLogical() && ast.IsNumericLiteral(l) && ast.IsNumericLiteral(r) {
		v, err := b.in.evalBinaryValues(op, literalValue(l), literalValue(r), l.LineNumber())
		if err == nil {
			folded := b.literalFromValue(v, l.LineNumber())
			b.in.logger.Log(b.in.ctx, log.LevelTrace, "constant folded",
				slog.String("operator", op.String()),
				slog.String("result", b.program.Format(folded)))
			return folded
		}
	}
	return b.program.AddExpression(&ast.BinaryExpression{
		Line:     b.line,
		Operator: op,
		Left:     left,
		Right:    right,
	})
}

func (b *Builder) CreateMinusExpression(operand ast.ExprID) ast.ExprID {
	e := b.program.Expression(operand)
	if ast.IsNumericLiteral(e) {
		v, err := evalMinusValue(literalValue(e), e.LineNumber())
		if err == nil {
			return b.literalFromValue(v, e.LineNumber())
		}
	}
	return b.program.AddExpression(&ast.MinusExpression{Line: b.line, Operand: operand})
}

func (b *Builder) CreateFunctionCallExpression(name string, args ast.ArgumentList) ast.ExprID {
	return b.program.AddExpression(&ast.CallExpression{Line: b.line, Name: name, Arguments: args})
}

func (b *Builder) CreateExpressionStatement(expr ast.ExprID) ast.StmtID {
	return b.program.AddStatement(&ast.ExpressionStatement{Line: b.line, Expression: expr})
}

func (b *Builder) CreateGlobalStatement(names ast.IdentifierList) ast.StmtID {
	return b.program.AddStatement(&ast.GlobalStatement{Line: b.line, Names: names})
}

// CreateIfStatement takes ast.NoBlock for a missing else block.
func (b *Builder) CreateIfStatement(cond ast.ExprID, then ast.BlockID, elsifs ast.ElsifList, elseBlock ast.BlockID) ast.StmtID {
	return b.program.AddStatement(&ast.IfStatement{
		Line:      b.line,
		Condition: cond,
		Then:      then,
		Elsifs:    elsifs,
		Else:      elseBlock,
	})
}

func (b *Builder) CreateElsif(cond ast.ExprID, block ast.BlockID) ast.Elsif {
	return ast.Elsif{Condition: cond, Block: block}
}

func (b *Builder) CreateWhileStatement(cond ast.ExprID, block ast.BlockID) ast.StmtID {
	return b.program.AddStatement(&ast.WhileStatement{Line: b.line, Condition: cond, Block: block})
}

// CreateForStatement takes ast.NoExpr for any omitted clause.
func (b *Builder) CreateForStatement(init, cond, post ast.ExprID, block ast.BlockID) ast.StmtID {
	return b.program.AddStatement(&ast.ForStatement{
		Line:      b.line,
		Init:      init,
		Condition: cond,
		Post:      post,
		Block:     block,
	})
}

func (b *Builder) CreateReturnStatement(value ast.ExprID) ast.StmtID {
	return b.program.AddStatement(&ast.ReturnStatement{Line: b.line, Value: value})
}

func (b *Builder) CreateBreakStatement() ast.StmtID {
	return b.program.AddStatement(&ast.BreakStatement{Line: b.line})
}

func (b *Builder) CreateContinueStatement() ast.StmtID {
	return b.program.AddStatement(&ast.ContinueStatement{Line: b.line})
}

func (b *Builder) CreateBlock(list ast.StatementList) ast.BlockID {
	return b.program.AddBlock(list)
}

func literalValue(e ast.Expression) object.Value {
	switch e := e.(type) {
	case *ast.IntLiteral:
		return object.Int{Value: e.Value}
	case *ast.DoubleLiteral:
		return object.Double{Value: e.Value}
	default:
		panic(fmt.Sprintf("not a numeric literal..%T", e))
	}
}

func (b *Builder) literalFromValue(v object.Value, line int) ast.ExprID {
	switch v := v.(type) {
	case object.Int:
		return b.program.AddExpression(&ast.IntLiteral{Line: line, Value: v.Value})
	case object.Double:
		return b.program.AddExpression(&ast.DoubleLiteral{Line: line, Value: v.Value})
	case object.Boolean:
		return b.program.AddExpression(&ast.BoolLiteral{Line: line, Value: v.Value})
	default:
		panic(fmt.Sprintf("cannot fold value..%T", v))
	}
}
