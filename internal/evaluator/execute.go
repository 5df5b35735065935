package evaluator

import (
	"fmt"
	"lemon/internal/ast"
	"lemon/internal/diag"
	"lemon/internal/object"
	"log/slog"
)

type ResultKind int

const (
	NormalResult ResultKind = iota
	ReturnResult
	BreakResult
	ContinueResult
)

func (k ResultKind) String() string {
	switch k {
	case NormalResult:
		return "normal"
	case ReturnResult:
		return "return"
	case BreakResult:
		return "break"
	case ContinueResult:
		return "continue"
	default:
		return fmt.Sprintf("result(%d)", int(k))
	}
}

// StatementResult carries control flow out of a statement. Value is set only
// for ReturnResult and is owned by whoever receives the result.
type StatementResult struct {
	Kind  ResultKind
	Value object.Value
}

var normal = StatementResult{Kind: NormalResult}

func (in *Interpreter) executeBlock(env *LocalEnvironment, id ast.BlockID) (StatementResult, error) {
	return in.executeStatementList(env, in.program.Block(id).Statements)
}

// executeStatementList stops at the first result that is not normal.
func (in *Interpreter) executeStatementList(env *LocalEnvironment, list ast.StatementList) (StatementResult, error) {
	for _, id := range list {
		result, err := in.executeStatement(env, id)
		if err != nil {
			return normal, err
		}
		if result.Kind != NormalResult {
			return result, nil
		}
	}
	return normal, nil
}

func (in *Interpreter) executeStatement(env *LocalEnvironment, id ast.StmtID) (StatementResult, error) {
	switch stmt := in.program.Statement(id).(type) {
	case *ast.ExpressionStatement:
		return normal, in.evalDiscard(env, stmt.Expression)
	case *ast.GlobalStatement:
		return normal, in.executeGlobalStatement(env, stmt)
	case *ast.IfStatement:
		return in.executeIfStatement(env, stmt)
	case *ast.WhileStatement:
		return in.executeWhileStatement(env, stmt)
	case *ast.ForStatement:
		return in.executeForStatement(env, stmt)
	case *ast.ReturnStatement:
		return in.executeReturnStatement(env, stmt)
	case *ast.BreakStatement:
		return StatementResult{Kind: BreakResult}, nil
	case *ast.ContinueStatement:
		return StatementResult{Kind: ContinueResult}, nil
	default:
		panic(fmt.Sprintf("bad statement type..%T", stmt))
	}
}

// evalDiscard evaluates an expression for its side effects only.
func (in *Interpreter) evalDiscard(env *LocalEnvironment, expr ast.ExprID) error {
	v, err := in.evalExpression(env, expr)
	if err != nil {
		return err
	}
	object.ReleaseValue(v)
	return nil
}

func (in *Interpreter) executeGlobalStatement(env *LocalEnvironment, stmt *ast.GlobalStatement) error {
	if env == nil {
		return diag.NewRuntime(stmt.Line, diag.GLOBAL_STATEMENT_IN_TOPLEVEL)
	}
	for _, name := range stmt.Names {
		if env.searchBridge(name) != nil {
			continue
		}
		variable := in.globals.Search(name)
		if variable == nil {
			return diag.NewRuntime(stmt.Line, diag.GLOBAL_VARIABLE_NOT_FOUND, diag.A("name", name))
		}
		env.bridge(variable)
		in.logger.Debug("global bridged", slog.String("name", name), slog.Int("line", stmt.Line))
	}
	return nil
}

func (in *Interpreter) evalCondition(env *LocalEnvironment, cond ast.ExprID) (bool, error) {
	v, err := in.evalExpression(env, cond)
	if err != nil {
		return false, err
	}
	b, ok := v.(object.Boolean)
	if !ok {
		return false, diag.NewRuntime(in.program.Expression(cond).LineNumber(), diag.NOT_BOOLEAN_TYPE)
	}
	return b.Value, nil
}

func (in *Interpreter) executeIfStatement(env *LocalEnvironment, stmt *ast.IfStatement) (StatementResult, error) {
	ok, err := in.evalCondition(env, stmt.Condition)
	if err != nil {
		return normal, err
	}
	if ok {
		return in.executeBlock(env, stmt.Then)
	}

	for _, elsif := range stmt.Elsifs {
		ok, err := in.evalCondition(env, elsif.Condition)
		if err != nil {
			return normal, err
		}
		if ok {
			return in.executeBlock(env, elsif.Block)
		}
	}

	if stmt.Else != ast.NoBlock {
		return in.executeBlock(env, stmt.Else)
	}
	return normal, nil
}

func (in *Interpreter) executeWhileStatement(env *LocalEnvironment, stmt *ast.WhileStatement) (StatementResult, error) {
	for {
		ok, err := in.evalCondition(env, stmt.Condition)
		if err != nil {
			return normal, err
		}
		if !ok {
			return normal, nil
		}

		result, err := in.executeBlock(env, stmt.Block)
		if err != nil {
			return normal, err
		}
		switch result.Kind {
		case ReturnResult:
			return result, nil
		case BreakResult:
			return normal, nil
		}
	}
}

func (in *Interpreter) executeForStatement(env *LocalEnvironment, stmt *ast.ForStatement) (StatementResult, error) {
	if stmt.Init != ast.NoExpr {
		if err := in.evalDiscard(env, stmt.Init); err != nil {
			return normal, err
		}
	}

	for {
		if stmt.Condition != ast.NoExpr {
			ok, err := in.evalCondition(env, stmt.Condition)
			if err != nil {
				return normal, err
			}
			if !ok {
				return normal, nil
			}
		}

		result, err := in.executeBlock(env, stmt.Block)
		if err != nil {
			return normal, err
		}
		switch result.Kind {
		case ReturnResult:
			return result, nil
		case BreakResult:
			return normal, nil
		}

		if stmt.Post != ast.NoExpr {
			if err := in.evalDiscard(env, stmt.Post); err != nil {
				return normal, err
			}
		}
	}
}

func (in *Interpreter) executeReturnStatement(env *LocalEnvironment, stmt *ast.ReturnStatement) (StatementResult, error) {
	if stmt.Value == ast.NoExpr {
		return StatementResult{Kind: ReturnResult, Value: object.NULL}, nil
	}
	v, err := in.evalExpression(env, stmt.Value)
	if err != nil {
		return normal, err
	}
	return StatementResult{Kind: ReturnResult, Value: v}, nil
}
