package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

type (
	ExprID  int32
	StmtID  int32
	BlockID int32
)

const (
	NoExpr  ExprID  = -1
	NoBlock BlockID = -1
)

// The base Node interface
type Node interface {
	LineNumber() int
}

type Expression interface {
	Node
	expressionNode()
}

type Statement interface {
	Node
	statementNode()
}

type Operator int

const (
	ADD Operator = iota + 1
	SUB
	MUL
	DIV
	MOD
	EQ
	NE
	GT
	GE
	LT
	LE
	AND
	OR
)

var operatorSymbols = [...]string{
	ADD: "+",
	SUB: "-",
	MUL: "*",
	DIV: "/",
	MOD: "%",
	EQ:  "==",
	NE:  "!=",
	GT:  ">",
	GE:  ">=",
	LT:  "<",
	LE:  "<=",
	AND: "&&",
	OR:  "||",
}

func (op Operator) String() string {
	if op > 0 && int(op) < len(operatorSymbols) {
		return operatorSymbols[op]
	}
	return "OP(" + strconv.Itoa(int(op)) + ")"
}

func (op Operator) IsMath() bool    { return op >= ADD && op <= MOD }
func (op Operator) IsCompare() bool { return op >= EQ && op <= LE }
func (op Operator) IsLogical() bool { return op == AND || op == OR }

// Ordered lists produced by the parser. Chain* append and return the head.
type (
	ParameterList  []string
	ArgumentList   []ExprID
	StatementList  []StmtID
	IdentifierList []string
	ElsifList      []Elsif
)

func ChainParameter(list ParameterList, name string) ParameterList { return append(list, name) }
func ChainArgument(list ArgumentList, expr ExprID) ArgumentList    { return append(list, expr) }
func ChainStatement(list StatementList, stmt StmtID) StatementList { return append(list, stmt) }
func ChainIdentifier(list IdentifierList, name string) IdentifierList {
	return append(list, name)
}
func ChainElsif(list ElsifList, elsif Elsif) ElsifList { return append(list, elsif) }

type BoolLiteral struct {
	Line  int
	Value bool
}

func (e *BoolLiteral) expressionNode() {}
func (e *BoolLiteral) LineNumber() int { return e.Line }

type IntLiteral struct {
	Line  int
	Value int32
}

func (e *IntLiteral) expressionNode() {}
func (e *IntLiteral) LineNumber() int { return e.Line }

type DoubleLiteral struct {
	Line  int
	Value float64
}

func (e *DoubleLiteral) expressionNode() {}
func (e *DoubleLiteral) LineNumber() int { return e.Line }

type StringLiteral struct {
	Line  int
	Value string
}

func (e *StringLiteral) expressionNode() {}
func (e *StringLiteral) LineNumber() int { return e.Line }

type NullLiteral struct {
	Line int
}

func (e *NullLiteral) expressionNode() {}
func (e *NullLiteral) LineNumber() int { return e.Line }

type Identifier struct {
	Line int
	Name string
}

func (e *Identifier) expressionNode() {}
func (e *Identifier) LineNumber() int { return e.Line }

type AssignExpression struct {
	Line    int
	Name    string
	Operand ExprID
}

func (e *AssignExpression) expressionNode() {}
func (e *AssignExpression) LineNumber() int { return e.Line }

type BinaryExpression struct {
	Line     int
	Operator Operator
	Left     ExprID
	Right    ExprID
}

func (e *BinaryExpression) expressionNode() {}
func (e *BinaryExpression) LineNumber() int { return e.Line }

type MinusExpression struct {
	Line    int
	Operand ExprID
}

func (e *MinusExpression) expressionNode() {}
func (e *MinusExpression) LineNumber() int { return e.Line }

type CallExpression struct {
	Line      int
	Name      string
	Arguments ArgumentList
}

func (e *CallExpression) expressionNode() {}
func (e *CallExpression) LineNumber() int { return e.Line }

// IsNumericLiteral reports whether e is an int or double literal, the only
// operands eligible for constant folding.
func IsNumericLiteral(e Expression) bool {
	switch e.(type) {
	case *IntLiteral, *DoubleLiteral:
		return true
	}
	return false
}

type ExpressionStatement struct {
	Line       int
	Expression ExprID
}

func (s *ExpressionStatement) statementNode()  {}
func (s *ExpressionStatement) LineNumber() int { return s.Line }

type GlobalStatement struct {
	Line  int
	Names IdentifierList
}

func (s *GlobalStatement) statementNode()  {}
func (s *GlobalStatement) LineNumber() int { return s.Line }

type Elsif struct {
	Condition ExprID
	Block     BlockID
}

type IfStatement struct {
	Line      int
	Condition ExprID
	Then      BlockID
	Elsifs    ElsifList
	Else      BlockID
}

func (s *IfStatement) statementNode()  {}
func (s *IfStatement) LineNumber() int { return s.Line }

type WhileStatement struct {
	Line      int
	Condition ExprID
	Block     BlockID
}

func (s *WhileStatement) statementNode()  {}
func (s *WhileStatement) LineNumber() int { return s.Line }

// ForStatement fields Init, Condition and Post may be NoExpr.
type ForStatement struct {
	Line      int
	Init      ExprID
	Condition ExprID
	Post      ExprID
	Block     BlockID
}

func (s *ForStatement) statementNode()  {}
func (s *ForStatement) LineNumber() int { return s.Line }

type ReturnStatement struct {
	Line  int
	Value ExprID
}

func (s *ReturnStatement) statementNode()  {}
func (s *ReturnStatement) LineNumber() int { return s.Line }

type BreakStatement struct {
	Line int
}

func (s *BreakStatement) statementNode()  {}
func (s *BreakStatement) LineNumber() int { return s.Line }

type ContinueStatement struct {
	Line int
}

func (s *ContinueStatement) statementNode()  {}
func (s *ContinueStatement) LineNumber() int { return s.Line }

type Block struct {
	Statements StatementList
}

// Program is the construction arena. Nodes are appended once and addressed by
// index for the lifetime of the interpreter.
type Program struct {
	exprs  []Expression
	stmts  []Statement
	blocks []Block
}

func NewProgram() *Program {
	return &Program{}
}

func (p *Program) AddExpression(e Expression) ExprID {
	p.exprs = append(p.exprs, e)
	return ExprID(len(p.exprs) - 1)
}

func (p *Program) AddStatement(s Statement) StmtID {
	p.stmts = append(p.stmts, s)
	return StmtID(len(p.stmts) - 1)
}

func (p *Program) AddBlock(list StatementList) BlockID {
	p.blocks = append(p.blocks, Block{Statements: list})
	return BlockID(len(p.blocks) - 1)
}

func (p *Program) Expression(id ExprID) Expression {
	if id < 0 || int(id) >= len(p.exprs) {
		panic(fmt.Sprintf("bad expression id..%d", id))
	}
	return p.exprs[id]
}

func (p *Program) Statement(id StmtID) Statement {
	if id < 0 || int(id) >= len(p.stmts) {
		panic(fmt.Sprintf("bad statement id..%d", id))
	}
	return p.stmts[id]
}

func (p *Program) Block(id BlockID) Block {
	if id < 0 || int(id) >= len(p.blocks) {
		panic(fmt.Sprintf("bad block id..%d", id))
	}
	return p.blocks[id]
}

// Counts reports arena sizes, used by debug logging.
func (p *Program) Counts() (exprs, stmts, blocks int) {
	return len(p.exprs), len(p.stmts), len(p.blocks)
}

// Format renders an expression back to source-like text.
func (p *Program) Format(id ExprID) string {
	var out bytes.Buffer
	p.writeExpression(&out, id)
	return out.String()
}

func (p *Program) writeExpression(out *bytes.Buffer, id ExprID) {
	switch e := p.Expression(id).(type) {
	case *BoolLiteral:
		out.WriteString(strconv.FormatBool(e.Value))
	case *IntLiteral:
		out.WriteString(strconv.FormatInt(int64(e.Value), 10))
	case *DoubleLiteral:
		out.WriteString(strconv.FormatFloat(e.Value, 'g', -1, 64))
	case *StringLiteral:
		out.WriteString(strconv.Quote(e.Value))
	case *NullLiteral:
		out.WriteString("null")
	case *Identifier:
		out.WriteString(e.Name)
	case *AssignExpression:
		out.WriteString(e.Name)
		out.WriteString(" = ")
		p.writeExpression(out, e.Operand)
	case *BinaryExpression:
		out.WriteString("(")
		p.writeExpression(out, e.Left)
		out.WriteString(" " + e.Operator.String() + " ")
		p.writeExpression(out, e.Right)
		out.WriteString(")")
	case *MinusExpression:
		out.WriteString("(-")
		p.writeExpression(out, e.Operand)
		out.WriteString(")")
	case *CallExpression:
		args := make([]string, 0, len(e.Arguments))
		for _, a := range e.Arguments {
			args = append(args, p.Format(a))
		}
		out.WriteString(e.Name + "(" + strings.Join(args, ", ") + ")")
	default:
		panic(fmt.Sprintf("bad expression type..%T", e))
	}
}
