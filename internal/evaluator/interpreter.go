package evaluator

import (
	"context"
	"lemon/internal/ast"
	"lemon/internal/diag"
	"lemon/internal/object"
	"log/slog"
)

type Interpreter struct {
	program    *ast.Program
	statements ast.StatementList
	functions  map[string]*FunctionDefinition
	funcOrder  []*FunctionDefinition
	globals    *GlobalTable
	pool       *object.Pool
	builder    *Builder
	logger     *slog.Logger
	ctx        context.Context
	disposed   bool
}

type Option func(*Interpreter)

func WithLogger(logger *slog.Logger) Option {
	return func(in *Interpreter) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithContext sets the context handed to native functions.
func WithContext(ctx context.Context) Option {
	return func(in *Interpreter) {
		if ctx != nil {
			in.ctx = ctx
		}
	}
}

func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		program:   ast.NewProgram(),
		functions: make(map[string]*FunctionDefinition),
		globals:   &GlobalTable{},
		logger:    slog.Default(),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.pool = object.NewPool(in.logger)
	in.builder = &Builder{in: in, program: in.program, line: 1}
	return in
}

func (in *Interpreter) Builder() *Builder             { return in.builder }
func (in *Interpreter) Program() *ast.Program         { return in.program }
func (in *Interpreter) Pool() *object.Pool            { return in.pool }
func (in *Interpreter) Logger() *slog.Logger          { return in.logger }
func (in *Interpreter) Context() context.Context      { return in.ctx }
func (in *Interpreter) Statements() ast.StatementList { return in.statements }

// Interpret runs the top-level statement list with no local scope. A
// top-level return stops execution; its payload is discarded.
func (in *Interpreter) Interpret() error {
	if in.disposed {
		panic("interpret on disposed interpreter")
	}
	exprs, stmts, blocks := in.program.Counts()
	in.logger.Debug("interpret",
		slog.Int("statement-count", len(in.statements)),
		slog.Int("expression-nodes", exprs),
		slog.Int("statement-nodes", stmts),
		slog.Int("blocks", blocks))

	result, err := in.executeStatementList(nil, in.statements)
	if err != nil {
		in.logger.Debug("interpret aborted", slog.Any("error", err))
		return err
	}
	if result.Kind == ReturnResult {
		object.ReleaseValue(result.Value)
	}
	return nil
}

// Dispose releases every global string reference and drops the session's
// tables. Calling it more than once is a no-op.
func (in *Interpreter) Dispose() {
	if in.disposed {
		return
	}
	in.disposed = true
	in.globals.releaseAll()
	in.functions = nil
	in.funcOrder = nil
	in.statements = nil

	stats := in.pool.Stats()
	in.logger.Debug("interpreter disposed",
		slog.Int64("strings-allocated", stats.Allocated),
		slog.Int64("strings-live", stats.Live))
}

func (in *Interpreter) RegisterNativeFunction(name string, fn NativeFunc) error {
	if prev, ok := in.functions[name]; ok {
		return diag.NewCompile(in.builder.line, diag.FUNCTION_MULTIPLE_DEFINE,
			diag.A("name", name), diag.A("line", prev.Line))
	}
	in.addFunction(&FunctionDefinition{Name: name, Native: fn})
	return nil
}

// RegisterGlobal adds a global variable holding v. String values are retained.
func (in *Interpreter) RegisterGlobal(name string, v object.Value) {
	object.RetainValue(v)
	in.globals.add(name, v)
}

// Global returns the current value of the newest global named name.
func (in *Interpreter) Global(name string) (object.Value, bool) {
	v := in.globals.Search(name)
	if v == nil {
		return nil, false
	}
	return v.Value, true
}

// Functions lists every defined function in definition order.
func (in *Interpreter) Functions() []*FunctionDefinition {
	out := make([]*FunctionDefinition, len(in.funcOrder))
	copy(out, in.funcOrder)
	return out
}

func (in *Interpreter) searchFunction(name string) *FunctionDefinition {
	return in.functions[name]
}

func (in *Interpreter) addFunction(fd *FunctionDefinition) {
	in.functions[fd.Name] = fd
	in.funcOrder = append(in.funcOrder, fd)
}
