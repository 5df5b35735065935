package native

import (
	"database/sql"
	"errors"
	"fmt"
	"lemon/internal/evaluator"
	"lemon/internal/object"
	"log/slog"
	"slices"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

var (
	SQLInfo  = &object.PointerInfo{Name: "lemon.lang.sql"}
	RowsInfo = &object.PointerInfo{Name: "lemon.lang.sql.rows"}
)

type dbHandle struct {
	driver string
	db     *sql.DB
	closed bool
}

func (h *dbHandle) close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.db.Close()
}

type rowsHandle struct {
	rows    *sql.Rows
	columns []string
	current []any
	closed  bool
}

func (h *rowsHandle) close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.current = nil
	return h.rows.Close()
}

func (lib *Library) sqlFunctions() []entry {
	return []entry{
		{"sql_open", lib.sqlOpen},
		{"sql_exec", lib.sqlExec},
		{"sql_query", lib.sqlQuery},
		{"sql_next", lib.sqlNext},
		{"sql_column", lib.sqlColumn},
		{"sql_close", lib.sqlClose},
	}
}

func (lib *Library) sqlOpen(in *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	if err := checkArgCount(args, 2); err != nil {
		return nil, err
	}
	driver, ok1 := args[0].(*object.String)
	dsn, ok2 := args[1].(*object.String)
	if !ok1 || !ok2 {
		return nil, argumentType("sql_open", "(string driver, string dsn)")
	}
	if !slices.Contains(lib.opts.SQL.Drivers, driver.Bytes()) {
		return nil, failure("sql_open", "driver %q is not enabled", driver.Bytes())
	}

	db, err := sql.Open(driver.Bytes(), lib.resolveDSN(driver.Bytes(), dsn.Bytes()))
	if err != nil {
		return nil, failure("sql_open", "open: %w", err)
	}
	if lib.opts.SQL.MaxOpenConns > 0 {
		db.SetMaxOpenConns(lib.opts.SQL.MaxOpenConns)
	}
	if err := db.PingContext(in.Context()); err != nil {
		_ = db.Close()
		return nil, failure("sql_open", "ping: %w", err)
	}

	h := &dbHandle{driver: driver.Bytes(), db: db}
	lib.dbs = append(lib.dbs, h)
	lib.logger.Debug("database opened", slog.String("driver", h.driver))
	return object.NativePointer{Info: SQLInfo, Handle: h}, nil
}

func dbArg(function string, args []object.Value) (*dbHandle, string, []any, error) {
	if err := checkMinArgs(args, 2); err != nil {
		return nil, "", nil, err
	}
	p, ok := args[0].(object.NativePointer)
	if !ok || !p.Is(SQLInfo) {
		return nil, "", nil, argumentType(function, "a database handle")
	}
	h := p.Handle.(*dbHandle)
	if h.closed {
		return nil, "", nil, failure(function, "database is closed")
	}
	query, ok := args[1].(*object.String)
	if !ok {
		return nil, "", nil, argumentType(function, "a query string")
	}

	params := make([]any, 0, len(args)-2)
	for _, a := range args[2:] {
		v, err := toParam(function, a)
		if err != nil {
			return nil, "", nil, err
		}
		params = append(params, v)
	}
	return h, query.Bytes(), params, nil
}

func toParam(function string, v object.Value) (any, error) {
	switch v := v.(type) {
	case object.Boolean:
		return v.Value, nil
	case object.Int:
		return int64(v.Value), nil
	case object.Double:
		return v.Value, nil
	case *object.String:
		return v.Bytes(), nil
	case object.Null:
		return nil, nil
	default:
		return nil, argumentType(function, "bool, int, double, string or null parameters")
	}
}

func (lib *Library) sqlExec(in *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	h, query, params, err := dbArg("sql_exec", args)
	if err != nil {
		return nil, err
	}
	result, err := h.db.ExecContext(in.Context(), query, params...)
	if err != nil {
		return nil, failure("sql_exec", "exec: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, failure("sql_exec", "rows affected: %w", err)
	}
	return object.FromInt64(affected), nil
}

func (lib *Library) sqlQuery(in *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	h, query, params, err := dbArg("sql_query", args)
	if err != nil {
		return nil, err
	}
	rows, err := h.db.QueryContext(in.Context(), query, params...)
	if err != nil {
		return nil, failure("sql_query", "query: %w", err)
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, failure("sql_query", "columns: %w", err)
	}

	r := &rowsHandle{rows: rows, columns: columns}
	lib.rows = append(lib.rows, r)
	return object.NativePointer{Info: RowsInfo, Handle: r}, nil
}

func rowsArg(function string, v object.Value) (*rowsHandle, error) {
	p, ok := v.(object.NativePointer)
	if !ok || !p.Is(RowsInfo) {
		return nil, argumentType(function, "a result cursor")
	}
	return p.Handle.(*rowsHandle), nil
}

// sqlNext advances the cursor. The cursor closes itself after the last row.
func (lib *Library) sqlNext(_ *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	if err := checkArgCount(args, 1); err != nil {
		return nil, err
	}
	r, err := rowsArg("sql_next", args[0])
	if err != nil {
		return nil, err
	}
	if r.closed {
		return object.FALSE, nil
	}

	if !r.rows.Next() {
		err := errors.Join(r.rows.Err(), r.close())
		lib.rows = slices.DeleteFunc(lib.rows, func(h *rowsHandle) bool { return h == r })
		if err != nil {
			return nil, failure("sql_next", "%w", err)
		}
		return object.FALSE, nil
	}

	values := make([]any, len(r.columns))
	dest := make([]any, len(r.columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, failure("sql_next", "scan: %w", err)
	}
	r.current = values
	return object.TRUE, nil
}

func (lib *Library) sqlColumn(in *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	if err := checkArgCount(args, 2); err != nil {
		return nil, err
	}
	r, err := rowsArg("sql_column", args[0])
	if err != nil {
		return nil, err
	}
	idx, ok := args[1].(object.Int)
	if !ok {
		return nil, argumentType("sql_column", "an int column index")
	}
	if r.current == nil {
		return nil, failure("sql_column", "no current row")
	}
	if idx.Value < 0 || int(idx.Value) >= len(r.current) {
		return nil, failure("sql_column", "column %d out of range [0, %d)", idx.Value, len(r.current))
	}
	return fromColumn(in.Pool(), r.current[idx.Value]), nil
}

func (lib *Library) sqlClose(_ *evaluator.Interpreter, args []object.Value) (object.Value, error) {
	if err := checkArgCount(args, 1); err != nil {
		return nil, err
	}
	p, ok := args[0].(object.NativePointer)
	switch {
	case ok && p.Is(SQLInfo):
		h := p.Handle.(*dbHandle)
		err := h.close()
		lib.dbs = slices.DeleteFunc(lib.dbs, func(d *dbHandle) bool { return d == h })
		if err != nil {
			return nil, failure("sql_close", "%w", err)
		}
		lib.logger.Debug("database closed", slog.String("driver", h.driver))
	case ok && p.Is(RowsInfo):
		r := p.Handle.(*rowsHandle)
		err := r.close()
		lib.rows = slices.DeleteFunc(lib.rows, func(h *rowsHandle) bool { return h == r })
		if err != nil {
			return nil, failure("sql_close", "%w", err)
		}
	default:
		return nil, argumentType("sql_close", "a database handle or result cursor")
	}
	return object.NULL, nil
}

func fromColumn(pool *object.Pool, v any) object.Value {
	switch v := v.(type) {
	case nil:
		return object.NULL
	case int64:
		return object.FromInt64(v)
	case int32:
		return object.Int{Value: v}
	case int:
		return object.FromInt64(int64(v))
	case uint64:
		return object.Double{Value: float64(v)}
	case float64:
		return object.Double{Value: v}
	case float32:
		return object.Double{Value: float64(v)}
	case bool:
		return object.Bool(v)
	case []byte:
		return pool.Owned(string(v))
	case string:
		return pool.Owned(v)
	case time.Time:
		return pool.Owned(v.Format(time.RFC3339Nano))
	default:
		return pool.Owned(fmt.Sprint(v))
	}
}
