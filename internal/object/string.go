package object

import (
	"context"
	"fmt"
	"lemon/internal/log"
	"log/slog"
)

// String is a heap string shared by every Value that holds it. Literal strings
// borrow their bytes from the AST and never free them; owned strings drop
// their buffer when the last reference is released.
type String struct {
	refCount int64
	literal  bool
	freed    bool
	data     string
	pool     *Pool
}

func (s *String) Kind() Kind      { return STRING_VALUE }
func (s *String) Inspect() string { return s.Bytes() }

func (s *String) Bytes() string {
	if s.freed {
		panic(fmt.Sprintf("use of freed string (literal=%t)", s.literal))
	}
	return s.data
}

func (s *String) RefCount() int64 { return s.refCount }
func (s *String) IsLiteral() bool { return s.literal }
func (s *String) Freed() bool     { return s.freed }

func (s *String) Retain() {
	if s.freed {
		panic("retain of freed string")
	}
	s.refCount++
}

// Release drops one reference. Reaching zero frees the buffer (skipped for
// literals) and the wrapper; going below zero is an interpreter bug.
func (s *String) Release() {
	if s.freed {
		panic("release of freed string")
	}
	s.refCount--
	if s.refCount < 0 {
		panic(fmt.Sprintf("string ref_count..%d", s.refCount))
	}
	if s.refCount > 0 {
		return
	}
	if !s.literal {
		s.data = ""
		if s.pool != nil {
			s.pool.stats.BuffersFreed++
		}
	}
	s.freed = true
	if s.pool != nil {
		s.pool.stats.WrappersFreed++
		s.pool.stats.Live--
		s.pool.logger.Log(context.Background(), log.LevelTrace, "string freed",
			slog.Bool("literal", s.literal),
			slog.Int64("live", s.pool.stats.Live))
	}
}

type PoolStats struct {
	Allocated     int64
	Live          int64
	BuffersFreed  int64
	WrappersFreed int64
}

// Pool keeps the bookkeeping for every string one interpreter creates.
type Pool struct {
	stats  PoolStats
	logger *slog.Logger
}

func NewPool(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{logger: logger}
}

func (p *Pool) Stats() PoolStats { return p.stats }

func (p *Pool) alloc(data string, literal bool) *String {
	p.stats.Allocated++
	p.stats.Live++
	return &String{refCount: 1, literal: literal, data: data, pool: p}
}

// Literal wraps bytes owned by the AST.
func (p *Pool) Literal(data string) *String { return p.alloc(data, true) }

// Owned wraps freshly produced bytes.
func (p *Pool) Owned(data string) *String { return p.alloc(data, false) }

// Concat builds a new owned string from a then b and releases both inputs.
func (p *Pool) Concat(a, b *String) *String {
	ret := p.Owned(a.Bytes() + b.Bytes())
	a.Release()
	b.Release()
	return ret
}

func RetainValue(v Value) {
	if s, ok := v.(*String); ok {
		s.Retain()
	}
}

func ReleaseValue(v Value) {
	if s, ok := v.(*String); ok {
		s.Release()
	}
}
