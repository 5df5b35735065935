package object

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

type Kind int

const (
	BOOLEAN_VALUE Kind = iota + 1
	INT_VALUE
	DOUBLE_VALUE
	STRING_VALUE
	NATIVE_POINTER_VALUE
	NULL_VALUE
)

var kindNames = [...]string{
	BOOLEAN_VALUE:        "BOOLEAN",
	INT_VALUE:            "INT",
	DOUBLE_VALUE:         "DOUBLE",
	STRING_VALUE:         "STRING",
	NATIVE_POINTER_VALUE: "NATIVE_POINTER",
	NULL_VALUE:           "NULL",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

var (
	NULL  = Null{}
	TRUE  = Boolean{Value: true}
	FALSE = Boolean{Value: false}
)

// Value is a runtime value. Every implementation except *String is copied by
// value; *String is a shared handle governed by reference counting.
type Value interface {
	Kind() Kind
	Inspect() string
}

type Boolean struct {
	Value bool
}

func (b Boolean) Kind() Kind { return BOOLEAN_VALUE }
func (b Boolean) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}

type Int struct {
	Value int32
}

func (i Int) Kind() Kind      { return INT_VALUE }
func (i Int) Inspect() string { return strconv.FormatInt(int64(i.Value), 10) }

type Double struct {
	Value float64
}

func (d Double) Kind() Kind      { return DOUBLE_VALUE }
func (d Double) Inspect() string { return FormatDouble(d.Value) }

type Null struct{}

func (Null) Kind() Kind      { return NULL_VALUE }
func (Null) Inspect() string { return "null" }

// PointerInfo tags native pointers with the capability that issued them.
// Capabilities are compared by identity, never by name.
type PointerInfo struct {
	Name string
}

type NativePointer struct {
	Info   *PointerInfo
	Handle any
}

func (p NativePointer) Kind() Kind { return NATIVE_POINTER_VALUE }
func (p NativePointer) Inspect() string {
	name := "?"
	if p.Info != nil {
		name = p.Info.Name
	}
	return "(" + name + ":" + pointerAddress(p.Handle) + ")"
}

// Is reports whether the pointer was issued by the given capability.
func (p NativePointer) Is(info *PointerInfo) bool {
	return p.Info != nil && p.Info == info
}

func Bool(b bool) Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

// FromInt64 narrows n to an Int when it fits in 32 bits and widens it to a
// Double otherwise.
func FromInt64(n int64) Value {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return Double{Value: float64(n)}
	}
	return Int{Value: int32(n)}
}

// FormatDouble renders a float the way C's printf("%f") does.
func FormatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		if math.Signbit(f) {
			return "-nan"
		}
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func pointerAddress(h any) string {
	if h == nil {
		return "0x0"
	}
	switch reflect.ValueOf(h).Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice:
		return fmt.Sprintf("%p", h)
	default:
		return fmt.Sprintf("%v", h)
	}
}

// Stringify converts any value to the text used by string concatenation.
func Stringify(v Value) string {
	switch v := v.(type) {
	case Boolean, Int, Double, Null, NativePointer:
		return v.Inspect()
	case *String:
		return v.Bytes()
	default:
		panic(fmt.Sprintf("stringify: unexpected value type %T", v))
	}
}
