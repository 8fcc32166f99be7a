// Package vm is the Havel bytecode interpreter (spec.md §4.L): a stack
// machine with one call frame per invocation, executing the
// *compiler.Chunk produced by internal/lang/compiler, ported from
// original_source's havel-lang/interpreter onto Go's panic/recover for
// runtime faults instead of C++ exceptions.
package vm

import "fmt"

// Array is a Havel array value. A pointer so ARRAY_PUSH/ARRAY_SET can
// mutate the same value multiple DUPs on the stack refer to.
type Array struct {
	Items []Value
}

// Object is a Havel object value (field order preserved for iteration
// and printing, mirroring how config/devices blocks are authored).
type Object struct {
	Fields map[string]Value
	Order  []string
}

func (o *Object) set(key string, v Value) {
	if _, exists := o.Fields[key]; !exists {
		o.Order = append(o.Order, key)
	}
	o.Fields[key] = v
}

// Func is a callable value: either a named chunk function or a builtin,
// resolved by name at CALL time. This runtime has no closures over
// outer locals (see compiler.Compiler's doc comment), so MAKE_CLOSURE
// is effectively identity — kept as a distinct opcode for symmetry with
// the bytecode format and in case upvalue capture is added later.
type Func struct {
	Name string
}

// Value is any Havel runtime value: nil, bool, int64, float64, string,
// *Array, *Object, or Func.
type Value interface{}

func truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case *Array:
		return len(x.Items) > 0
	case *Object:
		return len(x.Fields) > 0
	default:
		return true
	}
}

func typeName(v Value) string {
	switch v.(type) {
	case nil:
		return "nil"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case *Array:
		return "array"
	case *Object:
		return "object"
	case Func:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func toString(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		return fmt.Sprintf("%g", x)
	case Func:
		return "<fn " + x.Name + ">"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func asInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	}
	return 0, false
}

func asFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func isNumeric(v Value) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

func bothInt(a, b Value) (int64, int64, bool) {
	ai, aok := a.(int64)
	bi, bok := b.(int64)
	return ai, bi, aok && bok
}
