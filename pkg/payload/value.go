// Package payload models the untyped values returned by the skill API.
//
// The remote schema is owned by the box, so results are decoded into a small
// tagged union (null, scalar, sequence, mapping) that can be rendered without
// knowing what the service meant by them.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	// KindNull is an absent value (XML-RPC <nil/>, JSON null).
	KindNull Kind = iota
	// KindScalar is a string, number, boolean, timestamp or binary blob.
	KindScalar
	// KindSequence is an ordered list of values.
	KindSequence
	// KindMapping is a set of named values.
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field is one entry of a mapping.
type Field struct {
	Key   string
	Value Value
}

// Value is a decoded remote result. Only the member matching Kind is meaningful.
type Value struct {
	Kind   Kind
	Scalar any
	Items  []Value
	Fields []Field
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// Scalar wraps a single primitive.
func Scalar(v any) Value { return Value{Kind: KindScalar, Scalar: v} }

// Sequence builds a sequence from items, preserving their order.
func Sequence(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindSequence, Items: items}
}

// Mapping builds a mapping from fields, preserving their order.
func Mapping(fields ...Field) Value {
	if fields == nil {
		fields = []Field{}
	}
	return Value{Kind: KindMapping, Fields: fields}
}

// FromDecoded converts whatever a wire decoder produced (map[string]any,
// []any, primitives, time.Time, []byte) into a Value. Mapping keys are
// sorted because neither XML-RPC structs nor JSON objects survive decoding
// with their order intact.
func FromDecoded(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Value: FromDecoded(t[k])})
		}
		return Mapping(fields...)
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, FromDecoded(item))
		}
		return Sequence(items...)
	case []byte:
		return Scalar(base64.StdEncoding.EncodeToString(t))
	case time.Time:
		return Scalar(t.Format(time.RFC3339))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Scalar(i)
		}
		if f, err := t.Float64(); err == nil {
			return Scalar(f)
		}
		return Scalar(t.String())
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Scalar(t)
	}

	return fromReflect(reflect.ValueOf(v))
}

// fromReflect handles typed maps and slices that a decoder may hand back,
// e.g. map[string]string or []float64.
func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return FromDecoded(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		items := make([]Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items = append(items, FromDecoded(rv.Index(i).Interface()))
		}
		return Sequence(items...)
	case reflect.Map:
		generic := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			generic[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return FromDecoded(generic)
	default:
		return Scalar(fmt.Sprint(rv.Interface()))
	}
}

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Len is the number of items or fields, zero for scalars and null.
func (v Value) Len() int {
	switch v.Kind {
	case KindSequence:
		return len(v.Items)
	case KindMapping:
		return len(v.Fields)
	default:
		return 0
	}
}

// Get looks up a mapping field by key.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindMapping {
		return Value{}, false
	}
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}
