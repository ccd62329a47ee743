package value

import (
	"fmt"
	"reflect"
	"sort"
)

// From converts a plain Go value into a Value.
//
// Supported inputs: nil, bool, all integer and float types, string, Value,
// []any and other slices, map[string]any and other string-keyed maps, and
// func() Value (as Computed). Map keys other than the ordered Record input
// are sorted so that conversion is deterministic.
func From(in any) (Value, error) {
	switch v := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case func() Value:
		return Computed(v), nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Number(float64(v)), nil
	case int8:
		return Number(float64(v)), nil
	case int16:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case uint:
		return Number(float64(v)), nil
	case uint8:
		return Number(float64(v)), nil
	case uint16:
		return Number(float64(v)), nil
	case uint32:
		return Number(float64(v)), nil
	case uint64:
		return Number(float64(v)), nil
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			conv, err := From(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = conv
		}
		return &Sequence{items: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			conv, err := From(v[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			entries = append(entries, Entry{Key: k, Value: conv})
		}
		return NewRecord(entries...), nil
	}
	return fromReflect(reflect.ValueOf(in))
}

func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return From(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("value: unsupported map key type %s", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return From(m)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return From(rv.Elem().Interface())
	default:
		return nil, fmt.Errorf("value: unsupported Go type %s", rv.Type())
	}
}

// MustFrom is like From but panics on error. Intended for static defaults.
func MustFrom(in any) Value {
	v, err := From(in)
	if err != nil {
		panic(err)
	}
	return v
}

// ToAny converts v into plain Go values: nil, bool, float64, string,
// []any and map[string]any. Computed values are evaluated.
func ToAny(v Value) any {
	switch t := v.(type) {
	case nil:
		return nil
	case Primitive:
		return t.v
	case *Sequence:
		out := make([]any, t.Len())
		for i, item := range t.items {
			out[i] = ToAny(item)
		}
		return out
	case *Record:
		out := make(map[string]any, t.Len())
		for _, k := range t.keys {
			out[k] = ToAny(t.fields[k])
		}
		return out
	case Computed:
		return ToAny(t.Eval())
	default:
		return nil
	}
}
