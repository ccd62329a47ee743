package value

import (
	"fmt"
	"strconv"
)

// Kind tags the shape of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindRecord
	KindComputed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindRecord:
		return "record"
	case KindComputed:
		return "computed"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsContainer reports whether values of this kind hold children.
func (k Kind) IsContainer() bool {
	return k == KindSequence || k == KindRecord
}

// Value is the sealed union of field values.
// A nil Value means "absent" (a missing record key or index).
type Value interface {
	Kind() Kind
	sealed()
}

// KindOf returns the kind of v. Absent values report KindNull.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// =============================================================================
// Primitive
// =============================================================================

// Primitive is a null, bool, number or string value.
// Primitives are comparable with ==.
type Primitive struct {
	v any
}

// Null returns the null primitive.
func Null() Primitive { return Primitive{} }

// Bool returns a boolean primitive.
func Bool(b bool) Primitive { return Primitive{v: b} }

// Number returns a numeric primitive.
func Number(f float64) Primitive { return Primitive{v: f} }

// Int returns a numeric primitive holding i.
func Int(i int) Primitive { return Primitive{v: float64(i)} }

// String returns a string primitive.
func String(s string) Primitive { return Primitive{v: s} }

func (Primitive) sealed() {}

// Kind returns the primitive's kind.
func (p Primitive) Kind() Kind {
	switch p.v.(type) {
	case bool:
		return KindBool
	case float64:
		return KindNumber
	case string:
		return KindString
	default:
		return KindNull
	}
}

// Interface returns the underlying Go value (nil, bool, float64 or string).
func (p Primitive) Interface() any { return p.v }

// AsBool returns the boolean and whether p is a bool.
func (p Primitive) AsBool() (bool, bool) {
	b, ok := p.v.(bool)
	return b, ok
}

// AsNumber returns the number and whether p is a number.
func (p Primitive) AsNumber() (float64, bool) {
	f, ok := p.v.(float64)
	return f, ok
}

// AsString returns the string and whether p is a string.
func (p Primitive) AsString() (string, bool) {
	s, ok := p.v.(string)
	return s, ok
}

// String formats the primitive for display.
func (p Primitive) String() string {
	switch v := p.v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}

// =============================================================================
// Sequence
// =============================================================================

// Sequence is an immutable ordered list of values.
type Sequence struct {
	items []Value
}

// NewSequence creates a sequence holding items.
func NewSequence(items ...Value) *Sequence {
	cp := make([]Value, len(items))
	copy(cp, items)
	return &Sequence{items: cp}
}

func (*Sequence) sealed() {}

// Kind returns KindSequence.
func (*Sequence) Kind() Kind { return KindSequence }

// Len returns the number of items.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At returns the item at i, or nil when i is out of range.
func (s *Sequence) At(i int) Value {
	if s == nil || i < 0 || i >= len(s.items) {
		return nil
	}
	return s.items[i]
}

// Items returns a copy of the item slice.
func (s *Sequence) Items() []Value {
	if s == nil {
		return nil
	}
	cp := make([]Value, len(s.items))
	copy(cp, s.items)
	return cp
}

// with returns a shallow copy with index i replaced. i == Len appends.
func (s *Sequence) with(i int, v Value) (*Sequence, error) {
	n := s.Len()
	if i < 0 || i > n {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, n)
	}
	size := n
	if i == n {
		size++
	}
	items := make([]Value, size)
	if s != nil {
		copy(items, s.items)
	}
	items[i] = v
	return &Sequence{items: items}, nil
}

// =============================================================================
// Record
// =============================================================================

// Entry is a key/value pair used to build records.
type Entry struct {
	Key   string
	Value Value
}

// E is shorthand for Entry{Key: key, Value: v}.
func E(key string, v Value) Entry {
	return Entry{Key: key, Value: v}
}

// Record is an immutable, insertion-ordered string-keyed map.
type Record struct {
	keys   []string
	fields map[string]Value
}

// NewRecord creates a record from entries. A repeated key keeps its first
// position and its last value.
func NewRecord(entries ...Entry) *Record {
	r := &Record{
		keys:   make([]string, 0, len(entries)),
		fields: make(map[string]Value, len(entries)),
	}
	for _, e := range entries {
		if _, ok := r.fields[e.Key]; !ok {
			r.keys = append(r.keys, e.Key)
		}
		r.fields[e.Key] = e.Value
	}
	return r
}

func (*Record) sealed() {}

// Kind returns KindRecord.
func (*Record) Kind() Kind { return KindRecord }

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	cp := make([]string, len(r.keys))
	copy(cp, r.keys)
	return cp
}

// Get returns the value for key and whether it is present.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.fields[key]
	return v, ok
}

// Entries returns the entries in insertion order.
func (r *Record) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, len(r.keys))
	for i, k := range r.keys {
		out[i] = Entry{Key: k, Value: r.fields[k]}
	}
	return out
}

// with returns a shallow copy with key overridden; new keys are appended.
func (r *Record) with(key string, v Value) *Record {
	n := r.Len()
	out := &Record{
		keys:   make([]string, 0, n+1),
		fields: make(map[string]Value, n+1),
	}
	if r != nil {
		out.keys = append(out.keys, r.keys...)
		for k, fv := range r.fields {
			out.fields[k] = fv
		}
	}
	if _, ok := out.fields[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.fields[key] = v
	return out
}

// =============================================================================
// Computed
// =============================================================================

// Computed is a read-only thunk. Fields declared with a Computed initial
// value cannot be written, persisted or captured in history.
type Computed func() Value

func (Computed) sealed() {}

// Kind returns KindComputed.
func (Computed) Kind() Kind { return KindComputed }

// Eval runs the thunk. A nil thunk evaluates to Null.
func (c Computed) Eval() Value {
	if c == nil {
		return Null()
	}
	if v := c(); v != nil {
		return v
	}
	return Null()
}

// Resolve evaluates v if it is Computed and returns it unchanged otherwise.
func Resolve(v Value) Value {
	if c, ok := v.(Computed); ok {
		return c.Eval()
	}
	return v
}
