package store

import (
	"fmt"

	"github.com/vango-dev/vstore/pkg/value"
)

// PathError reports a write through a Ref that could not be applied, such
// as a key step into a primitive.
type PathError struct {
	Field string
	Path  value.Path
	Err   error
}

func (e *PathError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("store: write %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("store: write %s.%s: %v", e.Field, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Ref is a view of a field value, or of a value nested inside one, that
// writes copy-on-write.
//
// Reading through a Ref returns the value it was created from. Writing
// rebuilds every container between the Ref and the field root with
// value.Replace and hands the new root to the field's setter once. Each Ref
// along the path then holds the value it produced, so consecutive writes
// through the same Ref build on each other.
//
// Refs are not safe for concurrent use; get a fresh one per goroutine.
type Ref struct {
	store  *Store
	field  string
	parent *Ref
	step   value.Step
	v      value.Value

	// readOnly is set on the root of a computed field.
	readOnly bool
}

// Field returns the name of the field the Ref belongs to.
func (r *Ref) Field() string { return r.field }

// Path returns the steps from the field root to this Ref.
func (r *Ref) Path() value.Path {
	var rev []value.Step
	for cur := r; cur.parent != nil; cur = cur.parent {
		rev = append(rev, cur.step)
	}
	p := make(value.Path, len(rev))
	for i, st := range rev {
		p[len(rev)-1-i] = st
	}
	return p
}

// Value returns the wrapped value. Computed values are returned unevaluated.
func (r *Ref) Value() value.Value { return r.v }

// Resolve returns the wrapped value, evaluating it if it is computed.
func (r *Ref) Resolve() value.Value { return value.Resolve(r.v) }

// Kind returns the kind of the wrapped value.
func (r *Ref) Kind() value.Kind { return value.KindOf(r.v) }

// Len returns the length of a sequence or record and 0 otherwise.
func (r *Ref) Len() int {
	switch c := r.v.(type) {
	case *value.Sequence:
		return c.Len()
	case *value.Record:
		return c.Len()
	default:
		return 0
	}
}

// Keys returns the keys of a record and nil otherwise.
func (r *Ref) Keys() []string {
	if rec, ok := r.v.(*value.Record); ok {
		return rec.Keys()
	}
	return nil
}

// Key returns a Ref to the record entry k. The child of a non-container is
// absent; writing to it fails.
func (r *Ref) Key(k string) *Ref { return r.child(value.Key(k)) }

// Index returns a Ref to item i of a sequence.
func (r *Ref) Index(i int) *Ref { return r.child(value.Index(i)) }

// At walks path from r.
func (r *Ref) At(path value.Path) *Ref {
	cur := r
	for _, st := range path {
		cur = cur.child(st)
	}
	return cur
}

func (r *Ref) child(step value.Step) *Ref {
	return &Ref{
		store:  r.store,
		field:  r.field,
		parent: r,
		step:   step,
		v:      value.Child(r.v, step),
	}
}

// Set replaces the wrapped value.
func (r *Ref) Set(v value.Value) error {
	if v == nil {
		v = value.Null()
	}

	chain := []*Ref{r}
	vals := []value.Value{v}
	cur, nv := r, v
	for cur.parent != nil {
		pv, err := value.Replace(cur.parent.v, cur.step, nv)
		if err != nil {
			return &PathError{Field: r.field, Path: cur.Path(), Err: err}
		}
		cur, nv = cur.parent, pv
		chain = append(chain, cur)
		vals = append(vals, nv)
	}

	if cur.readOnly {
		return nil
	}
	if holdsComputed(v) {
		return computedValueError(r.field)
	}

	applied, err := cur.store.write(r.field, nv, sourceWrapper, cur.store.deep)
	if applied {
		for i, ref := range chain {
			ref.v = vals[i]
		}
	}
	return err
}

// SetKey sets record entry k.
func (r *Ref) SetKey(k string, v value.Value) error { return r.Key(k).Set(v) }

// SetIndex sets sequence item i. i == Len appends.
func (r *Ref) SetIndex(i int, v value.Value) error { return r.Index(i).Set(v) }

// SetAt sets the value at path below r.
func (r *Ref) SetAt(path value.Path, v value.Value) error { return r.At(path).Set(v) }
