package store

import "github.com/vango-dev/vstore/pkg/value"

// State is the field-level read/write surface of a Store.
type State struct {
	s *Store
}

// Get returns a fresh Ref over the current value of field.
// An undeclared field is an S001 error naming it.
func (st *State) Get(name string) (*Ref, error) {
	f, v, err := st.s.read(name)
	if err != nil {
		return nil, err
	}
	return &Ref{
		store:    st.s,
		field:    name,
		v:        v,
		readOnly: f.computed,
	}, nil
}

// Value returns the current value of field. Computed fields return their
// thunk; use Resolve to evaluate it.
func (st *State) Value(name string) (value.Value, error) {
	_, v, err := st.s.read(name)
	return v, err
}

// Resolve returns the current value of field, evaluating computed fields.
func (st *State) Resolve(name string) (value.Value, error) {
	v, err := st.Value(name)
	if err != nil {
		return nil, err
	}
	return value.Resolve(v), nil
}

// Set replaces the value of field, wakes its subscribers and, if the field
// is persisted, writes it to storage. Writes to computed fields are
// ignored. A storage failure is returned after the in-memory update.
func (st *State) Set(name string, v value.Value) error {
	_, err := st.s.write(name, v, sourceSet, true)
	return err
}

// Update sets field to fn applied to its current value.
func (st *State) Update(name string, fn func(value.Value) (value.Value, error)) error {
	cur, err := st.Value(name)
	if err != nil {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return st.Set(name, next)
}

// Fields returns the declared field names in declaration order.
func (st *State) Fields() []string { return st.s.Fields() }
