package store

import "github.com/vango-dev/vstore/pkg/value"

// Definition declares one field and its static default.
// A value.Computed initial value makes the field read-only.
type Definition struct {
	Name    string
	Initial value.Value
}

// Def is shorthand for Definition{Name: name, Initial: initial}.
func Def(name string, initial value.Value) Definition {
	return Definition{Name: name, Initial: initial}
}

// IsComputed reports whether the definition declares a computed field.
func (d Definition) IsComputed() bool {
	return value.KindOf(d.Initial) == value.KindComputed
}
