package value

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotContainer is returned when a step is applied to a value that has
	// no children (a primitive, a computed thunk or an absent value).
	ErrNotContainer = errors.New("value: not a container")

	// ErrIndexOutOfRange is returned when a sequence index is negative or
	// past the end. Writing at index == Len appends.
	ErrIndexOutOfRange = errors.New("value: index out of range")

	// ErrStepMismatch is returned for a key step on a sequence.
	ErrStepMismatch = errors.New("value: step does not match container kind")

	// ErrNotSerializable is returned when encoding a Computed value.
	ErrNotSerializable = errors.New("value: computed values cannot be serialized")
)

// Step addresses one child of a container: a record key or a sequence index.
type Step struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a record-key step.
func Key(k string) Step { return Step{key: k} }

// Index returns a sequence-index step.
func Index(i int) Step { return Step{index: i, isIndex: true} }

// IsIndex reports whether the step addresses a sequence index.
func (s Step) IsIndex() bool { return s.isIndex }

// KeyName returns the record key of a key step.
func (s Step) KeyName() string { return s.key }

// IndexValue returns the index of an index step.
func (s Step) IndexValue() int { return s.index }

// String formats the step as it appears in a dotted path.
func (s Step) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// recordKey returns the key used when the step is applied to a record.
// Index steps address the decimal key, so "items.0" works on both shapes.
func (s Step) recordKey() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// Path is a sequence of steps from a field root to a nested value.
type Path []Step

// String formats the path in dotted form.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// ParsePath parses a dotted path such as "layout.panels.0.title".
// Segments that are non-negative integers become index steps.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if i, err := strconv.Atoi(part); err == nil && i >= 0 {
			p = append(p, Index(i))
			continue
		}
		p = append(p, Key(part))
	}
	return p
}

// Child returns the child of container at step, or nil when absent or when
// container has no children.
func Child(container Value, step Step) Value {
	switch c := container.(type) {
	case *Sequence:
		if !step.isIndex {
			return nil
		}
		return c.At(step.index)
	case *Record:
		v, _ := c.Get(step.recordKey())
		return v
	default:
		return nil
	}
}

// Replace returns a shallow copy of container with the child at step set to
// child. Sequences are copied and the index replaced; records are copied and
// the key overridden. Every other child is shared with the original.
// An index step on a record addresses the decimal key.
func Replace(container Value, step Step, child Value) (Value, error) {
	switch c := container.(type) {
	case *Sequence:
		if !step.isIndex {
			return nil, fmt.Errorf("%w: key %q on sequence", ErrStepMismatch, step.key)
		}
		return c.with(step.index, child)
	case *Record:
		return c.with(step.recordKey(), child), nil
	default:
		return nil, fmt.Errorf("%w: %s at %s", ErrNotContainer, KindOf(container), step)
	}
}

// GetAt returns the value at path below root. An absent leaf is reported as
// (nil, nil); walking through a non-container is an error.
func GetAt(root Value, path Path) (Value, error) {
	cur := root
	for i, step := range path {
		if !KindOf(cur).IsContainer() {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotContainer, KindOf(cur), path[:i+1])
		}
		cur = Child(cur, step)
	}
	return cur, nil
}

// SetAt returns a new root with the value at path replaced by v. Every
// container along the path is copied; everything else is shared.
func SetAt(root Value, path Path, v Value) (Value, error) {
	if len(path) == 0 {
		return v, nil
	}
	child, err := SetAt(Child(root, path[0]), path[1:], v)
	if err != nil {
		return nil, err
	}
	return Replace(root, path[0], child)
}
