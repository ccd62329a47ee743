package value

// Equal reports whether a and b are structurally equal.
// Computed values are equal only when both are nil thunks.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Primitive:
		return av == b.(Primitive)
	case *Sequence:
		bv := b.(*Sequence)
		if av == bv {
			return true
		}
		if av.Len() != bv.Len() {
			return false
		}
		for i := range av.items {
			if !Equal(av.items[i], bv.items[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv := b.(*Record)
		if av == bv {
			return true
		}
		if av.Len() != bv.Len() {
			return false
		}
		for i, k := range av.keys {
			if bv.keys[i] != k {
				return false
			}
			if !Equal(av.fields[k], bv.fields[k]) {
				return false
			}
		}
		return true
	case Computed:
		return av == nil && b.(Computed) == nil
	}
	return false
}

// Same reports whether a and b are the same container instance, or equal
// primitives. It is the identity check used to verify structural sharing.
func Same(a, b Value) bool {
	switch av := a.(type) {
	case *Sequence:
		bv, ok := b.(*Sequence)
		return ok && av == bv
	case *Record:
		bv, ok := b.(*Record)
		return ok && av == bv
	case Primitive:
		bv, ok := b.(Primitive)
		return ok && av == bv
	default:
		return a == nil && b == nil
	}
}
