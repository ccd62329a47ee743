// Package value provides the immutable value model held by store fields.
//
// A Value is one of four shapes, decided when a field is declared:
//
//	Primitive  null, bool, number or string
//	*Sequence  ordered list of values
//	*Record    insertion-ordered string-keyed map of values
//	Computed   read-only thunk, evaluated on demand
//
// Containers are never mutated. Replace and SetAt build a new container along
// the written path and share every untouched child by reference, which gives
// copy-on-write semantics:
//
//	root := value.NewRecord(
//	    value.E("theme", value.String("light")),
//	    value.E("layout", value.NewRecord(value.E("cols", value.Int(2)))),
//	)
//	next, _ := value.SetAt(root, value.ParsePath("layout.cols"), value.Int(3))
//	// next.layout is a new record; next.theme is the same Primitive.
//
// Values round-trip through JSON (Encode/Decode) and YAML nodes
// (ToYAMLNode/FromYAMLNode) with record key order preserved. Computed values
// are never serialized.
package value
