// Package errors provides structured, actionable error messages for vstore.
//
// Every error the store reports to a caller or to the log carries a stable
// code (e.g. "S001") that maps to:
//   - A short message describing the error
//   - A longer explanation
//   - A documentation URL
//
// The field that caused the error, when there is one, is attached so that
// diagnostics always name the offending field.
//
// # Error Categories
//
//   - runtime: misuse at run time (unknown field, subscribe outside a render)
//   - config: invalid store definitions or feature configuration
//   - storage: durable storage and decoding problems
//   - cli: command line configuration problems
//
// # Usage
//
//	err := errors.New("S001").
//	    WithField("theme").
//	    WithSuggestion("Declare the field in the definitions passed to store.New")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR S001: Store field not initialised
//	//
//	//   field: theme
//	//
//	//   The field was read or written before the store declared it.
//	//
//	//   Hint: Declare the field in the definitions passed to store.New
package errors
