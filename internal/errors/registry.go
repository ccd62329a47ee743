package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (S001-S009, S020-S029)
	// ============================================

	"S001": {
		Category: CategoryRuntime,
		Message:  "Store field not initialised",
		Detail:   "The field was read or written before the store declared it. Only fields passed to store.New exist; the field set is fixed at construction.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S001",
	},
	"S002": {
		Category: CategoryConfig,
		Message:  "Undo/redo used without enabling it",
		Detail:   "A history operation was called on a store that was built without WithHistory. The call was ignored.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S002",
	},
	"S020": {
		Category: CategoryRuntime,
		Message:  "No rendering unit to subscribe",
		Detail:   "SubscribeTo was called outside a component render, so there is no listener to register. Use SubscribeListener to register one explicitly.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S020",
	},

	// ============================================
	// Config Errors (S003-S005)
	// ============================================

	"S003": {
		Category: CategoryConfig,
		Message:  "Invalid store definition",
		Detail:   "Field names must be non-empty and unique, and every field needs an initial value.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S003",
	},
	"S004": {
		Category: CategoryConfig,
		Message:  "Feature references unknown field",
		Detail:   "A persistence or history key list names a field that is not declared.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S004",
	},
	"S005": {
		Category: CategoryConfig,
		Message:  "Computed field cannot be persisted or tracked",
		Detail:   "Computed fields are read-only thunks. They are never written to durable storage and never captured in history.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S005",
	},

	// ============================================
	// Storage Errors (S010-S019)
	// ============================================

	"S010": {
		Category: CategoryStorage,
		Message:  "Persisted value could not be decoded",
		Detail:   "The stored text for this field is not a valid encoded value. The static default was used instead.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S010",
	},
	"S011": {
		Category: CategoryStorage,
		Message:  "Durable storage unavailable",
		Detail:   "The storage backend returned an error. Reads fall back to defaults; writes report the error after the in-memory value has changed.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S011",
	},
	"S012": {
		Category: CategoryStorage,
		Message:  "History record could not be decoded",
		Detail:   "The stored history blob is corrupt or its position is out of range. An empty history was used instead.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S012",
	},

	// ============================================
	// CLI Errors (S030-S039)
	// ============================================

	"S030": {
		Category: CategoryCLI,
		Message:  "Invalid vstore configuration file",
		Detail:   "The definition file could not be parsed or failed validation.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S030",
	},
	"S031": {
		Category: CategoryCLI,
		Message:  "Unsupported storage driver",
		Detail:   "Supported drivers are memory, file, sqlite, badger, s3 and nats.",
		DocURL:   "https://vango.dev/docs/vstore/errors/S031",
	},
}

// Lookup returns the template for an error code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns all registered error codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}
