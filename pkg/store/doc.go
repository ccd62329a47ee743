// Package store is a small reactive state container for Go UI runtimes.
//
// A Store is built from field definitions. Each field has a live value, a
// set of subscribed rendering units, and optionally a durable copy in a
// storage backend and a place in undo/redo history:
//
//	s, err := store.New([]store.Definition{
//	    store.Def("theme", value.String("light")),
//	    store.Def("layout", value.MustFrom(map[string]any{"cols": 2})),
//	    store.Def("title", value.Computed(func() value.Value { ... })),
//	},
//	    store.WithBackend(backend),
//	    store.WithPersistence(store.PersistenceConfig{Keys: []string{"theme"}}),
//	    store.WithHistory(store.HistoryConfig{Keys: []string{"layout"}, MaxLength: 50}),
//	)
//
// # Reading and writing
//
// State().Get returns a Ref, a wrapper that reads like the field value and
// writes copy-on-write at any depth:
//
//	ref, _ := s.State().Get("layout")
//	ref.SetAt(value.ParsePath("panels.0.title"), value.String("Files"))
//
// A nested write copies every container on the path, shares every sibling,
// and calls the field's setter exactly once with the new root. Only a
// top-level State().Set writes through to storage, unless
// PersistenceConfig.Deep is enabled.
//
// # Subscriptions
//
// Inside a render (see package reactive), SubscribeTo registers the current
// rendering unit for the named fields. Any write to a field wakes its
// subscribers. Registration is idempotent.
//
// # History
//
// SaveHistory captures the tracked fields; Undo and Redo move through the
// captured snapshots. Undo and Redo write the restored values directly: they
// do not persist and do not wake subscribers. Call Invalidate afterwards when
// rendering units must observe the restored values.
package store
