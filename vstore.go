// Package vstore provides the public API for the vstore state store.
//
// This is the recommended import for most applications:
//
//	import "github.com/vango-dev/vstore"
//
// Usage:
//
//	s, err := vstore.New([]vstore.Definition{
//	    vstore.Def("theme", vstore.String("light")),
//	    vstore.Def("layout", vstore.MustFrom(map[string]any{"cols": 2})),
//	},
//	    vstore.WithPersistence(vstore.PersistenceConfig{Keys: []string{"theme"}}),
//	    vstore.WithHistory(vstore.HistoryConfig{Keys: []string{"layout"}}),
//	)
//
//	c := vstore.NewComponent("sidebar", func() {
//	    s.SubscribeTo("theme")
//	})
package vstore

import (
	"github.com/vango-dev/vstore/pkg/reactive"
	"github.com/vango-dev/vstore/pkg/storage"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/value"
)

// =============================================================================
// Store (re-export from pkg/store)
// =============================================================================

// Store holds the live values of a fixed set of fields.
type Store = store.Store

// State is the field-level read/write surface of a Store.
type State = store.State

// Ref is a copy-on-write view of a field value or a value nested inside it.
type Ref = store.Ref

// Definition declares one field and its initial value.
type Definition = store.Definition

// FieldInfo describes a declared field.
type FieldInfo = store.FieldInfo

// PathError reports a write through a Ref that could not be applied.
type PathError = store.PathError

// Option configures a Store.
type Option = store.Option

// PersistenceConfig selects the fields mirrored to storage.
type PersistenceConfig = store.PersistenceConfig

// HistoryConfig enables undo/redo for a set of fields.
type HistoryConfig = store.HistoryConfig

// Metrics holds the Prometheus collectors for stores.
type Metrics = store.Metrics

// New builds a store from field definitions.
var New = store.New

// Def declares a field.
var Def = store.Def

var (
	WithBackend        = store.WithBackend
	WithCodec          = store.WithCodec
	WithPersistence    = store.WithPersistence
	WithHistory        = store.WithHistory
	WithLogger         = store.WithLogger
	WithMetrics        = store.WithMetrics
	WithTracer         = store.WithTracer
	WithContext        = store.WithContext
	WithStorageTimeout = store.WithStorageTimeout
)

// NewMetrics registers the store collectors with a Prometheus registerer.
var NewMetrics = store.NewMetrics

// =============================================================================
// Values (re-export from pkg/value)
// =============================================================================

// Value is a field value: a primitive, sequence, record or computed thunk.
type Value = value.Value

// Computed is a read-only derived value.
type Computed = value.Computed

// Path addresses a value nested inside a field.
type Path = value.Path

var (
	Null       = value.Null
	Bool       = value.Bool
	Number     = value.Number
	Int        = value.Int
	String     = value.String
	Seq        = value.NewSequence
	Rec        = value.NewRecord
	E          = value.E
	From       = value.From
	MustFrom   = value.MustFrom
	ToAny      = value.ToAny
	ParsePath  = value.ParsePath
	Equal      = value.Equal
	Same       = value.Same
	EncodeJSON = value.Encode
	DecodeJSON = value.Decode
)

// =============================================================================
// Rendering units (re-export from pkg/reactive)
// =============================================================================

// Listener is anything that can be woken when a subscribed field changes.
type Listener = reactive.Listener

// Component is a rendering unit that subscribes while it renders.
type Component = reactive.Component

var (
	NewComponent = reactive.NewComponent
	NewQueue     = reactive.NewQueue
	Batch        = reactive.Batch
	Untracked    = reactive.Untracked
	ListenerFunc = reactive.Func
)

// =============================================================================
// Storage (re-export from pkg/storage)
// =============================================================================

// Backend is a durable string key/value store.
type Backend = storage.Backend

// NewMemoryBackend returns an in-process backend.
var NewMemoryBackend = storage.NewMemory

var (
	JSONCodec = storage.JSON
	YAMLCodec = storage.YAML
)
