package reactive

// Listener is anything that can be woken when a subscribed field changes.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	MarkDirty()

	// ID returns a unique identifier used for deduplication.
	ID() uint64
}

// funcListener adapts a plain function to Listener.
type funcListener struct {
	id uint64
	fn func()
}

// Func returns a Listener that calls fn on every wake.
// Each call to Func yields a listener with a fresh ID.
func Func(fn func()) Listener {
	return &funcListener{id: NextID(), fn: fn}
}

func (f *funcListener) MarkDirty() {
	if f.fn != nil {
		f.fn()
	}
}

func (f *funcListener) ID() uint64 { return f.id }
