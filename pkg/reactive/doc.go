// Package reactive provides the wake-up plumbing used by the store: listeners,
// per-goroutine tracking of the current rendering unit, batching and
// deduplicated subscriber sets.
//
// A rendering unit is anything implementing Listener. Components wrap a render
// function and mark themselves dirty when any field they subscribed to changes:
//
//	c := reactive.NewComponent("sidebar", func() {
//	    s.SubscribeTo("sidebar")
//	    ...
//	})
//	c.Render()
//
// While Render runs, the component is the current listener for its goroutine,
// so subscription calls made inside render attach to it.
package reactive
