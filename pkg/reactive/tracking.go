package reactive

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for one goroutine.
type trackingContext struct {
	// currentListener is the rendering unit whose render is in progress.
	// nil means no render is active.
	currentListener Listener

	// batchDepth counts nested Batch calls.
	batchDepth int

	// pendingUpdates accumulates wakes queued while batchDepth > 0.
	pendingUpdates []Listener
}

var trackingContexts sync.Map

// getGoroutineID parses the current goroutine ID from the stack header
// ("goroutine <id> [...").
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

func getTrackingContext() *trackingContext {
	gid := getGoroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// releaseIfIdle drops the goroutine's context once nothing is tracked,
// so short-lived goroutines do not leak entries.
func releaseIfIdle(ctx *trackingContext) {
	if ctx.currentListener == nil && ctx.batchDepth == 0 && len(ctx.pendingUpdates) == 0 {
		trackingContexts.Delete(getGoroutineID())
	}
}

func setCurrentListener(l Listener) Listener {
	ctx := getTrackingContext()
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

// CurrentListener returns the rendering unit currently rendering on this
// goroutine, or nil when called outside any render.
func CurrentListener() Listener {
	if ctx, ok := trackingContexts.Load(getGoroutineID()); ok {
		return ctx.(*trackingContext).currentListener
	}
	return nil
}

// WithListener runs fn with l as the current listener and restores the
// previous one afterwards. Nested calls are supported.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer func() {
		ctx := getTrackingContext()
		ctx.currentListener = old
		releaseIfIdle(ctx)
	}()
	fn()
}

// Untracked runs fn with no current listener, so subscription calls made
// inside fn attach to nothing.
func Untracked(fn func()) {
	WithListener(nil, fn)
}
