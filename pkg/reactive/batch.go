package reactive

// Batch groups wakes. Listeners notified inside fn are queued, deduplicated
// by ID and woken once when the outermost Batch returns.
//
// Example:
//
//	reactive.Batch(func() {
//	    s.Set("theme", value.String("dark"))
//	    s.Set("sidebar", value.Bool(false))
//	})
//	// a component subscribed to both renders once
func Batch(fn func()) {
	ctx := getTrackingContext()
	ctx.batchDepth++

	defer func() {
		ctx.batchDepth--
		if ctx.batchDepth == 0 {
			processPendingUpdates(ctx)
			releaseIfIdle(ctx)
		}
	}()

	fn()
}

func inBatch() (*trackingContext, bool) {
	v, ok := trackingContexts.Load(getGoroutineID())
	if !ok {
		return nil, false
	}
	ctx := v.(*trackingContext)
	return ctx, ctx.batchDepth > 0
}

func processPendingUpdates(ctx *trackingContext) {
	updates := ctx.pendingUpdates
	ctx.pendingUpdates = nil
	if len(updates) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(updates))
	for _, l := range updates {
		id := l.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		l.MarkDirty()
	}
}
