package reactive

import "sync/atomic"

var globalIDCounter uint64

// NextID returns a process-unique listener ID. IDs are never reused.
func NextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
