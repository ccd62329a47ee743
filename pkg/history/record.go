package history

import (
	"encoding/json"
	"fmt"

	"github.com/vango-dev/vstore/pkg/value"
)

// Record is the persisted history: snapshots oldest first and the index of
// the snapshot that reflects the current state.
type Record struct {
	Position int             `json:"position"`
	States   []*value.Record `json:"states"`
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{States: []*value.Record{}}
}

// Len returns the number of snapshots.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.States)
}

// Empty reports whether the record holds no snapshots.
func (r *Record) Empty() bool { return r.Len() == 0 }

// Current returns the snapshot at Position, or nil for an empty record.
func (r *Record) Current() *value.Record {
	if r.Empty() || r.Position < 0 || r.Position >= len(r.States) {
		return nil
	}
	return r.States[r.Position]
}

// CanUndo reports whether an older snapshot exists.
func (r *Record) CanUndo() bool { return !r.Empty() && r.Position > 0 }

// CanRedo reports whether a newer snapshot exists.
func (r *Record) CanRedo() bool { return !r.Empty() && r.Position < len(r.States)-1 }

// Clone returns a copy whose state slice can be changed independently.
// Snapshots are immutable and shared.
func (r *Record) Clone() *Record {
	if r == nil {
		return NewRecord()
	}
	states := make([]*value.Record, len(r.States))
	copy(states, r.States)
	return &Record{Position: r.Position, States: states}
}

// Validate checks the cursor and snapshot invariants.
func (r *Record) Validate() error {
	if r.Empty() {
		if r.Position != 0 {
			return fmt.Errorf("history: position %d in empty record", r.Position)
		}
		return nil
	}
	if r.Position < 0 || r.Position >= len(r.States) {
		return fmt.Errorf("history: position %d outside [0, %d)", r.Position, len(r.States))
	}
	for i, s := range r.States {
		if s == nil {
			return fmt.Errorf("history: state %d is not an object", i)
		}
	}
	return nil
}

// MarshalJSON always writes states as an array, never null.
func (r *Record) MarshalJSON() ([]byte, error) {
	type plain Record
	out := plain(*r)
	if out.States == nil {
		out.States = []*value.Record{}
	}
	return json.Marshal(out)
}

// DecodeRecord parses and validates a serialized record.
func DecodeRecord(data []byte) (*Record, error) {
	rec := NewRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
