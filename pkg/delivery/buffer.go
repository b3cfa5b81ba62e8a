// Package delivery implements the most-recent-wins frame store read by the
// HTTP polling endpoint.
//
// Delivery to the remote controller is pull-based by design: the device sits
// behind an intermittent tunnel with no assured WebSocket transport, so the
// newest annotated frame is cached in a single slot and fetched on demand.
// There is no backlog and no per-client state.
package delivery

import (
	"sync/atomic"

	"github.com/posekit/posecam/pkg/frame"
)

// Buffer holds at most one annotated frame. Writers overwrite the slot
// atomically; readers always see either the most recent complete frame or
// nothing at all. Neither side ever blocks the other.
type Buffer struct {
	slot atomic.Pointer[frame.Annotated]
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Publish stores af as the latest frame. Writes with a sequence number at or
// below the current slot's are discarded, so a slow writer can never roll
// the buffer backwards and readers observe monotonically increasing
// sequence numbers.
func (b *Buffer) Publish(af *frame.Annotated) {
	for {
		cur := b.slot.Load()
		if cur != nil && af.Seq <= cur.Seq {
			return
		}
		if b.slot.CompareAndSwap(cur, af) {
			return
		}
	}
}

// Latest returns the most recent frame, or (nil, false) before the first
// frame arrives.
func (b *Buffer) Latest() (*frame.Annotated, bool) {
	af := b.slot.Load()
	if af == nil {
		return nil, false
	}
	return af, true
}

// Seq returns the sequence number of the current frame, or 0 if empty.
func (b *Buffer) Seq() uint64 {
	if af := b.slot.Load(); af != nil {
		return af.Seq
	}
	return 0
}

// Reset clears the slot. Called when a new session starts so stale frames
// from a previous session are never served.
func (b *Buffer) Reset() {
	b.slot.Store(nil)
}
