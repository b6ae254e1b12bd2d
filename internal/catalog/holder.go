package catalog

import "sync/atomic"

type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Holder owns the current catalog of a running site. Readers may render at
// any state; before the first Publish they see an empty catalog.
type Holder struct {
	cur   atomic.Pointer[Catalog]
	state atomic.Int32
}

func (h *Holder) Current() *Catalog {
	if c := h.cur.Load(); c != nil {
		return c
	}
	return Empty()
}

func (h *Holder) State() State {
	return State(h.state.Load())
}

// BeginLoad marks a load in progress and returns the state it replaced, for
// AbortLoad.
func (h *Holder) BeginLoad() State {
	return State(h.state.Swap(int32(StateLoading)))
}

// AbortLoad puts back the state from before a failed load. The published
// catalog is left untouched.
func (h *Holder) AbortLoad(prev State) {
	h.state.CompareAndSwap(int32(StateLoading), int32(prev))
}

func (h *Holder) Publish(c *Catalog) {
	if c == nil {
		c = Empty()
	}
	h.cur.Store(c)
	h.state.Store(int32(StateReady))
}
