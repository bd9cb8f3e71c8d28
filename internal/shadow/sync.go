// Package shadow implements the Device Shadow, Bridge Shadow, and
// Member State Machine: the per-device records that couple a local
// device to its pending remote operation, retry timer, and attempt
// counter.
package shadow

import "github.com/arkap/netifd/internal/schema"

// SyncKind is the flat enum of a shadow's sync state.
type SyncKind int

const (
	Synced SyncKind = iota
	PendingCreate
	PendingReload
	PendingFree
	PendingDisable
	PendingPrepare
	PendingAdd
	PendingRemove
)

func (k SyncKind) String() string {
	switch k {
	case Synced:
		return "synced"
	case PendingCreate:
		return "pending_create"
	case PendingReload:
		return "pending_reload"
	case PendingFree:
		return "pending_free"
	case PendingDisable:
		return "pending_disable"
	case PendingPrepare:
		return "pending_prepare"
	case PendingAdd:
		return "pending_add"
	case PendingRemove:
		return "pending_remove"
	default:
		return "unknown"
	}
}

// Sync is a tagged variant: it carries the in-flight request's method
// and argument blob alongside the state tag, so a retry timeout never
// has to reconstruct a stateless message (free, prepare, ...) by
// case-analysis on the shadow's other fields.
type Sync struct {
	Kind   SyncKind
	Method string
	Args   schema.Blob
}

func SyncedState() Sync {
	return Sync{Kind: Synced}
}

func Pending(kind SyncKind, method string, args schema.Blob) Sync {
	return Sync{Kind: kind, Method: method, Args: args}
}

// retry is the shared bookkeeping embedded in every shadow kind
// (Device, Bridge, Member): sync state, attempt counter, and the
// deadline consulted by Engine's timer sweep -- a single-shot timer of
// configurable duration. The maxRetry-th expiry exhausts the operation
// instead of reissuing it, so at most maxRetry-1 reissues follow the
// first dispatch.
type retry struct {
	sync     Sync
	attempts int
	armed    bool
	deadline int64 // unix nanos; valid only when armed
}

func (r *retry) State() Sync {
	return r.sync
}

func (r *retry) Attempts() int {
	return r.attempts
}

func (r *retry) Armed() bool {
	return r.armed
}

// arm transitions into a pending state and (re)starts its timer. A fresh
// arm (not a retry reissue) resets the attempt counter.
func (r *retry) arm(s Sync, deadline int64, freshAttempt bool) {
	r.sync = s
	r.deadline = deadline
	r.armed = true
	if freshAttempt {
		r.attempts = 0
	}
}

// settle cancels the timer and moves to SYNCED, resetting the attempt
// counter: a settled shadow never has a timer armed (an exhausted one,
// see exhaust, is disarmed too but keeps its pending state).
func (r *retry) settle() {
	r.sync = SyncedState()
	r.armed = false
	r.attempts = 0
}

// exhaust is terminal: the timer is cancelled and no further RPC is
// attributed to this shadow, but the shadow otherwise keeps its last
// sync state.
func (r *retry) exhaust() {
	r.armed = false
}
