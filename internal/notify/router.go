// Package notify implements the Notification Router: it takes the
// inbound async bus.Notification events each Link hands to
// Invoker.onNotify and drives the right Engine transition. State
// transitions are driven exclusively from here -- never from an RPC
// reply's status, which only ever confirms the call was dispatched.
package notify

import (
	"github.com/arkap/netifd/internal/bus"
	"github.com/arkap/netifd/internal/device"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/shadow"
)

const (
	KindCreate  = "create"
	KindReload  = "reload"
	KindFree    = "free"
	KindPrepare = "prepare"
	KindAdd     = "add"
	KindRemove  = "remove"
)

// Router wires one Engine's Notify hook to the transitions each
// notification type should drive. Construct with New, which sets
// engine.Notify itself so callers never wire the closure by hand.
type Router struct {
	out    *libol.SubLogger
	engine *shadow.Engine
}

func New(engine *shadow.Engine) *Router {
	r := &Router{
		out:    libol.NewSubLogger("Notify"),
		engine: engine,
	}
	engine.Notify = r.Handle
	return r
}

// Handle is called from within Invoker.readLoop for className's Link, so
// it must not block on anything that itself waits on that same Invoker
// (invoke_sync against the same handler would deadlock).
func (r *Router) Handle(className string, n bus.Notification) {
	switch n.Type {
	case KindCreate:
		r.handleDeviceList(className, "create", n, r.engine.ConfirmCreate)
	case KindReload:
		r.handleDeviceList(className, "reload", n, r.engine.ConfirmReload)
	case KindFree:
		r.handleFree(className, n)
	case KindPrepare:
		r.handlePrepare(className, n)
	case KindAdd:
		r.handleAdd(className, n)
	case KindRemove:
		r.handleRemove(className, n)
	default:
		r.out.Warn("Handle: unknown notification type %q from %s", n.Type, className)
	}
}

// handleDeviceList covers the create/reload shapes, both a flat list of
// device names confirmed in one notification.
func (r *Router) handleDeviceList(className, verb string, n Notification, confirm func(string) error) {
	for _, name := range n.Devices {
		if err := confirm(name); err != nil {
			r.out.Warn("handle%s: %s: %s: %s", verb, className, name, err)
		}
	}
}

// handleFree settles PENDING_FREE (and a bridge's PENDING_DISABLE) for
// every named device -- the only path that ever deallocates a shadow.
func (r *Router) handleFree(className string, n Notification) {
	for _, name := range n.Devices {
		if err := r.engine.ConfirmFree(name); err != nil {
			r.out.Warn("handleFree: %s: %s: %s", className, name, err)
		}
	}
}

// handlePrepare settles the bridge-level pre-activation pending state.
// Keyed by the notification's Bridge field, the same device-list shape
// carrying a single name rather than the hotplug-pair shape -- prepare
// has no member yet.
func (r *Router) handlePrepare(className string, n Notification) {
	name := n.Bridge
	if name == "" && len(n.Devices) > 0 {
		name = n.Devices[0]
	}
	if name == "" {
		r.out.Error("handlePrepare: %s: missing bridge name in notification", className)
		return
	}
	if err := r.engine.ConfirmPrepare(name); err != nil {
		r.out.Warn("handlePrepare: %s/%s: %s", className, name, err)
	}
}

func (r *Router) handleAdd(className string, n Notification) {
	if n.Bridge == "" || n.Member == "" {
		r.out.Error("handleAdd: %s: missing bridge/member in notification", className)
		return
	}
	if err := r.engine.ConfirmAdd(n.Bridge, n.Member); err != nil {
		r.out.Warn("handleAdd: %s/%s: %s", n.Bridge, n.Member, err)
		return
	}
	r.broadcastTopoChange(n.Bridge)
}

func (r *Router) handleRemove(className string, n Notification) {
	if n.Bridge == "" || n.Member == "" {
		r.out.Error("handleRemove: %s: missing bridge/member in notification", className)
		return
	}
	if err := r.engine.ConfirmRemove(n.Bridge, n.Member); err != nil {
		r.out.Warn("handleRemove: %s/%s: %s", n.Bridge, n.Member, err)
		return
	}
	r.broadcastTopoChange(n.Bridge)
}

// broadcastTopoChange is an effect of a settled add/remove, not a
// separate inbound notification kind: every user registered on the
// bridge's underlying device learns its membership changed.
func (r *Router) broadcastTopoChange(bridgeName string) {
	b, ok := r.engine.Bridge(bridgeName)
	if !ok {
		return
	}
	b.Broadcast(device.EventTopoChange)
}

// Notification is a local alias so call sites in this package read
// naturally; it is exactly bus.Notification.
type Notification = bus.Notification
