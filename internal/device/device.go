// Package device stands in for netifd's generic `device` object: an
// external collaborator referenced only through the narrow interfaces
// the core consumes -- lifecycle flags, event broadcast, and
// user/claim accounting. The core (internal/shadow, internal/adapter)
// only ever touches it through the Device and EventKind surface below.
//
// Local devices are backed by a vishvananda/netlink dummy link per
// shadow, standing in for the "local device" whose
// actual realization is delegated to the external handler.
package device

import (
	"sync"

	"github.com/vishvananda/netlink"

	"github.com/arkap/netifd/internal/libol"
)

type EventKind int

const (
	EventAdd EventKind = iota
	EventRemove
	EventTopoChange
)

// User is a registered consumer of a Device's lifecycle events.
// BridgeShadow's members register one of these against the underlying
// device to learn of its add/remove transitions.
type User struct {
	Callback func(EventKind)
	Hotplug  bool
}

// Device is one entry in the daemon's device registry: present/claimed
// bookkeeping plus a netlink dummy link standing in for the kernel
// interface the real daemon would manage.
type Device struct {
	name    string
	lock    sync.Mutex
	present bool
	claims  int // claim/release refcount
	locks   int // lock/unlock refcount
	users   map[*User]struct{}
	link    netlink.Link
}

func newDevice(name string) *Device {
	return &Device{name: name, users: make(map[*User]struct{})}
}

func (d *Device) Name() string { return d.name }

func (d *Device) Present() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.present
}

// SetPresent flips device presence, broadcasting an add/remove event to
// every registered user only when the value actually changes.
func (d *Device) SetPresent(present bool) {
	d.lock.Lock()
	if d.present == present {
		d.lock.Unlock()
		return
	}
	d.present = present
	users := make([]*User, 0, len(d.users))
	for u := range d.users {
		users = append(users, u)
	}
	d.lock.Unlock()

	ev := EventRemove
	if present {
		ev = EventAdd
	}
	for _, u := range users {
		if u.Callback != nil {
			u.Callback(ev)
		}
	}
}

// Broadcast sends an event to every user without touching Present --
// used for topology-change notifications.
func (d *Device) Broadcast(ev EventKind) {
	d.lock.Lock()
	users := make([]*User, 0, len(d.users))
	for u := range d.users {
		users = append(users, u)
	}
	d.lock.Unlock()
	for _, u := range users {
		if u.Callback != nil {
			u.Callback(ev)
		}
	}
}

func (d *Device) AddUser(u *User) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.users[u] = struct{}{}
}

func (d *Device) RemoveUser(u *User) {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.users, u)
}

// Claim marks the device as actively used by a member. Claiming a
// not-present device is an error.
func (d *Device) Claim() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.present {
		return libol.NewErr("device %s: claim on not-present device", d.name)
	}
	d.claims++
	return nil
}

func (d *Device) Release() {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.claims > 0 {
		d.claims--
	}
}

// Lock/Unlock are a reference-counted hold that keeps a member's
// underlying device from being reaped before the handler confirms
// creation.
func (d *Device) Lock() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.locks++
}

func (d *Device) Unlock() {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.locks > 0 {
		d.locks--
	}
}

func (d *Device) Locked() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.locks > 0
}

// Activate is the preserved "up" callback a BridgeShadow composes
// instead of saving and swapping a raw function pointer: bringing the
// backing netlink link up or down. A device with no link yet (tests,
// containers without NET_ADMIN) is a no-op success.
func (d *Device) Activate(up bool) error {
	d.lock.Lock()
	link := d.link
	d.lock.Unlock()
	if link == nil {
		return nil
	}
	if up {
		return netlink.LinkSetUp(link)
	}
	return netlink.LinkSetDown(link)
}

// ensureLink lazily creates a netlink dummy link standing in for the
// real interface; failures are logged and otherwise ignored since the
// shadow/bookkeeping model does not depend on it existing (e.g. in
// containers without NET_ADMIN, or in tests).
func (d *Device) ensureLink() {
	if d.link != nil {
		return
	}
	attrs := netlink.NewLinkAttrs()
	attrs.Name = d.name
	dummy := &netlink.Dummy{LinkAttrs: attrs}
	if err := netlink.LinkAdd(dummy); err != nil {
		libol.Debug("device %s: netlink.LinkAdd: %s", d.name, err)
		return
	}
	d.link = dummy
}

func (d *Device) teardownLink() {
	if d.link == nil {
		return
	}
	if err := netlink.LinkDel(d.link); err != nil {
		libol.Debug("device %s: netlink.LinkDel: %s", d.name, err)
	}
	d.link = nil
}
