package shadow

import (
	"sync"
	"time"

	"github.com/arkap/netifd/internal/device"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
)

// Member is one bridge-membership sub-state-machine, owned by its
// BridgeShadow's membership map; the member keeps a direct pointer to
// that owning bridge. Its Sync/retry pair mirrors DeviceShadow's but
// walks add -> remove (prepare is bridge-level, see
// BridgeShadow.Prepare, not per member).
type Member struct {
	retry

	mu      sync.Mutex
	name    string
	bridge  *BridgeShadow
	config  schema.Blob
	dev     *device.Device
	devUser *device.User
	hotplug bool // true if added out-of-band rather than from the bridge's configured ifname list
	present bool // toggled off immediately on Remove so a racing cross-bridge move sees it released early
	out     *libol.SubLogger

	maxRetry    int
	retryPeriod time.Duration
}

func newMember(name string, bridge *BridgeShadow, dev *device.Device, hotplug bool, maxRetry int, retryPeriod time.Duration) *Member {
	m := &Member{
		name:        name,
		bridge:      bridge,
		dev:         dev,
		hotplug:     hotplug,
		out:         libol.NewSubLogger("Member." + bridge.Name() + "." + name),
		maxRetry:    maxRetry,
		retryPeriod: retryPeriod,
	}
	m.devUser = &device.User{
		Hotplug: hotplug,
		Callback: func(ev device.EventKind) {
			m.onDeviceEvent(ev)
		},
	}
	dev.AddUser(m.devUser)
	return m
}

func (m *Member) Name() string { return m.name }

func (m *Member) Hotplug() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hotplug
}

func (m *Member) Present() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present
}

func (m *Member) Config() schema.Blob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return schema.Clone(m.config)
}

// Add issues the add RPC, claiming the underlying device on dispatch so
// it cannot be freed out from under an in-flight add. Claiming a
// not-present device records a bridge-level failure instead of
// propagating the error -- the bridge's member-failure retry, fired
// once it next reaches SYNCED, is what drives the eventual attach.
func (m *Member) Add(now int64, config schema.Blob) error {
	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	if err := m.dev.Claim(); err != nil {
		m.bridge.recordFailedMember()
		m.out.Warn("Add: %s", err)
		return nil
	}
	return m.dispatch(now, Pending(PendingAdd, "add", addArgs(m.bridge.Name(), m.name, config)), true)
}

// Remove issues the remove RPC. The present flag is toggled off
// immediately so a concurrent reload that is moving the device to a
// different bridge observes it as released even before the handler's
// reply lands.
func (m *Member) Remove(now int64) error {
	m.mu.Lock()
	m.present = false
	m.mu.Unlock()
	return m.dispatch(now, Pending(PendingRemove, "remove", removeArgs(m.bridge.Name(), m.name)), true)
}

func (m *Member) dispatch(now int64, s Sync, fresh bool) error {
	inv, err := m.bridge.class.Link.Ensure()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.arm(s, now+m.retryPeriod.Nanoseconds(), fresh)
	m.mu.Unlock()
	_, err = inv.InvokeAsync(s.Method, s.Args, nil, func(status int) {
		m.complete(status)
	})
	if err != nil {
		m.out.Warn("dispatch: %s: %s", s.Method, err)
		return err
	}
	return nil
}

// complete only reports whether the RPC itself was dispatched and
// accepted; it is not a confirmation from the handler. Non-zero
// statuses are logged critical here. A zero status means nothing more
// than "the call was processed" -- the member stays armed and pending
// until the matching notification settles it via OnAddNotify/
// OnRemoveNotify.
func (m *Member) complete(status int) {
	if status == 0 {
		return
	}
	m.mu.Lock()
	kind := m.sync.Kind
	m.mu.Unlock()
	logInvocationError(m.out, kind.String(), m.name, status)
}

// markHotplugPresent settles an unsolicited member directly to SYNCED
// and present: used when an add notification names a member this
// daemon never dispatched an add for (the handler discovered it
// out-of-band).
func (m *Member) markHotplugPresent() {
	m.mu.Lock()
	m.settle()
	m.present = true
	m.mu.Unlock()
}

// OnAddNotify applies an add notification: only a member actually
// waiting on add reacts. Reports whether it settled so the bridge can
// update its present/failed counters.
func (m *Member) OnAddNotify() bool {
	m.mu.Lock()
	if m.sync.Kind != PendingAdd {
		m.mu.Unlock()
		return false
	}
	m.settle()
	m.present = true
	m.mu.Unlock()
	m.out.Info("add: settled")
	return true
}

// OnRemoveNotify applies a remove notification: releases the claimed
// device and reports whether the member should now be dropped from its
// bridge's membership map (true) because it was actually waiting on
// remove.
func (m *Member) OnRemoveNotify() bool {
	m.mu.Lock()
	if m.sync.Kind != PendingRemove {
		m.mu.Unlock()
		return false
	}
	m.settle()
	m.mu.Unlock()
	m.dev.Release()
	m.bridge.removeMember(m.name)
	m.out.Info("remove: settled")
	return true
}

// Tick mirrors DeviceShadow.Tick for Engine's retry sweep.
func (m *Member) Tick(now int64) {
	m.mu.Lock()
	if !m.armed || now < m.deadline {
		m.mu.Unlock()
		return
	}
	if m.attempts+1 >= m.maxRetry {
		m.exhaust()
		s := m.sync
		m.mu.Unlock()
		m.out.Error("%s: exhausted retries for member %s", s.Kind, m.name)
		return
	}
	s := m.sync
	m.attempts++
	m.mu.Unlock()
	m.out.Warn("%s: retrying member %s (attempt %d)", s.Kind, m.name, m.attempts+1)
	_ = m.dispatch(now, s, false)
}

// onDeviceEvent reacts to the underlying device's presence flips: a
// member whose device disappears must itself be torn down rather than
// left dangling in the bridge's membership map.
func (m *Member) onDeviceEvent(ev device.EventKind) {
	if ev != device.EventRemove {
		return
	}
	m.mu.Lock()
	wasPresent := m.present
	m.mu.Unlock()
	if !wasPresent {
		return
	}
	if err := m.Remove(libol.Now().UnixNano()); err != nil {
		m.out.Warn("onDeviceEvent: remove on device loss: %s", err)
	}
}
