package shadow

import (
	"sync"
	"time"

	"github.com/arkap/netifd/internal/device"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
)

// DeviceActivator is the strategy surface a BridgeShadow composes
// instead of saving and swapping a raw "up" function pointer on the
// underlying device: the generic device implements Activate directly,
// so there is nothing to stash and restore.
type DeviceActivator interface {
	Activate(up bool) error
}

// BridgeShadow is a DeviceShadow specialization carrying the extra
// state a bridge needs: its own parsed config, the membership map it
// owns, and the activation bookkeeping (active, force_active,
// n_present, n_failed) a plain device never needs. Members never hold
// a pointer back to anything but their bridge; the bridge is the
// single place membership is enumerated, added to, or torn down from.
type BridgeShadow struct {
	*DeviceShadow
	activator DeviceActivator
	registry  *device.Registry

	mu          sync.Mutex
	config      schema.Blob
	memberNames []string
	empty       bool
	active      bool
	forceActive bool
	members     map[string]*Member
	nPresent    int
	nFailed     int
}

func NewBridgeShadow(ds *DeviceShadow, registry *device.Registry) *BridgeShadow {
	if !ds.class.BridgeCapable {
		libol.Warn("NewBridgeShadow: class %s is not bridge-capable", ds.class.Name)
	}
	return &BridgeShadow{
		DeviceShadow: ds,
		activator:    ds.dev,
		registry:     registry,
		members:      make(map[string]*Member),
	}
}

// parseBridgeConfig extracts the two fields a bridge config recognizes:
// empty:bool and ifname:array-of-string. Unknown fields are ignored.
func parseBridgeConfig(cfg schema.Blob) (empty bool, ifnames []string) {
	empty, _ = cfg["empty"].(bool)
	switch raw := cfg["ifname"].(type) {
	case []string:
		ifnames = raw
	case []interface{}:
		for _, v := range raw {
			if s, ok := v.(string); ok {
				ifnames = append(ifnames, s)
			}
		}
	}
	return empty, ifnames
}

// Config returns the bridge's own stored config, shadowing the
// embedded DeviceShadow.Config (that one tracks the generic device
// record, this one the bridge-specific blob parsed for empty/ifname).
func (b *BridgeShadow) Config() schema.Blob {
	b.mu.Lock()
	defer b.mu.Unlock()
	return schema.Clone(b.config)
}

func (b *BridgeShadow) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.empty
}

func (b *BridgeShadow) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *BridgeShadow) ForceActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.forceActive
}

func (b *BridgeShadow) NPresent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nPresent
}

func (b *BridgeShadow) NFailed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nFailed
}

// Create applies config-init semantics rather than dispatching create()
// unconditionally: an empty bridge is force-activated and created
// immediately, since no member will ever arrive to trigger it; a
// non-empty bridge only registers its configured members (non-hotplug,
// so a later reconciliation never deletes them) and dispatches nothing.
// No member add, prepare or set-up issues create for a non-empty
// bridge either, so such a bridge is never created remotely here.
func (b *BridgeShadow) Create(now int64, cfg schema.Blob) error {
	empty, ifnames := parseBridgeConfig(cfg)
	b.mu.Lock()
	b.config = schema.Clone(cfg)
	b.empty = empty
	b.memberNames = ifnames
	b.mu.Unlock()

	if empty {
		b.mu.Lock()
		b.forceActive = true
		b.mu.Unlock()
		b.dev.SetPresent(true)
		return b.dispatch(now, Pending(PendingCreate, "create", createArgs(b.name, cfg)), true)
	}

	for _, name := range ifnames {
		dev := b.registry.Get(name)
		b.AddMember(name, dev, false, b.maxRetry, b.retryPeriod)
	}
	return nil
}

// Reload overrides the embedded device's reload to diff against the
// bridge's own stored config rather than the generic one, keeping the
// same NoChange/dispatch contract: the stored config and member-list
// bookkeeping are only replaced once the RPC has actually been
// dispatched.
func (b *BridgeShadow) Reload(now int64, cfg schema.Blob) error {
	b.mu.Lock()
	prev := b.config
	b.mu.Unlock()
	if prev != nil && !schema.Diff(b.class.ConfigSchema, prev, cfg) {
		return libol.ErrNoChange
	}
	if err := b.dispatch(now, Pending(PendingReload, "reload", reloadArgs(b.name, cfg)), true); err != nil {
		return err
	}
	empty, ifnames := parseBridgeConfig(cfg)
	b.mu.Lock()
	b.config = schema.Clone(cfg)
	b.empty = empty
	b.memberNames = ifnames
	b.mu.Unlock()
	return nil
}

// SetUp iterates the membership map, enabling each present member:
// mirrors the bridge set_up hook. A bridge with no present members and
// force_active=false fails outright, issuing no RPC. Success does not
// itself mark the bridge active -- that only happens once the
// subsequent create notification lands.
func (b *BridgeShadow) SetUp(now int64) error {
	b.mu.Lock()
	forceActive := b.forceActive
	members := make([]*Member, 0, len(b.members))
	for _, m := range b.members {
		members = append(members, m)
	}
	b.mu.Unlock()

	anyPresent := false
	for _, m := range members {
		if m.dev.Present() {
			anyPresent = true
			break
		}
	}
	if !anyPresent && !forceActive {
		return libol.ErrNoMembers
	}
	for _, m := range members {
		if m.dev.Present() {
			_ = m.Add(now, m.Config())
		}
	}
	return nil
}

// SetDown invokes the preserved activation callback with false,
// disables every present member, and issues the bridge-disable RPC
// (wire method free, state PENDING_DISABLE) -- distinct from
// PENDING_FREE. A PENDING_DISABLE shadow, once the free notification
// confirms it, is marked inactive but never deallocated.
func (b *BridgeShadow) SetDown(now int64) error {
	if b.activator != nil {
		if err := b.activator.Activate(false); err != nil {
			b.out.Warn("SetDown: activate: %s", err)
		}
	}
	for _, m := range b.Members() {
		if m.Present() {
			_ = m.Remove(now)
		}
	}
	return b.disableRemote(now)
}

func (b *BridgeShadow) disableRemote(now int64) error {
	return b.dispatch(now, Pending(PendingDisable, "free", freeArgs(b.name)), true)
}

// OnCreateNotify applies a create notification to the bridge: the
// preserved activation callback fires before the bridge is marked
// active, mirroring a plain device becoming present, and any member
// left parked on a failed enable attempt gets retried now that the
// bridge itself is synchronized.
func (b *BridgeShadow) OnCreateNotify() {
	if !b.checkAndSettle(PendingCreate) {
		return
	}
	b.mu.Lock()
	b.active = true
	b.mu.Unlock()

	if b.activator != nil {
		if err := b.activator.Activate(true); err != nil {
			b.out.Warn("OnCreateNotify: activate: %s", err)
		}
	}
	b.dev.SetPresent(true)
	b.out.Info("create: settled")
	b.retryFailedMembers()
}

// OnReloadNotify applies a reload notification to the bridge.
func (b *BridgeShadow) OnReloadNotify() {
	if !b.checkAndSettle(PendingReload) {
		return
	}
	b.dev.SetPresent(true)
	b.out.Info("reload: settled")
}

// OnFreeNotify applies a free notification: PENDING_DISABLE settles to
// an allocated, inactive shadow and is never destroyed; PENDING_FREE
// reports the shadow should be destroyed, same as a plain device.
func (b *BridgeShadow) OnFreeNotify() bool {
	if b.checkAndSettle(PendingDisable) {
		b.mu.Lock()
		b.active = false
		b.mu.Unlock()
		b.out.Info("free: bridge deactivated")
		return false
	}
	if b.checkAndSettle(PendingFree) {
		b.dev.SetPresent(false)
		b.dev.Unlock()
		b.out.Info("free: settled")
		return true
	}
	return false
}

// OnPrepareNotify applies the bridge-level prepare notification: force
// activation and presence, done once before the first member is ever
// added.
func (b *BridgeShadow) OnPrepareNotify() {
	if !b.checkAndSettle(PendingPrepare) {
		return
	}
	b.mu.Lock()
	b.forceActive = true
	b.mu.Unlock()
	b.dev.SetPresent(true)
	b.out.Info("prepare: settled")
}

// Prepare issues the bridge-level prepare RPC: the pre-activation step
// that force-activates the bridge before its first member is added.
// Done once per bridge, not per member.
func (b *BridgeShadow) Prepare(now int64) error {
	return b.dispatch(now, Pending(PendingPrepare, "prepare", prepareArgs(b.name)), true)
}

// Member looks up one membership record by device name.
func (b *BridgeShadow) Member(name string) (*Member, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.members[name]
	return m, ok
}

func (b *BridgeShadow) Members() []*Member {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Member, 0, len(b.members))
	for _, m := range b.members {
		out = append(out, m)
	}
	return out
}

// AddMember creates and registers a Member for dev, returning the
// existing one if this device is already a member: adding an
// already-present member is a no-change, not an error. hotplug marks
// whether this member was introduced out-of-band rather than from the
// bridge's configured ifname list -- a hotplug member is never dropped
// by a later configured-member reconciliation (invariant: a hotplug
// member survives any vlist-style update round).
func (b *BridgeShadow) AddMember(name string, dev *device.Device, hotplug bool, maxRetry int, retryPeriod time.Duration) *Member {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.members[name]; ok {
		return m
	}
	m := newMember(name, b, dev, hotplug, maxRetry, retryPeriod)
	b.members[name] = m
	return m
}

// removeMember drops a settled, removed member from the map -- called
// back once remove is confirmed by notification.
func (b *BridgeShadow) removeMember(name string) {
	b.mu.Lock()
	m, ok := b.members[name]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.members, name)
	b.mu.Unlock()
	m.dev.RemoveUser(m.devUser)
}

// MemberCount backs the rule that removing the last member of a
// non-empty bridge marks the bridge device not-present; the caller
// (Engine) decides whether to act on zero.
func (b *BridgeShadow) MemberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.members)
}

func (b *BridgeShadow) incPresent() {
	b.mu.Lock()
	b.nPresent++
	b.mu.Unlock()
}

func (b *BridgeShadow) decPresent() {
	b.mu.Lock()
	if b.nPresent > 0 {
		b.nPresent--
	}
	b.mu.Unlock()
}

func (b *BridgeShadow) recordFailedMember() {
	b.mu.Lock()
	b.nFailed++
	b.mu.Unlock()
}

// retryFailedMembers is the member-failure retry loop: once the bridge
// itself reaches SYNCED, every member still parked on a failed or
// outstanding enable attempt is retried.
func (b *BridgeShadow) retryFailedMembers() {
	b.mu.Lock()
	failed := b.nFailed
	b.nFailed = 0
	members := make([]*Member, 0, len(b.members))
	for _, m := range b.members {
		members = append(members, m)
	}
	b.mu.Unlock()
	if failed == 0 {
		return
	}
	now := libol.Now().UnixNano()
	for _, m := range members {
		if m.State().Kind == PendingAdd || (!m.Present() && m.Hotplug()) {
			_ = m.Add(now, m.Config())
		}
	}
}
