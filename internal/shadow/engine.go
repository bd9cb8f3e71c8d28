// Engine is the single coordinating point for a cooperative,
// effectively single-threaded model: one sweep goroutine drives all
// retry timers (a jobber-style periodic sweep), and every mutation that touches more
// than one shadow's fields goes through it rather than being scattered
// across goroutines racing each other.
package shadow

import (
	"sync"
	"time"

	"github.com/arkap/netifd/internal/bus"
	"github.com/arkap/netifd/internal/config"
	"github.com/arkap/netifd/internal/device"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
)

type Engine struct {
	out       *libol.SubLogger
	transport bus.Transport
	devices   *device.Registry

	maxRetry    int
	retryPeriod time.Duration

	mu       sync.Mutex
	classes  map[string]*Class
	shadows  map[string]*DeviceShadow // non-bridge and bridge devices, keyed by name
	bridges  map[string]*BridgeShadow // keyed by name, subset view onto shadows

	// Notify is set by the notify package once it wraps this Engine;
	// Link invokes it for every inbound async notification so the router
	// can dispatch by class without shadow importing notify.
	Notify func(className string, n bus.Notification)

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewEngine(daemon *config.Daemon, classes []*config.Class, transport bus.Transport) *Engine {
	e := &Engine{
		out:         libol.NewSubLogger("Engine"),
		transport:   transport,
		devices:     device.NewRegistry(),
		maxRetry:    daemon.MaxRetry,
		retryPeriod: daemon.RetryPeriod,
		classes:     make(map[string]*Class),
		shadows:     make(map[string]*DeviceShadow),
		bridges:     make(map[string]*BridgeShadow),
		stop:        make(chan struct{}),
	}
	for _, c := range classes {
		className := c.Name
		link := bus.NewLink(c.HandlerObject(), transport, func(n bus.Notification) {
			if e.Notify != nil {
				e.Notify(className, n)
			}
		})
		e.classes[className] = NewClass(c, link)
	}
	return e
}

func (e *Engine) Class(name string) (*Class, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.classes[name]
	return c, ok
}

func (e *Engine) Classes() []*Class {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Class, 0, len(e.classes))
	for _, c := range e.classes {
		out = append(out, c)
	}
	return out
}

// SubscribeAll attempts subscription for every configured class's
// handler link, called once at daemon startup after the bus transport
// is live.
func (e *Engine) SubscribeAll() {
	for _, c := range e.Classes() {
		if err := c.Link.Subscribe(); err != nil {
			e.out.Warn("SubscribeAll: %s: %s", c.Name, err)
		}
	}
}

// DeviceRegistry exposes the underlying device.Registry -- used by
// notify/adapter callers (and tests) that need to flip a member's
// present flag directly, since discovering physical interfaces is
// itself out of this package's scope.
func (e *Engine) DeviceRegistry() *device.Registry {
	return e.devices
}

func (e *Engine) Device(name string) (*DeviceShadow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.shadows[name]
	return s, ok
}

func (e *Engine) Bridge(name string) (*BridgeShadow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bridges[name]
	return b, ok
}

func (e *Engine) Devices() []*DeviceShadow {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*DeviceShadow, 0, len(e.shadows))
	for _, s := range e.shadows {
		out = append(out, s)
	}
	return out
}

// CreateDevice instantiates a shadow for a handler-backed device and
// dispatches its create() RPC. If the class is bridge-capable the
// shadow is registered as a BridgeShadow instead, and create is
// dispatched through its config-init-aware override rather than
// DeviceShadow's directly.
func (e *Engine) CreateDevice(className, name string, cfg schema.Blob) (*DeviceShadow, error) {
	class, ok := e.Class(className)
	if !ok {
		return nil, libol.NewErr("CreateDevice: unknown class %s", className)
	}
	dev := e.devices.Get(name)
	ds := NewDeviceShadow(name, class, dev, e.maxRetry, e.retryPeriod)

	e.mu.Lock()
	if _, exists := e.shadows[name]; exists {
		e.mu.Unlock()
		return nil, libol.NewErr("CreateDevice: %s already exists", name)
	}
	e.shadows[name] = ds
	var bridge *BridgeShadow
	if class.BridgeCapable {
		bridge = NewBridgeShadow(ds, e.devices)
		e.bridges[name] = bridge
	}
	e.mu.Unlock()

	if bridge != nil {
		if err := bridge.Create(libol.Now().UnixNano(), cfg); err != nil {
			return ds, err
		}
		return ds, nil
	}
	if err := ds.Create(libol.Now().UnixNano(), cfg); err != nil {
		return ds, err
	}
	return ds, nil
}

func (e *Engine) ReloadDevice(name string, cfg schema.Blob) error {
	if b, ok := e.Bridge(name); ok {
		if b.State().Kind != Synced {
			return libol.ErrNoChange
		}
		return b.Reload(libol.Now().UnixNano(), cfg)
	}
	ds, ok := e.Device(name)
	if !ok {
		return libol.NewErr("ReloadDevice: unknown device %s", name)
	}
	// Reloading a shadow with a pending operation already in flight is a
	// no-change, not an error or a second concurrent dispatch.
	if ds.State().Kind != Synced {
		return libol.ErrNoChange
	}
	return ds.Reload(libol.Now().UnixNano(), cfg)
}

// FreeDevice only dispatches the free() RPC; the shadow stays
// allocated until the matching free notification actually confirms
// teardown (see destroyShadow, called from the notify router).
func (e *Engine) FreeDevice(name string) error {
	ds, ok := e.Device(name)
	if !ok {
		return libol.NewErr("FreeDevice: unknown device %s", name)
	}
	return ds.Free(libol.Now().UnixNano())
}

// destroyShadow removes a shadow (and its bridge view, if any) from the
// registry. Called only once a free notification has confirmed
// PENDING_FREE was actually settled -- never on dispatch alone.
func (e *Engine) destroyShadow(name string) {
	e.mu.Lock()
	delete(e.shadows, name)
	delete(e.bridges, name)
	e.mu.Unlock()
}

// SetUpBridge and SetDownBridge drive a bridge's activation state
// directly; the member-add path never activates a bridge.
func (e *Engine) SetUpBridge(name string) error {
	b, ok := e.Bridge(name)
	if !ok {
		return libol.NewErr("SetUpBridge: unknown bridge %s", name)
	}
	return b.SetUp(libol.Now().UnixNano())
}

func (e *Engine) SetDownBridge(name string) error {
	b, ok := e.Bridge(name)
	if !ok {
		return libol.NewErr("SetDownBridge: unknown bridge %s", name)
	}
	return b.SetDown(libol.Now().UnixNano())
}

// PrepareBridge issues the bridge-level pre-activation RPC once, before
// any member is ever added -- not a per-member operation.
func (e *Engine) PrepareBridge(bridgeName string) error {
	b, ok := e.Bridge(bridgeName)
	if !ok {
		return libol.NewErr("PrepareBridge: unknown bridge %s", bridgeName)
	}
	return b.Prepare(libol.Now().UnixNano())
}

// AddMember, RemoveMember thread a member's operations through its
// owning BridgeShadow. hotplug marks an out-of-band add (e.g. an
// adapter-driven hotplug event) as opposed to one from the bridge's
// configured ifname list.
func (e *Engine) AddMember(bridgeName, memberName string, cfg schema.Blob, hotplug bool) error {
	b, ok := e.Bridge(bridgeName)
	if !ok {
		return libol.NewErr("AddMember: unknown bridge %s", bridgeName)
	}
	dev := e.devices.Get(memberName)
	m := b.AddMember(memberName, dev, hotplug, e.maxRetry, e.retryPeriod)
	return m.Add(libol.Now().UnixNano(), cfg)
}

func (e *Engine) RemoveMember(bridgeName, memberName string) error {
	b, ok := e.Bridge(bridgeName)
	if !ok {
		return libol.NewErr("RemoveMember: unknown bridge %s", bridgeName)
	}
	m, ok := b.Member(memberName)
	if !ok {
		return libol.ErrNotFound
	}
	return m.Remove(libol.Now().UnixNano())
}

// ConfirmCreate applies a create notification to whichever shadow kind
// name refers to -- a plain device or a bridge.
func (e *Engine) ConfirmCreate(name string) error {
	if b, ok := e.Bridge(name); ok {
		b.OnCreateNotify()
		return nil
	}
	ds, ok := e.Device(name)
	if !ok {
		return libol.NewErr("ConfirmCreate: unknown device %s", name)
	}
	ds.OnCreateNotify()
	return nil
}

func (e *Engine) ConfirmReload(name string) error {
	if b, ok := e.Bridge(name); ok {
		b.OnReloadNotify()
		return nil
	}
	ds, ok := e.Device(name)
	if !ok {
		return libol.NewErr("ConfirmReload: unknown device %s", name)
	}
	ds.OnReloadNotify()
	return nil
}

// ConfirmFree applies a free notification to whichever shadow kind name
// refers to, destroying it from the registry only if the shadow itself
// reports the confirmation was for PENDING_FREE (as opposed to a
// bridge's PENDING_DISABLE, which stays allocated).
func (e *Engine) ConfirmFree(name string) error {
	if b, ok := e.Bridge(name); ok {
		if b.OnFreeNotify() {
			e.destroyShadow(name)
		}
		return nil
	}
	ds, ok := e.Device(name)
	if !ok {
		return libol.NewErr("ConfirmFree: unknown device %s", name)
	}
	if ds.OnFreeNotify() {
		e.destroyShadow(name)
	}
	return nil
}

// ConfirmPrepare applies the bridge-level prepare notification.
func (e *Engine) ConfirmPrepare(bridgeName string) error {
	b, ok := e.Bridge(bridgeName)
	if !ok {
		return libol.NewErr("ConfirmPrepare: unknown bridge %s", bridgeName)
	}
	b.OnPrepareNotify()
	return nil
}

// ConfirmAdd applies an add notification for a bridge member. An
// unsolicited add -- naming a member this daemon never dispatched an
// add for -- creates one directly as a settled hotplug member rather
// than being dropped, since the handler may be announcing membership
// this daemon did not itself initiate.
func (e *Engine) ConfirmAdd(bridgeName, memberName string) error {
	b, ok := e.Bridge(bridgeName)
	if !ok {
		return libol.NewErr("ConfirmAdd: unknown bridge %s", bridgeName)
	}
	m, ok := b.Member(memberName)
	if !ok {
		dev := e.devices.Get(memberName)
		m = b.AddMember(memberName, dev, true, e.maxRetry, e.retryPeriod)
		m.markHotplugPresent()
		b.incPresent()
		return nil
	}
	if m.OnAddNotify() {
		b.incPresent()
	}
	return nil
}

// ConfirmRemove applies a remove notification for a bridge member.
func (e *Engine) ConfirmRemove(bridgeName, memberName string) error {
	b, ok := e.Bridge(bridgeName)
	if !ok {
		return libol.NewErr("ConfirmRemove: unknown bridge %s", bridgeName)
	}
	m, ok := b.Member(memberName)
	if !ok {
		return libol.ErrNotFound
	}
	if m.OnRemoveNotify() {
		b.decPresent()
		if !b.Empty() && b.MemberCount() == 0 {
			b.dev.SetPresent(false)
		}
	}
	return nil
}

// Start launches the sweep goroutine, ticking at 1/4 of RetryPeriod so a
// timer never overshoots its deadline by more than that fraction.
func (e *Engine) Start() {
	interval := e.retryPeriod / 4
	if interval <= 0 {
		interval = time.Second
	}
	e.wg.Add(1)
	libol.Go(func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.Sweep(libol.Now().UnixNano())
			case <-e.stop:
				return
			}
		}
	})
}

func (e *Engine) Stop() {
	close(e.stop)
	e.wg.Wait()
}

// Sweep is the jobber: every armed shadow and member past its deadline
// is reissued or exhausted.
func (e *Engine) Sweep(now int64) {
	for _, ds := range e.Devices() {
		ds.Tick(now)
	}
	e.mu.Lock()
	bridges := make([]*BridgeShadow, 0, len(e.bridges))
	for _, b := range e.bridges {
		bridges = append(bridges, b)
	}
	e.mu.Unlock()
	for _, b := range bridges {
		for _, m := range b.Members() {
			m.Tick(now)
		}
	}
}
