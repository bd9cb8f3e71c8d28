// Package adapter is the Adapter Surface: the set of entry points a
// netifd-style caller (config reload, CLI, or the httpapi) invokes to
// drive the shadow/notify machinery. Every operation here first checks
// its class's Link is Subscribed, returning ErrHandlerAbsent rather
// than attempting an RPC with no invoker.
package adapter

import (
	"time"

	"github.com/arkap/netifd/internal/config"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
	"github.com/arkap/netifd/internal/shadow"
)

// Adapter composes an Engine with read-only dump access through each
// class's Invoker -- the surface a daemon front-end (CLI, HTTP API)
// actually calls.
type Adapter struct {
	out    *libol.SubLogger
	engine *shadow.Engine
}

func New(engine *shadow.Engine) *Adapter {
	return &Adapter{
		out:    libol.NewSubLogger("Adapter"),
		engine: engine,
	}
}

func (a *Adapter) Engine() *shadow.Engine { return a.engine }

// ConfigInit loads every class registration under confDir, the Go
// counterpart of ubusdev_config_init's uci config-tree walk. Unlike the
// C source, class registration and device-instance config are distinct
// here (config.Class vs. the schema.Blob passed to Create) -- this only
// registers classes; bringing up the devices instances described in a
// deployment's own config is the caller's job (CLI or an outer netifd
// integration), not this package's.
func (a *Adapter) ConfigInit(confDir string) ([]*config.Class, error) {
	classes, err := config.LoadClasses(confDir)
	if err != nil {
		return nil, err
	}
	for _, c := range classes {
		a.out.Info("ConfigInit: loaded class %s (handler %s)", c.Name, c.Handler)
	}
	return classes, nil
}

// Create is the adapter entry for bringing up a new handler-backed
// device.
func (a *Adapter) Create(className, name string, cfg schema.Blob) error {
	class, ok := a.engine.Class(className)
	if !ok {
		return libol.NewErr("Create: unknown class %s", className)
	}
	if !class.Subscribed() {
		return libol.ErrHandlerAbsent
	}
	_, err := a.engine.CreateDevice(className, name, cfg)
	return err
}

// Reload re-pushes a device's config. A shadow with a pending sync
// already in flight resolves to ErrNoChange rather than a second
// concurrent dispatch.
func (a *Adapter) Reload(name string, cfg schema.Blob) error {
	ds, ok := a.engine.Device(name)
	if !ok {
		return libol.ErrNotFound
	}
	if !ds.Class().Subscribed() {
		return libol.ErrHandlerAbsent
	}
	return a.engine.ReloadDevice(name, cfg)
}

// Free tears a device down.
func (a *Adapter) Free(name string) error {
	ds, ok := a.engine.Device(name)
	if !ok {
		return libol.ErrNotFound
	}
	if !ds.Class().Subscribed() {
		return libol.ErrHandlerAbsent
	}
	return a.engine.FreeDevice(name)
}

// HotplugPrepare is the bridge-level pre-activation leg -- issued once
// per bridge, before its first member is ever added, never per member.
func (a *Adapter) HotplugPrepare(bridge string) error {
	b, ok := a.engine.Bridge(bridge)
	if !ok {
		return libol.NewErr("HotplugPrepare: unknown bridge %s", bridge)
	}
	if !b.Class().Subscribed() {
		return libol.ErrHandlerAbsent
	}
	return a.engine.PrepareBridge(bridge)
}

func (a *Adapter) HotplugAdd(bridge, member string, cfg schema.Blob) error {
	b, ok := a.engine.Bridge(bridge)
	if !ok {
		return libol.NewErr("HotplugAdd: unknown bridge %s", bridge)
	}
	if !b.Class().Subscribed() {
		return libol.ErrHandlerAbsent
	}
	return a.engine.AddMember(bridge, member, cfg, true)
}

func (a *Adapter) HotplugRemove(bridge, member string) error {
	b, ok := a.engine.Bridge(bridge)
	if !ok {
		return libol.NewErr("HotplugRemove: unknown bridge %s", bridge)
	}
	if !b.Class().Subscribed() {
		return libol.ErrHandlerAbsent
	}
	return a.engine.RemoveMember(bridge, member)
}

// SetUp and SetDown drive a bridge's activation independent of
// membership changes -- e.g. a deployment's explicit enable/disable
// rather than a side effect of adding or removing a member.
func (a *Adapter) SetUp(bridge string) error {
	b, ok := a.engine.Bridge(bridge)
	if !ok {
		return libol.NewErr("SetUp: unknown bridge %s", bridge)
	}
	if !b.Class().Subscribed() {
		return libol.ErrHandlerAbsent
	}
	return a.engine.SetUpBridge(bridge)
}

func (a *Adapter) SetDown(bridge string) error {
	b, ok := a.engine.Bridge(bridge)
	if !ok {
		return libol.NewErr("SetDown: unknown bridge %s", bridge)
	}
	if !b.Class().Subscribed() {
		return libol.ErrHandlerAbsent
	}
	return a.engine.SetDownBridge(bridge)
}

// CheckState issues check_state, a reserved diagnostic method with no
// automatic caller: it is reachable only from the httpapi's check
// endpoint for manual diagnostics, never called from Engine or notify.
func (a *Adapter) CheckState(name string) (schema.Blob, error) {
	ds, ok := a.engine.Device(name)
	if !ok {
		return nil, libol.ErrNotFound
	}
	class := ds.Class()
	inv, err := class.Link.Ensure()
	if err != nil {
		return nil, err
	}
	return inv.InvokeSync("check_state", schema.Blob{"name": name}, dumpTimeout)
}

const dumpTimeout = 2 * time.Second

// DumpInfo and DumpStats are the two read-only RPCs, both invoke_sync
// calls projected through the class's declared schema so callers only
// ever see the fields the class advertises.
func (a *Adapter) DumpInfo(name string) (schema.Blob, error) {
	return a.dump(name, "dump_info", func(c *shadow.Class) schema.Fields { return c.InfoSchema })
}

func (a *Adapter) DumpStats(name string) (schema.Blob, error) {
	return a.dump(name, "dump_stats", func(c *shadow.Class) schema.Fields { return c.StatsSchema })
}

func (a *Adapter) dump(name, method string, fields func(*shadow.Class) schema.Fields) (schema.Blob, error) {
	ds, ok := a.engine.Device(name)
	if !ok {
		return nil, libol.ErrNotFound
	}
	class := ds.Class()
	inv, err := class.Link.Ensure()
	if err != nil {
		return nil, err
	}
	blob, err := inv.InvokeSync(method, schema.Blob{"name": name}, dumpTimeout)
	if err != nil {
		return nil, err
	}
	return schema.Project(fields(class), blob), nil
}
