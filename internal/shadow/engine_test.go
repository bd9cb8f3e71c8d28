package shadow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arkap/netifd/internal/bus"
	"github.com/arkap/netifd/internal/config"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
)

func testDaemon() *config.Daemon {
	d := &config.Daemon{}
	d.Default()
	d.RetryPeriod = 50 * time.Millisecond
	d.MaxRetry = 3
	return d
}

// wireTestNotify stands in for the notify.Router this package cannot
// import without a cycle (notify itself depends on shadow), routing
// each notification type to the matching Engine Confirm* method.
func wireTestNotify(e *Engine) {
	e.Notify = func(_ string, n bus.Notification) {
		switch n.Type {
		case "create":
			for _, name := range n.Devices {
				_ = e.ConfirmCreate(name)
			}
		case "reload":
			for _, name := range n.Devices {
				_ = e.ConfirmReload(name)
			}
		case "free":
			for _, name := range n.Devices {
				_ = e.ConfirmFree(name)
			}
		case "prepare":
			_ = e.ConfirmPrepare(n.Bridge)
		case "add":
			_ = e.ConfirmAdd(n.Bridge, n.Member)
		case "remove":
			_ = e.ConfirmRemove(n.Bridge, n.Member)
		}
	}
}

func TestEngineCreateDeviceAndBridgeRegistration(t *testing.T) {
	transport := bus.NewLoopbackTransport()
	transport.Handle("network.device.ubus.br", func(conn bus.Conn) {
		bus.ServeAutoNotify(conn, alwaysOK)
	})
	classes := []*config.Class{
		{Name: "bridge", Handler: "br", BridgeCapable: true, MemberPrefix: "br-", ConfigSchema: schema.Fields{{Name: "mtu"}}},
	}
	engine := NewEngine(testDaemon(), classes, transport)
	wireTestNotify(engine)
	engine.SubscribeAll()

	// empty:true takes the config-init path that issues create
	// immediately, since no member event will ever trigger it.
	ds, err := engine.CreateDevice("bridge", "br0", schema.Blob{"mtu": "1500", "empty": true})
	assert.NoError(t, err)
	assert.NotNil(t, ds)

	b, ok := engine.Bridge("br0")
	assert.True(t, ok, "a bridge-capable class must register a BridgeShadow")

	assert.Eventually(t, func() bool {
		got, _ := engine.Device("br0")
		return got.State().Kind == Synced
	}, time.Second, 5*time.Millisecond)
	assert.True(t, b.ForceActive())
}

func TestEngineReloadWhilePendingIsNoChange(t *testing.T) {
	transport := bus.NewLoopbackTransport() // no handler: create never settles
	classes := []*config.Class{
		{Name: "veth", Handler: "veth", ConfigSchema: schema.Fields{{Name: "mtu"}}},
	}
	engine := NewEngine(testDaemon(), classes, transport)
	ds, err := engine.CreateDevice("veth", "eth1", schema.Blob{})
	assert.Error(t, err, "create dispatch fails fast with no handler subscribed")
	assert.NotNil(t, ds)

	// Force it into a pending state directly to exercise the no-change
	// guard independent of whether the dispatch above succeeded.
	ds.arm(Pending(PendingCreate, "create", schema.Blob{}), 0, true)
	err = engine.ReloadDevice("eth1", schema.Blob{"mtu": "9000"})
	assert.ErrorIs(t, err, libol.ErrNoChange)
}

func TestEngineMemberLifecycleThroughBridge(t *testing.T) {
	transport := bus.NewLoopbackTransport()
	transport.Handle("network.device.ubus.br", func(conn bus.Conn) {
		bus.ServeAutoNotify(conn, alwaysOK)
	})
	classes := []*config.Class{
		{Name: "bridge", Handler: "br", BridgeCapable: true, MemberPrefix: "br-", ConfigSchema: schema.Fields{{Name: "mtu"}}},
	}
	engine := NewEngine(testDaemon(), classes, transport)
	wireTestNotify(engine)
	engine.SubscribeAll()
	_, err := engine.CreateDevice("bridge", "br0", schema.Blob{})
	assert.NoError(t, err)

	engine.DeviceRegistry().Get("eth2").SetPresent(true)
	assert.NoError(t, engine.PrepareBridge("br0"))
	assert.NoError(t, engine.AddMember("br0", "eth2", schema.Blob{}, true))

	b, _ := engine.Bridge("br0")
	assert.Eventually(t, func() bool {
		m, ok := b.Member("eth2")
		return ok && m.Present()
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, engine.RemoveMember("br0", "eth2"))
	assert.Eventually(t, func() bool {
		_, ok := b.Member("eth2")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestEngineSweepDrivesRetryOnUnreachableHandler(t *testing.T) {
	transport := bus.NewLoopbackTransport()
	classes := []*config.Class{
		{Name: "veth", Handler: "veth", ConfigSchema: schema.Fields{{Name: "mtu"}}},
	}
	engine := NewEngine(testDaemon(), classes, transport)
	ds, _ := engine.CreateDevice("veth", "eth3", schema.Blob{})
	ds.arm(Pending(PendingCreate, "create", schema.Blob{}), 0, true)
	engine.Sweep(1)
	assert.Equal(t, 1, ds.Attempts())
	engine.Sweep(1)
	assert.Equal(t, 2, ds.Attempts())
	engine.Sweep(1)
	assert.False(t, ds.Armed(), "must exhaust at maxRetry=3")
}
