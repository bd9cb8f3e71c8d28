package shadow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arkap/netifd/internal/bus"
	"github.com/arkap/netifd/internal/config"
	"github.com/arkap/netifd/internal/device"
	"github.com/arkap/netifd/internal/schema"
)

func alwaysOK(method string, args schema.Blob) (schema.Blob, int) {
	return args, 0
}

func newTestClass(t *testing.T, transport bus.Transport, endpoint string) *Class {
	t.Helper()
	cc := &config.Class{Name: "veth", Handler: endpoint, ConfigSchema: schema.Fields{{Name: "mtu"}}}
	link := bus.NewLink(cc.HandlerObject(), transport, nil)
	return NewClass(cc, link)
}

// newNotifyingTestClass wires the link's notification callback to ds,
// standing in for the notify.Router this package cannot import without
// a cycle (notify itself depends on shadow).
func newNotifyingTestClass(t *testing.T, transport bus.Transport, endpoint string, ds **DeviceShadow) *Class {
	t.Helper()
	cc := &config.Class{Name: "veth", Handler: endpoint, ConfigSchema: schema.Fields{{Name: "mtu"}}}
	link := bus.NewLink(cc.HandlerObject(), transport, func(n bus.Notification) {
		switch n.Type {
		case "create":
			(*ds).OnCreateNotify()
		case "reload":
			(*ds).OnReloadNotify()
		case "free":
			(*ds).OnFreeNotify()
		}
	})
	return NewClass(cc, link)
}

func TestDeviceShadowCreateSettlesOnSuccess(t *testing.T) {
	transport := bus.NewLoopbackTransport()
	transport.Handle("network.device.ubus.veth", func(conn bus.Conn) {
		bus.ServeAutoNotify(conn, alwaysOK)
	})
	var ds *DeviceShadow
	class := newNotifyingTestClass(t, transport, "veth", &ds)
	assert.NoError(t, class.Link.Subscribe())

	dev := device.NewRegistry().Get("eth0")
	ds = NewDeviceShadow("eth0", class, dev, 3, time.Second)

	assert.NoError(t, ds.Create(0, schema.Blob{"mtu": "1500"}))
	assert.Eventually(t, func() bool {
		return ds.State().Kind == Synced
	}, time.Second, 5*time.Millisecond)
	assert.True(t, dev.Present())
}

func TestDeviceShadowCreateFailsWithoutSubscription(t *testing.T) {
	transport := bus.NewLoopbackTransport()
	class := newTestClass(t, transport, "veth")
	dev := device.NewRegistry().Get("eth0")
	ds := NewDeviceShadow("eth0", class, dev, 3, time.Second)

	err := ds.Create(0, schema.Blob{})
	assert.Error(t, err)
	assert.Equal(t, Synced, ds.State().Kind, "a dispatch that never reached the handler must not arm a timer")
}

func TestDeviceShadowTickReissuesBeforeExhausting(t *testing.T) {
	transport := bus.NewLoopbackTransport()
	class := newTestClass(t, transport, "veth") // no handler registered: every dispatch fails resolve
	dev := device.NewRegistry().Get("eth0")
	ds := NewDeviceShadow("eth0", class, dev, 2, time.Millisecond)

	// Arm directly to simulate a successful first dispatch whose handler
	// never replies -- Tick must then retry via Ensure(), which fails
	// fast since there is still no handler, and ultimately exhaust.
	ds.arm(Pending(PendingCreate, "create", schema.Blob{}), 0, true)
	ds.Tick(1)
	assert.True(t, ds.Armed(), "first retry must still be armed, not yet exhausted")
	ds.Tick(1)
	assert.False(t, ds.Armed(), "second expiry must exhaust at maxRetry=2")
}
