package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arkap/netifd/internal/bus"
	"github.com/arkap/netifd/internal/config"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
	"github.com/arkap/netifd/internal/shadow"
)

func echoHandler(method string, args schema.Blob) (schema.Blob, int) {
	return schema.Blob{"name": args["name"], "rx_bytes": "42"}, 0
}

func testEngine(t *testing.T, transport *bus.LoopbackTransport, classes []*config.Class) *shadow.Engine {
	t.Helper()
	d := &config.Daemon{}
	d.Default()
	d.RetryPeriod = 50 * time.Millisecond
	engine := shadow.NewEngine(d, classes, transport)
	engine.SubscribeAll()
	return engine
}

func TestCreateFailsWithoutSubscription(t *testing.T) {
	transport := bus.NewLoopbackTransport() // no handler registered
	classes := []*config.Class{{Name: "veth", Handler: "veth", ConfigSchema: schema.Fields{{Name: "mtu"}}}}
	engine := testEngine(t, transport, classes)
	ad := New(engine)

	err := ad.Create("veth", "eth0", schema.Blob{})
	assert.ErrorIs(t, err, libol.ErrHandlerAbsent)
}

func TestCreateThenDumpStatsProjectsDeclaredFields(t *testing.T) {
	transport := bus.NewLoopbackTransport()
	transport.Handle("network.device.ubus.veth", func(conn bus.Conn) {
		bus.ServeJSONRPC(conn, echoHandler)
	})
	classes := []*config.Class{{
		Name: "veth", Handler: "veth",
		ConfigSchema: schema.Fields{{Name: "mtu"}},
		StatsSchema:  schema.Fields{{Name: "rx_bytes"}},
	}}
	engine := testEngine(t, transport, classes)
	ad := New(engine)

	assert.NoError(t, ad.Create("veth", "eth0", schema.Blob{"mtu": "1500"}))

	stats, err := ad.DumpStats("eth0")
	assert.NoError(t, err)
	assert.Equal(t, schema.Blob{"rx_bytes": "42"}, stats, "only the declared stats field should survive projection")
}

func TestHotplugRequiresSubscribedBridgeClass(t *testing.T) {
	transport := bus.NewLoopbackTransport()
	classes := []*config.Class{{Name: "bridge", Handler: "br", BridgeCapable: true, MemberPrefix: "br-", ConfigSchema: schema.Fields{{Name: "mtu"}}}}
	engine := testEngine(t, transport, classes)
	ad := New(engine)

	_, _ = engine.CreateDevice("bridge", "br0", schema.Blob{}) // non-empty bridge: nothing dispatched, shadow registered

	err := ad.HotplugPrepare("br0")
	assert.ErrorIs(t, err, libol.ErrHandlerAbsent)
}
