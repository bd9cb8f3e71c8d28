package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arkap/netifd/internal/schema"
)

// serveEcho is a minimal stand-in handler: every call gets one reply
// whose Data echoes Args, after optionally emitting a notification
// first -- enough to drive Invoker's demultiplexing both ways.
func serveEcho(conn Conn, notif *Notification) {
	for {
		raw, err := readFrame(conn)
		if err != nil {
			return
		}
		var env envelope
		if err := decode(raw, &env); err != nil {
			return
		}
		if env.Kind != "call" {
			continue
		}
		if notif != nil {
			nenv := envelope{Kind: "notification", Notification: notif}
			payload, _ := encode(nenv)
			_ = writeFrame(conn, payload)
		}
		reply := Reply{Cookie: env.Call.Cookie, Status: 0, Data: env.Call.Args}
		renv := envelope{Kind: "reply", Reply: &reply}
		payload, _ := encode(renv)
		_ = writeFrame(conn, payload)
	}
}

func TestInvokerInvokeSyncRoundTrip(t *testing.T) {
	transport := NewLoopbackTransport()
	transport.Handle("test.echo", func(conn Conn) { serveEcho(conn, nil) })

	conn, err := transport.Dial("test.echo")
	assert.NoError(t, err)
	inv := NewInvoker(conn, "test", nil)
	defer inv.Close()

	data, err := inv.InvokeSync("dump_info", schema.Blob{"name": "eth0"}, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "eth0", data["name"])
}

func TestInvokerInvokeAsyncDeliversCompletion(t *testing.T) {
	transport := NewLoopbackTransport()
	transport.Handle("test.async", func(conn Conn) { serveEcho(conn, nil) })

	conn, err := transport.Dial("test.async")
	assert.NoError(t, err)
	inv := NewInvoker(conn, "test", nil)
	defer inv.Close()

	done := make(chan int, 1)
	_, err = inv.InvokeAsync("create", schema.Blob{"name": "br0"}, nil, func(status int) {
		done <- status
	})
	assert.NoError(t, err)
	select {
	case status := <-done:
		assert.Equal(t, 0, status)
	case <-time.After(time.Second):
		t.Fatal("onComplete never fired")
	}
}

func TestInvokerDeliversNotification(t *testing.T) {
	transport := NewLoopbackTransport()
	notif := Notification{Type: "device-add", Devices: []string{"eth0"}}
	transport.Handle("test.notify", func(conn Conn) { serveEcho(conn, &notif) })

	conn, err := transport.Dial("test.notify")
	assert.NoError(t, err)

	got := make(chan Notification, 1)
	inv := NewInvoker(conn, "test", func(n Notification) { got <- n })
	defer inv.Close()

	_, err = inv.InvokeAsync("create", schema.Blob{"name": "eth0"}, nil, nil)
	assert.NoError(t, err)

	select {
	case n := <-got:
		assert.Equal(t, "device-add", n.Type)
		assert.Equal(t, []string{"eth0"}, n.Devices)
	case <-time.After(time.Second):
		t.Fatal("notification never delivered")
	}
}

func TestInvokerCloseUnblocksInvokeSync(t *testing.T) {
	transport := NewLoopbackTransport()
	transport.Handle("test.blackhole", func(conn Conn) {
		// never replies
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
	})
	conn, err := transport.Dial("test.blackhole")
	assert.NoError(t, err)
	inv := NewInvoker(conn, "test", nil)

	result := make(chan error, 1)
	go func() {
		_, err := inv.InvokeSync("dump_info", schema.Blob{}, 5*time.Second)
		result <- err
	}()
	time.Sleep(50 * time.Millisecond)
	inv.Close()

	select {
	case err := <-result:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("InvokeSync did not unblock on Close")
	}
}
