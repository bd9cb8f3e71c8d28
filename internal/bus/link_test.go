package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkSubscribeUnresolvedThenSubscribed(t *testing.T) {
	transport := NewLoopbackTransport()
	link := NewLink("test.link", transport, nil)
	assert.Equal(t, Unresolved, link.State())

	err := link.Subscribe()
	assert.Error(t, err, "no handler registered yet")
	assert.Equal(t, Waiting, link.State())

	transport.Handle("test.link", func(conn Conn) { serveEcho(conn, nil) })
	// Handle runs the watch callback queued by armWatch, which
	// re-subscribes; give it a moment to settle.
	assert.Eventually(t, func() bool {
		return link.State() == Subscribed
	}, time.Second, 10*time.Millisecond)
}

func TestLinkEnsureFailsWhenNotSubscribed(t *testing.T) {
	transport := NewLoopbackTransport()
	link := NewLink("test.absent", transport, nil)
	_, err := link.Ensure()
	assert.Error(t, err)
}

func TestLinkAwaitLossReturnsToWaiting(t *testing.T) {
	transport := NewLoopbackTransport()
	transport.Handle("test.flap", func(conn Conn) {
		_ = conn.Close()
	})
	link := NewLink("test.flap", transport, nil)
	assert.NoError(t, link.Subscribe())
	assert.Eventually(t, func() bool {
		return link.State() == Waiting
	}, time.Second, 10*time.Millisecond)
}
