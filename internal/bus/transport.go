package bus

import (
	"fmt"
	"net"
	"sync"

	kcp "github.com/xtaci/kcp-go/v5"

	"github.com/arkap/netifd/internal/libol"
)

// Conn is a single duplex session to one external handler, carrying
// framed Call/Reply/Notification messages.
type Conn interface {
	net.Conn
}

// Transport resolves a handler endpoint object name to a live Conn. The
// KCP-backed implementation is the production transport; LoopbackTransport
// below is an in-memory stand-in used by tests and by callers that embed
// their own handler in the same process.
type Transport interface {
	// Dial resolves endpoint and opens a session. It returns a
	// libol.ErrHandlerAbsent-wrapping error when the endpoint name is
	// unknown.
	Dial(endpoint string) (Conn, error)
	// Watch arms a one-shot callback invoked the next time endpoint
	// becomes reachable.
	Watch(endpoint string, onAppear func())
}

// KCPTransport dials external handlers over KCP sessions (a reliable
// UDP-based session type), used here as the RPC bus to external device
// handlers.
type KCPTransport struct {
	lock      sync.Mutex
	endpoints map[string]string // endpoint name -> "host:port"
	watchers  map[string][]func()
}

func NewKCPTransport() *KCPTransport {
	return &KCPTransport{
		endpoints: make(map[string]string),
		watchers:  make(map[string][]func()),
	}
}

// Register binds an endpoint name to an address, standing in for the
// ubus name registry the real daemon queries via ubus_lookup_id.
func (t *KCPTransport) Register(endpoint, addr string) {
	t.lock.Lock()
	watchers := t.watchers[endpoint]
	delete(t.watchers, endpoint)
	t.endpoints[endpoint] = addr
	t.lock.Unlock()
	for _, w := range watchers {
		w()
	}
}

func (t *KCPTransport) Unregister(endpoint string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	delete(t.endpoints, endpoint)
}

func (t *KCPTransport) Dial(endpoint string) (Conn, error) {
	t.lock.Lock()
	addr, ok := t.endpoints[endpoint]
	t.lock.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", libol.ErrHandlerAbsent, endpoint)
	}
	sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", libol.ErrTransport, err)
	}
	return sess, nil
}

func (t *KCPTransport) Watch(endpoint string, onAppear func()) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if _, ok := t.endpoints[endpoint]; ok {
		t.lock.Unlock()
		onAppear()
		t.lock.Lock()
		return
	}
	t.watchers[endpoint] = append(t.watchers[endpoint], onAppear)
}
