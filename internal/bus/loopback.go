package bus

import (
	"fmt"
	"net"
	"sync"

	"github.com/arkap/netifd/internal/libol"
)

// LoopbackTransport pairs in-memory net.Pipe connections instead of
// dialing out over KCP; it backs unit tests and any handler embedded in
// the same process.
type LoopbackTransport struct {
	lock    sync.Mutex
	servers map[string]func() (Conn, error)
	waiters map[string][]func()
}

func NewLoopbackTransport() *LoopbackTransport {
	return &LoopbackTransport{
		servers: make(map[string]func() (Conn, error)),
		waiters: make(map[string][]func()),
	}
}

// Handle installs an in-process handler for endpoint: each Dial call
// spins up a fresh net.Pipe, hands one end to the caller and runs serve
// against the other end in its own goroutine.
func (t *LoopbackTransport) Handle(endpoint string, serve func(Conn)) {
	t.lock.Lock()
	waiters := t.waiters[endpoint]
	delete(t.waiters, endpoint)
	t.servers[endpoint] = func() (Conn, error) {
		client, server := net.Pipe()
		libol.Go(func() { serve(server) })
		return client, nil
	}
	t.lock.Unlock()
	for _, w := range waiters {
		w()
	}
}

func (t *LoopbackTransport) Remove(endpoint string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	delete(t.servers, endpoint)
}

func (t *LoopbackTransport) Dial(endpoint string) (Conn, error) {
	t.lock.Lock()
	mk, ok := t.servers[endpoint]
	t.lock.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", libol.ErrHandlerAbsent, endpoint)
	}
	return mk()
}

// Watch queues onAppear until the next Handle call for endpoint, even if
// a handler is already installed.
func (t *LoopbackTransport) Watch(endpoint string, onAppear func()) {
	t.lock.Lock()
	t.waiters[endpoint] = append(t.waiters[endpoint], onAppear)
	t.lock.Unlock()
}
