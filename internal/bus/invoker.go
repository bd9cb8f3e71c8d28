package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
)

// envelope multiplexes the three message shapes (Call, Reply,
// Notification) over one Conn, since a subscription session carries
// both outbound RPCs and inbound async notifications.
type envelope struct {
	Kind         string        `json:"kind"`
	Call         *Call         `json:"call,omitempty"`
	Reply        *Reply        `json:"reply,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

// Dispatched is the success result of invoke_async: the call was
// written to the wire.
type Dispatched struct{}

type pendingCall struct {
	onData     func(schema.Blob)
	onComplete func(status int)
}

// Invoker owns one live Conn to an external handler and issues
// fire-and-forget (invoke_async) or blocking (invoke_sync) RPCs over it,
// demultiplexing replies by cookie and handing notifications to onNotify.
type Invoker struct {
	out        *libol.SubLogger
	conn       Conn
	writeLock  sync.Mutex
	pendLock   sync.Mutex
	pending    map[string]*pendingCall
	onNotify   func(Notification)
	closed     chan struct{}
	closeOnce  sync.Once
}

func NewInvoker(conn Conn, name string, onNotify func(Notification)) *Invoker {
	inv := &Invoker{
		out:      libol.NewSubLogger("Invoker." + name),
		conn:     conn,
		pending:  make(map[string]*pendingCall),
		onNotify: onNotify,
		closed:   make(chan struct{}),
	}
	libol.Go(inv.readLoop)
	return inv
}

func (inv *Invoker) readLoop() {
	defer inv.Close()
	for {
		raw, err := readFrame(inv.conn)
		if err != nil {
			inv.out.Warn("readLoop: %s", err)
			return
		}
		var env envelope
		if err := decode(raw, &env); err != nil {
			inv.out.Error("readLoop: %s", err)
			continue
		}
		switch env.Kind {
		case "reply":
			inv.handleReply(env.Reply)
		case "notification":
			if env.Notification != nil && inv.onNotify != nil {
				inv.onNotify(*env.Notification)
			}
		default:
			inv.out.Error("readLoop: unknown envelope kind %q", env.Kind)
		}
	}
}

func (inv *Invoker) handleReply(r *Reply) {
	if r == nil {
		return
	}
	inv.pendLock.Lock()
	p, ok := inv.pending[r.Cookie]
	if ok {
		delete(inv.pending, r.Cookie)
	}
	inv.pendLock.Unlock()
	if !ok {
		return
	}
	if r.Status != 0 {
		inv.out.Error("invocation failed: status %d", r.Status)
	}
	if p.onData != nil {
		p.onData(r.Data)
	}
	if p.onComplete != nil {
		p.onComplete(r.Status)
	}
}

func (inv *Invoker) send(c Call) error {
	env := envelope{Kind: "call", Call: &c}
	payload, err := encode(env)
	if err != nil {
		return fmt.Errorf("%w: %s", libol.ErrTransport, err)
	}
	inv.writeLock.Lock()
	defer inv.writeLock.Unlock()
	if err := writeFrame(inv.conn, payload); err != nil {
		return fmt.Errorf("%w: %s", libol.ErrTransport, err)
	}
	return nil
}

// InvokeAsync issues a fire-and-forget RPC. onComplete and onData are
// both optional; a non-zero reply status is logged here when the reply
// arrives, and callers may log it again with their own context.
func (inv *Invoker) InvokeAsync(method string, args schema.Blob, onData func(schema.Blob), onComplete func(status int)) (Dispatched, error) {
	cookie := uuid.NewString()
	if onData != nil || onComplete != nil {
		inv.pendLock.Lock()
		inv.pending[cookie] = &pendingCall{onData: onData, onComplete: onComplete}
		inv.pendLock.Unlock()
	}
	if err := inv.send(Call{Cookie: cookie, Method: method, Args: args}); err != nil {
		inv.pendLock.Lock()
		delete(inv.pending, cookie)
		inv.pendLock.Unlock()
		return Dispatched{}, err
	}
	return Dispatched{}, nil
}

// InvokeSync blocks until reply or timeout: used only for
// dump_info/dump_stats. It must not be called while holding a mutable
// borrow of any shadow.
func (inv *Invoker) InvokeSync(method string, args schema.Blob, timeout time.Duration) (schema.Blob, error) {
	cookie := uuid.NewString()
	done := make(chan schema.Blob, 1)
	inv.pendLock.Lock()
	inv.pending[cookie] = &pendingCall{
		onData: func(d schema.Blob) { done <- d },
	}
	inv.pendLock.Unlock()

	if err := inv.send(Call{Cookie: cookie, Method: method, Args: args}); err != nil {
		inv.pendLock.Lock()
		delete(inv.pending, cookie)
		inv.pendLock.Unlock()
		return nil, err
	}
	select {
	case d := <-done:
		return d, nil
	case <-time.After(timeout):
		inv.pendLock.Lock()
		delete(inv.pending, cookie)
		inv.pendLock.Unlock()
		return nil, fmt.Errorf("%w: %s timed out", libol.ErrTransport, method)
	case <-inv.closed:
		return nil, fmt.Errorf("%w: connection closed", libol.ErrTransport)
	}
}

func (inv *Invoker) Close() {
	inv.closeOnce.Do(func() {
		close(inv.closed)
		_ = inv.conn.Close()
	})
}
