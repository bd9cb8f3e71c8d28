package bus

import (
	"fmt"
	"sync"

	"github.com/arkap/netifd/internal/libol"
)

// LinkState is the Handler Link state machine of:
// Unresolved -> Resolving -> Subscribed <-> Waiting.
type LinkState int

const (
	Unresolved LinkState = iota
	Resolving
	Subscribed
	Waiting
)

func (s LinkState) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Subscribed:
		return "subscribed"
	case Waiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Link maintains a live subscription to one external handler's
// endpoint, reconnecting on loss via a one-shot object-added watch.
type Link struct {
	endpoint  string
	transport Transport
	out       *libol.SubLogger

	lock         sync.Mutex
	state        LinkState
	invoker      *Invoker
	onNotify     func(Notification)
	watchArmed   bool
	subscribeSeq int
}

func NewLink(endpoint string, transport Transport, onNotify func(Notification)) *Link {
	return &Link{
		endpoint:  endpoint,
		transport: transport,
		out:       libol.NewSubLogger("Link." + endpoint),
		state:     Unresolved,
		onNotify:  onNotify,
	}
}

func (l *Link) State() LinkState {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.state
}

func (l *Link) Invoker() *Invoker {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.invoker
}

// resolve attempts to translate the endpoint name to a live Conn,
//: fails with ErrHandlerAbsent if the name is unknown.
func (l *Link) resolve() (Conn, error) {
	l.lock.Lock()
	l.state = Resolving
	l.lock.Unlock()
	conn, err := l.transport.Dial(l.endpoint)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Subscribe resolves then subscribesOn failure it arms a
// one-shot object-added watch and transitions to Waiting; repeated
// object-added events for the same endpoint collapse into a single
// subscribe attempt (the subscribeSeq guard below).
func (l *Link) Subscribe() error {
	conn, err := l.resolve()
	if err != nil {
		l.armWatch()
		return err
	}
	inv := NewInvoker(conn, l.endpoint, l.onNotify)
	l.lock.Lock()
	l.invoker = inv
	l.state = Subscribed
	l.lock.Unlock()
	l.out.Info("Subscribe: subscribed to %s", l.endpoint)
	libol.Go(func() { l.awaitLoss(inv) })
	return nil
}

// awaitLoss blocks until the invoker's connection dies, standing in for
// ubus's subscription-remove callback -- the Invoker carries the loss
// up to Link as a remove callback.
func (l *Link) awaitLoss(inv *Invoker) {
	<-inv.closed
	l.lock.Lock()
	if l.invoker == inv {
		l.invoker = nil
		l.state = Waiting
	}
	l.lock.Unlock()
	l.out.Warn("awaitLoss: subscription to %s lost", l.endpoint)
	l.armWatch()
}

func (l *Link) armWatch() {
	l.lock.Lock()
	if l.watchArmed {
		l.lock.Unlock()
		return
	}
	l.watchArmed = true
	l.state = Waiting
	seq := l.subscribeSeq
	l.lock.Unlock()

	l.transport.Watch(l.endpoint, func() {
		l.lock.Lock()
		if l.subscribeSeq != seq {
			// A later watch already fired and re-subscribed; collapse.
			l.lock.Unlock()
			return
		}
		l.subscribeSeq++
		l.watchArmed = false
		l.lock.Unlock()
		l.out.Info("armWatch: %s reappeared, re-subscribing", l.endpoint)
		if err := l.Subscribe(); err != nil {
			l.out.Warn("armWatch: re-subscribe failed: %s", err)
		}
	})
}

// Ensure returns the current invoker if Subscribed, or ErrHandlerAbsent
// otherwise -- every adapter entry point calls this before issuing an
// RPC.
func (l *Link) Ensure() (*Invoker, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.state != Subscribed || l.invoker == nil {
		return nil, fmt.Errorf("%w: %s", libol.ErrHandlerAbsent, l.endpoint)
	}
	return l.invoker, nil
}
