package shadow

import (
	"sync"
	"time"

	"github.com/arkap/netifd/internal/device"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
)

// DeviceShadow is the local record of one handler-backed device,
// coupling its static Class/config to the in-flight Sync and retry
// bookkeeping. Its fields are written under mu; calls reach it from
// adapter/Engine callers, from the bus read loop delivering
// notifications, and from Engine's sweep goroutine.
type DeviceShadow struct {
	retry

	mu     sync.Mutex
	name   string
	class  *Class
	config schema.Blob
	dev    *device.Device
	out    *libol.SubLogger

	maxRetry    int
	retryPeriod time.Duration
}

func NewDeviceShadow(name string, class *Class, dev *device.Device, maxRetry int, retryPeriod time.Duration) *DeviceShadow {
	return &DeviceShadow{
		name:        name,
		class:       class,
		dev:         dev,
		out:         libol.NewSubLogger("Device." + name),
		maxRetry:    maxRetry,
		retryPeriod: retryPeriod,
	}
}

func (s *DeviceShadow) Name() string { return s.name }

func (s *DeviceShadow) Class() *Class { return s.class }

func (s *DeviceShadow) Config() schema.Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.Clone(s.config)
}

// Create issues the handler's create() RPC and holds the underlying
// device locked so it cannot be reaped before the handler confirms. The
// device is marked present only once that confirmation -- the create
// notification -- actually arrives, never on dispatch alone.
func (s *DeviceShadow) Create(now int64, config schema.Blob) error {
	s.mu.Lock()
	s.config = schema.Clone(config)
	s.mu.Unlock()
	s.dev.Lock()
	return s.dispatch(now, Pending(PendingCreate, "create", createArgs(s.name, config)), true)
}

// Reload diffs the new config against the stored one over the class's
// declared schema fields: an unchanged config issues no RPC at all and
// reports ErrNoChange, a changed one marks the device not-present
// before dispatching reload.
func (s *DeviceShadow) Reload(now int64, config schema.Blob) error {
	s.mu.Lock()
	prev := s.config
	s.mu.Unlock()
	if prev != nil && !schema.Diff(s.class.ConfigSchema, prev, config) {
		return libol.ErrNoChange
	}
	s.mu.Lock()
	s.config = schema.Clone(config)
	s.mu.Unlock()
	s.dev.SetPresent(false)
	return s.dispatch(now, Pending(PendingReload, "reload", reloadArgs(s.name, config)), true)
}

// Broadcast relays a topology event to every user registered on the
// underlying device, without touching its present flag.
func (s *DeviceShadow) Broadcast(ev device.EventKind) {
	s.dev.Broadcast(ev)
}

func (s *DeviceShadow) Free(now int64) error {
	return s.dispatch(now, Pending(PendingFree, "free", freeArgs(s.name)), true)
}

func (s *DeviceShadow) dispatch(now int64, sync_ Sync, fresh bool) error {
	inv, err := s.class.Link.Ensure()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.arm(sync_, now+s.retryPeriod.Nanoseconds(), fresh)
	s.mu.Unlock()
	_, err = inv.InvokeAsync(sync_.Method, sync_.Args, nil, func(status int) {
		s.complete(status)
	})
	if err != nil {
		s.out.Warn("dispatch: %s: %s", sync_.Method, err)
		return err
	}
	return nil
}

// complete only reports whether the RPC itself was dispatched and
// accepted; it is not a confirmation from the handler. Non-zero
// statuses are logged critical here. A zero status means nothing more
// than "the call was processed" -- the shadow stays armed and pending
// until the matching notification actually settles it (see
// notify.Router and OnCreateNotify/OnReloadNotify/OnFreeNotify below).
func (s *DeviceShadow) complete(status int) {
	if status == 0 {
		return
	}
	s.mu.Lock()
	kind := s.sync.Kind
	s.mu.Unlock()
	logInvocationError(s.out, kind.String(), s.name, status)
}

// checkAndSettle is the shared guarded transition BridgeShadow composes
// for its own notification handlers, so both device kinds serialize
// retry-state transitions through the same mutex (s.mu) rather than a
// bridge-specific one: only a shadow actually waiting on kind settles.
func (s *DeviceShadow) checkAndSettle(kind SyncKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sync.Kind != kind {
		return false
	}
	s.settle()
	return true
}

// OnCreateNotify applies a create notification: only a shadow actually
// waiting on create reacts.
func (s *DeviceShadow) OnCreateNotify() {
	s.mu.Lock()
	if s.sync.Kind != PendingCreate {
		s.mu.Unlock()
		return
	}
	s.settle()
	s.mu.Unlock()
	s.dev.SetPresent(true)
	s.out.Info("create: settled")
}

// OnReloadNotify applies a reload notification: only a shadow actually
// waiting on reload reacts.
func (s *DeviceShadow) OnReloadNotify() {
	s.mu.Lock()
	if s.sync.Kind != PendingReload {
		s.mu.Unlock()
		return
	}
	s.settle()
	s.mu.Unlock()
	s.dev.SetPresent(true)
	s.out.Info("reload: settled")
}

// OnFreeNotify applies a free notification for a plain device: it
// reports whether the shadow should now be destroyed. A plain device
// only ever reaches PENDING_FREE -- PENDING_DISABLE is bridge-only, see
// BridgeShadow.OnFreeNotify.
func (s *DeviceShadow) OnFreeNotify() bool {
	s.mu.Lock()
	if s.sync.Kind != PendingFree {
		s.mu.Unlock()
		return false
	}
	s.settle()
	s.mu.Unlock()
	s.dev.SetPresent(false)
	s.dev.Unlock()
	s.out.Info("free: settled")
	return true
}

// Tick is invoked by Engine's periodic sweep. It reissues a timed-out
// pending call or, on the maxRetry-th expiry, exhausts it.
func (s *DeviceShadow) Tick(now int64) {
	s.mu.Lock()
	if !s.armed || now < s.deadline {
		s.mu.Unlock()
		return
	}
	if s.attempts+1 >= s.maxRetry {
		s.exhaust()
		sync_ := s.sync
		s.mu.Unlock()
		s.out.Error("%s: exhausted retries for %s", sync_.Kind, s.name)
		return
	}
	sync_ := s.sync
	s.attempts++
	s.mu.Unlock()
	s.out.Warn("%s: retrying %s (attempt %d)", sync_.Kind, s.name, s.attempts+1)
	_ = s.dispatch(now, sync_, false)
}
