package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetPresentBroadcastsOnlyOnFlip(t *testing.T) {
	r := NewRegistry()
	d := r.Get("eth0")
	events := 0
	d.AddUser(&User{Callback: func(ev EventKind) { events++ }})

	d.SetPresent(true)
	assert.Equal(t, 1, events)
	d.SetPresent(true) // no-op, already present
	assert.Equal(t, 1, events)
	d.SetPresent(false)
	assert.Equal(t, 2, events)
}

func TestClaimRequiresPresent(t *testing.T) {
	d := NewRegistry().Get("eth0")
	assert.Error(t, d.Claim())
	d.SetPresent(true)
	assert.NoError(t, d.Claim())
}

func TestLockPreventsRemoval(t *testing.T) {
	r := NewRegistry()
	d := r.Get("eth0")
	d.Lock()
	r.Remove("eth0")
	_, ok := r.Lookup("eth0")
	assert.True(t, ok, "a locked device must survive Remove")

	d.Unlock()
	r.Remove("eth0")
	_, ok = r.Lookup("eth0")
	assert.False(t, ok)
}

func TestRegistryGetIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.Get("eth0")
	b := r.Get("eth0")
	assert.Same(t, a, b)
}
