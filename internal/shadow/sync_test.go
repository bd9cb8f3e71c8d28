package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrySettleIsSyncedWithNoTimerArmed(t *testing.T) {
	var r retry
	r.arm(Pending(PendingCreate, "create", nil), 100, true)
	assert.True(t, r.Armed())
	r.settle()
	assert.Equal(t, Synced, r.State().Kind)
	assert.False(t, r.Armed())
	assert.Equal(t, 0, r.Attempts())
}

func TestRetryExhaustKeepsLastSyncButDisarms(t *testing.T) {
	var r retry
	r.arm(Pending(PendingReload, "reload", nil), 100, true)
	r.attempts = 2
	r.exhaust()
	assert.False(t, r.Armed())
	assert.Equal(t, PendingReload, r.State().Kind, "exhaust must not fabricate a synced state")
}

func TestRetryFreshArmResetsAttempts(t *testing.T) {
	var r retry
	r.arm(Pending(PendingCreate, "create", nil), 100, true)
	r.attempts = 2
	r.arm(Pending(PendingCreate, "create", nil), 200, false)
	assert.Equal(t, 2, r.Attempts(), "reissue must preserve the attempt counter")
	r.arm(Pending(PendingReload, "reload", nil), 300, true)
	assert.Equal(t, 0, r.Attempts(), "a fresh operation resets the attempt counter")
}

func TestSyncKindStringKnownValues(t *testing.T) {
	assert.Equal(t, "synced", Synced.String())
	assert.Equal(t, "pending_add", PendingAdd.String())
}
