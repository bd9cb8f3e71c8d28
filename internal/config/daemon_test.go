package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkap/netifd/internal/libol"
)

func TestDefaultDaemonFillsDefaults(t *testing.T) {
	d := &Daemon{}
	d.Default()
	assert.Equal(t, DefaultRetryPeriod, d.RetryPeriod)
	assert.Equal(t, DefaultMaxRetry, d.MaxRetry)
	assert.Equal(t, libol.INFO, d.Log.Level)
}

func TestDefaultDoesNotOverrideSetValues(t *testing.T) {
	d := &Daemon{RetryPeriod: 5_000_000_000, MaxRetry: 9}
	d.Default()
	assert.EqualValues(t, 5_000_000_000, d.RetryPeriod)
	assert.Equal(t, 9, d.MaxRetry)
}

func TestClassConfigDirJoinsConfDir(t *testing.T) {
	d := &Daemon{ConfDir: "/etc/netifd"}
	assert.Equal(t, "/etc/netifd/"+ClassConfigDirName, d.ClassConfigDir())
}
