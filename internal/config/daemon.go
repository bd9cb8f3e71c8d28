// Package config holds the two configuration layers of the daemon: the
// top-level Daemon config (flags plus a save file) and per-class
// metadata loaded from the ubusdev-config directory via a glob loop.
package config

import (
	"flag"
	"path/filepath"
	"time"

	"github.com/arkap/netifd/internal/libol"
)

// Retry constants: the period of each pending RPC's timer, and the
// number of timer expiries after which the operation is abandoned (the
// last of those expiries exhausts it rather than reissuing).
const (
	DefaultRetryPeriod = 1 * time.Second
	DefaultMaxRetry    = 3
)

// ClassConfigDirName is the fixed subdirectory name under the daemon's
// confdir that class metadata is loaded from
const ClassConfigDirName = "ubusdev-config"

type Log struct {
	File  string `json:"file"`
	Level int    `json:"level"`
}

type Daemon struct {
	ConfDir     string        `json:"-"`
	SaveFile    string        `json:"-"`
	Listen      string        `json:"listen"` // HTTP introspection surface
	Log         Log           `json:"log"`
	RetryPeriod time.Duration `json:"retry_period"`
	MaxRetry    int           `json:"max_retry"`
}

func DefaultDaemon() *Daemon {
	return &Daemon{
		Listen:      "127.0.0.1:8902",
		RetryPeriod: DefaultRetryPeriod,
		MaxRetry:    DefaultMaxRetry,
		Log: Log{
			File:  "",
			Level: libol.INFO,
		},
	}
}

func NewDaemon() *Daemon {
	d := &Daemon{}
	d.Flags()
	flag.Parse()
	d.Initialize()
	return d
}

func (d *Daemon) Flags() {
	obj := DefaultDaemon()
	flag.StringVar(&d.ConfDir, "conf:dir", obj.ConfDir, "Configure daemon's directory")
	flag.StringVar(&d.Listen, "http:listen", obj.Listen, "Configure HTTP introspection listen address")
	flag.StringVar(&d.Log.File, "log:file", obj.Log.File, "Configure log file")
	flag.IntVar(&d.Log.Level, "log:level", obj.Log.Level, "Configure log level")
}

func (d *Daemon) Initialize() {
	d.SaveFile = filepath.Join(d.ConfDir, "netifd-ubusdev.json")
	if err := libol.UnmarshalLoad(d, d.SaveFile); err != nil {
		libol.Debug("Daemon.Initialize: %s", err)
	}
	d.Default()
}

func (d *Daemon) Default() {
	obj := DefaultDaemon()
	if d.Listen == "" {
		d.Listen = obj.Listen
	}
	if d.RetryPeriod == 0 {
		d.RetryPeriod = obj.RetryPeriod
	}
	if d.MaxRetry == 0 {
		d.MaxRetry = obj.MaxRetry
	}
	if d.Log.Level == 0 {
		d.Log.Level = obj.Log.Level
	}
}

// ClassConfigDir is the directory the daemon scans for class
// registrations at startup; absence is non-fatal and silently disables
// the plug-in.
func (d *Daemon) ClassConfigDir() string {
	return filepath.Join(d.ConfDir, ClassConfigDirName)
}
