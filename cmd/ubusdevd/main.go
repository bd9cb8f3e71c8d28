// Command ubusdevd is the daemon entry point: it loads the daemon and
// class configuration, brings up the RPC bus to external device
// handlers, and serves read-only introspection over HTTP.
package main

import (
	"path/filepath"

	"github.com/arkap/netifd/internal/adapter"
	"github.com/arkap/netifd/internal/bus"
	"github.com/arkap/netifd/internal/config"
	"github.com/arkap/netifd/internal/httpapi"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/notify"
	"github.com/arkap/netifd/internal/shadow"
)

// handlerAddrs is the conf-dir sidecar mapping each class's handler name
// to a "host:port" KCP endpoint -- the daemon-local stand-in for ubus's
// name registry, loaded once at startup the same way LoadClasses loads
// ubusdev-config/*.json.
func loadHandlerAddrs(confDir string) map[string]string {
	out := map[string]string{}
	file := filepath.Join(confDir, "ubusdev-handlers.json")
	if err := libol.UnmarshalLoad(&out, file); err != nil {
		libol.Debug("loadHandlerAddrs: %s", err)
	}
	return out
}

func main() {
	daemon := config.NewDaemon()
	libol.Init(daemon.Log.File, daemon.Log.Level)

	classes, err := config.LoadClasses(daemon.ConfDir)
	if err != nil {
		libol.Fatal("main: LoadClasses: %s", err)
		return
	}
	libol.Info("main: loaded %d device classes", len(classes))

	transport := bus.NewKCPTransport()
	handlerAddrs := loadHandlerAddrs(daemon.ConfDir)
	for _, c := range classes {
		if addr, ok := handlerAddrs[c.Handler]; ok {
			transport.Register(c.HandlerObject(), addr)
		}
	}

	engine := shadow.NewEngine(daemon, classes, transport)
	notify.New(engine)
	ad := adapter.New(engine)

	engine.SubscribeAll()
	engine.Start()

	srv := httpapi.NewServer(daemon.Listen, engine, ad)
	srv.Start()

	libol.Info("main: ubusdevd started, listening on %s", daemon.Listen)
	libol.Wait()

	srv.Shutdown()
	engine.Stop()
}
