package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/arkap/netifd/internal/bus"
	"github.com/arkap/netifd/internal/config"
	"github.com/arkap/netifd/internal/schema"
	"github.com/arkap/netifd/internal/shadow"
)

func alwaysOK(method string, args schema.Blob) (schema.Blob, int) {
	return args, 0
}

func TestDeviceListAndGet(t *testing.T) {
	transport := bus.NewLoopbackTransport()
	transport.Handle("network.device.ubus.veth", func(conn bus.Conn) {
		bus.ServeJSONRPC(conn, alwaysOK)
	})
	classes := []*config.Class{{Name: "veth", Handler: "veth", ConfigSchema: schema.Fields{{Name: "mtu"}}}}
	d := &config.Daemon{}
	d.Default()
	engine := shadow.NewEngine(d, classes, transport)
	engine.SubscribeAll()
	_, err := engine.CreateDevice("veth", "eth0", schema.Blob{})
	assert.NoError(t, err)

	router := mux.NewRouter()
	Device{Engine: engine}.Router(router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/device", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var list []deviceView
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
	assert.Equal(t, "eth0", list[0].Name)

	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/api/device/missing", nil)
	router.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusNotFound, rec2.Code)
}
