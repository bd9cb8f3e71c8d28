package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arkap/netifd/internal/shadow"
)

// Device is the read-only introspection endpoint for device shadows,
// following the same List/Get pair shape used elsewhere in this tree's
// HTTP API.
type Device struct {
	Engine *shadow.Engine
}

type deviceView struct {
	Name     string `json:"name"`
	Class    string `json:"class"`
	Sync     string `json:"sync"`
	Attempts int    `json:"attempts"`
	Armed    bool   `json:"armed"`
}

func (h Device) Router(router *mux.Router) {
	router.HandleFunc("/api/device", h.List).Methods("GET")
	router.HandleFunc("/api/device/{name}", h.Get).Methods("GET")
}

func toView(ds *shadow.DeviceShadow) deviceView {
	return deviceView{
		Name:     ds.Name(),
		Class:    ds.Class().Name,
		Sync:     ds.State().Kind.String(),
		Attempts: ds.Attempts(),
		Armed:    ds.Armed(),
	}
}

func (h Device) List(w http.ResponseWriter, r *http.Request) {
	out := make([]deviceView, 0, 16)
	for _, ds := range h.Engine.Devices() {
		out = append(out, toView(ds))
	}
	ResponseJson(w, out)
}

func (h Device) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	ds, ok := h.Engine.Device(name)
	if !ok {
		http.Error(w, name, http.StatusNotFound)
		return
	}
	ResponseJson(w, toView(ds))
}
