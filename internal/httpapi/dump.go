package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arkap/netifd/internal/adapter"
)

// Dump serves dump_info/dump_statsby round-tripping
// through the adapter's invoke_sync calls -- this is the one httpapi
// resource that can block on the bus, so it is not on the Engine's own
// sweep goroutine.
type Dump struct {
	Adapter *adapter.Adapter
}

func (h Dump) Router(router *mux.Router) {
	router.HandleFunc("/api/device/{name}/info", h.Info).Methods("GET")
	router.HandleFunc("/api/device/{name}/stats", h.Stats).Methods("GET")
	router.HandleFunc("/api/device/{name}/check", h.Check).Methods("GET")
}

func (h Dump) Info(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	blob, err := h.Adapter.DumpInfo(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	ResponseJson(w, blob)
}

func (h Dump) Stats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	blob, err := h.Adapter.DumpStats(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	ResponseJson(w, blob)
}

// Check issues check_state manually, the one way this route reaches the
// handler's otherwise-unused diagnostic method -- see Adapter.CheckState.
func (h Dump) Check(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	blob, err := h.Adapter.CheckState(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	ResponseJson(w, blob)
}
