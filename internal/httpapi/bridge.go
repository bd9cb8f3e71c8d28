package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arkap/netifd/internal/shadow"
)

// Bridge exposes bridge/member state for introspection, following the
// same per-resource Router handler shape as Device.
type Bridge struct {
	Engine *shadow.Engine
}

type memberView struct {
	Name     string `json:"name"`
	Sync     string `json:"sync"`
	Present  bool   `json:"present"`
	Attempts int    `json:"attempts"`
}

type bridgeView struct {
	deviceView
	Empty       bool         `json:"empty"`
	Active      bool         `json:"active"`
	ForceActive bool         `json:"force_active"`
	NPresent    int          `json:"n_present"`
	NFailed     int          `json:"n_failed"`
	Members     []memberView `json:"members"`
}

func (h Bridge) Router(router *mux.Router) {
	router.HandleFunc("/api/bridge/{name}", h.Get).Methods("GET")
	router.HandleFunc("/api/bridge/{name}/member", h.ListMembers).Methods("GET")
}

func (h Bridge) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	b, ok := h.Engine.Bridge(name)
	if !ok {
		http.Error(w, name, http.StatusNotFound)
		return
	}
	view := bridgeView{
		deviceView:  toView(b.DeviceShadow),
		Empty:       b.Empty(),
		Active:      b.Active(),
		ForceActive: b.ForceActive(),
		NPresent:    b.NPresent(),
		NFailed:     b.NFailed(),
	}
	for _, m := range b.Members() {
		view.Members = append(view.Members, memberView{
			Name:     m.Name(),
			Sync:     m.State().Kind.String(),
			Present:  m.Present(),
			Attempts: m.Attempts(),
		})
	}
	ResponseJson(w, view)
}

func (h Bridge) ListMembers(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	b, ok := h.Engine.Bridge(name)
	if !ok {
		http.Error(w, name, http.StatusNotFound)
		return
	}
	out := make([]memberView, 0, len(b.Members()))
	for _, m := range b.Members() {
		out = append(out, memberView{
			Name:     m.Name(),
			Sync:     m.State().Kind.String(),
			Present:  m.Present(),
			Attempts: m.Attempts(),
		})
	}
	ResponseJson(w, out)
}
