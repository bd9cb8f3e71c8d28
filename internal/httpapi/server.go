package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/arkap/netifd/internal/adapter"
	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/shadow"
)

// Server is the introspection HTTP front-end: no auth, no TLS, no
// static-file serving -- just read-only shadow state for operators and
// ubusdevctl.
type Server struct {
	out    *libol.SubLogger
	listen string
	engine *shadow.Engine
	router *mux.Router
	server *http.Server
}

func NewServer(listen string, engine *shadow.Engine, ad *adapter.Adapter) *Server {
	s := &Server{
		out:    libol.NewSubLogger("Http"),
		listen: listen,
		engine: engine,
		router: mux.NewRouter(),
	}
	Device{Engine: engine}.Router(s.router)
	Bridge{Engine: engine}.Router(s.router)
	Dump{Adapter: ad}.Router(s.router)
	s.router.HandleFunc("/api/class", s.ListClasses).Methods("GET")
	return s
}

type classView struct {
	Name      string `json:"name"`
	Handler   string `json:"handler"`
	Bridge    bool   `json:"bridge"`
	Subscribed bool  `json:"subscribed"`
}

func (s *Server) ListClasses(w http.ResponseWriter, r *http.Request) {
	out := make([]classView, 0, 8)
	for _, c := range s.engine.Classes() {
		out = append(out, classView{
			Name:       c.Name,
			Handler:    c.Handler,
			Bridge:     c.BridgeCapable,
			Subscribed: c.Subscribed(),
		})
	}
	ResponseJson(w, out)
}

func (s *Server) Start() {
	if s.listen == "" {
		s.out.Info("Start: no listen address configured, httpapi disabled")
		return
	}
	s.server = &http.Server{
		Addr:         s.listen,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	libol.Go(func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.out.Error("Start: %s", err)
		}
	})
}

func (s *Server) Shutdown() {
	if s.server != nil {
		_ = s.server.Close()
	}
}
