package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the /metrics endpoint for a registry. It runs in its
// own goroutine outside the engine's tick loop.
type Server struct {
	reg    *prometheus.Registry
	server *http.Server
	mux    sync.Mutex
}

// NewServer returns a server exposing reg.
func NewServer(reg *prometheus.Registry) *Server {
	return &Server{reg: reg}
}

func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	s.mux.Lock()
	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	s.mux.Unlock()

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}
