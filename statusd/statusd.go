// Package statusd serves a read-only HTTP surface over the node's
// current bootstrap progress: a Prometheus /metrics endpoint and a
// plain-JSON /status endpoint for operators without a scrape pipeline.
package statusd

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tolelom/latticenode/ascending"
	"github.com/tolelom/latticenode/metrics"
)

// Server is a read-only status/metrics HTTP server, matching the
// teacher's rpc.Server construction shape (explicit http.Server
// timeouts, synchronous bind in Start, graceful Stop).
type Server struct {
	addr string
	srv  *http.Server
	ln   net.Listener
}

// NewServer builds a Server on addr exposing /metrics (the given
// registry, or the global default if reg is nil) and /status (a JSON
// snapshot pulled fresh from src on every request).
func NewServer(addr string, reg *prometheus.Registry, src metrics.StatsSource) *Server {
	mux := http.NewServeMux()

	var metricsHandler http.Handler
	if reg != nil {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	} else {
		metricsHandler = promhttp.Handler()
	}
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		serveStatus(w, r, src.Stats)
	})

	s := &Server{addr: addr}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

type statusResponse struct {
	Requests  int64 `json:"requests"`
	Forwarded int64 `json:"forwarded"`
	PoolSize  int   `json:"pool_size"`
}

func serveStatus(w http.ResponseWriter, r *http.Request, read func() ascending.Stats) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}
	s := read()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statusResponse{Requests: s.Requests, Forwarded: s.Forwarded, PoolSize: s.PoolSize}); err != nil {
		log.Printf("[statusd] write response: %v", err)
	}
}

// Start binds the port synchronously, then serves in a background
// goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[statusd] server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the listener's address. Useful when Start was called
// with an addr ending in ":0".
func (s *Server) Addr() net.Addr {
	if s.ln != nil {
		return s.ln.Addr()
	}
	return nil
}

// Stop gracefully shuts down the server, waiting up to 5 seconds for any
// in-flight request to finish.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
