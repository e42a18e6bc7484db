package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// livenessBody is returned for every GET outside /metrics.
const livenessBody = "ok"

// Server serves liveness and Prometheus metrics.
type Server struct {
	server *http.Server
	log    logrus.FieldLogger
}

// NewServer creates a server on addr. metrics may be nil to disable /metrics.
func NewServer(addr string, metrics http.Handler, log logrus.FieldLogger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      NewMux(metrics),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  15 * time.Second,
		},
		log: log,
	}
}

// NewMux builds the liveness routes. Any GET path answers 200 "ok"; only
// reachability is reported, not pipeline health.
func NewMux(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, livenessBody)
	})
	return mux
}

// Start binds the listener and serves in the background.
// Bind errors are returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}

	s.log.WithField("addr", ln.Addr().String()).Info("Starting HTTP server (liveness + metrics)")
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("HTTP server failed")
		}
	}()
	return nil
}

// Shutdown stops accepting connections and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
