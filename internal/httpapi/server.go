// Package httpapi implements the Control-Plane WebSocket (§4.6): static
// file serving with SPA fallback, the /api/sock session protocol, and the
// /metrics Prometheus endpoint.
package httpapi

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/state"
)

// ListenAddr is the fixed loopback address §4.6 names.
const ListenAddr = "127.0.0.1:8081"

// staticDir is served at "/", with an index.html SPA fallback for any path
// that isn't an existing file. A var, not a const, so tests can point it at
// a temp directory, mirroring ap.httpd's flag-configurable client-web dir.
var staticDir = "./static"

// Server is the HTTP+WebSocket listener. It is built once the App has been
// installed into the State Manager, since session dispatch reaches peer
// components through mgr.App().
type Server struct {
	mgr    *state.Manager
	logger *zap.SugaredLogger

	upgrader websocket.Upgrader
	http     *http.Server
}

// New constructs a Server bound to mgr; it does not listen until Serve is
// called.
func New(mgr *state.Manager, logger *zap.SugaredLogger) *Server {
	s := &Server{
		mgr:    mgr,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Loopback-only control plane; same-origin checks add nothing a
			// local attacker couldn't already do by hitting the socket
			// directly.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/sock", s.handleSocket)
	router.HandleFunc("/metrics", s.handleMetrics)
	router.PathPrefix("/").HandlerFunc(s.handleStatic)

	s.http = &http.Server{Addr: ListenAddr, Handler: router}
	return s
}

// Serve blocks serving HTTP until ctx is canceled, then shuts the listener
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("http api listening", "addr", ListenAddr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.Wrap(err, "httpapi: listen")
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		_ = s.http.Shutdown(context.Background())
		return nil
	case err := <-errCh:
		return err
	}
}

// handleStatic serves staticDir, falling back to staticDir/index.html for
// any path that doesn't resolve to a file, per §4.6's SPA fallback.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	requested := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
	if info, err := os.Stat(requested); err == nil && !info.IsDir() {
		http.ServeFile(w, r, requested)
		return
	}
	http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
}
