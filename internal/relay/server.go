package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server exposes the relay over HTTP: a websocket endpoint for clients and a
// health probe.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      *slog.Logger
	http     *http.Server
	ln       net.Listener
}

// NewServer creates a relay server listening on addr when Run is called.
func NewServer(addr string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		hub: NewHub(log),
		log: log,
		upgrader: websocket.Upgrader{
			// The relay fronts browser and native clients alike.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.http = &http.Server{Addr: addr, Handler: s.Handler()}
	return s
}

// Handler returns the relay's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// Listen binds the server's address. Calling it before Run lets the caller
// read Addr when the configured address has port 0.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listen address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.http.Addr
}

// Run serves until the context is canceled, then signals a forced restart to
// every connected client and shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("relay listening", "addr", s.Addr())
		if err := s.http.Serve(s.ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := newClient(s.hub, conn, s.log)
	go c.writePump()
	go c.readPump()
}

// decodeData unmarshals an envelope payload.
func decodeData(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}
