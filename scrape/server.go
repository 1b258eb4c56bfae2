// Package scrape implements the optional HTTP surface described in spec
// §4.6: /vars and /metrics return a plain-text rendering of the current
// Meters snapshot, any other path returns a single-line JSON object.
//
// net/http serves every connection on its own goroutine; there is no Go
// equivalent of tiny_http's single-threaded try_recv poll loop. The
// cooperative-evaluation contract (meters are only ever read and
// formatted on the Receiver's own goroutine) is preserved instead by
// having every HTTP handler enqueue a request and block on a
// per-request response channel. The Receiver's event loop services that
// channel as a third select case alongside its data and control queues,
// the same eager push-based wakeup as either of those, and is the only
// goroutine that ever touches Meters to render a body.
package scrape

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Request is one pending scrape request handed off from an HTTP handler
// goroutine to the Receiver's event loop.
type Request struct {
	Path     string
	Response chan<- string
}

// Server listens for HTTP scrape requests and forwards them onto a
// bounded channel for the Receiver to service inline.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	requests   chan Request
	logger     *zap.Logger
}

// New builds a Server bound to addr but does not start accepting
// connections yet; call Start for that. capacity bounds the in-flight
// handoff channel, matching the Receiver's general "producers never
// block the core" rule: a handler finding the hand-off channel full
// answers with an empty 200 at once, and one whose request is not
// serviced within handoffTimeout also answers with an empty 200, rather
// than hang its accept goroutine.
//
// telemetryHandler, if non-nil, is mounted at /internal/metrics,
// answering standard Prometheus exposition format directly (no
// hand-off: it reads its own private registry, never Meters) so the
// core's own operational counters never collide with the line-oriented
// /vars and /metrics rendering of the caller's channel statistics.
func New(addr string, capacity int, logger *zap.Logger, telemetryHandler http.Handler) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener: ln,
		requests: make(chan Request, capacity),
		logger:   logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/vars", s.handle).Methods(http.MethodGet)
	router.HandleFunc("/metrics", s.handle).Methods(http.MethodGet)
	if telemetryHandler != nil {
		router.Handle("/internal/metrics", telemetryHandler).Methods(http.MethodGet)
	}
	router.PathPrefix("/").HandlerFunc(s.handle).Methods(http.MethodGet)

	s.httpServer = &http.Server{Handler: router}
	return s, nil
}

// handoffTimeout bounds how long an HTTP handler goroutine waits for the
// Receiver loop to service its request before answering empty.
const handoffTimeout = 2 * time.Second

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	respCh := make(chan string, 1)
	select {
	case s.requests <- Request{Path: r.URL.Path, Response: respCh}:
	default:
		// hand-off queue full: answer empty rather than block the accept
		// goroutine, same "never block the core" contract as the data
		// queue.
		w.WriteHeader(http.StatusOK)
		return
	}

	select {
	case body := <-respCh:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	case <-time.After(handoffTimeout):
		w.WriteHeader(http.StatusOK)
	}
}

// Requests exposes the receive side of the hand-off channel for the
// Receiver's event loop.
func (s *Server) Requests() <-chan Request {
	return s.requests
}

// Addr returns the listener's bound address, useful when addr:0 was
// requested.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start begins accepting connections in the background. It never blocks
// the Receiver's goroutine: the accept loop and every request handler
// run on net/http's own goroutines.
func (s *Server) Start() {
	s.logger.Info("starting scrape listener", zap.String("addr", s.listener.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("scrape listener exited", zap.Error(err))
		}
	}()
}

// Stop shuts the listener down, letting in-flight requests drain.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
