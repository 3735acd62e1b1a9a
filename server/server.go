// Package server makes a simulated reader reachable over the network: an HTTP
// API to drive it, a WebSocket stream of its events and an mDNS announcement
// so that clients can find it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/callebjorkell/ic-card-reader/nfc"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Reader *nfc.Session
	// Addr is the listen address, e.g. ":18080".
	Addr string
	// Announce registers the reader over mDNS once the server listens.
	Announce bool
	// OperationTimeout bounds every reader operation started through the API.
	OperationTimeout time.Duration
}

type Server struct {
	config     Config
	router     chi.Router
	clients    *clientManager
	upgrader   websocket.Upgrader
	stopEvents func()
	register   registerFunc

	mu         sync.Mutex
	httpServer *http.Server
	mdnsServer announcement
	stopped    bool
}

func New(config Config) *Server {
	if config.OperationTimeout <= 0 {
		config.OperationTimeout = 10 * time.Second
	}
	s := &Server{
		config:   config,
		clients:  newClientManager(),
		register: registerZeroconf,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.stopEvents = config.Reader.AddListener(s.clients.broadcast)
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogging)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/ws", s.handleWebSocket)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.operationTimeout)
		r.Get("/status", s.handleStatus)
		r.Get("/cards", s.handleCards)
		r.Post("/connect", s.handleConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Post("/cards/{id}/insert", s.handleInsert)

		r.Route("/card", func(r chi.Router) {
			r.Get("/", s.handleReadCard)
			r.Post("/remove", s.handleRemove)
			r.Put("/properties/{key}", s.handleWriteProperty)
			r.Post("/authenticate", s.handleAuthenticate)
		})

		r.Route("/mynumber", func(r chi.Router) {
			r.Get("/", s.handleReadMyNumber)
			r.Post("/pin", s.handleVerifyPIN)
			r.Get("/certificate", s.handleCertificate)
		})
	})
	return r
}

// Start listens on the configured address and blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("could not listen on %v: %w", s.config.Addr, err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{Handler: s.router}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ln.Close()
	}
	s.httpServer = srv
	s.mu.Unlock()

	if s.config.Announce {
		if err := s.announce(portOf(ln.Addr())); err != nil {
			logrus.Warnf("Reader will not be discoverable: %v", err)
		}
	}

	logrus.Infof("Serving %v on %v", s.config.Reader.Name(), ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop withdraws the announcement, closes all clients and shuts the HTTP server down.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true

	if s.mdnsServer != nil {
		s.mdnsServer.Shutdown()
		s.mdnsServer = nil
		logrus.Debugln("mDNS service stopped")
	}
	s.stopEvents()
	s.clients.closeAll()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logrus.Warnf("Server shutdown error: %v", err)
		}
		s.httpServer = nil
	}
}

func (s *Server) operationTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.OperationTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
			"request":  chiMiddleware.GetReqID(r.Context()),
		}).Debug("Handled request")
	})
}

func portOf(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(port)
	return p
}
