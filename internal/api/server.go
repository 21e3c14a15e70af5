// Package api exposes the desk over HTTP and pushes desk events to websocket clients.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/trading-desk/internal/desk"
	"github.com/rxtech-lab/trading-desk/internal/logger"
	"go.uber.org/zap"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server serves the desk API.
type Server struct {
	desk   *desk.Desk
	log    *logger.Logger
	hub    *Hub
	router *mux.Router
	http   *http.Server
}

// NewServer wires the routes for d. The hub starts receiving desk events immediately;
// call Shutdown to detach it.
func NewServer(addr string, d *desk.Desk, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &Server{
		desk:   d,
		log:    log,
		hub:    NewHub(log),
		router: mux.NewRouter(),
	}

	s.hub.Attach(d)
	s.routes()

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleGetState).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handlePutState).Methods(http.MethodPut)
	api.HandleFunc("/portfolio", s.handlePortfolio).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/instruments", s.handleListInstruments).Methods(http.MethodGet)
	api.HandleFunc("/instruments", s.handleAddInstrument).Methods(http.MethodPost)
	api.HandleFunc("/instruments/{key}", s.handleGetInstrument).Methods(http.MethodGet)
	api.HandleFunc("/instruments/{key}", s.handleRemoveInstrument).Methods(http.MethodDelete)
	api.HandleFunc("/instruments/{key}/select", s.handleSelect).Methods(http.MethodPost)
	api.HandleFunc("/instruments/{key}/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	api.HandleFunc("/instruments/{key}/close", s.handleClose).Methods(http.MethodPost)
	api.HandleFunc("/ws", s.hub.HandleWS).Methods(http.MethodGet)
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("api server listening", zap.String("addr", s.http.Addr))

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown stops accepting requests and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()

	return s.http.Shutdown(ctx)
}
