// Package api exposes discovery, submission and inspection over HTTP and WebSocket.
package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
)

// Discoverer runs a discovery sweep, reporting each endpoint as it is found.
type Discoverer interface {
	DiscoverFunc(ctx context.Context, onFound func(datamodel.PrinterEndpoint)) ([]datamodel.PrinterEndpoint, error)
}

// Submitter performs one print submission.
type Submitter interface {
	Submit(ctx context.Context, req datamodel.PrintJobRequest) datamodel.PrintJobResult
}

// Inspector gathers diagnostics for one host.
type Inspector interface {
	Inspect(ctx context.Context, host string) (*datamodel.Inspection, error)
}

// Stager stores an upload for the duration of one request.
type Stager interface {
	Stage(r io.Reader, originalName string) (string, error)
	Remove(path string) error
}

// Server is the netprint HTTP server.
type Server struct {
	settings   datamodel.ServerSettings
	discoverer Discoverer
	submitter  Submitter
	inspector  Inspector
	stager     Stager

	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates a server and registers its routes.
func NewServer(settings datamodel.ServerSettings, d Discoverer, s Submitter, i Inspector, st Stager) *Server {
	srv := &Server{
		settings:   settings,
		discoverer: d,
		submitter:  s,
		inspector:  i,
		stager:     st,
		mux:        http.NewServeMux(),
	}
	srv.registerRoutes()
	srv.httpServer = &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/printers", s.handleListPrinters)
	s.mux.HandleFunc("GET /api/printers/stream", s.handlePrinterStream)
	s.mux.HandleFunc("GET /api/printers/inspect", s.handleInspect)
	s.mux.HandleFunc("POST /api/print", s.handlePrint)
}

// Handler returns the routes wrapped in the CORS and security-header middleware.
func (s *Server) Handler() http.Handler {
	return SecurityHeadersMiddleware(CORSMiddleware(s.settings.CORSOrigin, s.mux))
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on l and blocks until the server stops.
func (s *Server) Serve(l net.Listener) error {
	logger.Info("HTTP server starting", "addr", l.Addr().String())
	return s.httpServer.Serve(l)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
