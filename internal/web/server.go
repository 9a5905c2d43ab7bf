package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServerOptions configures Server.
type ServerOptions struct {
	Addr         string
	TLSCertFile  string
	TLSKeyFile   string
	WriteTimeout time.Duration
	EnableHTTP2  bool
}

// Server wraps http.Server.
type Server struct {
	httpServer *http.Server
	opts       ServerOptions
}

// NewServer serves handler on opts.Addr. Without TLS, HTTP/2 cleartext is
// accepted when EnableHTTP2 is set.
func NewServer(opts ServerOptions, handler http.Handler) *Server {
	final := handler
	tls := opts.TLSCertFile != "" && opts.TLSKeyFile != ""
	if opts.EnableHTTP2 && !tls {
		final = h2c.NewHandler(handler, &http2.Server{})
	}
	write := opts.WriteTimeout
	if write <= 0 {
		write = 60 * time.Second
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           final,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       120 * time.Second,
	}
	if opts.EnableHTTP2 && tls {
		_ = http2.ConfigureServer(srv, &http2.Server{})
	}
	return &Server{httpServer: srv, opts: opts}
}

func (s *Server) Addr() string { return s.opts.Addr }

// Serve accepts on ln until Shutdown. A clean shutdown returns nil.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.opts.TLSCertFile != "" && s.opts.TLSKeyFile != "" {
		err = s.httpServer.ServeTLS(ln, s.opts.TLSCertFile, s.opts.TLSKeyFile)
	} else {
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
