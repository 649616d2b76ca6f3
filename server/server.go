/*
DESCRIPTION
  server.go provides a static file server for single page applications. It
  adds permissive CORS headers to every response, answers a health check,
  serves files from a static root and falls back to a single HTML document
  for unmatched routes so that client side routing can take over.

AUTHORS
  The AusOcean developers

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  It is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

// Package server provides a static single page application server.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/ausocean/utils/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Lifecycle errors.
var (
	ErrStarted    = errors.New("server already started")
	ErrNotStarted = errors.New("server not started")
)

// Server is a static single page application server. Create one with New.
type Server struct {
	cfg      Config
	log      logging.Logger
	app      *fiber.App
	pipeline Pipeline

	mu       sync.Mutex
	ln       net.Listener
	watcher  io.Closer
	done     chan struct{}
	serveErr error
}

// New returns a Server for the given configuration. A static root that
// exists must be a directory. A missing static root or fallback document is
// only warned about, since either may be deployed after the server starts;
// until then the health check is still answered and other routes 404.
func New(cfg Config, log logging.Logger) (*Server, error) {
	err := cfg.normalise()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{cfg: cfg, log: log}
	s.pipeline = newPipeline(&s.cfg)

	s.app = fiber.New(fiber.Config{
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})

	// Recover from panics.
	s.app.Use(recover.New())

	// Log requests; only emitted at debug level.
	s.app.Use(func(c *fiber.Ctx) error {
		s.log.Debug("request", "method", c.Method(), "path", c.Path())
		return c.Next()
	})

	s.app.Use(s.pipeline.Handler())

	fb := s.cfg.fallbackPath()
	if _, err := os.Stat(s.cfg.Root); err != nil {
		s.log.Warning("static root unavailable", "root", s.cfg.Root, "error", err)
	} else if _, err := os.Stat(fb); err != nil {
		s.log.Warning("fallback document unavailable", "path", fb, "error", err)
	}

	s.log.Debug("created server", "root", s.cfg.Root, "fallback", fb, "stages", s.pipeline.Names())
	return s, nil
}

// Handler returns the underlying fiber app, for example to call its Test
// method.
func (s *Server) Handler() *fiber.App {
	return s.app
}

// Config returns the normalised configuration of the server.
func (s *Server) Config() Config {
	return s.cfg
}

// Start binds the configured address and begins serving in the background.
// A bind failure is logged and returned; there is no retry.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return ErrStarted
	}

	addr := s.cfg.addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Error("server error", "addr", addr, "error", err)
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}
	s.ln = ln
	s.done = make(chan struct{})

	w, err := watchFile(s.cfg.fallbackPath(), s.onFallbackEvent, s.log)
	if err != nil {
		s.log.Warning("could not watch fallback document", "error", err)
	} else {
		s.watcher = w
	}

	go func() {
		s.serveErr = s.app.Listener(ln)
		close(s.done)
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	s.log.Info(fmt.Sprintf("server running on port %d", port), "addr", ln.Addr().String(), "root", s.cfg.Root)
	return nil
}

// Addr returns the bound address, or nil if the server has not started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Wait blocks until the server stops serving and returns the serve error,
// which is nil after a clean Stop.
func (s *Server) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return ErrNotStarted
	}
	<-done
	return s.serveErr
}

// Stop gracefully shuts the server down, waiting for open connections until
// ctx is done. Stopping a server that never started is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	ln, w := s.ln, s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		w.Close()
	}
	if ln == nil {
		return nil
	}

	err := s.app.ShutdownWithContext(ctx)

	// Covers a Stop that races the serving goroutine; the error from an
	// already closed listener is expected.
	ln.Close()

	if err != nil {
		return fmt.Errorf("could not shut down: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// onFallbackEvent reports changes in the availability of the fallback
// document.
func (s *Server) onFallbackEvent(op fsnotify.Op) {
	fb := s.cfg.fallbackPath()
	switch {
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		s.log.Warning("fallback document removed, unmatched routes will 404", "path", fb)
	case op&fsnotify.Create != 0:
		s.log.Info("fallback document available", "path", fb)
	}
}

// errorHandler logs err and writes fiber's default error response. Headers
// already set by the pipeline, such as CORS headers, are kept.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if code >= fiber.StatusInternalServerError {
		s.log.Error("request error", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
	} else {
		s.log.Warning("request error", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
	}
	return fiber.DefaultErrorHandler(c, err)
}
