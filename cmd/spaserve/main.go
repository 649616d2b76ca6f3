/*
DESCRIPTION
  spaserve serves a single page application: static files from a directory,
  a health check, permissive CORS headers and an index.html fallback for
  client side routes.

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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ausocean/utils/logging"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/spaserve/server"
)

// Logging configuration.
const (
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = false
)

// Time allowed for open connections to finish on shutdown.
const shutdownTimeout = 10 * time.Second

// Time allowed for a health check.
const checkTimeout = 2 * time.Second

func main() {
	defaultPort := server.PortFromEnv(os.Getenv("PORT"))
	defaultRoot, err := server.DefaultRoot()
	if err != nil {
		defaultRoot = server.DefaultRootName
	}

	var (
		cfg     server.Config
		debug   bool
		check   bool
		logFile string
	)
	flag.StringVar(&cfg.Host, "host", "", "Host to listen on, empty for all interfaces.")
	flag.IntVar(&cfg.Port, "port", defaultPort, "Port to listen on, defaults to $PORT or 8080.")
	flag.StringVar(&cfg.Root, "root", defaultRoot, "Directory of static files. Defaults to public next to the executable, or ./public if that does not exist.")
	flag.StringVar(&cfg.Fallback, "fallback", server.DefaultFallback, "Document served for unmatched routes, relative to root.")
	flag.StringVar(&cfg.HealthPath, "health", server.DefaultHealthPath, "Path of the health check.")
	flag.DurationVar(&cfg.MaxAge, "max-age", 0, "Cache-Control max-age of served files.")
	flag.BoolVar(&debug, "debug", false, "Run in debug mode.")
	flag.StringVar(&logFile, "log-file", "", "Also log to this file, rotating it.")
	flag.BoolVar(&check, "check", false, "Check the health of a running server and exit.")
	flag.Parse()

	if check {
		err := checkHealth(healthURL(cfg.Port, cfg.HealthPath), checkTimeout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	log := newLogger(debug, logFile)

	s, err := server.New(cfg, log)
	if err != nil {
		log.Fatal("could not create server", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, s, log)
	if err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// newLogger returns a JSON logger writing to stderr and, if logFile is set,
// to a rotating log file.
func newLogger(debug bool, logFile string) logging.Logger {
	var level int8 = logging.Info
	if debug {
		level = logging.Debug
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		fileLog := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		}
		w = io.MultiWriter(os.Stderr, fileLog)
	}
	return logging.New(level, w, logSuppress)
}

// run starts s and serves until ctx is done, then stops it gracefully.
// If the address cannot be bound the failure is logged and run waits for
// ctx without serving; the process is not exited.
func run(ctx context.Context, s *server.Server, log logging.Logger) error {
	err := s.Start()
	if err != nil {
		log.Warning("not serving, waiting for termination")
		<-ctx.Done()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(s.Wait)
	g.Go(func() error {
		url := healthURL(s.Addr().(*net.TCPAddr).Port, s.Config().HealthPath)
		health := func() error { return checkHealth(url, checkTimeout) }
		return notifySystemd(ctx, health, log)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(sctx)
	})
	return g.Wait()
}
