/*
DESCRIPTION
  config.go provides the configuration of a static single page application
  server and helpers for deriving it from the environment.

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

package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"
)

// Server defaults.
const (
	DefaultPort       = 8080
	DefaultFallback   = "index.html"
	DefaultHealthPath = "/health"
	DefaultRootName   = "public"
)

// ErrNotDir is returned when the configured static root is not a directory.
var ErrNotDir = errors.New("static root is not a directory")

// Config holds the settings of a Server.
type Config struct {
	Host       string        // Host to bind, empty for all interfaces.
	Port       int           // TCP port to bind, 0 for an ephemeral port.
	Root       string        // Static root directory.
	Fallback   string        // Fallback document, relative to Root.
	HealthPath string        // Path of the health check.
	MaxAge     time.Duration // Cache-Control max-age for files served from Root.
}

// PortFromEnv returns the port held by the environment value v. If v is
// empty or is not a valid TCP port, DefaultPort is returned.
func PortFromEnv(v string) int {
	if v == "" {
		return DefaultPort
	}
	p, err := strconv.Atoi(v)
	if err != nil || p < 0 || p > 65535 {
		return DefaultPort
	}
	return p
}

// DefaultRoot returns the public directory located alongside the running
// executable. If there is no such directory, as when running under go run,
// the public directory of the working directory is returned instead when it
// exists.
func DefaultRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("could not get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("could not resolve executable path: %w", err)
	}
	root := filepath.Join(filepath.Dir(exe), DefaultRootName)
	if isDir(root) {
		return root, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return root, nil
	}
	if local := filepath.Join(wd, DefaultRootName); isDir(local) {
		return local, nil
	}
	return root, nil
}

func isDir(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && fi.IsDir()
}

// normalise fills in defaults and makes the static root absolute. A root
// that does not exist is allowed, since files may be deployed after the
// server starts, but a root that exists must be a directory.
func (c *Config) normalise() error {
	if c.Root == "" {
		return errors.New("no static root")
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("could not get absolute path of %s: %w", c.Root, err)
	}
	fi, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("could not stat static root: %w", err)
	case !fi.IsDir():
		return fmt.Errorf("%s: %w", root, ErrNotDir)
	}
	c.Root = root

	if c.Fallback == "" {
		c.Fallback = DefaultFallback
	}
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
	if c.HealthPath[0] != '/' {
		c.HealthPath = "/" + c.HealthPath
	}
	if c.MaxAge < 0 {
		c.MaxAge = 0
	}
	return nil
}

// fallbackPath returns the absolute path of the fallback document.
func (c *Config) fallbackPath() string {
	return filepath.Join(c.Root, filepath.FromSlash(c.Fallback))
}

// fallbackName returns the fallback document as a slash separated path
// relative to the static root.
func (c *Config) fallbackName() string {
	return path.Clean("/" + filepath.ToSlash(c.Fallback))
}

// addr returns the address to listen on.
func (c *Config) addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
