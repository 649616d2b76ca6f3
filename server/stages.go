/*
DESCRIPTION
  stages.go provides the request handling stages of the server: CORS headers,
  preflight short circuit, health check, static files and the single page
  application fallback.

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
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// CORS header values set on every response.
const (
	CORSAllowOrigin  = "*"
	CORSAllowHeaders = "Origin, X-Requested-With, Content-Type, Accept"
	CORSAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
)

// indexName is the file served for requests that resolve to a directory.
const indexName = "index.html"

// newPipeline returns the stages of the server in the order they run.
func newPipeline(cfg *Config) Pipeline {
	files := newFileServer(cfg.Root, cfg.MaxAge)
	return Pipeline{
		corsStage(),
		preflightStage(),
		healthStage(cfg.HealthPath),
		staticStage(cfg.Root, files),
		fallbackStage(cfg.fallbackName(), files),
	}
}

// corsStage sets permissive CORS headers and always passes.
func corsStage() Stage {
	return Stage{
		Name: "cors",
		Handle: func(c *fiber.Ctx) (bool, error) {
			c.Set(fiber.HeaderAccessControlAllowOrigin, CORSAllowOrigin)
			c.Set(fiber.HeaderAccessControlAllowHeaders, CORSAllowHeaders)
			c.Set(fiber.HeaderAccessControlAllowMethods, CORSAllowMethods)
			return false, nil
		},
	}
}

// preflightStage answers every OPTIONS request with an empty 200.
func preflightStage() Stage {
	return Stage{
		Name: "preflight",
		Handle: func(c *fiber.Ctx) (bool, error) {
			if c.Method() != fiber.MethodOptions {
				return false, nil
			}
			// SendStatus would write the status text as the body.
			c.Status(fiber.StatusOK)
			return true, nil
		},
	}
}

// healthStage answers the health check at p.
func healthStage(p string) Stage {
	return Stage{
		Name: "health",
		Handle: func(c *fiber.Ctx) (bool, error) {
			if !isGetOrHead(c) {
				return false, nil
			}
			reqPath := requestPath(c)
			if len(reqPath) > 1 {
				reqPath = strings.TrimSuffix(reqPath, "/")
			}
			if !strings.EqualFold(reqPath, p) {
				return false, nil
			}
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return true, c.Status(fiber.StatusOK).SendString("OK")
		},
	}
}

// staticStage serves regular files found under root.
func staticStage(root string, files *fileServer) Stage {
	return Stage{
		Name: "static",
		Handle: func(c *fiber.Ctx) (bool, error) {
			if !isGetOrHead(c) {
				return false, nil
			}
			name, ok := resolve(root, requestPath(c))
			if !ok {
				return false, nil
			}
			return true, files.send(c, name)
		},
	}
}

// fallbackStage serves the document at name, relative to the static root,
// for any GET or HEAD request. Other methods pass and so end up with fiber's
// 404.
func fallbackStage(name string, files *fileServer) Stage {
	return Stage{
		Name: "fallback",
		Handle: func(c *fiber.Ctx) (bool, error) {
			if !isGetOrHead(c) {
				return false, nil
			}
			err := files.send(c, name)
			if err != nil {
				return true, err
			}
			c.Type("html", "utf-8")
			return true, nil
		},
	}
}

// resolve maps the request path reqPath onto a regular file under root and
// returns its slash separated path relative to root. Paths cannot escape
// root, dotfiles are ignored and a directory resolves to its index file.
func resolve(root, reqPath string) (string, bool) {
	p := path.Clean("/" + reqPath)
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", false
		}
	}

	fi, err := os.Stat(filepath.Join(root, filepath.FromSlash(p)))
	if err != nil {
		return "", false
	}
	if fi.IsDir() {
		p = path.Join(p, indexName)
		fi, err = os.Stat(filepath.Join(root, filepath.FromSlash(p)))
		if err != nil {
			return "", false
		}
	}
	if !fi.Mode().IsRegular() {
		return "", false
	}
	return p, true
}

// fileKey is the request user value holding the file to be sent.
const fileKey = "spaserve.file"

// fileServer sends files from the static root. Files are opened on every
// request, so a file changed or removed on disk is seen straight away.
type fileServer struct {
	handler      fasthttp.RequestHandler
	cacheControl string
}

func newFileServer(root string, maxAge time.Duration) *fileServer {
	fs := &fasthttp.FS{
		Root:            root,
		AcceptByteRange: true,
		SkipCache:       true,

		// The name has already been resolved and must not be parsed again as
		// a URI, otherwise names holding '%' or '?' are not found.
		PathRewrite: func(ctx *fasthttp.RequestCtx) []byte {
			name, _ := ctx.UserValue(fileKey).(string)
			return []byte(name)
		},
		PathNotFound: func(ctx *fasthttp.RequestCtx) {},
	}
	return &fileServer{
		handler:      fs.NewRequestHandler(),
		cacheControl: "public, max-age=" + strconv.Itoa(int(maxAge/time.Second)),
	}
}

// send sends the file at name, a slash separated path relative to the static
// root, with a public Cache-Control header. Conditional and range requests
// are answered from the file's modification time and size. Failures are
// returned as fiber errors so that no file system detail reaches the client.
func (f *fileServer) send(c *fiber.Ctx, name string) error {
	ctx := c.Context()
	ctx.SetUserValue(fileKey, name)
	f.handler(ctx)

	switch status := c.Response().StatusCode(); status {
	case fiber.StatusOK, fiber.StatusPartialContent, fiber.StatusNotModified:
	case fiber.StatusNotFound:
		return fiber.ErrNotFound
	default:
		return fiber.NewError(status)
	}
	c.Set(fiber.HeaderCacheControl, f.cacheControl)
	return nil
}

// requestPath returns the decoded and normalised path of the request.
func requestPath(c *fiber.Ctx) string {
	return string(c.Context().Path())
}

func isGetOrHead(c *fiber.Ctx) bool {
	m := c.Method()
	return m == fiber.MethodGet || m == fiber.MethodHead
}
