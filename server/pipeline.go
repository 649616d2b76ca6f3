/*
DESCRIPTION
  pipeline.go provides an ordered list of request handling stages, each of
  which either completes a request or passes it on to the next stage.

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

	"github.com/gofiber/fiber/v2"
)

// Stage is a single step of request handling. Handle returns true if the
// response is complete and no further stages should run.
type Stage struct {
	Name   string
	Handle func(c *fiber.Ctx) (bool, error)
}

// Pipeline is an ordered list of stages.
type Pipeline []Stage

// Handler returns a fiber handler that runs the stages in order until one
// of them handles the request. Fiber errors are returned untouched so that
// their status codes reach the error handler. If no stage handles the
// request it is passed to the next fiber handler, which for an otherwise
// empty app is fiber's 404 response.
func (p Pipeline) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, s := range p {
			handled, err := s.Handle(c)
			if err != nil {
				var fe *fiber.Error
				if errors.As(err, &fe) {
					return err
				}
				return fmt.Errorf("%s stage: %w", s.Name, err)
			}
			if handled {
				return nil
			}
		}
		return c.Next()
	}
}

// Names returns the stage names in order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name
	}
	return names
}
