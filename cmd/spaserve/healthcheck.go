/*
DESCRIPTION
  healthcheck.go checks the health endpoint of a running server, for use as a
  container health check.

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
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// healthURL returns the loopback URL of the health check at path p on port.
func healthURL(port int, p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "http://127.0.0.1:" + strconv.Itoa(port) + p
}

// checkHealth returns nil if a GET of url answers 200 within timeout.
func checkHealth(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	return nil
}
