/*
DESCRIPTION
  notifier.go tells systemd when the server is ready and keeps a systemd
  watchdog fed while the server answers its health check.

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
	"fmt"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/coreos/go-systemd/daemon"
)

// notifySystemd sends READY to systemd and, if a watchdog is configured,
// sends WATCHDOG at half the watchdog interval for as long as health returns
// nil. STOPPING is sent when ctx is done. When not run by systemd it
// returns immediately.
func notifySystemd(ctx context.Context, health func() error, log logging.Logger) error {
	const clearEnvVars = false
	ok, err := daemon.SdNotify(clearEnvVars, daemon.SdNotifyReady)
	if err != nil {
		return fmt.Errorf("could not notify systemd: %w", err)
	}
	if !ok {
		log.Debug("systemd notification not supported")
		return nil
	}

	interval, err := daemon.SdWatchdogEnabled(clearEnvVars)
	if err != nil {
		return fmt.Errorf("could not get watchdog interval: %w", err)
	}
	if interval == 0 {
		log.Debug("systemd watchdog not enabled")
		<-ctx.Done()
		daemon.SdNotify(clearEnvVars, daemon.SdNotifyStopping)
		return nil
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			daemon.SdNotify(clearEnvVars, daemon.SdNotifyStopping)
			return nil
		case <-ticker.C:
		}

		// Let systemd restart us if we stop answering.
		err := health()
		if err != nil {
			log.Warning("health check failed, not notifying watchdog", "error", err)
			continue
		}

		log.Debug("notifying watchdog")
		_, err = daemon.SdNotify(clearEnvVars, daemon.SdNotifyWatchdog)
		if err != nil {
			log.Error("could not notify watchdog", "error", err)
		}
	}
}
