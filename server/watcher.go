/*
DESCRIPTION
  watcher.go provides a tool for watching a file for changes and performing
  an action when the file is created, written, removed or renamed.

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
	"fmt"
	"io"
	"path/filepath"

	"github.com/ausocean/utils/logging"
	"github.com/fsnotify/fsnotify"
)

const watchedOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// watchFile watches file and calls onEvent with the operation whenever the
// file is created, written, removed or renamed. The directory is watched
// rather than the file so that atomic replacement and creation of a file
// that does not exist yet are both seen. See
// https://godocs.io/github.com/fsnotify/fsnotify#hdr-Watching_files
//
// The returned Closer stops the watcher.
func watchFile(file string, onEvent func(fsnotify.Op), l logging.Logger) (io.Closer, error) {
	file = filepath.Clean(file)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create watcher: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name == file && event.Op&watchedOps != 0 {
					l.Debug("file event", "file", file, "op", event.Op.String())
					onEvent(event.Op)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.Error("file watcher error", "error", err)
			}
		}
	}()

	err = watcher.Add(filepath.Dir(file))
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("could not add file %s to watcher: %w", file, err)
	}
	return watcher, nil
}
