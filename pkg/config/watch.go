// Clipbeam
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Clipbeam.
//
// Clipbeam is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Clipbeam is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Clipbeam.  If not, see <http://www.gnu.org/licenses/>.


package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrWatchUnsupported = errors.New("config file is not on the OS filesystem")

// Watch reloads the config when its file is written or replaced, then calls
// onReload. The parent directory is watched so editors that save through a
// rename are picked up. Close the returned watcher to stop.
func (c *Instance) Watch(onReload func(*Instance)) (*fsnotify.Watcher, error) {
	if _, ok := c.fs.(*afero.OsFs); !ok {
		return nil, ErrWatchUnsupported
	}
	if c.cfgPath == "" {
		return nil, ErrNoConfigPath
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	cfgPath := filepath.Clean(c.cfgPath)
	if err := watcher.Add(filepath.Dir(cfgPath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing config watcher")
		}
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != cfgPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := c.Load(); err != nil {
					// keep the last good values
					log.Error().Err(err).Msg("failed to reload config")
					continue
				}
				log.Info().Msgf("reloaded config from %s", cfgPath)
				if onReload != nil {
					onReload(c)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("error in config watcher")
			}
		}
	}()

	log.Debug().Msgf("watching config file: %s", cfgPath)
	return watcher, nil
}
