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

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/ZaparooProject/clipbeam/pkg/config"
	"github.com/ZaparooProject/clipbeam/pkg/helpers"
	"github.com/ZaparooProject/clipbeam/pkg/readers"
	"github.com/ZaparooProject/clipbeam/pkg/service"
	"github.com/ZaparooProject/clipbeam/pkg/state"
	"github.com/rs/zerolog/log"
)

const scanQueueSize = 8

// WriteTag opens the configured readers and writes txt to the first one
// that can write, as a push message.
func WriteTag(ctx context.Context, env Env, txt string) error {
	scans := make(chan readers.Scan, scanQueueSize)
	rs := readers.OpenAll(env.Cfg, env.Factories, scans)
	defer readers.CloseAll(rs)

	// writes don't produce scans we care about, keep the readers unblocked
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-scans:
			case <-done:
				return
			}
		}
	}()

	w, err := readers.FirstWriter(rs)
	if err != nil {
		return fmt.Errorf("no writable reader: %w", err)
	}

	st := state.New(nil)
	st.SetText(txt)
	svc, err := service.New(env.Cfg, st, env.Clipboard)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	_, _ = fmt.Fprintf(env.Out, "Writing to %s...\n", w.Info())

	result := make(chan error, 1)
	go func() {
		result <- svc.Beam(w)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		// closing unblocks a reader waiting for a tag
		readers.CloseAll(rs)
		<-result
		return ctx.Err()
	}
}

// RunDaemon restores the saved text, opens every configured reader and
// bridges their scans into the clipboard until ctx is done. The text is
// saved after every change, and edits to the config file are reloaded.
func RunDaemon(ctx context.Context, env Env) error {
	st := state.New(nil)
	statePath := env.Paths.StateFile()

	err := st.Load(env.Fs, statePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Msg("no saved state")
	case err != nil:
		log.Warn().Err(err).Msg("failed to load saved state")
	default:
		log.Info().Msgf("restored state from %s", statePath)
	}

	unsubscribe := st.Subscribe(func(string) {
		if err := st.Save(env.Fs, statePath); err != nil {
			log.Error().Err(err).Msg("failed to save state")
		}
	})
	defer unsubscribe()

	svc, err := service.New(env.Cfg, st, env.Clipboard)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	watcher, err := env.Cfg.Watch(func(cfg *config.Instance) {
		helpers.SetDebugLogging(cfg.DebugLogging())
	})
	if err != nil {
		log.Warn().Err(err).Msg("config changes will apply after restart")
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing config watcher")
			}
		}()
	}

	if _, err := svc.HandleIntent(ctx, service.Intent{Action: service.ActionMain}); err != nil {
		log.Warn().Err(err).Msg("failed to load clipboard")
	}

	scans := make(chan readers.Scan, scanQueueSize)
	rs := readers.OpenAll(env.Cfg, env.Factories, scans)
	defer readers.CloseAll(rs)

	if len(rs) == 0 {
		log.Warn().Msg("no readers connected, waiting for shutdown")
	}
	log.Info().Msg("started in daemon mode")

	err = svc.Run(ctx, scans)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("stopping daemon")
		return nil
	}
	return err
}
