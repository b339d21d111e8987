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

// Package pcsc reads and writes NFC Forum Type 2 tags (NTAG, Ultralight)
// through a PC/SC reader such as the ACR122U.
package pcsc

import (
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ZaparooProject/clipbeam/pkg/config"
	"github.com/ZaparooProject/clipbeam/pkg/helpers/syncutil"
	"github.com/ZaparooProject/clipbeam/pkg/readers"
	"github.com/ebfe/scard"
	"github.com/rs/zerolog/log"
)

const (
	pollTimeout         = 250 * time.Millisecond
	DefaultWriteTimeout = 30 * time.Second
)

type writeRequest struct {
	result  chan error
	message []byte
}

type Reader struct {
	ctx            ScardContext
	cfg            *config.Instance
	contextFactory ScardContextFactory
	writeCh        chan writeRequest
	done           chan struct{}
	device         config.ReadersConnect
	name           string
	wg             sync.WaitGroup
	writeTimeout   time.Duration
	mu             syncutil.RWMutex
	polling        bool
}

func NewReader(cfg *config.Instance) *Reader {
	return &Reader{
		cfg:            cfg,
		contextFactory: DefaultScardContextFactory,
		writeTimeout:   DefaultWriteTimeout,
	}
}

// NewFactory adapts NewReader to readers.Factory.
func NewFactory() readers.Factory {
	return func(cfg *config.Instance) readers.Reader {
		return NewReader(cfg)
	}
}

func (*Reader) Metadata() readers.DriverMetadata {
	return readers.DriverMetadata{
		ID:          config.DriverPCSC,
		Description: "NFC Type 2 tags via PC/SC",
		CanWrite:    true,
	}
}

func (*Reader) IDs() []string {
	return []string{config.DriverPCSC}
}

// Open starts polling the named PC/SC reader. An empty path selects the
// first reader the system reports.
func (r *Reader) Open(device config.ReadersConnect, scans chan<- readers.Scan) error {
	if !readers.SupportsDriver(r, device.Driver) {
		return fmt.Errorf("%w: %s", readers.ErrInvalidDriver, device.Driver)
	}

	if r.ctx == nil {
		ctx, err := r.contextFactory()
		if err != nil {
			return fmt.Errorf("failed to establish scard context: %w", err)
		}
		r.ctx = ctx
	}

	rls, err := r.ctx.ListReaders()
	if err != nil {
		return fmt.Errorf("failed to list scard readers: %w", err)
	}

	name := device.Path
	switch {
	case name == "" && len(rls) > 0:
		name = rls[0]
	case !slices.Contains(rls, name):
		return fmt.Errorf("reader not found: %q", device.Path)
	}

	done := make(chan struct{})

	r.mu.Lock()
	r.device = device
	r.name = name
	r.writeCh = make(chan writeRequest)
	r.done = done
	r.polling = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.poll(r.ctx, name, done, scans)

	log.Info().Msgf("pcsc: polling %s", name)
	return nil
}

func (r *Reader) poll(ctx ScardContext, name string, done <-chan struct{}, scans chan<- readers.Scan) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		r.polling = false
		r.mu.Unlock()
	}()

	for {
		select {
		case <-done:
			return
		default:
		}

		rls, err := ctx.ListReaders()
		if err != nil || !slices.Contains(rls, name) {
			log.Warn().Err(err).Msgf("pcsc: reader %s went away", name)
			return
		}

		rs := []scard.ReaderState{{
			Reader:       name,
			CurrentState: scard.StateUnaware,
		}}
		if err := ctx.GetStatusChange(rs, pollTimeout); err != nil {
			log.Trace().Err(err).Msg("pcsc: status change")
			continue
		}
		if rs[0].EventState&scard.StatePresent == 0 {
			continue
		}

		r.handleTag(ctx, name, done, scans)
		waitForRemoval(ctx, name, done)
	}
}

func (r *Reader) handleTag(ctx ScardContext, name string, done <-chan struct{}, scans chan<- readers.Scan) {
	card, err := ctx.Connect(name, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		log.Debug().Err(err).Msg("pcsc: connect to tag")
		return
	}
	defer func() {
		if err := card.Disconnect(scard.ResetCard); err != nil {
			log.Debug().Err(err).Msg("pcsc: disconnect tag")
		}
	}()

	uid, err := readUID(card)
	if err != nil {
		log.Debug().Err(err).Msg("pcsc: read uid")
		return
	}
	uidHex := hex.EncodeToString(uid)
	log.Debug().Msgf("pcsc: tag %s present", uidHex)

	select {
	case req := <-r.writeCh:
		err := writeNDEF(card, req.message)
		if err != nil {
			log.Error().Err(err).Msgf("pcsc: write to tag %s", uidHex)
		} else {
			log.Info().Msgf("pcsc: wrote %d bytes to tag %s", len(req.message), uidHex)
		}
		req.result <- err
		return
	default:
	}

	scan := readers.Scan{
		Source: r.Device(),
		UID:    uidHex,
	}
	msg, err := readNDEF(card)
	if err != nil {
		scan.Error = err
	} else {
		scan.Message = msg
	}

	select {
	case scans <- scan:
	case <-done:
	}
}

func waitForRemoval(ctx ScardContext, name string, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		rs := []scard.ReaderState{{
			Reader:       name,
			CurrentState: scard.StatePresent,
		}}
		if err := ctx.GetStatusChange(rs, pollTimeout); err != nil {
			log.Trace().Err(err).Msg("pcsc: status change")
			return
		}
		if rs[0].EventState&scard.StatePresent == 0 {
			return
		}
	}
}

// Close stops polling and releases the PC/SC context.
func (r *Reader) Close() error {
	r.mu.Lock()
	done := r.done
	r.done = nil
	r.mu.Unlock()

	if done != nil {
		close(done)
	}

	ctx := r.ctx
	if ctx == nil {
		return nil
	}
	if err := ctx.Cancel(); err != nil {
		log.Debug().Err(err).Msg("pcsc: cancel context")
	}
	r.wg.Wait()

	r.ctx = nil
	if err := ctx.Release(); err != nil {
		return fmt.Errorf("failed to release scard context: %w", err)
	}
	return nil
}

func (r *Reader) Device() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.device.ConnectionString()
}

func (r *Reader) Connected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.polling
}

func (r *Reader) Info() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return "PC/SC: " + r.name
}

// Write waits for the next tag to be presented and writes message to it.
func (r *Reader) Write(message []byte) error {
	r.mu.RLock()
	writeCh := r.writeCh
	done := r.done
	polling := r.polling
	r.mu.RUnlock()

	if !polling || done == nil {
		return readers.ErrNotConnected
	}

	req := writeRequest{
		message: message,
		result:  make(chan error, 1),
	}

	timer := time.NewTimer(r.writeTimeout)
	defer timer.Stop()

	log.Info().Msg("pcsc: waiting for tag to write")
	select {
	case writeCh <- req:
	case <-timer.C:
		return readers.ErrWriteTimeout
	case <-done:
		return readers.ErrNotConnected
	}

	select {
	case err := <-req.result:
		return err
	case <-done:
		return readers.ErrNotConnected
	}
}
