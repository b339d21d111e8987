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

package readers

import (
	"errors"
	"slices"
	"strings"

	"github.com/ZaparooProject/clipbeam/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidDriver     = errors.New("invalid reader id")
	ErrNotConnected      = errors.New("reader not connected")
	ErrWriteNotSupported = errors.New("writing not supported on this reader")
	ErrWriteTimeout      = errors.New("write timed out")
)

type DriverMetadata struct {
	ID          string
	Description string
	CanWrite    bool
}

// Scan is a single NDEF message delivered by a reader. Message holds the raw
// NDEF message without TLV framing.
type Scan struct {
	Error   error
	Source  string
	UID     string
	Message []byte
}

type Reader interface {
	// Metadata returns static information about this driver.
	Metadata() DriverMetadata
	// IDs returns the driver names accepted in the config.
	IDs() []string
	// Open connects to the device and starts delivering scans to the
	// channel until Close is called.
	Open(config.ReadersConnect, chan<- Scan) error
	// Close stops the reader and releases the device.
	Close() error
	// Device returns the connection string the reader was opened with.
	Device() string
	Connected() bool
	Info() string
	// Write sends a raw NDEF message to the device. Blocks until it has been
	// written or the write times out.
	Write(message []byte) error
}

// Factory builds an unopened reader.
type Factory func(cfg *config.Instance) Reader

// SupportsDriver reports whether r accepts the given driver name.
func SupportsDriver(r Reader, driver string) bool {
	return slices.Contains(r.IDs(), strings.ToLower(driver))
}

// OpenAll opens every enabled connection in the config with the first
// factory whose reader accepts its driver. Connections that fail to open
// are logged and skipped.
func OpenAll(cfg *config.Instance, factories []Factory, scans chan<- Scan) []Reader {
	var opened []Reader
	for _, rc := range cfg.Readers().Connect {
		if !rc.IsEnabled() {
			log.Debug().Msgf("skipping disabled reader: %s", rc.ConnectionString())
			continue
		}

		r := newFor(cfg, factories, rc.Driver)
		if r == nil {
			log.Warn().Msgf("no driver for reader: %s", rc.ConnectionString())
			continue
		}

		if err := r.Open(rc, scans); err != nil {
			log.Error().Err(err).Msgf("failed to open reader: %s", rc.ConnectionString())
			continue
		}

		log.Info().Msgf("opened reader: %s", r.Info())
		opened = append(opened, r)
	}
	return opened
}

// CloseAll closes every reader, logging failures.
func CloseAll(rs []Reader) {
	for _, r := range rs {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Msgf("error closing reader: %s", r.Device())
		}
	}
}

// FirstWriter returns the first connected reader that can write.
func FirstWriter(rs []Reader) (Reader, error) {
	for _, r := range rs {
		if r.Metadata().CanWrite && r.Connected() {
			return r, nil
		}
	}
	return nil, ErrNotConnected
}

func newFor(cfg *config.Instance, factories []Factory, driver string) Reader {
	for _, f := range factories {
		r := f(cfg)
		if SupportsDriver(r, driver) {
			return r
		}
	}
	return nil
}
