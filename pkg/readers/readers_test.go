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
	"testing"

	"github.com/ZaparooProject/clipbeam/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	openErr  error
	device   config.ReadersConnect
	id       string
	canWrite bool
	opened   bool
	closed   bool
}

func (f *fakeReader) Metadata() DriverMetadata {
	return DriverMetadata{ID: f.id, CanWrite: f.canWrite}
}

func (f *fakeReader) IDs() []string { return []string{f.id} }

func (f *fakeReader) Open(device config.ReadersConnect, _ chan<- Scan) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.device = device
	f.opened = true
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func (f *fakeReader) Device() string     { return f.device.ConnectionString() }
func (f *fakeReader) Connected() bool    { return f.opened && !f.closed }
func (f *fakeReader) Info() string       { return f.id }
func (*fakeReader) Write(_ []byte) error { return nil }

func newTestConfig(t *testing.T, rcs []config.ReadersConnect) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfig(afero.NewMemMapFs(), "/cfg", config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetReaderConnections(rcs)
	return cfg
}

func TestSupportsDriver(t *testing.T) {
	t.Parallel()

	r := &fakeReader{id: "pcsc"}
	assert.True(t, SupportsDriver(r, "pcsc"))
	assert.True(t, SupportsDriver(r, "PCSC"))
	assert.False(t, SupportsDriver(r, "mqtt"))
}

func TestOpenAll(t *testing.T) {
	t.Parallel()

	off := false
	cfg := newTestConfig(t, []config.ReadersConnect{
		{Driver: "pcsc", Path: "ACS ACR122U"},
		{Driver: "mqtt", Path: "localhost:1883/beam", Enabled: &off},
		{Driver: "mqtt", Path: "broken:1883/beam"},
	})

	factories := []Factory{
		func(*config.Instance) Reader { return &fakeReader{id: "pcsc", canWrite: true} },
		func(*config.Instance) Reader {
			return &fakeReader{id: "mqtt", openErr: errors.New("connection refused")}
		},
	}

	opened := OpenAll(cfg, factories, make(chan Scan))
	require.Len(t, opened, 1)
	assert.Equal(t, "pcsc:ACS ACR122U", opened[0].Device())

	w, err := FirstWriter(opened)
	require.NoError(t, err)
	assert.Same(t, opened[0], w)

	CloseAll(opened)
	assert.False(t, opened[0].Connected())

	_, err = FirstWriter(opened)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestOpenAll_NoDriver(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t, []config.ReadersConnect{{Driver: "mqtt", Path: "x:1/y"}})
	opened := OpenAll(cfg, []Factory{
		func(*config.Instance) Reader { return &fakeReader{id: "pcsc"} },
	}, make(chan Scan))
	assert.Empty(t, opened)
}

func TestFirstWriter_SkipsReadOnly(t *testing.T) {
	t.Parallel()

	ro := &fakeReader{id: "mqtt", opened: true}
	_, err := FirstWriter([]Reader{ro})
	require.ErrorIs(t, err, ErrNotConnected)
}
