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

package pcsc

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/ebfe/scard"
)

var errNoCard = errors.New("no card present")

type mockCard struct {
	uid         []byte
	mem         []byte
	mu          sync.Mutex
	disconnects int
	failWrites  bool
	multiPage   bool
}

// newMockCard returns an NDEF formatted tag with the given number of pages.
func newMockCard(uid []byte, pages int) *mockCard {
	mem := make([]byte, pages*pageSize)
	dataBytes := (pages - firstDataPage) * pageSize
	copy(mem[ccPage*pageSize:], []byte{ccMagic, 0x10, byte(dataBytes / 8), 0x00})
	return &mockCard{uid: uid, mem: mem}
}

func (c *mockCard) setData(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.mem[firstDataPage*pageSize:], data)
}

func (c *mockCard) data() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.mem[firstDataPage*pageSize:])
}

func (c *mockCard) Transmit(apdu []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(apdu) < 5 || apdu[0] != 0xFF {
		return []byte{0x6E, 0x00}, nil
	}

	switch apdu[1] {
	case 0xCA:
		return append(bytes.Clone(c.uid), 0x90, 0x00), nil
	case 0xB0:
		off := int(apdu[3]) * pageSize
		n := pageSize
		if c.multiPage {
			n = 4 * pageSize
		}
		if off >= len(c.mem) {
			return []byte{0x6A, 0x82}, nil
		}
		end := min(off+n, len(c.mem))
		return append(bytes.Clone(c.mem[off:end]), 0x90, 0x00), nil
	case 0xD6:
		if c.failWrites {
			return []byte{0x63, 0x00}, nil
		}
		off := int(apdu[3]) * pageSize
		if off+pageSize > len(c.mem) || len(apdu) != 5+pageSize {
			return []byte{0x6A, 0x82}, nil
		}
		copy(c.mem[off:], apdu[5:])
		return []byte{0x90, 0x00}, nil
	default:
		return []byte{0x6D, 0x00}, nil
	}
}

func (c *mockCard) Disconnect(scard.Disposition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

type mockContext struct {
	listErr   error
	card      *mockCard
	readers   []string
	mu        sync.Mutex
	present   bool
	cancelled bool
	released  bool
}

func newMockContext(card *mockCard, names ...string) *mockContext {
	return &mockContext{card: card, readers: names}
}

func (m *mockContext) setPresent(present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present = present
}

func (m *mockContext) setReaders(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readers = names
}

func (m *mockContext) ListReaders() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.readers...), nil
}

func (m *mockContext) GetStatusChange(rs []scard.ReaderState, _ time.Duration) error {
	time.Sleep(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range rs {
		if m.present {
			rs[i].EventState = scard.StatePresent
		} else {
			rs[i].EventState = scard.StateEmpty
		}
	}
	return nil
}

func (m *mockContext) Connect(string, scard.ShareMode, scard.Protocol) (ScardCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present || m.card == nil {
		return nil, errNoCard
	}
	return m.card, nil
}

func (m *mockContext) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = true
	return nil
}

func (m *mockContext) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	return nil
}

func (m *mockContext) isReleased() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}
