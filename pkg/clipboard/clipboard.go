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

// Package clipboard reads and writes plain text on the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/clipbeam/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	xclip "golang.design/x/clipboard"
)

// ErrUnavailable is returned when no system clipboard can be reached, for
// example on a headless Linux box without X11 or Wayland.
var ErrUnavailable = errors.New("clipboard: unavailable")

// Clipboard is a plain text clipboard.
type Clipboard interface {
	// ReadText returns the current text and whether there was any.
	ReadText(ctx context.Context) (string, bool, error)
	WriteText(ctx context.Context, text string) error
}

// System is the OS clipboard.
type System struct {
	initErr error
	mu      syncutil.Mutex
	ready   bool
}

// NewSystem returns a clipboard backed by the OS. Initialisation is
// deferred to first use.
func NewSystem() *System {
	return &System{}
}

func (s *System) init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready || s.initErr != nil {
		return s.initErr
	}

	if err := xclip.Init(); err != nil {
		log.Warn().Err(err).Msg("system clipboard unavailable")
		s.initErr = fmt.Errorf("%w: %w", ErrUnavailable, err)
		return s.initErr
	}
	s.ready = true
	return nil
}

func (s *System) ReadText(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if err := s.init(); err != nil {
		return "", false, err
	}

	data := xclip.Read(xclip.FmtText)
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

func (s *System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.init(); err != nil {
		return err
	}

	xclip.Write(xclip.FmtText, []byte(text))
	log.Debug().Int("len", len(text)).Msg("copied text to clipboard")
	return nil
}

// Memory is an in-process clipboard for tests and headless use.
type Memory struct {
	text   string
	writes int
	mu     syncutil.RWMutex
	set    bool
}

// NewMemory returns a memory clipboard, pre-filled when initial is
// non-empty.
func NewMemory(initial string) *Memory {
	return &Memory{text: initial, set: initial != ""}
}

func (m *Memory) ReadText(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text, m.set && m.text != "", nil
}

func (m *Memory) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.set = true
	m.writes++
	return nil
}

// Writes returns how many times WriteText succeeded.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
