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

// Package state holds the text currently being beamed. Every part of the
// app (incoming tags, deep links, the clipboard and outgoing pushes) reads
// and writes the same State.
package state

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaparooProject/clipbeam/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// Listener is called with the new text after every change.
type Listener func(text string)

// Snapshot is the persisted form of a State.
type Snapshot struct {
	UpdatedAt time.Time `toml:"updated_at"`
	Text      string    `toml:"text"`
}

type State struct {
	updatedAt time.Time
	clock     clockwork.Clock
	listeners map[int]Listener
	text      string
	nextID    int
	mu        syncutil.RWMutex
}

// New returns an empty State. A nil clock uses the real clock.
func New(clock clockwork.Clock) *State {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &State{
		clock:     clock,
		listeners: make(map[int]Listener),
	}
}

func (s *State) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// UpdatedAt returns when the text last changed, zero if never.
func (s *State) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// SetText stores text with surrounding whitespace removed and returns the
// stored value.
func (s *State) SetText(text string) string {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	s.text = text
	s.updatedAt = s.clock.Now()
	listeners := s.copyListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(text)
	}
	return text
}

// Subscribe registers fn for change notifications. The returned func
// removes it and is safe to call more than once.
func (s *State) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *State) copyListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Text: s.text, UpdatedAt: s.updatedAt}
}

// Restore replaces the state with snap and notifies listeners.
func (s *State) Restore(snap Snapshot) {
	text := strings.TrimSpace(snap.Text)

	s.mu.Lock()
	s.text = text
	s.updatedAt = snap.UpdatedAt
	listeners := s.copyListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(text)
	}
}

// Save writes a snapshot to path as TOML.
func (s *State) Save(fs afero.Fs, path string) error {
	data, err := toml.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Load restores a snapshot previously written by Save. A missing file is
// returned as an error wrapping fs.ErrNotExist.
func (s *State) Load(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var snap Snapshot
	if err := toml.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	s.Restore(snap)
	return nil
}
