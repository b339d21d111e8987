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

package state

import (
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetText_TrimsAndStamps(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	s := New(clock)

	assert.Empty(t, s.Text())
	assert.True(t, s.UpdatedAt().IsZero())

	got := s.SetText("  hello world \n")
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "hello world", s.Text())
	assert.Equal(t, start, s.UpdatedAt())

	clock.Advance(time.Minute)
	s.SetText("next")
	assert.Equal(t, start.Add(time.Minute), s.UpdatedAt())
}

func TestNew_NilClock(t *testing.T) {
	t.Parallel()

	s := New(nil)
	before := time.Now()
	s.SetText("x")
	assert.False(t, s.UpdatedAt().Before(before))
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	s := New(clockwork.NewFakeClock())

	var got []string
	cancel := s.Subscribe(func(text string) { got = append(got, text) })

	s.SetText(" a ")
	s.SetText("b")
	cancel()
	cancel()
	s.SetText("c")

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSubscribe_ListenerMayReadState(t *testing.T) {
	t.Parallel()

	s := New(clockwork.NewFakeClock())

	var seen string
	s.Subscribe(func(string) { seen = s.Text() })
	s.SetText("reentrant")

	assert.Equal(t, "reentrant", seen)
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 12, 24, 8, 30, 0, 0, time.UTC)
	s := New(clockwork.NewFakeClockAt(at))
	s.SetText("saved")

	snap := s.Snapshot()
	assert.Equal(t, Snapshot{Text: "saved", UpdatedAt: at}, snap)

	other := New(clockwork.NewFakeClock())
	var notified string
	other.Subscribe(func(text string) { notified = text })
	other.Restore(snap)

	assert.Equal(t, "saved", other.Text())
	assert.Equal(t, at, other.UpdatedAt())
	assert.Equal(t, "saved", notified)
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	memFs := afero.NewMemMapFs()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := "/data/clipbeam/state.toml"

	s := New(clockwork.NewFakeClockAt(at))
	s.SetText("line one\nline \"two\"")
	require.NoError(t, s.Save(memFs, path))

	loaded := New(clockwork.NewFakeClock())
	require.NoError(t, loaded.Load(memFs, path))
	assert.Equal(t, "line one\nline \"two\"", loaded.Text())
	assert.True(t, at.Equal(loaded.UpdatedAt()))
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	s := New(clockwork.NewFakeClock())
	err := s.Load(afero.NewMemMapFs(), "/nope/state.toml")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "/state.toml", []byte("text = [unterminated"), 0o600))

	s := New(clockwork.NewFakeClock())
	s.SetText("keep")
	err := s.Load(memFs, "/state.toml")
	require.Error(t, err)
	assert.Equal(t, "keep", s.Text())
}

func TestState_Concurrent(t *testing.T) {
	t.Parallel()

	s := New(clockwork.NewFakeClock())
	cancel := s.Subscribe(func(string) {})
	defer cancel()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetText(string(rune('a' + i)))
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.Text()
		}()
	}
	wg.Wait()

	assert.Len(t, s.Text(), 1)
}
