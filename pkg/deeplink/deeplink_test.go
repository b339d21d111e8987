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

package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		pattern string
		want    string
	}{
		{name: "default", pattern: "", want: DefaultPattern},
		{name: "custom", pattern: `code=(\w+)`, want: `code=(\w+)`},
		{name: "no group", pattern: `passcode-[a-z]+`, wantErr: ErrNoCaptureGroup},
		{name: "invalid", pattern: `passcode-(`, wantErr: ErrPatternCompile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, err := NewExtractor(tt.pattern)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Pattern())
		})
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	e, err := NewExtractor("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		raw     string
		want    string
		matched bool
	}{
		{
			name:    "passcode in path",
			raw:     "https://example.org/beam/passcode-abc123",
			want:    "abc123",
			matched: true,
		},
		{
			name:    "stops at first non matching char",
			raw:     "https://example.org/passcode-abc/def",
			want:    "abc",
			matched: true,
		},
		{
			name:    "uppercase ends the group",
			raw:     "https://example.org/passcode-abcXYZ",
			want:    "abc",
			matched: true,
		},
		{
			name:    "empty group",
			raw:     "https://example.org/passcode-",
			want:    "",
			matched: true,
		},
		{
			name:    "first match wins",
			raw:     "https://example.org/passcode-one/passcode-two",
			want:    "one",
			matched: true,
		},
		{
			name: "no passcode returns input",
			raw:  "https://example.org/other",
			want: "https://example.org/other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, matched := e.Extract(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	e, err := NewExtractor("")
	require.NoError(t, err)

	link, err := e.Parse("  https://example.org/passcode-42x  ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/passcode-42x", link.Raw)
	assert.Equal(t, "42x", link.Text)
	assert.True(t, link.Matched)
	assert.Equal(t, "example.org", link.URL.Host)

	link, err = e.Parse("clipbeam://open")
	require.NoError(t, err)
	assert.Equal(t, "clipbeam://open", link.Text)
	assert.False(t, link.Matched)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	e, err := NewExtractor("")
	require.NoError(t, err)

	tests := []struct {
		wantErr error
		name    string
		raw     string
	}{
		{name: "empty", raw: "", wantErr: ErrEmptyLink},
		{name: "whitespace", raw: " \t\n", wantErr: ErrEmptyLink},
		{name: "no scheme", raw: "example.org/passcode-1", wantErr: ErrInvalidLink},
		{name: "bad escape", raw: "https://example.org/%zz", wantErr: ErrInvalidLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := e.Parse(tt.raw)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
