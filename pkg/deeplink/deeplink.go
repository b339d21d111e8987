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

// Package deeplink pulls the shared text out of a link opened on this
// device, e.g. "https://example.org/passcode-abc123" yields "abc123".
package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ZaparooProject/clipbeam/pkg/helpers"
)

// DefaultPattern matches the passcode segment of a beam link.
const DefaultPattern = `passcode-([a-z0-9]*)`

var (
	ErrEmptyLink      = errors.New("deeplink: empty link")
	ErrInvalidLink    = errors.New("deeplink: invalid link")
	ErrNoCaptureGroup = errors.New("deeplink: pattern has no capture group")
	ErrPatternCompile = errors.New("deeplink: invalid pattern")
)

// Link is a parsed deep link and the text it carries.
type Link struct {
	URL     *url.URL
	Raw     string
	Text    string
	Matched bool
}

// Extractor finds the shared text inside a link.
type Extractor struct {
	re *regexp.Regexp
}

// NewExtractor compiles pattern, which must have at least one capture group.
// An empty pattern selects DefaultPattern.
func NewExtractor(pattern string) (*Extractor, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := helpers.CachedCompile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPatternCompile, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: %q", ErrNoCaptureGroup, pattern)
	}
	return &Extractor{re: re}, nil
}

// Pattern returns the expression in use.
func (e *Extractor) Pattern() string {
	return e.re.String()
}

// Extract returns the first capture group of the first match, or raw
// unchanged when nothing matches.
func (e *Extractor) Extract(raw string) (string, bool) {
	m := e.re.FindStringSubmatch(raw)
	if m == nil {
		return raw, false
	}
	return m[1], true
}

// Parse validates raw as an absolute URL and extracts its text.
func (e *Extractor) Parse(raw string) (*Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyLink
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLink, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme in %q", ErrInvalidLink, raw)
	}

	txt, matched := e.Extract(raw)
	return &Link{
		URL:     u,
		Raw:     raw,
		Text:    txt,
		Matched: matched,
	}, nil
}
