/*
Clipbeam
Copyright (c) 2026 The Zaparoo Project Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of Clipbeam.

Clipbeam is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Clipbeam is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Clipbeam.  If not, see <http://www.gnu.org/licenses/>.
*/

package ndef

import (
	"fmt"

	"github.com/ZaparooProject/clipbeam/pkg/ndef/text"
	gondef "github.com/hsanjuan/go-ndef"
)

// NewTextRecord wraps a UTF-8 text record payload in a well-known "T"
// record.
func NewTextRecord(txt, lang string) (*Record, error) {
	payload, err := text.Encode(txt, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to encode text record: %w", err)
	}
	return &Record{
		TNF:     TNFWellKnown,
		Type:    TypeText,
		Payload: payload,
	}, nil
}

// NewApplicationRecord returns an Android Application Record, which makes
// the receiving phone open (or offer to install) the named package.
func NewApplicationRecord(pkg string) *Record {
	return &Record{
		TNF:     TNFExternal,
		Type:    TypeAndroidApp,
		Payload: []byte(pkg),
	}
}

// BuildPushMessage returns the raw message sent to a peer: a text record,
// followed by an application record when pkg is set.
func BuildPushMessage(txt, lang, pkg string) ([]byte, error) {
	rec, err := NewTextRecord(txt, lang)
	if err != nil {
		return nil, err
	}

	msg := NewMessage(rec)
	if pkg != "" {
		msg.Records = append(msg.Records, NewApplicationRecord(pkg))
	}

	data, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal NDEF message: %w", err)
	}
	return data, nil
}

// BuildTextMessage returns a Type 2 tag data area holding a single text
// record.
func BuildTextMessage(txt, lang string) ([]byte, error) {
	payload, err := BuildPushMessage(txt, lang, "")
	if err != nil {
		return nil, err
	}
	return WrapTLV(payload)
}

// BuildURIMessage returns a Type 2 tag data area holding a single URI
// record, using the abbreviated prefix table.
func BuildURIMessage(uri string) ([]byte, error) {
	msg := gondef.NewURIMessage(uri)
	payload, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal NDEF message: %w", err)
	}
	return WrapTLV(payload)
}
