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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ContentKind describes how a record's content was interpreted.
type ContentKind string

const (
	// KindText is a well-known text record.
	KindText ContentKind = "text"
	// KindURI is a well-known URI record.
	KindURI ContentKind = "uri"
	// KindRaw is any other record, read as raw payload bytes.
	KindRaw ContentKind = "raw"
)

const (
	// TLVNull is single-byte padding inside the TLV area.
	TLVNull byte = 0x00
	// TLVLockControl describes dynamic lock bits.
	TLVLockControl byte = 0x01
	// TLVMemoryControl describes reserved memory areas.
	TLVMemoryControl byte = 0x02
	// TLVNDEF marks an NDEF message TLV block on a Type 2 tag.
	TLVNDEF byte = 0x03
	// TLVProprietary holds vendor data.
	TLVProprietary byte = 0xFD
	// TLVTerminator ends the TLV area.
	TLVTerminator byte = 0xFE

	tlvLongLength = 0xFF
	maxShortTLV   = 254
	maxLongTLV    = 0xFFFF
)

var (
	// NdefEnd is the terminator TLV appended after a message.
	NdefEnd = []byte{TLVTerminator}

	// ErrNoNDEF is returned when no NDEF record is found.
	ErrNoNDEF = errors.New("no NDEF record found")
	// ErrInvalidNDEF is returned when the NDEF format is invalid.
	ErrInvalidNDEF = errors.New("invalid NDEF format")
	// ErrPayloadTooLarge is returned when a message does not fit a TLV block.
	ErrPayloadTooLarge = errors.New("NDEF payload too large")
	// ErrTruncatedTLV is returned when the TLV area ends before a
	// terminator or an NDEF block is complete.
	ErrTruncatedTLV = errors.New("truncated TLV area")
)

// Content is the interpreted first record of a message.
type Content struct {
	Kind     ContentKind
	Text     string
	Language string
	Type     string
	TNF      byte
}

// CalculateNDEFHeader returns the TLV header for a message of the given
// size. Messages under 255 bytes use the one byte length form, larger ones
// the three byte form (NFCForum-TS-Type-2-Tag_1.1, page 9).
func CalculateNDEFHeader(payload []byte) ([]byte, error) {
	length := len(payload)

	if length <= maxShortTLV {
		return []byte{TLVNDEF, byte(length)}, nil
	}

	if length > maxLongTLV {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, length)
	}

	header := []byte{TLVNDEF, tlvLongLength}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, uint16(length)); err != nil {
		return nil, fmt.Errorf("failed to write NDEF length header: %w", err)
	}

	return append(header, buf.Bytes()...), nil
}

// WrapTLV wraps a raw NDEF message as a Type 2 tag data area: TLV header,
// message and terminator.
func WrapTLV(message []byte) ([]byte, error) {
	header, err := CalculateNDEFHeader(message)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate NDEF header: %w", err)
	}

	result := make([]byte, 0, len(header)+len(message)+len(NdefEnd))
	result = append(result, header...)
	result = append(result, message...)
	result = append(result, NdefEnd...)

	return result, nil
}
