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
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// TNF (Type Name Format) values as defined by the NFC Forum.
const (
	TNFEmpty       byte = 0x00
	TNFWellKnown   byte = 0x01
	TNFMedia       byte = 0x02
	TNFAbsoluteURI byte = 0x03
	TNFExternal    byte = 0x04
	TNFUnknown     byte = 0x05
	TNFUnchanged   byte = 0x06
	TNFReserved    byte = 0x07

	tnfMask  byte = 0x07
	flagMB   byte = 0x80
	flagME   byte = 0x40
	flagCF   byte = 0x20
	flagSR   byte = 0x10
	flagIL   byte = 0x08
	maxShort      = 255
)

// Well-known record types.
const (
	TypeText = "T"
	TypeURI  = "U"

	// TypeAndroidApp is the external type of an Android Application Record.
	TypeAndroidApp = "android.com:pkg"
)

// Common errors.
var (
	ErrEmptyMessage    = errors.New("ndef: empty message")
	ErrTruncatedRecord = errors.New("ndef: truncated record data")
	ErrInvalidTNF      = errors.New("ndef: invalid TNF value")
	ErrChunkedRecord   = errors.New("ndef: chunked records not supported")
	ErrInvalidRecord   = errors.New("ndef: invalid record")
)

// Record is a single NDEF record. MB and ME are only meaningful on records
// that came out of Message.Unmarshal; Message.Marshal sets them from the
// record's position.
type Record struct {
	Type    string
	ID      string
	Payload []byte
	TNF     byte
	MB      bool
	ME      bool
}

// Marshal serializes the record, using the short record form when the
// payload allows it.
func (r *Record) Marshal() ([]byte, error) {
	if r.TNF > TNFUnchanged {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTNF, r.TNF)
	}
	if len(r.Type) > math.MaxUint8 || len(r.ID) > math.MaxUint8 {
		return nil, fmt.Errorf("%w: type or id longer than 255 bytes", ErrInvalidRecord)
	}
	if r.TNF == TNFEmpty && (r.Type != "" || r.ID != "" || len(r.Payload) > 0) {
		return nil, fmt.Errorf("%w: empty record must have zero lengths", ErrInvalidRecord)
	}
	if r.TNF == TNFWellKnown && r.Type == "" {
		return nil, fmt.Errorf("%w: well-known record must have type", ErrInvalidRecord)
	}
	if uint64(len(r.Payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload too large", ErrInvalidRecord)
	}

	payloadLen := len(r.Payload)
	short := payloadLen <= maxShort

	flags := r.TNF & tnfMask
	if r.MB {
		flags |= flagMB
	}
	if r.ME {
		flags |= flagME
	}
	if short {
		flags |= flagSR
	}
	if r.ID != "" {
		flags |= flagIL
	}

	size := 2 + len(r.Type) + len(r.ID) + payloadLen
	if short {
		size++
	} else {
		size += 4
	}
	if r.ID != "" {
		size++
	}

	out := make([]byte, 0, size)
	out = append(out, flags, byte(len(r.Type)))
	if short {
		out = append(out, byte(payloadLen))
	} else {
		out = binary.BigEndian.AppendUint32(out, uint32(payloadLen))
	}
	if r.ID != "" {
		out = append(out, byte(len(r.ID)))
	}
	out = append(out, r.Type...)
	out = append(out, r.ID...)
	out = append(out, r.Payload...)

	return out, nil
}

// Unmarshal parses a single record from the start of data and returns the
// number of bytes consumed. The payload is copied out of data.
func (r *Record) Unmarshal(data []byte) (int, error) {
	if len(data) < 3 {
		return 0, fmt.Errorf("%w: record too short", ErrTruncatedRecord)
	}

	flags := data[0]
	tnf := flags & tnfMask
	if flags&flagCF != 0 {
		return 0, ErrChunkedRecord
	}
	if tnf > TNFUnchanged {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTNF, tnf)
	}

	typeLen := int(data[1])
	offset := 2

	var rawPayloadLen uint32
	if flags&flagSR != 0 {
		rawPayloadLen = uint32(data[offset])
		offset++
	} else {
		if offset+4 > len(data) {
			return 0, fmt.Errorf("%w: long payload length", ErrTruncatedRecord)
		}
		rawPayloadLen = binary.BigEndian.Uint32(data[offset : offset+4])
		offset += 4
	}

	var idLen int
	if flags&flagIL != 0 {
		if offset >= len(data) {
			return 0, fmt.Errorf("%w: id length", ErrTruncatedRecord)
		}
		idLen = int(data[offset])
		offset++
	}

	if offset+typeLen+idLen > len(data) {
		return 0, fmt.Errorf("%w: truncated record header", ErrTruncatedRecord)
	}
	// compared unconverted so a 32-bit int can't wrap negative
	if uint64(rawPayloadLen) > uint64(len(data)-offset-typeLen-idLen) {
		return 0, fmt.Errorf("%w: truncated payload", ErrTruncatedRecord)
	}
	payloadLen := int(rawPayloadLen)

	if tnf == TNFEmpty && (typeLen != 0 || idLen != 0 || payloadLen != 0) {
		return 0, fmt.Errorf("%w: empty record must have zero lengths", ErrInvalidRecord)
	}
	if tnf == TNFWellKnown && typeLen == 0 {
		return 0, fmt.Errorf("%w: well-known record must have type", ErrInvalidRecord)
	}

	r.TNF = tnf
	r.MB = flags&flagMB != 0
	r.ME = flags&flagME != 0
	r.Type = string(data[offset : offset+typeLen])
	offset += typeLen
	r.ID = string(data[offset : offset+idLen])
	offset += idLen
	r.Payload = make([]byte, payloadLen)
	copy(r.Payload, data[offset:offset+payloadLen])
	offset += payloadLen

	return offset, nil
}

// IsWellKnown reports whether the record is a well-known record of the
// given type.
func (r *Record) IsWellKnown(typ string) bool {
	return r.TNF == TNFWellKnown && r.Type == typ
}

// Message is an ordered list of NDEF records.
type Message struct {
	Records []*Record
}

// NewMessage returns a message holding the given records.
func NewMessage(records ...*Record) *Message {
	return &Message{Records: records}
}

// Marshal serializes the message, setting MB on the first record and ME on
// the last.
func (m *Message) Marshal() ([]byte, error) {
	if len(m.Records) == 0 {
		return nil, ErrEmptyMessage
	}

	var result []byte
	for i, rec := range m.Records {
		framed := *rec
		framed.MB = i == 0
		framed.ME = i == len(m.Records)-1

		data, err := framed.Marshal()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		result = append(result, data...)
	}
	return result, nil
}

// Unmarshal parses records until one with the ME flag is found and returns
// the number of bytes consumed.
func (m *Message) Unmarshal(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyMessage
	}

	m.Records = nil
	offset := 0

	for offset < len(data) {
		rec := &Record{}
		n, err := rec.Unmarshal(data[offset:])
		if err != nil {
			return offset, fmt.Errorf("record at offset %d: %w", offset, err)
		}
		if offset == 0 && !rec.MB {
			return 0, fmt.Errorf("%w: MB flag not set on first record", ErrInvalidRecord)
		}
		if offset > 0 && rec.MB {
			return offset, fmt.Errorf("%w: MB flag set at offset %d", ErrInvalidRecord, offset)
		}

		m.Records = append(m.Records, rec)
		offset += n

		if rec.ME {
			return offset, nil
		}
	}

	return offset, fmt.Errorf("%w: ME flag not set", ErrTruncatedRecord)
}
