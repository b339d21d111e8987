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
	"fmt"
	"strings"

	"github.com/ZaparooProject/clipbeam/pkg/ndef/text"
	"github.com/rs/zerolog/log"
)

// URI prefixes as defined in NFC Forum URI RTD
var uriPrefixes = []string{
	"",
	"http://www.",
	"https://www.",
	"http://",
	"https://",
	"tel:",
	"mailto:",
	"ftp://anonymous:anonymous@",
	"ftp://ftp.",
	"ftps://",
	"sftp://",
	"smb://",
	"nfs://",
	"ftp://",
	"dav://",
	"news:",
	"telnet://",
	"imap:",
	"rtsp://",
	"urn:",
	"pop:",
	"sip:",
	"sips:",
	"tftp:",
	"btspp://",
	"btl2cap://",
	"btgoep://",
	"tcpobex://",
	"irdaobex://",
	"file://",
	"urn:epc:id:",
	"urn:epc:tag:",
	"urn:epc:pat:",
	"urn:epc:raw:",
	"urn:epc:",
	"urn:nfc:",
}

// ParseRecord interprets a record. Text and URI records are decoded;
// anything else falls back to its payload read as a string.
func ParseRecord(rec *Record) (Content, error) {
	content := Content{TNF: rec.TNF, Type: rec.Type}

	switch {
	case rec.IsWellKnown(TypeText):
		txt, lang, err := text.Decode(rec.Payload)
		if err != nil {
			return Content{}, fmt.Errorf("failed to decode text record: %w", err)
		}
		content.Kind = KindText
		content.Text = txt
		content.Language = lang
	case rec.IsWellKnown(TypeURI):
		uri, err := parseURIPayload(rec.Payload)
		if err != nil {
			return Content{}, err
		}
		content.Kind = KindURI
		content.Text = uri
	default:
		log.Warn().Msgf("unknown record type: tnf=%d type=%q", rec.TNF, rec.Type)
		content.Kind = KindRaw
		content.Text = strings.ToValidUTF8(string(rec.Payload), "\uFFFD")
	}

	return content, nil
}

// ParseMessage parses a raw NDEF message and interprets its first record.
func ParseMessage(data []byte) (Content, error) {
	msg := &Message{}
	if _, err := msg.Unmarshal(data); err != nil {
		return Content{}, fmt.Errorf("failed to parse NDEF message: %w", err)
	}
	if len(msg.Records) == 0 {
		return Content{}, ErrNoNDEF
	}
	return ParseRecord(msg.Records[0])
}

// ParseToText parses a Type 2 tag data area and returns the first text or
// URI record as a string.
func ParseToText(data []byte) (string, error) {
	if err := ValidateNDEFMessage(data); err != nil {
		return "", fmt.Errorf("invalid NDEF message: %w", err)
	}

	payload := ExtractTLV(data)
	if payload == nil {
		return "", ErrNoNDEF
	}

	msg := &Message{}
	if _, err := msg.Unmarshal(payload); err != nil {
		return "", fmt.Errorf("failed to parse NDEF message: %w", err)
	}

	for _, rec := range msg.Records {
		if !rec.IsWellKnown(TypeText) && !rec.IsWellKnown(TypeURI) {
			continue
		}
		content, err := ParseRecord(rec)
		if err == nil {
			return content.Text, nil
		}
		log.Debug().Err(err).Msg("skipping unreadable record")
	}

	return "", ErrNoNDEF
}

// ValidateNDEFMessage validates basic NDEF message structure
func ValidateNDEFMessage(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: message too short", ErrInvalidNDEF)
	}

	if _, err := FindTLV(data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNDEF, err)
	}

	return nil
}

// ExtractTLV returns the message held by the first complete NDEF TLV in
// data, or nil if there is none.
func ExtractTLV(data []byte) []byte {
	msg, err := FindTLV(data)
	if err != nil {
		return nil
	}
	return msg
}

// FindTLV walks the TLV blocks of a Type 2 tag data area in order and
// returns the value of the first NDEF TLV. NULL blocks are skipped as
// padding and every other block is skipped by its length. ErrNoNDEF is
// returned when the terminator is reached first, ErrTruncatedTLV when the
// data runs out mid-walk.
func FindTLV(data []byte) ([]byte, error) {
	offset := 0
	for offset < len(data) {
		tag := data[offset]
		switch tag {
		case TLVNull:
			offset++
			continue
		case TLVTerminator:
			return nil, ErrNoNDEF
		}

		length, header, ok := readTLVLength(data[offset+1:])
		if !ok {
			return nil, ErrTruncatedTLV
		}
		start := offset + 1 + header
		if length > len(data)-start {
			return nil, ErrTruncatedTLV
		}

		if tag == TLVNDEF {
			return data[start : start+length], nil
		}
		if tag != TLVLockControl && tag != TLVMemoryControl && tag != TLVProprietary {
			log.Debug().Msgf("skipping unknown TLV 0x%02X", tag)
		}
		offset = start + length
	}
	return nil, ErrTruncatedTLV
}

// readTLVLength decodes a one byte length, or 0xFF followed by a big-endian
// uint16, and reports how many bytes the length field took.
func readTLVLength(data []byte) (length, size int, ok bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	if data[0] != tlvLongLength {
		return int(data[0]), 1, true
	}
	if len(data) < 3 {
		return 0, 0, false
	}
	return int(binary.BigEndian.Uint16(data[1:3])), 3, true
}
