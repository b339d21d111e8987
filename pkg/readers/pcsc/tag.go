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
	"fmt"

	"github.com/ZaparooProject/clipbeam/pkg/ndef"
)

// Type 2 tag layout.
const (
	pageSize      = 4
	ccPage        = 3
	firstDataPage = 4
	maxPage       = 0xFF
	ccMagic       = 0xE1
)

var (
	ErrAPDU            = errors.New("apdu failed")
	ErrMessageTooLarge = errors.New("message too large for tag")
)

var statusOK = []byte{0x90, 0x00}

func transmit(card ScardCard, apdu []byte) ([]byte, error) {
	res, err := card.Transmit(apdu)
	if err != nil {
		return nil, fmt.Errorf("failed to transmit: %w", err)
	}
	if len(res) < 2 {
		return nil, fmt.Errorf("%w: short response %x", ErrAPDU, res)
	}
	if sw := res[len(res)-2:]; !bytes.Equal(sw, statusOK) {
		return nil, fmt.Errorf("%w: SW=%X", ErrAPDU, sw)
	}
	return res[:len(res)-2], nil
}

func readUID(card ScardCard) ([]byte, error) {
	return transmit(card, []byte{0xFF, 0xCA, 0x00, 0x00, 0x00})
}

func readPage(card ScardCard, page int) ([]byte, error) {
	data, err := transmit(card, []byte{0xFF, 0xB0, 0x00, byte(page), pageSize})
	if err != nil {
		return nil, err
	}
	if len(data) < pageSize {
		return nil, fmt.Errorf("%w: page %d returned %d bytes", ErrAPDU, page, len(data))
	}
	return data, nil
}

func writePage(card ScardCard, page int, data []byte) error {
	apdu := make([]byte, 0, 5+pageSize)
	apdu = append(apdu, 0xFF, 0xD6, 0x00, byte(page), pageSize)
	apdu = append(apdu, data...)
	if _, err := transmit(card, apdu); err != nil {
		return fmt.Errorf("write page %d: %w", page, err)
	}
	return nil
}

// readNDEF reads the data area until it holds a complete NDEF TLV and
// returns the message inside it. Tags without a non-empty message return
// ndef.ErrNoNDEF.
func readNDEF(card ScardCard) ([]byte, error) {
	var data []byte
	for page := firstDataPage; page <= maxPage; {
		chunk, err := readPage(card, page)
		if err != nil {
			if len(data) == 0 {
				return nil, err
			}
			break
		}

		// some readers return four pages per read
		chunk = chunk[:len(chunk)-len(chunk)%pageSize]
		data = append(data, chunk...)
		page += len(chunk) / pageSize

		msg, err := ndef.FindTLV(data)
		switch {
		case errors.Is(err, ndef.ErrTruncatedTLV):
			continue
		case err != nil:
			return nil, err
		case len(msg) == 0:
			// blank tag, formatted with an empty NDEF TLV
			return nil, ndef.ErrNoNDEF
		default:
			return bytes.Clone(msg), nil
		}
	}
	return nil, ndef.ErrNoNDEF
}

// capacity returns the data area size from the capability container, or 0
// if the tag isn't NDEF formatted.
func capacity(card ScardCard) int {
	cc, err := readPage(card, ccPage)
	if err != nil || cc[0] != ccMagic {
		return 0
	}
	return int(cc[2]) * 8
}

// writeNDEF writes message to the data area as a TLV followed by a
// terminator, padded to whole pages.
func writeNDEF(card ScardCard, message []byte) error {
	tlv, err := ndef.WrapTLV(message)
	if err != nil {
		return err
	}
	if pad := (pageSize - len(tlv)%pageSize) % pageSize; pad > 0 {
		tlv = append(tlv, make([]byte, pad)...)
	}

	if c := capacity(card); c > 0 && len(tlv) > c {
		return fmt.Errorf("%w: need %d bytes, tag has %d", ErrMessageTooLarge, len(tlv), c)
	}

	page := firstDataPage
	for i := 0; i < len(tlv); i += pageSize {
		if err := writePage(card, page, tlv[i:i+pageSize]); err != nil {
			return err
		}
		page++
	}
	return nil
}
