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

// Package text encodes and decodes the payload of an NFC Forum Text Record
// (well-known type "T").
//
// A payload is laid out as a status byte, the language code and the text
// body:
//
//	byte 0      bit 7: 0 = UTF-8, 1 = UTF-16; bits 5-0: language code length
//	1 .. L      language code, ASCII (e.g. "en")
//	1+L .. end  text body in the declared charset
//
// Both directions are pure functions and safe for concurrent use.
package text

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

const (
	// MaxLanguageLength is the longest language code the status byte can
	// describe.
	MaxLanguageLength = 0x3F

	flagUTF16    byte = 0x80
	languageMask byte = 0x3F
)

var (
	// ErrInvalidLanguageTag is returned by the encoders when the language
	// tag does not fit the status byte or is not ASCII.
	ErrInvalidLanguageTag = errors.New("text record: invalid language tag")
	// ErrTruncatedPayload is returned when the payload is shorter than its
	// status byte declares.
	ErrTruncatedPayload = errors.New("text record: truncated payload")
	// ErrMalformedEncoding is returned when the text body (or language code)
	// is not valid under the declared charset.
	ErrMalformedEncoding = errors.New("text record: malformed encoding")
)

// Encode builds a UTF-8 text record payload.
func Encode(text, languageTag string) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrMalformedEncoding)
	}
	return build(0, languageTag, []byte(text))
}

// EncodeUTF16 builds a text record payload with the UTF-16 flag set. The
// body is big-endian and starts with a byte order mark.
func EncodeUTF16(text, languageTag string) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrMalformedEncoding)
	}
	body, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEncoding, err)
	}
	return build(flagUTF16, languageTag, body)
}

func build(flags byte, languageTag string, body []byte) ([]byte, error) {
	if err := checkLanguage(languageTag); err != nil {
		return nil, err
	}

	out := make([]byte, 1+len(languageTag)+len(body))
	out[0] = flags | byte(len(languageTag))
	n := 1
	n += copy(out[n:], languageTag)
	copy(out[n:], body)

	return out, nil
}

func checkLanguage(tag string) error {
	if len(tag) > MaxLanguageLength {
		return fmt.Errorf("%w: %d bytes, max %d", ErrInvalidLanguageTag, len(tag), MaxLanguageLength)
	}
	for i := range len(tag) {
		if tag[i] >= utf8.RuneSelf {
			return fmt.Errorf("%w: non-ASCII byte at %d", ErrInvalidLanguageTag, i)
		}
	}
	return nil
}

// Decode parses a text record payload and returns the text and its
// language tag.
func Decode(payload []byte) (text, languageTag string, err error) {
	if len(payload) < 1 {
		return "", "", fmt.Errorf("%w: empty payload", ErrTruncatedPayload)
	}

	status := payload[0]
	langLen := int(status & languageMask)
	if len(payload) < 1+langLen {
		return "", "", fmt.Errorf(
			"%w: language code declares %d bytes, %d available",
			ErrTruncatedPayload, langLen, len(payload)-1,
		)
	}

	lang := payload[1 : 1+langLen]
	for i, b := range lang {
		if b >= utf8.RuneSelf {
			return "", "", fmt.Errorf("%w: non-ASCII language code byte at %d", ErrMalformedEncoding, i)
		}
	}

	body := payload[1+langLen:]
	if status&flagUTF16 != 0 {
		text, err = decodeUTF16(body)
		if err != nil {
			return "", "", err
		}
		return text, string(lang), nil
	}

	if !utf8.Valid(body) {
		return "", "", fmt.Errorf("%w: body is not valid UTF-8", ErrMalformedEncoding)
	}
	return string(body), string(lang), nil
}

// decodeUTF16 honours a leading byte order mark and falls back to
// big-endian, matching the NFC Forum recommendation.
func decodeUTF16(body []byte) (string, error) {
	if len(body)%2 != 0 {
		return "", fmt.Errorf("%w: odd UTF-16 body length %d", ErrMalformedEncoding, len(body))
	}

	endian := unicode.BigEndian
	switch {
	case len(body) >= 2 && body[0] == 0xFE && body[1] == 0xFF:
		body = body[2:]
	case len(body) >= 2 && body[0] == 0xFF && body[1] == 0xFE:
		endian = unicode.LittleEndian
		body = body[2:]
	}

	if err := checkSurrogates(body, endian == unicode.BigEndian); err != nil {
		return "", err
	}

	out, err := unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedEncoding, err)
	}
	return string(out), nil
}

// checkSurrogates rejects unpaired surrogates, which the x/text decoder
// would otherwise silently replace with U+FFFD.
func checkSurrogates(body []byte, bigEndian bool) error {
	unit := func(i int) uint16 {
		if bigEndian {
			return uint16(body[i])<<8 | uint16(body[i+1])
		}
		return uint16(body[i+1])<<8 | uint16(body[i])
	}

	for i := 0; i < len(body); i += 2 {
		u := unit(i)
		if !utf16.IsSurrogate(rune(u)) {
			continue
		}
		if u >= 0xDC00 {
			return fmt.Errorf("%w: unpaired low surrogate at byte %d", ErrMalformedEncoding, i)
		}
		if i+2 >= len(body) {
			return fmt.Errorf("%w: truncated surrogate pair at byte %d", ErrMalformedEncoding, i)
		}
		next := unit(i + 2)
		if next < 0xDC00 || next > 0xDFFF {
			return fmt.Errorf("%w: unpaired high surrogate at byte %d", ErrMalformedEncoding, i)
		}
		i += 2
	}
	return nil
}

// Record is the decoded form of a text record payload.
type Record struct {
	Text     string
	Language string
	UTF16    bool
}

// Marshal encodes the record using the charset selected by UTF16.
func (r Record) Marshal() ([]byte, error) {
	if r.UTF16 {
		return EncodeUTF16(r.Text, r.Language)
	}
	return Encode(r.Text, r.Language)
}

// Unmarshal replaces the record with the decoded payload. The record is
// left untouched on error.
func (r *Record) Unmarshal(payload []byte) error {
	txt, lang, err := Decode(payload)
	if err != nil {
		return err
	}
	r.Text = txt
	r.Language = lang
	r.UTF16 = payload[0]&flagUTF16 != 0
	return nil
}

// IsUTF16 reports whether a payload's status byte declares UTF-16.
func IsUTF16(payload []byte) bool {
	return len(payload) > 0 && payload[0]&flagUTF16 != 0
}
