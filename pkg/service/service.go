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

// Package service bridges NDEF messages, deep links and the clipboard
// through a shared State.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaparooProject/clipbeam/pkg/clipboard"
	"github.com/ZaparooProject/clipbeam/pkg/config"
	"github.com/ZaparooProject/clipbeam/pkg/deeplink"
	"github.com/ZaparooProject/clipbeam/pkg/helpers"
	"github.com/ZaparooProject/clipbeam/pkg/ndef"
	"github.com/ZaparooProject/clipbeam/pkg/readers"
	"github.com/ZaparooProject/clipbeam/pkg/state"
	"github.com/rs/zerolog/log"
)

type Action string

const (
	ActionNDEFDiscovered Action = "ndef_discovered"
	ActionView           Action = "view"
	ActionMain           Action = "main"
)

// Sources reported in Outcome when the intent didn't name one.
const (
	SourceNFC       = "nfc"
	SourceLink      = "link"
	SourceClipboard = "clipboard"
)

var ErrNoConfig = errors.New("service: config is required")

// Intent is a request to load text into the bridge. Messages holds raw
// NDEF messages for ActionNDEFDiscovered, Data the link for ActionView.
type Intent struct {
	Action   Action
	Source   string
	Data     string
	Messages [][]byte
}

// Outcome reports what an intent did. Saved is true when the clipboard
// was written.
type Outcome struct {
	Source string
	Text   string
	Saved  bool
}

type Service struct {
	cfg   *config.Instance
	state *state.State
	clip  clipboard.Clipboard
	links *deeplink.Extractor
}

// New returns a Service. The deep-link pattern comes from config, falling
// back to deeplink.DefaultPattern.
func New(cfg *config.Instance, st *state.State, clip clipboard.Clipboard) (*Service, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	if st == nil {
		st = state.New(nil)
	}

	links, err := deeplink.NewExtractor(cfg.PasscodePattern())
	if err != nil {
		return nil, fmt.Errorf("failed to create link extractor: %w", err)
	}

	return &Service{
		cfg:   cfg,
		state: st,
		clip:  clip,
		links: links,
	}, nil
}

func (s *Service) State() *state.State {
	return s.state
}

// HandleIntent loads text from the intent into state and, for NFC and
// links, the clipboard.
func (s *Service) HandleIntent(ctx context.Context, intent Intent) (Outcome, error) {
	switch intent.Action {
	case ActionNDEFDiscovered:
		return s.handleNDEF(ctx, intent)
	case ActionView:
		if intent.Data != "" {
			return s.handleView(ctx, intent)
		}
	case ActionMain:
	default:
		log.Debug().Msgf("unknown intent action %q, loading clipboard", intent.Action)
	}
	return s.loadClipboard(ctx)
}

func (s *Service) handleNDEF(ctx context.Context, intent Intent) (Outcome, error) {
	out := Outcome{Source: sourceOr(intent.Source, SourceNFC)}

	if len(intent.Messages) > 0 && len(intent.Messages[0]) > 0 {
		content, err := ndef.ParseMessage(intent.Messages[0])
		if err != nil {
			log.Error().Err(err).Msgf("failed to decode message from %s", out.Source)
		} else {
			out.Text = strings.TrimSpace(content.Text)
		}
	} else {
		log.Warn().Msgf("no NDEF message in intent from %s", out.Source)
	}

	if err := s.clip.WriteText(ctx, out.Text); err != nil {
		return out, fmt.Errorf("failed to write clipboard: %w", err)
	}
	out.Saved = true

	s.state.SetText(out.Text)
	log.Info().Msgf("text saved from %s", out.Source)
	return out, nil
}

func (s *Service) handleView(ctx context.Context, intent Intent) (Outcome, error) {
	out := Outcome{Source: sourceOr(intent.Source, SourceLink)}

	var text string
	var matched bool
	if link, err := s.links.Parse(intent.Data); err != nil {
		log.Debug().Err(err).Msg("view data is not a URL, matching as text")
		text, matched = s.links.Extract(intent.Data)
	} else {
		text, matched = link.Text, link.Matched
	}
	log.Debug().Bool("matched", matched).Msg("extracted link text")

	if err := s.clip.WriteText(ctx, text); err != nil {
		return out, fmt.Errorf("failed to write clipboard: %w", err)
	}
	out.Saved = true

	out.Text = s.state.SetText(text)
	log.Info().Msgf("text saved from %s", out.Source)
	return out, nil
}

func (s *Service) loadClipboard(ctx context.Context) (Outcome, error) {
	out := Outcome{Source: SourceClipboard}

	text, ok, err := s.clip.ReadText(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to read clipboard: %w", err)
	}
	if ok {
		out.Text = s.state.SetText(text)
	} else {
		out.Text = s.state.Text()
	}
	return out, nil
}

// Language returns the configured record language, or the system one.
func (s *Service) Language() string {
	if lang := s.cfg.Language(); lang != "" {
		return lang
	}
	return helpers.LanguageTag()
}

// PushMessage builds the raw NDEF message offered to a peer: the current
// text as a text record plus the application record for the configured
// package.
func (s *Service) PushMessage() ([]byte, error) {
	text := strings.TrimSpace(s.state.Text())
	msg, err := ndef.BuildPushMessage(text, s.Language(), s.cfg.PackageName())
	if err != nil {
		return nil, fmt.Errorf("failed to build push message: %w", err)
	}
	return msg, nil
}

// ShareText is the text/plain payload for sharing the current text.
func (s *Service) ShareText() string {
	return strings.TrimSpace(s.state.Text())
}

// Beam writes the push message through w, a tag or a peer transport.
func (s *Service) Beam(w readers.Reader) error {
	msg, err := s.PushMessage()
	if err != nil {
		return err
	}
	if err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to beam to %s: %w", w.Device(), err)
	}
	log.Info().Msgf("beamed %d bytes to %s", len(msg), w.Device())
	return nil
}

// Run turns reader scans into NDEF intents until ctx is done or scans is
// closed.
func (s *Service) Run(ctx context.Context, scans <-chan readers.Scan) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case scan, ok := <-scans:
			if !ok {
				return nil
			}
			s.handleScan(ctx, scan)
		}
	}
}

func (s *Service) handleScan(ctx context.Context, scan readers.Scan) {
	if scan.Error != nil {
		if errors.Is(scan.Error, ndef.ErrNoNDEF) {
			log.Info().Msgf("tag %s on %s has no NDEF message", scan.UID, scan.Source)
			return
		}
		log.Error().Err(scan.Error).Msgf("error scanning on %s", scan.Source)
		return
	}
	if len(scan.Message) == 0 {
		log.Info().Msgf("empty message from %s, clipboard left as is", scan.Source)
		return
	}

	log.Debug().Msgf("scan from %s (uid %q, %d bytes)", scan.Source, scan.UID, len(scan.Message))
	intent := Intent{
		Action:   ActionNDEFDiscovered,
		Source:   scan.Source,
		Messages: [][]byte{scan.Message},
	}
	if _, err := s.HandleIntent(ctx, intent); err != nil {
		log.Error().Err(err).Msg("failed to handle scan")
	}
}

func sourceOr(source, fallback string) string {
	if source == "" {
		return fallback
	}
	return source
}
