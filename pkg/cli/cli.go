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

package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ZaparooProject/clipbeam/pkg/clipboard"
	"github.com/ZaparooProject/clipbeam/pkg/config"
	"github.com/ZaparooProject/clipbeam/pkg/helpers"
	"github.com/ZaparooProject/clipbeam/pkg/ndef/text"
	"github.com/ZaparooProject/clipbeam/pkg/readers"
	"github.com/ZaparooProject/clipbeam/pkg/service"
	"github.com/ZaparooProject/clipbeam/pkg/state"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrMissingValue = errors.New("flag requires a value")

type Flags struct {
	fs      *flag.FlagSet
	Encode  *string
	Lang    *string
	Decode  *string
	View    *string
	Write   *string
	UTF16   *bool
	Push    *bool
	Daemon  *bool
	Version *bool
}

// SetupFlags defines the CLI flags on fs, usually flag.CommandLine.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs: fs,
		Encode: fs.String(
			"encode",
			"",
			"print the text record payload for value as hex",
		),
		Lang: fs.String(
			"lang",
			"",
			"language code used by -encode (default from locale)",
		),
		UTF16: fs.Bool(
			"utf16",
			false,
			"encode the text record body as UTF-16",
		),
		Decode: fs.String(
			"decode",
			"",
			"decode a hex text record payload and print it",
		),
		View: fs.String(
			"view",
			"",
			"open a beam link and copy its text to the clipboard",
		),
		Push: fs.Bool(
			"push",
			false,
			"print the push message for the clipboard text as hex",
		),
		Write: fs.String(
			"write",
			"",
			"write value to the next tag on the first writable reader",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"bridge reader scans into the clipboard until interrupted",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and actions the flags that need no config or logging.
// done is true when a flag was handled and the program should exit.
func (f *Flags) Pre(args []string, out io.Writer) (done bool, err error) {
	if err := f.fs.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	switch {
	case *f.Version:
		_, _ = fmt.Fprintf(out, "Clipbeam v%s (%s/%s)\n", config.AppVersion, runtime.GOOS, runtime.GOARCH)
		return true, nil
	case f.isFlagPassed("encode"):
		lang := *f.Lang
		if lang == "" {
			lang = helpers.LanguageTag()
		}
		return true, EncodeHex(out, *f.Encode, lang, *f.UTF16)
	case f.isFlagPassed("decode"):
		if *f.Decode == "" {
			return true, fmt.Errorf("decode: %w", ErrMissingValue)
		}
		return true, DecodeHex(out, *f.Decode)
	}

	return false, nil
}

// EncodeHex writes the text record payload for txt as hex.
func EncodeHex(out io.Writer, txt, lang string, utf16 bool) error {
	encode := text.Encode
	if utf16 {
		encode = text.EncodeUTF16
	}

	payload, err := encode(txt, lang)
	if err != nil {
		return fmt.Errorf("failed to encode text record: %w", err)
	}
	_, _ = fmt.Fprintln(out, hex.EncodeToString(payload))
	return nil
}

// DecodeHex decodes a hex text record payload and writes its language and
// text.
func DecodeHex(out io.Writer, value string) error {
	payload, err := hex.DecodeString(strings.Join(strings.Fields(value), ""))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}

	txt, lang, err := text.Decode(payload)
	if err != nil {
		return fmt.Errorf("failed to decode text record: %w", err)
	}
	_, _ = fmt.Fprintf(out, "%s: %s\n", lang, txt)
	return nil
}

// Setup initialises logging and loads the config.
func Setup(
	fs afero.Fs,
	paths helpers.Paths,
	defaultConfig config.Values,
	writers []io.Writer,
) (*config.Instance, error) {
	if err := helpers.InitLogging(paths.LogDir, writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(fs, paths.ConfigDir, defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	helpers.SetDebugLogging(cfg.DebugLogging())
	log.Info().Msgf("clipbeam v%s, config: %s", config.AppVersion, cfg.Path())

	return cfg, nil
}

// Env is everything the remaining flags need once config is loaded.
type Env struct {
	Cfg       *config.Instance
	Fs        afero.Fs
	Clipboard clipboard.Clipboard
	Out       io.Writer
	Paths     helpers.Paths
	Factories []readers.Factory
}

// Post actions the flags that need config and logging. handled is false
// when no such flag was given.
func (f *Flags) Post(ctx context.Context, env Env) (handled bool, err error) {
	switch {
	case f.isFlagPassed("view"):
		if *f.View == "" {
			return true, fmt.Errorf("view: %w", ErrMissingValue)
		}
		return true, viewLink(ctx, env, *f.View)
	case *f.Push:
		return true, printPush(ctx, env)
	case f.isFlagPassed("write"):
		if *f.Write == "" {
			return true, fmt.Errorf("write: %w", ErrMissingValue)
		}
		if err := WriteTag(ctx, env, *f.Write); err != nil {
			return true, err
		}
		_, _ = fmt.Fprintf(env.Out, "Tag: %s written successfully\n", *f.Write)
		return true, nil
	case *f.Daemon:
		return true, RunDaemon(ctx, env)
	}
	return false, nil
}

func viewLink(ctx context.Context, env Env, link string) error {
	svc, err := service.New(env.Cfg, state.New(nil), env.Clipboard)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	out, err := svc.HandleIntent(ctx, service.Intent{Action: service.ActionView, Data: link})
	if err != nil {
		return fmt.Errorf("failed to open link: %w", err)
	}
	_, _ = fmt.Fprintln(env.Out, out.Text)
	return nil
}

func printPush(ctx context.Context, env Env) error {
	svc, err := service.New(env.Cfg, state.New(nil), env.Clipboard)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	if _, err := svc.HandleIntent(ctx, service.Intent{Action: service.ActionMain}); err != nil {
		return fmt.Errorf("failed to load clipboard: %w", err)
	}

	msg, err := svc.PushMessage()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(env.Out, hex.EncodeToString(msg))
	return nil
}
