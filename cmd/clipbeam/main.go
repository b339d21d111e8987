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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/clipbeam/pkg/cli"
	"github.com/ZaparooProject/clipbeam/pkg/clipboard"
	"github.com/ZaparooProject/clipbeam/pkg/config"
	"github.com/ZaparooProject/clipbeam/pkg/helpers"
	"github.com/ZaparooProject/clipbeam/pkg/readers"
	"github.com/ZaparooProject/clipbeam/pkg/readers/mqtt"
	"github.com/ZaparooProject/clipbeam/pkg/readers/pcsc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)

	done, err := flags.Pre(os.Args[1:], os.Stdout)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	}

	paths := helpers.DefaultPaths()
	fs := afero.NewOsFs()

	cfg, err := cli.Setup(fs, paths, config.BaseDefaults, logWriters)
	if err != nil {
		return err
	}

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handled, err := flags.Post(ctx, cli.Env{
		Cfg:       cfg,
		Fs:        fs,
		Clipboard: clipboard.NewSystem(),
		Out:       os.Stdout,
		Paths:     paths,
		Factories: []readers.Factory{
			pcsc.NewFactory(),
			mqtt.NewFactory(),
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("command failed")
		return err
	}
	if !handled {
		flag.Usage()
	}
	return nil
}
