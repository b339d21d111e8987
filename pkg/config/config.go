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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/clipbeam/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var AppVersion = "DEVELOPMENT"

const (
	SchemaVersion = 1
	CfgEnv        = "CLIPBEAM_CFG"
	CfgFile       = "config.toml"

	DefaultPackageName = "de.ub0r.android.clipboardbeam"
	DefaultBeamTopic   = "clipbeam/beam"
)

var (
	ErrNoConfigPath   = errors.New("config path not set")
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

type Values struct {
	Language        string  `toml:"language,omitempty" validate:"omitempty,max=63,printascii"`
	PackageName     string  `toml:"package_name" validate:"omitempty,max=255,printascii"`
	PasscodePattern string  `toml:"passcode_pattern,omitempty" validate:"omitempty,regex"`
	Beam            Beam    `toml:"beam"`
	Readers         Readers `toml:"readers,omitempty"`
	ConfigSchema    int     `toml:"config_schema"`
	DebugLogging    bool    `toml:"debug_logging"`
}

type Beam struct {
	Topic string `toml:"topic" validate:"required,max=255"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	PackageName:  DefaultPackageName,
	Beam: Beam{
		Topic: DefaultBeamTopic,
	},
}

type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config file from $CLIPBEAM_CFG, or config.toml in
// configDir, writing the defaults to disk first if it doesn't exist yet.
func NewConfig(fs afero.Fs, configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		fs:       fs,
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	exists, err := afero.Exists(fs, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !exists {
		log.Info().Msg("saving new default config to disk")

		if err := fs.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Path() string {
	return c.cfgPath
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return ErrNoConfigPath
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// fields missing from the file keep their defaults
	newVals := c.defaults
	if err := toml.Unmarshal(data, &newVals); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := validateValues(&newVals); err != nil {
		return err
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return ErrNoConfigPath
	}

	c.vals.ConfigSchema = SchemaVersion

	if err := validateValues(&c.vals); err != nil {
		return err
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

// Language is the configured text record language. Empty means use the
// system locale.
func (c *Instance) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Language
}

func (c *Instance) SetLanguage(lang string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.vals
	next.Language = lang
	if err := validateValues(&next); err != nil {
		return err
	}
	c.vals.Language = lang
	return nil
}

// PackageName is the Android package named in the application record of
// outgoing messages. Empty disables the record.
func (c *Instance) PackageName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.PackageName
}

func (c *Instance) PasscodePattern() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.PasscodePattern
}

func (c *Instance) BeamTopic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Beam.Topic
}
