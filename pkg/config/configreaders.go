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
	"fmt"
	"slices"
	"strings"
)

const (
	DriverPCSC = "pcsc"
	DriverMQTT = "mqtt"
)

type Readers struct {
	Connect []ReadersConnect `toml:"connect,omitempty" validate:"omitempty,dive"`
}

type ReadersConnect struct {
	Enabled *bool  `toml:"enabled,omitempty"`
	Driver  string `toml:"driver" validate:"required,oneof=pcsc mqtt"`
	Path    string `toml:"path,omitempty"`
}

// ConnectionString returns the "driver:path" form used in reader IDs and
// logs.
func (r ReadersConnect) ConnectionString() string {
	return fmt.Sprintf("%s:%s", strings.ToLower(r.Driver), r.Path)
}

// IsEnabled treats an unset enabled flag as true.
func (r ReadersConnect) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

func (c *Instance) Readers() Readers {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Readers{Connect: slices.Clone(c.vals.Readers.Connect)}
}

// EnabledReaders returns the connections for driver that aren't switched
// off.
func (c *Instance) EnabledReaders(driver string) []ReadersConnect {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []ReadersConnect
	for _, rc := range c.vals.Readers.Connect {
		if strings.EqualFold(rc.Driver, driver) && rc.IsEnabled() {
			out = append(out, rc)
		}
	}
	return out
}

func (c *Instance) SetReaderConnections(rcs []ReadersConnect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Readers.Connect = rcs
}
