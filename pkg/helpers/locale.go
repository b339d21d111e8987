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

package helpers

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when the environment has no usable locale.
const DefaultLanguage = "en"

var localeEnvVars = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// LanguageTag returns the base language of the user's locale, e.g. "de" for
// LANG=de_DE.UTF-8. The first non-empty of LC_ALL, LC_MESSAGES and LANG
// wins.
func LanguageTag() string {
	return languageFromEnv(os.Getenv)
}

func languageFromEnv(getenv func(string) string) string {
	for _, key := range localeEnvVars {
		v := getenv(key)
		if v == "" {
			continue
		}
		return ParseLocale(v)
	}
	return DefaultLanguage
}

// ParseLocale converts a POSIX locale string to a base language code.
func ParseLocale(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultLanguage
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return DefaultLanguage
	}

	base, conf := tag.Base()
	if conf == language.No {
		return DefaultLanguage
	}
	return base.String()
}
