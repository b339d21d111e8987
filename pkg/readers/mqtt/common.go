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

package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyPath = errors.New("path cannot be empty")
	ErrNoBroker  = errors.New("broker address (host:port) is required")
	ErrNoTopic   = errors.New("topic is required")
)

// Endpoint is a parsed reader path of the form
// [scheme://][user:pass@]host:port[/topic].
type Endpoint struct {
	User   *url.Userinfo
	Scheme string
	Broker string
	Topic  string
}

// UseTLS reports whether the scheme asks for a TLS connection.
func (e Endpoint) UseTLS() bool {
	return e.Scheme == "mqtts" || e.Scheme == "ssl"
}

// BrokerURL returns the URL handed to paho, which only knows tcp and ssl.
func (e Endpoint) BrokerURL() string {
	if e.UseTLS() {
		return "ssl://" + e.Broker
	}
	return "tcp://" + e.Broker
}

// ParseMQTTPath parses a reader path. A missing topic returns the
// endpoint together with ErrNoTopic so callers can fall back to a default.
func ParseMQTTPath(path string) (Endpoint, error) {
	if path == "" {
		return Endpoint{}, ErrEmptyPath
	}

	urlStr := path
	if !strings.Contains(path, "://") {
		urlStr = "mqtt://" + path
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to parse MQTT URL: %w", err)
	}

	switch u.Scheme {
	case "mqtt", "tcp", "mqtts", "ssl":
	default:
		return Endpoint{}, fmt.Errorf("unsupported MQTT scheme: %q", u.Scheme)
	}

	if u.Host == "" {
		return Endpoint{}, ErrNoBroker
	}

	ep := Endpoint{
		Scheme: u.Scheme,
		Broker: u.Host,
		Topic:  strings.Trim(u.Path, "/"),
		User:   u.User,
	}
	if ep.Topic == "" {
		return ep, ErrNoTopic
	}
	return ep, nil
}

// NewClientOptions returns paho options for the endpoint with a random
// client ID under clientIDPrefix.
func NewClientOptions(ep Endpoint, clientIDPrefix string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(ep.BrokerURL())
	opts.SetClientID(clientIDPrefix + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOrderMatters(false)

	if ep.User != nil && ep.User.Username() != "" {
		opts.SetUsername(ep.User.Username())
		if pass, ok := ep.User.Password(); ok {
			opts.SetPassword(pass)
		}
		log.Debug().Msgf("mqtt: using authentication for %s", ep.Broker)
	}

	if ep.UseTLS() {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
		log.Debug().Msgf("mqtt: using TLS for %s", ep.Broker)
	}

	return opts
}
