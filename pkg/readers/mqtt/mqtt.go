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

// Package mqtt beams NDEF messages between Clipbeam instances over an
// MQTT broker. Every message published on the topic is delivered as a
// scan, and Write publishes to the same topic.
package mqtt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/clipbeam/pkg/config"
	"github.com/ZaparooProject/clipbeam/pkg/helpers/syncutil"
	"github.com/ZaparooProject/clipbeam/pkg/readers"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	qos            = 1
	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
)

type ClientFactory func(*mqtt.ClientOptions) mqtt.Client

var DefaultClientFactory ClientFactory = mqtt.NewClient

type Reader struct {
	client        mqtt.Client
	cfg           *config.Instance
	scanCh        chan<- readers.Scan
	done          chan struct{}
	clientFactory ClientFactory
	device        config.ReadersConnect
	endpoint      Endpoint
	lastSent      []byte
	mu            syncutil.Mutex
}

func NewReader(cfg *config.Instance) *Reader {
	return &Reader{
		cfg:           cfg,
		clientFactory: DefaultClientFactory,
	}
}

// NewFactory adapts NewReader to readers.Factory.
func NewFactory() readers.Factory {
	return func(cfg *config.Instance) readers.Reader {
		return NewReader(cfg)
	}
}

func (*Reader) Metadata() readers.DriverMetadata {
	return readers.DriverMetadata{
		ID:          config.DriverMQTT,
		Description: "Peer beam over MQTT",
		CanWrite:    true,
	}
}

func (*Reader) IDs() []string {
	return []string{config.DriverMQTT}
}

func (r *Reader) Open(device config.ReadersConnect, scanQueue chan<- readers.Scan) error {
	if !readers.SupportsDriver(r, device.Driver) {
		return fmt.Errorf("%w: %s", readers.ErrInvalidDriver, device.Driver)
	}

	ep, err := ParseMQTTPath(device.Path)
	if errors.Is(err, ErrNoTopic) && r.cfg != nil {
		ep.Topic = r.cfg.BeamTopic()
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to parse MQTT path: %w", err)
	}

	done := make(chan struct{})

	r.mu.Lock()
	r.device = device
	r.endpoint = ep
	r.scanCh = scanQueue
	r.done = done
	r.mu.Unlock()

	opts := NewClientOptions(ep, "clipbeam-")

	opts.OnConnect = func(client mqtt.Client) {
		log.Info().Msgf("mqtt: connected to %s", ep.Broker)

		// re-subscribes on reconnect
		token := client.Subscribe(ep.Topic, qos, r.messageHandler(done))
		if token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Msgf("mqtt: failed to subscribe to %s", ep.Topic)
			r.send(done, readers.Scan{
				Source: device.ConnectionString(),
				Error:  fmt.Errorf("failed to subscribe to topic: %w", token.Error()),
			})
			return
		}

		log.Info().Msgf("mqtt: subscribed to topic %s", ep.Topic)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt: connection lost")
	}

	client := r.clientFactory(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return errors.New("failed to connect to MQTT broker: connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	r.mu.Lock()
	r.client = client
	r.mu.Unlock()

	log.Info().Msgf("mqtt: opened connection to %s (topic: %s)", ep.Broker, ep.Topic)
	return nil
}

func (r *Reader) send(done <-chan struct{}, scan readers.Scan) {
	r.mu.Lock()
	ch := r.scanCh
	r.mu.Unlock()

	select {
	case ch <- scan:
	case <-done:
	}
}

func (r *Reader) messageHandler(done <-chan struct{}) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		if len(payload) == 0 {
			log.Debug().Msg("mqtt: ignoring empty message")
			return
		}

		r.mu.Lock()
		echo := r.lastSent != nil && bytes.Equal(payload, r.lastSent)
		if echo {
			r.lastSent = nil
		}
		source := r.device.ConnectionString()
		r.mu.Unlock()

		if echo {
			log.Debug().Msg("mqtt: ignoring own message")
			return
		}

		log.Debug().Msgf("mqtt: received %d bytes on %s", len(payload), msg.Topic())
		r.send(done, readers.Scan{
			Source:  source,
			Message: bytes.Clone(payload),
		})
	}
}

func (r *Reader) Close() error {
	r.mu.Lock()
	client := r.client
	done := r.done
	r.client = nil
	r.done = nil
	r.mu.Unlock()

	if done != nil {
		close(done)
	}
	if client != nil && client.IsConnected() {
		log.Debug().Msg("mqtt: disconnecting")
		client.Disconnect(250)
	}
	return nil
}

func (r *Reader) Device() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.device.ConnectionString()
}

func (r *Reader) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client != nil && r.client.IsConnected()
}

func (r *Reader) Info() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("MQTT: %s/%s", r.endpoint.Broker, r.endpoint.Topic)
}

// Write publishes message to the beam topic.
func (r *Reader) Write(message []byte) error {
	r.mu.Lock()
	client := r.client
	topic := r.endpoint.Topic
	r.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return readers.ErrNotConnected
	}

	r.mu.Lock()
	r.lastSent = bytes.Clone(message)
	r.mu.Unlock()

	token := client.Publish(topic, qos, false, message)
	if !token.WaitTimeout(publishTimeout) {
		return readers.ErrWriteTimeout
	}
	if err := token.Error(); err != nil {
		r.mu.Lock()
		r.lastSent = nil
		r.mu.Unlock()
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.Info().Msgf("mqtt: published %d bytes to %s", len(message), topic)
	return nil
}
