// Package mqtt mirrors recorded pin levels to an MQTT broker as retained
// state messages, one topic per appliance.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gregoryjjb/fireside/gpio"
)

func mlog() *zerolog.Logger {
	l := log.With().Str("component", "mqtt").Logger()
	return &l
}

// Publisher sends raw messages to a broker. Every message is QoS 1.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
	Close() error
}

// Appliances resolves pins to appliance names using the live config.
type Appliances interface {
	Room() string
	PinName(pin uint32) (string, bool)
	ActiveLow() bool
}

// StatePayload is the body of a state message.
type StatePayload struct {
	Pin       uint32        `json:"pin"`
	Device    *string       `json:"device,omitempty"`
	State     gpio.PinState `json:"state"`
	On        bool          `json:"on"`
	Timestamp string        `json:"timestamp"`
}

// StatusTopic carries "online" while connected and "offline" as the will.
func StatusTopic(prefix, room string) string {
	return fmt.Sprintf("%s/%s/status", prefix, room)
}

// Forwarder turns controller events into state messages.
type Forwarder struct {
	pub        Publisher
	prefix     string
	appliances Appliances
}

func NewForwarder(pub Publisher, prefix string, appliances Appliances) *Forwarder {
	return &Forwarder{
		pub:        pub,
		prefix:     prefix,
		appliances: appliances,
	}
}

// Topic is <prefix>/<room>/<device>/state, or pin-N in place of the device
// when the pin is not a configured appliance.
func (f *Forwarder) Topic(pin uint32) string {
	segment := fmt.Sprintf("pin-%d", pin)
	if name, ok := f.appliances.PinName(pin); ok {
		segment = name
	}
	return fmt.Sprintf("%s/%s/%s/state", f.prefix, f.appliances.Room(), segment)
}

func (f *Forwarder) Payload(ev gpio.PinEvent) ([]byte, error) {
	p := StatePayload{
		Pin:       ev.Pin,
		State:     ev.State,
		On:        ev.State != gpio.Unknown && (ev.State == gpio.High) != f.appliances.ActiveLow(),
		Timestamp: ev.Time.UTC().Format(time.RFC3339),
	}
	if name, ok := f.appliances.PinName(ev.Pin); ok {
		p.Device = &name
	}
	return json.Marshal(p)
}

// Handle publishes one event. Failures are returned, never retried.
func (f *Forwarder) Handle(ev gpio.PinEvent) error {
	payload, err := f.Payload(ev)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return f.pub.Publish(f.Topic(ev.Pin), payload, true)
}

// Run forwards events until ctx is done or the channel closes.
func (f *Forwarder) Run(ctx context.Context, events <-chan gpio.PinEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := f.Handle(ev); err != nil {
				mlog().Warn().Err(err).Uint32("pin", ev.Pin).Msg("Failed to publish pin state")
			}
		}
	}
}
