// Package gpio drives the appliance relays. Every write and read goes through
// a Backend, which is one of several strategies for talking to the pins
// (command line tools, memory mapped registers, or the character device).
package gpio

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// glog is resolved per call so it picks up the logger configured in main.
func glog() *zerolog.Logger {
	l := log.With().Str("component", "gpio").Logger()
	return &l
}

type PinState int

const (
	Unknown PinState = iota
	Low
	High
)

func (s PinState) String() string {
	switch s {
	case High:
		return "High"
	case Low:
		return "Low"
	default:
		return "Unknown"
	}
}

func (s PinState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PinState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "High":
		*s = High
	case "Low":
		*s = Low
	case "Unknown":
		*s = Unknown
	default:
		return fmt.Errorf("invalid pin state %q", str)
	}
	return nil
}

func stateOf(high bool) PinState {
	if high {
		return High
	}
	return Low
}

// PinStatus is a point in time view of one pin.
type PinStatus struct {
	Pin         uint32   `json:"pin"`
	State       PinState `json:"state"`
	LastToggled *string  `json:"last_toggled"`
}

// Error is the only error kind returned by backends. The message carries
// whatever the tool printed, verbatim.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Backend writes and reads physical pin levels. Implementations are not
// required to be safe for concurrent use; the Controller serializes calls.
type Backend interface {
	Name() string
	Write(ctx context.Context, pin uint32, high bool) error
	Read(ctx context.Context, pin uint32) (PinState, error)
}

// Closer is implemented by backends holding hardware resources.
type Closer interface {
	Close() error
}
