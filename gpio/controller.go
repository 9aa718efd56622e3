package gpio

import (
	"context"
	"sort"
	"sync"
	"time"

	"gregoryjjb/fireside/circularbuffer"
	"gregoryjjb/fireside/pubsub"
)

// HistorySize is how many PinEvents the controller remembers.
const HistorySize = 64

type EventSource string

const (
	SourceSet     EventSource = "set"
	SourceToggle  EventSource = "toggle"
	SourceRefresh EventSource = "refresh"
)

// PinEvent is emitted whenever the controller records a pin level.
type PinEvent struct {
	Pin    uint32      `json:"pin"`
	State  PinState    `json:"state"`
	Source EventSource `json:"source"`
	Time   time.Time   `json:"time"`
}

// Controller owns the backend and the table of last known pin levels.
// One mutex covers both, and it is held across the backend call, so only
// one party drives the pins at a time. A hung backend blocks everyone.
type Controller struct {
	mu      sync.Mutex
	backend Backend
	states  map[uint32]PinState

	history *circularbuffer.CircularBuffer[PinEvent]
	events  *pubsub.Pubsub[PinEvent]
	now     func() time.Time
}

func NewController(backend Backend) *Controller {
	return &Controller{
		backend: backend,
		states:  make(map[uint32]PinState),
		history: circularbuffer.New[PinEvent](HistorySize),
		events:  pubsub.New[PinEvent](),
		now:     time.Now,
	}
}

func (c *Controller) Backend() string {
	return c.backend.Name()
}

// SetPin drives pin to the level that means logicalOn. With activeLow the
// level is inverted. The recorded state is the physical level.
func (c *Controller) SetPin(ctx context.Context, pin uint32, logicalOn bool, activeLow bool) error {
	high := logicalOn
	if activeLow {
		high = !logicalOn
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.Write(ctx, pin, high); err != nil {
		return err
	}

	c.record(pin, stateOf(high), SourceSet)
	glog().Info().
		Uint32("pin", pin).
		Bool("on", logicalOn).
		Bool("active_low", activeLow).
		Str("state", stateOf(high).String()).
		Msg("GPIO pin set")
	return nil
}

// TogglePin reads the pin and writes the opposite level. The toggle only
// goes ahead when the read confirms High or Low: a failed or unparsable
// read is returned as an error and nothing is written.
func (c *Controller) TogglePin(ctx context.Context, pin uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.backend.Read(ctx, pin)
	if err != nil {
		return err
	}
	if current == Unknown {
		return errorf("Cannot toggle GPIO pin %d: current state is unknown", pin)
	}

	next := High
	if current == High {
		next = Low
	}

	if err := c.backend.Write(ctx, pin, next == High); err != nil {
		return err
	}

	c.record(pin, next, SourceToggle)
	glog().Info().Uint32("pin", pin).Str("state", next.String()).Msg("GPIO pin toggled")
	return nil
}

// RefreshPin reads the pin from hardware. High and Low readings are
// recorded; an Unknown reading is returned but leaves the table alone.
func (c *Controller) RefreshPin(ctx context.Context, pin uint32) (PinState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.backend.Read(ctx, pin)
	if err != nil {
		return Unknown, err
	}
	if state != Unknown {
		c.record(pin, state, SourceRefresh)
	}
	return state, nil
}

// PinState returns the last recorded level of pin without touching hardware.
func (c *Controller) PinState(pin uint32) PinState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.states[pin]; ok {
		return s
	}
	return Unknown
}

// AllPinStates snapshots the table, ordered by pin. Every entry is stamped
// with the time of the snapshot, not the time the pin was written.
func (c *Controller) AllPinStates() []PinStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	stamp := c.now().Format(time.RFC3339)
	out := make([]PinStatus, 0, len(c.states))
	for pin, state := range c.states {
		ts := stamp
		out = append(out, PinStatus{
			Pin:         pin,
			State:       state,
			LastToggled: &ts,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pin < out[j].Pin })
	return out
}

// History returns recent PinEvents, oldest first.
func (c *Controller) History() []PinEvent {
	return c.history.Items()
}

// Subscribe streams PinEvents until the returned func is called. Slow
// readers miss events rather than stalling the controller.
func (c *Controller) Subscribe() (func(), <-chan PinEvent) {
	id, ch := c.events.Subscribe()
	return func() {
		c.events.Unsubscribe(id)
	}, ch
}

// Close stops all subscriptions and releases the backend's hardware, if any.
func (c *Controller) Close() error {
	c.events.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	if closer, ok := c.backend.(Closer); ok {
		return closer.Close()
	}
	return nil
}

// record must be called with mu held.
func (c *Controller) record(pin uint32, state PinState, source EventSource) {
	c.states[pin] = state

	ev := PinEvent{
		Pin:    pin,
		State:  state,
		Source: source,
		Time:   c.now(),
	}
	c.history.Push(ev)
	c.events.Publish(ev)
}
