package gpio

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Simulated keeps pin levels in memory, for running off the Pi.
type Simulated struct {
	levels map[uint32]bool
}

func NewSimulated() *Simulated {
	glog().Debug().Msg("GPIO will be simulated")
	return &Simulated{levels: make(map[uint32]bool)}
}

func (s *Simulated) Name() string { return BackendSimulated }

func (s *Simulated) Write(_ context.Context, pin uint32, high bool) error {
	s.levels[pin] = high
	s.printStates()
	return nil
}

func (s *Simulated) Read(_ context.Context, pin uint32) (PinState, error) {
	high, ok := s.levels[pin]
	if !ok {
		return Low, nil
	}
	return stateOf(high), nil
}

func (s *Simulated) printStates() {
	pins := make([]uint32, 0, len(s.levels))
	for p := range s.levels {
		pins = append(pins, p)
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i] < pins[j] })

	var b strings.Builder
	for _, p := range pins {
		mark := " "
		if s.levels[p] {
			mark = "#"
		}
		fmt.Fprintf(&b, "%d[%s] ", p, mark)
	}
	glog().Debug().Str("pins", strings.TrimSpace(b.String())).Msg("GPIO")
}
