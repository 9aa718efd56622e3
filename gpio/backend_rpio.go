package gpio

import (
	"context"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIO drives pins through the memory mapped GPIO registers. Pins are
// addressed by BCM number, so header pins are translated first.
type RPIO struct {
	configured map[uint32]bool
}

// NewRPIO maps /dev/gpiomem. Only one RPIO should be open per process.
func NewRPIO() (*RPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, errorf("Failed to open GPIO memory: %s", err)
	}
	return &RPIO{configured: make(map[uint32]bool)}, nil
}

func (r *RPIO) Name() string { return BackendRPIO }

func (r *RPIO) Write(_ context.Context, pin uint32, high bool) error {
	bcm := PhysicalToBCM(pin)
	p := rpio.Pin(bcm)

	if !r.configured[bcm] {
		p.Output()
		r.configured[bcm] = true
	}

	if high {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// Read samples the level register without touching the pin mode, so an
// output keeps driving its relay.
func (r *RPIO) Read(_ context.Context, pin uint32) (PinState, error) {
	p := rpio.Pin(PhysicalToBCM(pin))
	if p.Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

func (r *RPIO) Close() error {
	return rpio.Close()
}
