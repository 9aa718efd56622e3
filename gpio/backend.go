package gpio

import (
	"fmt"
	"time"
)

const (
	BackendWiringPi     = "gpio"
	BackendWiringPiBCM  = "gpio-bcm"
	BackendGPIOSetV1    = "gpioset-v1"
	BackendGPIOSetV2    = "gpioset-v2"
	BackendGPIOSetPulse = "gpioset-pulse"
	BackendRaspiGPIO    = "raspi-gpio"
	BackendRPIO         = "rpio"
	BackendCharDev      = "cdev"
	BackendSimulated    = "simulated"
)

// Backends lists every accepted backend name.
var Backends = []string{
	BackendWiringPi,
	BackendWiringPiBCM,
	BackendGPIOSetV1,
	BackendGPIOSetV2,
	BackendGPIOSetPulse,
	BackendRaspiGPIO,
	BackendRPIO,
	BackendCharDev,
	BackendSimulated,
}

type Options struct {
	Backend string
	Chip    string

	// CommandTimeout bounds each external tool invocation. Zero waits forever.
	CommandTimeout time.Duration

	// Runner overrides process execution for the CLI backends.
	Runner Runner
}

// NewBackend builds the backend named in opts.
func NewBackend(opts Options) (Backend, error) {
	runner := opts.Runner
	if runner == nil {
		runner = NewExecRunner(opts.CommandTimeout)
	}

	switch opts.Backend {
	case BackendWiringPi:
		return NewWiringPi(runner), nil
	case BackendWiringPiBCM:
		return NewWiringPiBCM(runner), nil
	case BackendGPIOSetV1:
		return NewGPIOSetV1(runner, opts.Chip), nil
	case BackendGPIOSetV2:
		return NewGPIOSetV2(runner, opts.Chip), nil
	case BackendGPIOSetPulse:
		return NewGPIOSetPulse(runner, opts.Chip), nil
	case BackendRaspiGPIO:
		return NewRaspiGPIO(runner), nil
	case BackendRPIO:
		b, err := NewRPIO()
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendCharDev:
		b, err := NewCharDev(opts.Chip)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendSimulated:
		return NewSimulated(), nil
	}

	return nil, fmt.Errorf("unknown gpio backend %q (expected one of %v)", opts.Backend, Backends)
}
