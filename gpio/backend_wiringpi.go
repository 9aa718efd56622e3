package gpio

import "context"

// WiringPi drives pins with the wiringPi `gpio` utility. Every operation is
// two invocations: set the pin mode, then write or read it.
type WiringPi struct {
	command
	bcm bool
}

// NewWiringPi addresses pins by the number given.
func NewWiringPi(runner Runner) *WiringPi {
	return &WiringPi{command: command{runner: runner, tool: "gpio"}}
}

// NewWiringPiBCM translates header pins to BCM numbers and passes -g.
func NewWiringPiBCM(runner Runner) *WiringPi {
	return &WiringPi{command: command{runner: runner, tool: "gpio"}, bcm: true}
}

func (w *WiringPi) Name() string {
	if w.bcm {
		return BackendWiringPiBCM
	}
	return BackendWiringPi
}

func (w *WiringPi) args(args ...string) []string {
	if w.bcm {
		return append([]string{"-g"}, args...)
	}
	return args
}

func (w *WiringPi) target(pin uint32) string {
	if w.bcm {
		return pinArg(PhysicalToBCM(pin))
	}
	return pinArg(pin)
}

func (w *WiringPi) Write(ctx context.Context, pin uint32, high bool) error {
	p := w.target(pin)

	if _, err := w.run(ctx, "Failed to set GPIO mode", w.args("mode", p, "out")...); err != nil {
		return err
	}
	if _, err := w.run(ctx, "Failed to write GPIO pin", w.args("write", p, levelArg(high))...); err != nil {
		return err
	}

	glog().Debug().Str("pin", p).Bool("high", high).Msg("Pin written")
	return nil
}

func (w *WiringPi) Read(ctx context.Context, pin uint32) (PinState, error) {
	p := w.target(pin)

	if _, err := w.run(ctx, "Failed to set GPIO mode", w.args("mode", p, "in")...); err != nil {
		return Unknown, err
	}
	out, err := w.run(ctx, "Failed to read GPIO pin", w.args("read", p)...)
	if err != nil {
		return Unknown, err
	}

	return parseStrict(out), nil
}
