package gpio

import (
	"context"
	"strings"
)

// RaspiGPIO drives pins with the raspi-gpio utility.
type RaspiGPIO struct {
	command
}

func NewRaspiGPIO(runner Runner) *RaspiGPIO {
	return &RaspiGPIO{command: command{runner: runner, tool: "raspi-gpio"}}
}

func (r *RaspiGPIO) Name() string { return BackendRaspiGPIO }

func (r *RaspiGPIO) Write(ctx context.Context, pin uint32, high bool) error {
	level := "dl"
	if high {
		level = "dh"
	}
	_, err := r.run(ctx, "Failed to write GPIO pin", "set", pinArg(pin), "op", level)
	return err
}

// Read parses lines like "GPIO 17: level=1 fsel=1 func=OUTPUT".
func (r *RaspiGPIO) Read(ctx context.Context, pin uint32) (PinState, error) {
	out, err := r.run(ctx, "Failed to read GPIO pin", "get", pinArg(pin))
	if err != nil {
		return Unknown, err
	}

	switch {
	case strings.Contains(out, "level=1"):
		return High, nil
	case strings.Contains(out, "level=0"):
		return Low, nil
	}
	return Unknown, errorf("Failed to parse raspi-gpio output: %s", strings.TrimSpace(out))
}
