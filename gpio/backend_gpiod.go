package gpio

import (
	"context"
)

// DefaultChip is the GPIO chip the libgpiod tools are pointed at.
const DefaultChip = "gpiochip0"

// GPIOSetV1 uses the short-flag gpioset/gpioget syntax with a timed hold,
// addressing lines by BCM number.
type GPIOSetV1 struct {
	set  command
	get  command
	chip string
}

func NewGPIOSetV1(runner Runner, chip string) *GPIOSetV1 {
	return &GPIOSetV1{
		set:  command{runner: runner, tool: "gpioset"},
		get:  command{runner: runner, tool: "gpioget"},
		chip: chipOrDefault(chip),
	}
}

func (g *GPIOSetV1) Name() string { return BackendGPIOSetV1 }

func (g *GPIOSetV1) Write(ctx context.Context, pin uint32, high bool) error {
	line := pinArg(PhysicalToBCM(pin))
	_, err := g.set.run(ctx, "Failed to write GPIO pin",
		"-c", g.chip, "-t", "200ms,0", line+"="+levelArg(high))
	return err
}

func (g *GPIOSetV1) Read(ctx context.Context, pin uint32) (PinState, error) {
	line := pinArg(PhysicalToBCM(pin))
	out, err := g.get.run(ctx, "Failed to read GPIO pin", "-c", g.chip, line)
	if err != nil {
		return Unknown, err
	}
	return parseStrict(out), nil
}

// GPIOSetV2 uses the long-flag syntax, exits right after setting the line,
// and takes pin numbers as line offsets without translation.
type GPIOSetV2 struct {
	set  command
	get  command
	chip string
}

func NewGPIOSetV2(runner Runner, chip string) *GPIOSetV2 {
	return &GPIOSetV2{
		set:  command{runner: runner, tool: "gpioset"},
		get:  command{runner: runner, tool: "gpioget"},
		chip: chipOrDefault(chip),
	}
}

func (g *GPIOSetV2) Name() string { return BackendGPIOSetV2 }

func (g *GPIOSetV2) Write(ctx context.Context, pin uint32, high bool) error {
	_, err := g.set.run(ctx, "Failed to write GPIO pin",
		"--mode=exit", "--chip="+g.chip, pinArg(pin)+"="+levelArg(high))
	return err
}

func (g *GPIOSetV2) Read(ctx context.Context, pin uint32) (PinState, error) {
	out, err := g.get.run(ctx, "Failed to read GPIO pin", "--chip="+g.chip, pinArg(pin))
	if err != nil {
		return Unknown, err
	}
	return parseTriState(out), nil
}

// GPIOSetPulse launches gpioset with a short hold period and does not wait
// for it. Back-to-back writes to a held line fail with "device busy", so the
// write is reported as done once the process has been spawned. A failure
// after that point is only logged; the caller never sees it.
type GPIOSetPulse struct {
	runner Runner
	get    command
	chip   string
}

func NewGPIOSetPulse(runner Runner, chip string) *GPIOSetPulse {
	return &GPIOSetPulse{
		runner: runner,
		get:    command{runner: runner, tool: "gpioget"},
		chip:   chipOrDefault(chip),
	}
}

func (g *GPIOSetPulse) Name() string { return BackendGPIOSetPulse }

func (g *GPIOSetPulse) Write(_ context.Context, pin uint32, high bool) error {
	args := []string{"--chip", g.chip, "--hold-period", "50ms", pinArg(pin) + "=" + levelArg(high)}

	err := g.runner.Start("gpioset", args, func(stderr string, err error) {
		if err != nil {
			glog().Warn().
				Err(err).
				Uint32("pin", pin).
				Str("stderr", stderr).
				Msg("Background gpioset failed")
		}
	})
	if err != nil {
		glog().Error().Err(err).Msg("Failed to execute command")
		return errorf("Failed to execute gpioset command: %s", err)
	}
	return nil
}

func (g *GPIOSetPulse) Read(ctx context.Context, pin uint32) (PinState, error) {
	out, err := g.get.run(ctx, "Failed to read GPIO pin", "--chip", g.chip, pinArg(pin))
	if err != nil {
		return Unknown, err
	}
	return parseTriState(out), nil
}

func chipOrDefault(chip string) string {
	if chip == "" {
		return DefaultChip
	}
	return chip
}
