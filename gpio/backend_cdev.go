//go:build linux

package gpio

import (
	"context"

	"github.com/warthog618/go-gpiocdev"
)

// CharDev drives lines through the Linux GPIO character device. Output
// lines stay requested after the first write so the level holds; Close
// releases them.
type CharDev struct {
	chip  string
	lines map[uint32]*gpiocdev.Line
}

func NewCharDev(chip string) (*CharDev, error) {
	chip = chipOrDefault(chip)

	// Fail at startup rather than on the first request.
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, errorf("Failed to open %s: %s", chip, err)
	}
	c.Close()

	return &CharDev{
		chip:  chip,
		lines: make(map[uint32]*gpiocdev.Line),
	}, nil
}

func (c *CharDev) Name() string { return BackendCharDev }

func (c *CharDev) Write(_ context.Context, pin uint32, high bool) error {
	value := 0
	if high {
		value = 1
	}

	if line, ok := c.lines[pin]; ok {
		if err := line.SetValue(value); err != nil {
			return errorf("Failed to write GPIO pin: %s", err)
		}
		return nil
	}

	line, err := gpiocdev.RequestLine(c.chip, int(pin), gpiocdev.AsOutput(value))
	if err != nil {
		return errorf("Failed to request GPIO line %d: %s", pin, err)
	}
	c.lines[pin] = line
	return nil
}

func (c *CharDev) Read(_ context.Context, pin uint32) (PinState, error) {
	if line, ok := c.lines[pin]; ok {
		v, err := line.Value()
		if err != nil {
			return Unknown, errorf("Failed to read GPIO pin: %s", err)
		}
		return stateOf(v == 1), nil
	}

	line, err := gpiocdev.RequestLine(c.chip, int(pin), gpiocdev.AsInput)
	if err != nil {
		return Unknown, errorf("Failed to request GPIO line %d: %s", pin, err)
	}
	defer line.Close()

	v, err := line.Value()
	if err != nil {
		return Unknown, errorf("Failed to read GPIO pin: %s", err)
	}
	return stateOf(v == 1), nil
}

func (c *CharDev) Close() error {
	var first error
	for pin, line := range c.lines {
		if err := line.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.lines, pin)
	}
	return first
}
