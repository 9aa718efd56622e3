package gpio

import (
	"context"
	"strconv"
	"strings"
)

// command is the shared plumbing of the CLI backends.
type command struct {
	runner Runner
	tool   string
}

// run executes the tool and turns any failure into an *Error. what
// describes the step for the message, e.g. "Failed to write GPIO pin".
func (c command) run(ctx context.Context, what string, args ...string) (string, error) {
	stdout, stderr, err := c.runner.Run(ctx, c.tool, args...)
	if err != nil {
		if isSpawnError(err) {
			glog().Error().Err(err).Str("tool", c.tool).Msg("Failed to execute command")
			return "", errorf("Failed to execute %s command: %s", c.tool, err)
		}
		msg := failureText(stdout, stderr, err)
		glog().Error().Str("tool", c.tool).Str("output", msg).Msg(what)
		return "", errorf("%s: %s", what, msg)
	}
	return stdout, nil
}

func pinArg(pin uint32) string {
	return strconv.FormatUint(uint64(pin), 10)
}

func levelArg(high bool) string {
	if high {
		return "1"
	}
	return "0"
}

// parseStrict maps "1" to High and everything else to Low.
func parseStrict(out string) PinState {
	if strings.TrimSpace(out) == "1" {
		return High
	}
	return Low
}

// parseTriState maps "1" to High, "0" to Low, anything else to Unknown.
func parseTriState(out string) PinState {
	switch strings.TrimSpace(out) {
	case "1":
		return High
	case "0":
		return Low
	default:
		return Unknown
	}
}
