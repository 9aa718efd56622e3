//go:build !linux

package gpio

import "context"

// CharDev is not available on non-Linux platforms.
type CharDev struct{}

func NewCharDev(chip string) (*CharDev, error) {
	return nil, errorf("GPIO character device requires Linux")
}

func (c *CharDev) Name() string { return BackendCharDev }

func (c *CharDev) Write(context.Context, uint32, bool) error {
	return errorf("GPIO character device requires Linux")
}

func (c *CharDev) Read(context.Context, uint32) (PinState, error) {
	return Unknown, errorf("GPIO character device requires Linux")
}

func (c *CharDev) Close() error { return nil }
