package gpio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackends_WriteCommands(t *testing.T) {
	tests := []struct {
		name    string
		backend func(Runner) Backend
		pin     uint32
		high    bool
		want    []string
	}{
		{
			name:    "wiringpi",
			backend: func(r Runner) Backend { return NewWiringPi(r) },
			pin:     17, high: true,
			want: []string{"gpio mode 17 out", "gpio write 17 1"},
		},
		{
			name:    "wiringpi bcm translates",
			backend: func(r Runner) Backend { return NewWiringPiBCM(r) },
			pin:     37, high: false,
			want: []string{"gpio -g mode 26 out", "gpio -g write 26 0"},
		},
		{
			name:    "gpioset v1 translates",
			backend: func(r Runner) Backend { return NewGPIOSetV1(r, "") },
			pin:     38, high: true,
			want: []string{"gpioset -c gpiochip0 -t 200ms,0 20=1"},
		},
		{
			name:    "gpioset v2",
			backend: func(r Runner) Backend { return NewGPIOSetV2(r, "") },
			pin:     17, high: false,
			want: []string{"gpioset --mode=exit --chip=gpiochip0 17=0"},
		},
		{
			name:    "gpioset v2 custom chip",
			backend: func(r Runner) Backend { return NewGPIOSetV2(r, "gpiochip4") },
			pin:     17, high: true,
			want: []string{"gpioset --mode=exit --chip=gpiochip4 17=1"},
		},
		{
			name:    "gpioset pulse",
			backend: func(r Runner) Backend { return NewGPIOSetPulse(r, "") },
			pin:     27, high: true,
			want: []string{"start gpioset --chip gpiochip0 --hold-period 50ms 27=1"},
		},
		{
			name:    "raspi-gpio high",
			backend: func(r Runner) Backend { return NewRaspiGPIO(r) },
			pin:     17, high: true,
			want: []string{"raspi-gpio set 17 op dh"},
		},
		{
			name:    "raspi-gpio low",
			backend: func(r Runner) Backend { return NewRaspiGPIO(r) },
			pin:     17, high: false,
			want: []string{"raspi-gpio set 17 op dl"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeRunner()
			b := tt.backend(r)

			require.NoError(t, b.Write(context.Background(), tt.pin, tt.high))
			assert.Equal(t, tt.want, r.calls)
		})
	}
}

func TestBackends_Read(t *testing.T) {
	tests := []struct {
		name    string
		backend func(Runner) Backend
		call    string
		stdout  string
		want    PinState
		wantErr bool
	}{
		{name: "wiringpi high", backend: func(r Runner) Backend { return NewWiringPi(r) }, call: "gpio read 17", stdout: "1\n", want: High},
		{name: "wiringpi low", backend: func(r Runner) Backend { return NewWiringPi(r) }, call: "gpio read 17", stdout: "0\n", want: Low},
		{name: "wiringpi garbage is low", backend: func(r Runner) Backend { return NewWiringPi(r) }, call: "gpio read 17", stdout: "??", want: Low},
		{name: "v1 high", backend: func(r Runner) Backend { return NewGPIOSetV1(r, "") }, call: "gpioget -c gpiochip0 17", stdout: "1", want: High},
		{name: "v1 garbage is low", backend: func(r Runner) Backend { return NewGPIOSetV1(r, "") }, call: "gpioget -c gpiochip0 17", stdout: `"17"=active`, want: Low},
		{name: "v2 high", backend: func(r Runner) Backend { return NewGPIOSetV2(r, "") }, call: "gpioget --chip=gpiochip0 17", stdout: "1\n", want: High},
		{name: "v2 low", backend: func(r Runner) Backend { return NewGPIOSetV2(r, "") }, call: "gpioget --chip=gpiochip0 17", stdout: "0\n", want: Low},
		{name: "v2 garbage is unknown", backend: func(r Runner) Backend { return NewGPIOSetV2(r, "") }, call: "gpioget --chip=gpiochip0 17", stdout: "", want: Unknown},
		{name: "pulse reads synchronously", backend: func(r Runner) Backend { return NewGPIOSetPulse(r, "") }, call: "gpioget --chip gpiochip0 17", stdout: "1", want: High},
		{name: "raspi high", backend: func(r Runner) Backend { return NewRaspiGPIO(r) }, call: "raspi-gpio get 17", stdout: "GPIO 17: level=1 fsel=1 func=OUTPUT\n", want: High},
		{name: "raspi low", backend: func(r Runner) Backend { return NewRaspiGPIO(r) }, call: "raspi-gpio get 17", stdout: "GPIO 17: level=0 fsel=1 func=OUTPUT\n", want: Low},
		{name: "raspi unparsable", backend: func(r Runner) Backend { return NewRaspiGPIO(r) }, call: "raspi-gpio get 17", stdout: "whoops", want: Unknown, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeRunner().on(tt.call, runResult{stdout: tt.stdout})
			got, err := tt.backend(r).Read(context.Background(), 17)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Contains(t, r.calls, tt.call)
		})
	}
}

func TestWiringPi_ReadSetsInputModeFirst(t *testing.T) {
	r := newFakeRunner().on("gpio -g read 25", runResult{stdout: "1"})
	b := NewWiringPiBCM(r)

	state, err := b.Read(context.Background(), 22)
	require.NoError(t, err)
	assert.Equal(t, High, state)
	assert.Equal(t, []string{"gpio -g mode 25 in", "gpio -g read 25"}, r.calls)
}

func TestWiringPi_Failures(t *testing.T) {
	t.Run("mode fails", func(t *testing.T) {
		r := newFakeRunner().on("gpio mode 17 out", runResult{stderr: "Unable to open GPIO", err: exitError{1}})
		err := NewWiringPi(r).Write(context.Background(), 17, true)

		require.EqualError(t, err, "Failed to set GPIO mode: Unable to open GPIO")
		assert.Equal(t, []string{"gpio mode 17 out"}, r.calls, "write must not run after a failed mode")
	})

	t.Run("write fails", func(t *testing.T) {
		r := newFakeRunner().on("gpio write 17 1", runResult{stderr: "bad pin\n", err: exitError{2}})
		err := NewWiringPi(r).Write(context.Background(), 17, true)

		require.EqualError(t, err, "Failed to write GPIO pin: bad pin\n")
	})

	t.Run("missing executable", func(t *testing.T) {
		r := newFakeRunner().on("gpio mode 17 out", runResult{err: errNotFound})
		err := NewWiringPi(r).Write(context.Background(), 17, true)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Failed to execute gpio command")
		assert.Contains(t, err.Error(), "executable file not found")
	})

	t.Run("silent failure falls back to exit status", func(t *testing.T) {
		r := newFakeRunner().on("gpio read 17", runResult{err: exitError{3}})
		_, err := NewWiringPi(r).Read(context.Background(), 17)

		require.EqualError(t, err, "Failed to read GPIO pin: exit status 3")
	})
}

func TestGPIOSet_NonZeroExit(t *testing.T) {
	r := newFakeRunner().on("gpioset --mode=exit --chip=gpiochip0 17=1",
		runResult{stderr: "gpioset: error setting the GPIO line values: Device or resource busy", err: exitError{1}})

	err := NewGPIOSetV2(r, "").Write(context.Background(), 17, true)
	require.Error(t, err)

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Message, "Device or resource busy")
}

func TestGPIOSetPulse_FireAndForget(t *testing.T) {
	t.Run("completion failure is not surfaced", func(t *testing.T) {
		r := newFakeRunner()
		r.startRes = runResult{stderr: "busy", err: exitError{1}}

		assert.NoError(t, NewGPIOSetPulse(r, "").Write(context.Background(), 17, true))
	})

	t.Run("spawn failure is", func(t *testing.T) {
		r := newFakeRunner()
		r.startErr = errNotFound

		err := NewGPIOSetPulse(r, "").Write(context.Background(), 17, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Failed to execute gpioset command")
	})
}

func TestNewBackend(t *testing.T) {
	r := newFakeRunner()

	for _, name := range []string{
		BackendWiringPi,
		BackendWiringPiBCM,
		BackendGPIOSetV1,
		BackendGPIOSetV2,
		BackendGPIOSetPulse,
		BackendRaspiGPIO,
		BackendSimulated,
	} {
		b, err := NewBackend(Options{Backend: name, Runner: r})
		require.NoError(t, err, name)
		assert.Equal(t, name, b.Name())
	}

	_, err := NewBackend(Options{Backend: "wiringpi2"})
	assert.ErrorContains(t, err, "unknown gpio backend")
}

func TestSimulated(t *testing.T) {
	s := NewSimulated()
	ctx := context.Background()

	state, err := s.Read(ctx, 17)
	require.NoError(t, err)
	assert.Equal(t, Low, state)

	require.NoError(t, s.Write(ctx, 17, true))
	state, err = s.Read(ctx, 17)
	require.NoError(t, err)
	assert.Equal(t, High, state)
}
