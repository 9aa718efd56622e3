package gpio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fakeBackend records writes in memory and can be told to fail.
type fakeBackend struct {
	mu     sync.Mutex
	levels map[uint32]bool
	writes []string

	writeErr  error
	readErr   error
	readState *PinState
	delay     time.Duration

	inFlight    int32
	maxInFlight int32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{levels: make(map[uint32]bool)}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) enter() func() {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { atomic.AddInt32(&f.inFlight, -1) }
}

func (f *fakeBackend) Write(_ context.Context, pin uint32, high bool) error {
	defer f.enter()()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	f.levels[pin] = high
	f.writes = append(f.writes, pinArg(pin)+"="+levelArg(high))
	return nil
}

func (f *fakeBackend) Read(_ context.Context, pin uint32) (PinState, error) {
	defer f.enter()()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		return Unknown, f.readErr
	}
	if f.readState != nil {
		return *f.readState, nil
	}
	return stateOf(f.levels[pin]), nil
}

// exitError stands in for *exec.ExitError.
type exitError struct{ code int }

func (e exitError) Error() string { return "exit status " + pinArg(uint32(e.code)) }
func (e exitError) ExitCode() int { return e.code }

type runResult struct {
	stdout string
	stderr string
	err    error
}

// fakeRunner records each invocation as a single space-joined line and
// replies from a table keyed by that line.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []string
	results  map[string]runResult
	startErr error
	startRes runResult
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: make(map[string]runResult)}
}

func (f *fakeRunner) on(call string, res runResult) *fakeRunner {
	f.results[call] = res
	return f
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call)
	res := f.results[call]
	return res.stdout, res.stderr, res.err
}

func (f *fakeRunner) Start(name string, args []string, done func(string, error)) error {
	f.mu.Lock()
	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, "start "+call)
	startErr := f.startErr
	res := f.startRes
	f.mu.Unlock()

	if startErr != nil {
		return startErr
	}
	if done != nil {
		done(res.stderr, res.err)
	}
	return nil
}

var errNotFound = errors.New(`exec: "gpio": executable file not found in $PATH`)
