package gpio

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// waitDelay caps how long Run waits on output pipes after the process is
// killed, in case a grandchild still holds them.
const waitDelay = time.Second

// Runner executes the external GPIO tools.
type Runner interface {
	// Run waits for the command and returns what it printed. A non-zero exit
	// is reported through err (an *exec.ExitError), with stderr still filled.
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)

	// Start launches the command and returns once it is running. done is
	// called with the exit result from a background goroutine.
	Start(name string, args []string, done func(stderr string, err error)) error
}

// ExecRunner runs commands on the local system.
type ExecRunner struct {
	// Timeout bounds each Run call. Zero means no limit.
	Timeout time.Duration
}

func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	glog().Debug().Str("cmd", name).Strs("args", args).Msg("Running")
	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return stdout.String(), stderr.String(), err
}

func (r *ExecRunner) Start(name string, args []string, done func(string, error)) error {
	cmd := exec.Command(name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	glog().Debug().Str("cmd", name).Strs("args", args).Msg("Starting")
	if err := cmd.Start(); err != nil {
		return err
	}

	go func() {
		err := cmd.Wait()
		if done != nil {
			done(stderr.String(), err)
		}
	}()

	return nil
}

// failureText picks what to show the caller for a failed command. Output is
// passed through as printed; the exec error is the fallback for silent tools.
func failureText(stdout, stderr string, err error) string {
	if strings.TrimSpace(stderr) != "" {
		return stderr
	}
	if strings.TrimSpace(stdout) != "" {
		return stdout
	}
	return err.Error()
}

// isSpawnError reports whether the command never ran at all, as opposed to
// running and exiting non-zero. *exec.ExitError is the usual exit kind.
func isSpawnError(err error) bool {
	if err == nil {
		return false
	}
	_, exited := err.(interface{ ExitCode() int })
	return !exited
}
