package console

import (
	"bytes"
	"context"
	"sync"

	"github.com/sarchlab/mipsim/shell"
)

// Runner executes shell commands in the background, one at a time, so that
// long simulations can be interrupted while the screen keeps handling keys.
type Runner struct {
	shell *shell.Shell

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRunner creates a runner over sh. The runner owns sh's output while a
// command runs.
func NewRunner(sh *shell.Shell) *Runner {
	return &Runner{shell: sh}
}

// Busy reports whether a command is running.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Start runs line in a new goroutine and calls done with the command output
// and error once it returns. It returns false without running anything if a
// command is already running.
func (r *Runner) Start(ctx context.Context, line string, done func(output string, err error)) bool {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		var out bytes.Buffer
		r.shell.SetOutput(&out)
		err := r.shell.Execute(ctx, line)

		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()

		done(out.String(), err)
	}()

	return true
}

// Interrupt cancels the running command. It returns false if none is running.
func (r *Runner) Interrupt() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}
