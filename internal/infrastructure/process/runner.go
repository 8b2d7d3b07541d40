package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

const (
	// DefaultKillGrace is how long a terminated process group gets before SIGKILL.
	DefaultKillGrace = 2 * time.Second
	// DefaultDrainTimeout bounds how long output is drained after the process exits.
	DefaultDrainTimeout = 2 * time.Second
	// DefaultMaxCapturedLines bounds the output tail kept on a StepExecution.
	DefaultMaxCapturedLines = 1000

	maxLineBytes = 1024 * 1024
)

// Runner spawns and supervises one external process at a time.
type Runner struct {
	logger       ports.Logger
	killGrace    time.Duration
	drainTimeout time.Duration
	maxCaptured  int

	runMu      sync.Mutex
	cancelOnce sync.Once
	cancelCh   chan struct{}
}

var _ ports.StepRunner = (*Runner)(nil)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger injects a logger into the runner.
func WithLogger(logger ports.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithKillGrace overrides the SIGTERM to SIGKILL grace period.
func WithKillGrace(grace time.Duration) Option {
	return func(r *Runner) {
		if grace >= 0 {
			r.killGrace = grace
		}
	}
}

// WithDrainTimeout overrides the post-exit output drain bound.
func WithDrainTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout > 0 {
			r.drainTimeout = timeout
		}
	}
}

// WithMaxCapturedLines overrides how many trailing output lines are kept.
func WithMaxCapturedLines(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxCaptured = n
		}
	}
}

// New constructs a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger:       logging.NewNoOpLogger(),
		killGrace:    DefaultKillGrace,
		drainTimeout: DefaultDrainTimeout,
		maxCaptured:  DefaultMaxCapturedLines,
		cancelCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFactory returns a factory producing independently cancellable runners.
func NewFactory(opts ...Option) ports.StepRunnerFactory {
	return func() ports.StepRunner {
		return New(opts...)
	}
}

// Cancel terminates the in-flight process, if any, and makes every later Run
// return a cancelled outcome without spawning.
func (r *Runner) Cancel() {
	r.cancelOnce.Do(func() {
		close(r.cancelCh)
	})
}

func (r *Runner) cancelled() bool {
	select {
	case <-r.cancelCh:
		return true
	default:
		return false
	}
}

// Run launches cmd and blocks until the process has exited or been killed,
// and has been reaped.
func (r *Runner) Run(ctx context.Context, cmd ports.Command, limits ports.Limits, sink ports.OutputSink) batch.StepExecution {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if limits.StartTimeout <= 0 {
		limits.StartTimeout = batch.DefaultStartTimeout
	}
	if limits.RunTimeout <= 0 {
		limits.RunTimeout = batch.DefaultRunTimeout
	}

	execution := batch.StepExecution{
		Argv:       append([]string(nil), cmd.Argv...),
		OutputPath: cmd.OutputPath,
		StartedAt:  time.Now(),
	}
	finish := func(outcome batch.Outcome, exitCode int, message string, output []batch.OutputLine) batch.StepExecution {
		execution.EndedAt = time.Now()
		execution.Outcome = outcome
		execution.ExitCode = exitCode
		execution.Message = message
		execution.Output = output
		r.logger.Debug(ctx, "process finished",
			"argv0", firstArg(cmd.Argv),
			"outcome", string(outcome),
			"exit_code", exitCode,
			"duration_ms", execution.Duration().Milliseconds(),
		)
		return execution
	}

	if len(cmd.Argv) == 0 || cmd.Argv[0] == "" {
		return finish(batch.OutcomeStartFailure, -1, "empty command", nil)
	}
	if r.cancelled() || ctx.Err() != nil {
		return finish(batch.OutcomeCancelled, -1, "cancelled before start", nil)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return finish(batch.OutcomeStartFailure, -1, fmt.Sprintf("create output pipe: %v", err), nil)
	}

	c := exec.Command(cmd.Argv[0], cmd.Argv[1:]...)
	c.Stdout = pw
	c.Stderr = pw
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	configureCommand(c)

	if outcome, message := r.start(ctx, c, limits.StartTimeout); outcome != "" {
		_ = pw.Close()
		_ = pr.Close()
		return finish(outcome, -1, message, nil)
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	r.logger.Debug(ctx, "process started", "argv0", cmd.Argv[0], "pid", c.Process.Pid)

	capture := newTail(r.maxCaptured)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := batch.ParseOutputLine(scanner.Text())
			capture.add(line)
			if sink != nil {
				sink(line)
			}
		}
	}()

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- c.Wait()
	}()

	runTimer := time.NewTimer(limits.RunTimeout)
	defer runTimer.Stop()

	var (
		waitErr     error
		interrupted batch.Outcome
		message     string
	)
	select {
	case waitErr = <-waitCh:
	case <-runTimer.C:
		interrupted = batch.OutcomeTimeout
		message = fmt.Sprintf("timeout exceeded (%s)", limits.RunTimeout)
		waitErr = r.terminate(ctx, c.Process, waitCh)
	case <-r.cancelCh:
		interrupted = batch.OutcomeCancelled
		message = "cancelled"
		waitErr = r.terminate(ctx, c.Process, waitCh)
	case <-ctx.Done():
		interrupted = batch.OutcomeCancelled
		message = "cancelled"
		waitErr = r.terminate(ctx, c.Process, waitCh)
	}

	r.drain(ctx, c.Process, pr, readerDone)
	output := capture.lines()

	if interrupted != "" {
		return finish(interrupted, exitCode(waitErr), message, output)
	}

	if waitErr == nil {
		return finish(batch.OutcomeSuccess, 0, "", output)
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			return finish(batch.OutcomeNonZeroExit, code, fmt.Sprintf("terminated: %v", exitErr), output)
		}
		return finish(batch.OutcomeNonZeroExit, code, fmt.Sprintf("exited with status %d", code), output)
	}
	return finish(batch.OutcomeNonZeroExit, -1, fmt.Sprintf("wait: %v", waitErr), output)
}

// start launches c within timeout. A non-empty outcome means the process is
// not running: either it never started, or it started too late or during a
// cancel and has already been killed and reaped.
func (r *Runner) start(ctx context.Context, c *exec.Cmd, timeout time.Duration) (batch.Outcome, string) {
	startErr := make(chan error, 1)
	go func() {
		startErr <- c.Start()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		outcome batch.Outcome
		message string
	)
	select {
	case err := <-startErr:
		if err != nil {
			return batch.OutcomeStartFailure, fmt.Sprintf("start %s: %v", c.Path, err)
		}
		return "", ""
	case <-timer.C:
		outcome = batch.OutcomeStartFailure
		message = fmt.Sprintf("process did not start within %s", timeout)
	case <-r.cancelCh:
		outcome, message = batch.OutcomeCancelled, "cancelled during start"
	case <-ctx.Done():
		outcome, message = batch.OutcomeCancelled, "cancelled during start"
	}

	if err := <-startErr; err == nil {
		killGroup(c.Process)
		_ = c.Wait()
		r.logger.Warn(ctx, "late process start reaped", "pid", c.Process.Pid, "outcome", string(outcome))
	}
	return outcome, message
}

// terminate asks the process group to exit, escalates to SIGKILL after the
// grace period and returns the reaped wait error.
func (r *Runner) terminate(ctx context.Context, proc *os.Process, waitCh <-chan error) error {
	if err := terminateGroup(proc); err != nil {
		r.logger.Debug(ctx, "terminate signal failed", "pid", proc.Pid, "error", err)
	}

	grace := time.NewTimer(r.killGrace)
	defer grace.Stop()

	select {
	case err := <-waitCh:
		return err
	case <-grace.C:
	}

	r.logger.Warn(ctx, "process ignored terminate, killing", "pid", proc.Pid)
	killGroup(proc)
	return <-waitCh
}

// drain waits for the reader to consume remaining output. Descendants that
// escaped with the write end would keep it open forever, so the wait is
// bounded: stragglers in the group are killed and the read end is closed.
func (r *Runner) drain(ctx context.Context, proc *os.Process, pr *os.File, readerDone <-chan struct{}) {
	timer := time.NewTimer(r.drainTimeout)
	defer timer.Stop()

	select {
	case <-readerDone:
	case <-timer.C:
		r.logger.Warn(ctx, "output drain timed out", "pid", proc.Pid)
		killGroup(proc)
		_ = pr.Close()
		<-readerDone
	}
	_ = pr.Close()
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func firstArg(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return argv[0]
}

// tail keeps the most recent n output lines.
type tail struct {
	mu    sync.Mutex
	max   int
	items []batch.OutputLine
}

func newTail(max int) *tail {
	return &tail{max: max}
}

func (t *tail) add(line batch.OutputLine) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == t.max {
		copy(t.items, t.items[1:])
		t.items = t.items[:len(t.items)-1]
	}
	t.items = append(t.items, line)
}

func (t *tail) lines() []batch.OutputLine {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]batch.OutputLine(nil), t.items...)
}
