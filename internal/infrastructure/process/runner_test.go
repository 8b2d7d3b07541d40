//go:build unix

package process

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

func shell(script string) ports.Command {
	return ports.Command{Argv: []string{"/bin/sh", "-c", script}}
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []batch.OutputLine
}

func (r *lineRecorder) sink(line batch.OutputLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *lineRecorder) snapshot() []batch.OutputLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]batch.OutputLine(nil), r.lines...)
}

func fastRunner() *Runner {
	return New(WithKillGrace(200*time.Millisecond), WithDrainTimeout(500*time.Millisecond))
}

func TestRunSuccessStreamsMergedOutput(t *testing.T) {
	t.Parallel()

	rec := &lineRecorder{}
	exec := fastRunner().Run(context.Background(),
		shell("echo '[INFO] starting'; echo '[WARN] low memory' >&2; echo done"),
		ports.Limits{RunTimeout: 5 * time.Second}, rec.sink)

	require.Equal(t, batch.OutcomeSuccess, exec.Outcome)
	require.Equal(t, 0, exec.ExitCode)
	require.False(t, exec.EndedAt.Before(exec.StartedAt))

	lines := rec.snapshot()
	require.Len(t, lines, 3)
	assert.Equal(t, batch.LevelInfo, lines[0].Level)
	assert.Equal(t, batch.LevelWarn, lines[1].Level)
	assert.Equal(t, "[WARN] low memory", lines[1].Text)
	assert.Equal(t, "done", lines[2].Text)
	assert.Equal(t, lines, exec.Output)
}

func TestRunNonZeroExit(t *testing.T) {
	t.Parallel()

	exec := fastRunner().Run(context.Background(), shell("echo '[ERROR] bad input'; exit 3"), ports.Limits{}, nil)

	require.Equal(t, batch.OutcomeNonZeroExit, exec.Outcome)
	require.Equal(t, 3, exec.ExitCode)
	require.Equal(t, "exited with status 3", exec.Message)
	require.Len(t, exec.Output, 1)
	require.Equal(t, batch.LevelError, exec.Output[0].Level)
}

func TestRunStartFailure(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	exec := fastRunner().Run(context.Background(), ports.Command{Argv: []string{missing}}, ports.Limits{}, nil)

	require.Equal(t, batch.OutcomeStartFailure, exec.Outcome)
	require.Contains(t, exec.Message, "does-not-exist")

	empty := fastRunner().Run(context.Background(), ports.Command{}, ports.Limits{}, nil)
	require.Equal(t, batch.OutcomeStartFailure, empty.Outcome)
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	t.Parallel()

	pidFile := filepath.Join(t.TempDir(), "pid")
	script := "echo $$ > " + pidFile + "; exec sleep 30"

	started := time.Now()
	exec := fastRunner().Run(context.Background(), shell(script), ports.Limits{RunTimeout: 300 * time.Millisecond}, nil)

	require.Equal(t, batch.OutcomeTimeout, exec.Outcome)
	require.Less(t, time.Since(started), 5*time.Second)

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	require.False(t, Alive(pid), "process %d still alive after timeout", pid)
}

func TestRunTimeoutEscalatesWhenTermIgnored(t *testing.T) {
	t.Parallel()

	exec := fastRunner().Run(context.Background(),
		shell("trap '' TERM; while :; do sleep 0.05; done"),
		ports.Limits{RunTimeout: 200 * time.Millisecond}, nil)

	require.Equal(t, batch.OutcomeTimeout, exec.Outcome)
	require.Less(t, exec.Duration(), 5*time.Second)
}

func TestCancelBeforeRunIsRemembered(t *testing.T) {
	t.Parallel()

	marker := filepath.Join(t.TempDir(), "ran")
	runner := fastRunner()
	runner.Cancel()
	runner.Cancel()

	exec := runner.Run(context.Background(), shell("touch "+marker), ports.Limits{}, nil)

	require.Equal(t, batch.OutcomeCancelled, exec.Outcome)
	_, err := os.Stat(marker)
	require.True(t, os.IsNotExist(err), "process must not be spawned after cancel")
}

func TestCancelDuringRunInterruptsWait(t *testing.T) {
	t.Parallel()

	runner := fastRunner()
	rec := &lineRecorder{}
	done := make(chan batch.StepExecution, 1)

	go func() {
		done <- runner.Run(context.Background(), shell("echo ready; exec sleep 30"),
			ports.Limits{RunTimeout: time.Minute}, rec.sink)
	}()

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, 5*time.Second, 10*time.Millisecond)
	runner.Cancel()

	select {
	case exec := <-done:
		require.Equal(t, batch.OutcomeCancelled, exec.Outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Cancel")
	}
}

func TestCancelAfterRunIsNoOp(t *testing.T) {
	t.Parallel()

	runner := fastRunner()
	exec := runner.Run(context.Background(), shell("exit 0"), ports.Limits{}, nil)
	require.Equal(t, batch.OutcomeSuccess, exec.Outcome)

	runner.Cancel()
	require.Equal(t, batch.OutcomeSuccess, exec.Outcome)
}

func TestContextCancellationInterruptsWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	exec := fastRunner().Run(ctx, shell("exec sleep 30"), ports.Limits{RunTimeout: time.Minute}, nil)
	require.Equal(t, batch.OutcomeCancelled, exec.Outcome)
}

func TestDrainIsBoundedWhenDescendantHoldsOutput(t *testing.T) {
	t.Parallel()

	started := time.Now()
	exec := fastRunner().Run(context.Background(), shell("(sleep 30 &); echo parent done"),
		ports.Limits{RunTimeout: 5 * time.Second}, nil)

	require.Equal(t, batch.OutcomeSuccess, exec.Outcome)
	require.Less(t, time.Since(started), 5*time.Second)
	require.NotEmpty(t, exec.Output)
	require.Equal(t, "parent done", exec.Output[0].Text)
}

func TestCapturedOutputKeepsTail(t *testing.T) {
	t.Parallel()

	runner := New(WithMaxCapturedLines(2))
	exec := runner.Run(context.Background(), shell("echo one; echo two; echo three"), ports.Limits{}, nil)

	require.Equal(t, batch.OutcomeSuccess, exec.Outcome)
	require.Len(t, exec.Output, 2)
	require.Equal(t, "two", exec.Output[0].Text)
	require.Equal(t, "three", exec.Output[1].Text)
}

func TestRunPassesDirAndEnv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cmd := shell(`echo "$TUNE_VAR"; pwd -P`)
	cmd.Dir = dir
	cmd.Env = []string{"TUNE_VAR=laxity"}

	exec := fastRunner().Run(context.Background(), cmd, ports.Limits{}, nil)

	require.Equal(t, batch.OutcomeSuccess, exec.Outcome)
	require.Len(t, exec.Output, 2)
	require.Equal(t, "laxity", exec.Output[0].Text)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	require.Equal(t, resolved, exec.Output[1].Text)
}

func TestFactoryBuildsIndependentRunners(t *testing.T) {
	t.Parallel()

	factory := NewFactory()
	first := factory()
	second := factory()
	first.Cancel()

	exec := second.Run(context.Background(), shell("exit 0"), ports.Limits{}, nil)
	require.Equal(t, batch.OutcomeSuccess, exec.Outcome)
}
