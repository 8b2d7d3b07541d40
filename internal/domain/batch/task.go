package batch

import (
	"fmt"
	"path/filepath"
	"time"
)

// Outcome classifies how a single external process invocation ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeNonZeroExit  Outcome = "non_zero_exit"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeStartFailure Outcome = "start_failure"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeSkipped      Outcome = "skipped"
)

// StepExecution records one external-process invocation. It is immutable
// once the step runner returns it.
type StepExecution struct {
	StepID     string
	Name       string
	Argv       []string
	OutputPath string
	StartedAt  time.Time
	EndedAt    time.Time
	Outcome    Outcome
	ExitCode   int
	Message    string
	Output     []OutputLine
}

// Success reports whether the process exited with status zero.
func (e StepExecution) Success() bool {
	return e.Outcome == OutcomeSuccess
}

// Attempted reports whether the step was dispatched to the runner.
func (e StepExecution) Attempted() bool {
	return e.Outcome != OutcomeSkipped && e.Outcome != ""
}

// Duration is the wall-clock time between start and end, including process
// start overhead.
func (e StepExecution) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.EndedAt.Before(e.StartedAt) {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}

// Err maps the outcome to a domain error, or nil on success or skip.
func (e StepExecution) Err() *DomainError {
	ctx := map[string]interface{}{"step_id": e.StepID}
	switch e.Outcome {
	case OutcomeNonZeroExit:
		ctx["exit_code"] = e.ExitCode
		return NewError(ErrCodeNonZeroExit, fmt.Sprintf("exited with status %d", e.ExitCode), nil, ctx)
	case OutcomeTimeout:
		return NewError(ErrCodeTimeout, e.messageOr("timeout exceeded"), nil, ctx)
	case OutcomeStartFailure:
		return NewError(ErrCodeStartFailure, e.messageOr("process failed to start"), nil, ctx)
	case OutcomeCancelled:
		return NewError(ErrCodeCancelled, e.messageOr("cancelled"), nil, ctx)
	default:
		return nil
	}
}

// Summary returns a one-line description suitable for events and reports.
func (e StepExecution) Summary() string {
	if e.Message != "" {
		return e.Message
	}
	if err := e.Err(); err != nil {
		return err.Message
	}
	return string(e.Outcome)
}

func (e StepExecution) messageOr(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// FileTask is one file's execution context within a batch job.
type FileTask struct {
	Path       string
	Index      int
	Position   int
	StepIDs    []string
	Executions []StepExecution
	State      FileState
	Failure    error
}

// NewFileTasks builds the ordered queue of pending tasks for a batch.
func NewFileTasks(files []string, stepIDs []string) []FileTask {
	tasks := make([]FileTask, len(files))
	for i, path := range files {
		tasks[i] = FileTask{
			Path:     path,
			Index:    i,
			Position: i + 1,
			StepIDs:  append([]string(nil), stepIDs...),
			State:    FilePending,
		}
	}
	return tasks
}

// Name returns the base name of the file.
func (t FileTask) Name() string {
	return filepath.Base(t.Path)
}

// ExecutionAt returns the execution recorded for the i-th step of the task.
// Executions are positional, so a step listed twice has two entries.
func (t FileTask) ExecutionAt(i int) (StepExecution, bool) {
	if i < 0 || i >= len(t.Executions) || i >= len(t.StepIDs) {
		return StepExecution{}, false
	}
	exec := t.Executions[i]
	if exec.StepID != t.StepIDs[i] {
		return StepExecution{}, false
	}
	return exec, true
}

// Clone returns a copy that shares no slices with t.
func (t FileTask) Clone() FileTask {
	clone := t
	clone.StepIDs = append([]string(nil), t.StepIDs...)
	clone.Executions = append([]StepExecution(nil), t.Executions...)
	return clone
}
