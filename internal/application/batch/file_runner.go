package batch

import (
	"context"
	"errors"
	"time"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

const (
	skipReasonStopped    = "skipped: batch stopped"
	skipReasonStepFailed = "skipped: earlier step failed"
	skipReasonResolution = "skipped: command could not be resolved"
)

// FileRunner executes the enabled steps of one file in order.
type FileRunner struct {
	resolver   ports.CommandResolver
	aggregator *Aggregator
	events     ports.EventPublisher
	logger     ports.Logger
	now        func() time.Time
}

// NewFileRunner wires a file runner.
func NewFileRunner(resolver ports.CommandResolver, aggregator *Aggregator, events ports.EventPublisher, logger ports.Logger) *FileRunner {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if aggregator == nil {
		aggregator = NewAggregator(nil, logger)
	}
	return &FileRunner{
		resolver:   resolver,
		aggregator: aggregator,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes task's steps through runner and returns the updated task with
// its aggregated result. Step failures are recorded, never returned; a
// command that cannot be resolved aborts only this file.
func (r *FileRunner) Run(ctx context.Context, runner ports.StepRunner, task batch.FileTask, settings batch.Settings) (batch.FileTask, batch.FileResult) {
	task = task.Clone()
	task.Executions = task.Executions[:0]

	ref := ports.FileRef{
		Path:      task.Path,
		Index:     task.Index,
		Driver:    settings.Driver,
		OutputDir: settings.OutputDir,
	}
	total := len(settings.Steps)
	skipReason := ""

	for i, step := range settings.Steps {
		if skipReason == "" && ctx.Err() != nil {
			skipReason = skipReasonStopped
		}
		if skipReason != "" {
			task.Executions = append(task.Executions, r.skipped(step, skipReason))
			continue
		}

		cmd, err := r.resolve(step, ref)
		if err != nil {
			r.logger.Error(ctx, "command resolution failed", "file", task.Path, "step", step.ID, "error", err)
			task.Failure = err
			skipped := r.skipped(step, skipReasonResolution)
			skipped.Message = err.Error()
			task.Executions = append(task.Executions, skipped)
			skipReason = skipReasonResolution
			continue
		}

		publishEvent(ctx, r.events, r.logger, ports.EventStepStarted, stepPayload(task, step, i+1, total))

		start, run := settings.LimitsFor(step)
		exec := runner.Run(ctx, cmd, ports.Limits{StartTimeout: start, RunTimeout: run}, r.sink(ctx, task, step.ID))
		exec.StepID = step.ID
		exec.Name = step.DisplayName()
		task.Executions = append(task.Executions, exec)

		publishEvent(ctx, r.events, r.logger, ports.EventStepCompleted, stepPayload(task, step, i+1, total).
			with(ports.KeySuccess, exec.Success()).
			with(ports.KeyMessage, exec.Summary()))

		if exec.Success() {
			continue
		}
		r.logger.Warn(ctx, "step failed", "file", task.Path, "step", step.ID, "outcome", exec.Outcome, "message", exec.Summary())
		switch {
		case exec.Outcome == batch.OutcomeCancelled:
			skipReason = skipReasonStopped
		case settings.StopOnError:
			skipReason = skipReasonStepFailed
		}
	}

	return task, r.aggregator.Collect(ctx, task, settings)
}

func (r *FileRunner) resolve(step batch.StepSpec, ref ports.FileRef) (ports.Command, error) {
	if r.resolver == nil {
		return ports.Command{}, batch.NewConfigurationError("no command resolver configured", map[string]interface{}{"step_id": step.ID})
	}
	cmd, err := r.resolver.Resolve(step.ID, ref)
	if err != nil {
		var domainErr *batch.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == batch.ErrCodeConfiguration {
			return ports.Command{}, err
		}
		return ports.Command{}, batch.WrapConfigurationError("resolve command", err, map[string]interface{}{"step_id": step.ID})
	}
	if len(cmd.Argv) == 0 {
		return ports.Command{}, batch.NewConfigurationError("resolved command is empty", map[string]interface{}{"step_id": step.ID})
	}
	return cmd, nil
}

func (r *FileRunner) skipped(step batch.StepSpec, reason string) batch.StepExecution {
	now := r.now()
	return batch.StepExecution{
		StepID:    step.ID,
		Name:      step.DisplayName(),
		StartedAt: now,
		EndedAt:   now,
		Outcome:   batch.OutcomeSkipped,
		ExitCode:  -1,
		Message:   reason,
	}
}

// sink forwards tool output as log events tagged with file and step.
func (r *FileRunner) sink(ctx context.Context, task batch.FileTask, stepID string) ports.OutputSink {
	return func(line batch.OutputLine) {
		publishEvent(ctx, r.events, r.logger, ports.EventLog, eventPayload{
			ports.KeyLevel:     string(line.Level),
			ports.KeyMessage:   line.Text,
			ports.KeyFile:      task.Path,
			ports.KeyStep:      stepID,
			ports.KeyFileIndex: task.Position,
		})
	}
}
