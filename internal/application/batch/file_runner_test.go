package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

func newTestFileRunner(resolver ports.CommandResolver, events ports.EventPublisher) *FileRunner {
	return NewFileRunner(resolver, NewAggregator(nil, nil), events, nil)
}

func singleTask(settings batch.Settings) batch.FileTask {
	return batch.NewFileTasks(files("Commando.sid"), settings.StepIDs())[0]
}

func TestFileRunnerRunsStepsInOrder(t *testing.T) {
	t.Parallel()

	events := &recordingPublisher{}
	runner := newScriptedRunner(nil)
	settings := twoSteps().ApplyDefaults()

	task, result := newTestFileRunner(&stubResolver{}, events).Run(context.Background(), runner, singleTask(settings), settings)

	require.Equal(t, batch.ClassPassed, result.Classification)
	require.Equal(t, 2, result.StepsCompleted)
	require.Len(t, task.Executions, 2)
	require.Equal(t, "convert", task.Executions[0].StepID)
	require.Equal(t, "Convert", task.Executions[0].Name)

	require.Equal(t, []string{
		ports.EventStepStarted, ports.EventStepCompleted,
		ports.EventStepStarted, ports.EventStepCompleted,
	}, events.types())

	started := events.ofType(ports.EventStepStarted)
	require.Equal(t, "Validate", started[1].payload[ports.KeyName])
	require.Equal(t, 2, started[1].payload[ports.KeyIndex])
	require.Equal(t, 2, started[1].payload[ports.KeyTotal])
	require.Equal(t, 1, started[1].payload[ports.KeyFileIndex])

	completed := events.ofType(ports.EventStepCompleted)
	require.Equal(t, true, completed[0].payload[ports.KeySuccess])
}

func TestFileRunnerForwardsOutputBeforeStepCompleted(t *testing.T) {
	t.Parallel()

	events := &recordingPublisher{}
	settings := twoSteps().ApplyDefaults()
	newTestFileRunner(&stubResolver{}, events).Run(context.Background(), newScriptedRunner(nil), singleTask(settings), settings)

	var sequence []string
	for _, evt := range events.snapshot() {
		sequence = append(sequence, evt.eventType)
	}
	require.Equal(t, []string{
		ports.EventStepStarted, ports.EventLog, ports.EventStepCompleted,
		ports.EventStepStarted, ports.EventLog, ports.EventStepCompleted,
	}, sequence)

	logs := events.ofType(ports.EventLog)
	require.Equal(t, "INFO", logs[0].payload[ports.KeyLevel])
	require.Equal(t, "[INFO] convert ok", logs[0].payload[ports.KeyMessage])
	require.Equal(t, "convert", logs[0].payload[ports.KeyStep])
	require.Equal(t, 1, logs[0].payload[ports.KeyFileIndex])
	require.Equal(t, files("Commando.sid")[0], logs[0].payload[ports.KeyFile])
}

func TestFileRunnerContinuesAfterFailureWithoutStopOnError(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner(map[string]stepBehaviour{"convert": exitWith(3)})
	settings := twoSteps().ApplyDefaults()

	task, result := newTestFileRunner(&stubResolver{}, nil).Run(context.Background(), runner, singleTask(settings), settings)

	require.Equal(t, 2, runner.callCount())
	require.Equal(t, batch.OutcomeNonZeroExit, task.Executions[0].Outcome)
	require.Equal(t, 3, task.Executions[0].ExitCode)
	require.Equal(t, batch.OutcomeSuccess, task.Executions[1].Outcome)
	require.Equal(t, batch.ClassFailed, result.Classification)
	require.Equal(t, 1, result.StepsCompleted)
}

func TestFileRunnerStopOnErrorSkipsRemainingSteps(t *testing.T) {
	t.Parallel()

	events := &recordingPublisher{}
	runner := newScriptedRunner(map[string]stepBehaviour{"convert": exitWith(1)})
	settings := twoSteps().ApplyDefaults()
	settings.StopOnError = true

	task, result := newTestFileRunner(&stubResolver{}, events).Run(context.Background(), runner, singleTask(settings), settings)

	require.Equal(t, 1, runner.callCount())
	require.Equal(t, batch.OutcomeSkipped, task.Executions[1].Outcome)
	require.Equal(t, 1, events.count(ports.EventStepStarted))
	require.Equal(t, 1, result.StepsAttempted)
	require.Equal(t, 0, result.StepsCompleted)
	require.Equal(t, 2, result.TotalSteps)
	require.True(t, result.RequiredFailed)
}

func TestFileRunnerResolutionFailureAbortsFile(t *testing.T) {
	t.Parallel()

	events := &recordingPublisher{}
	runner := newScriptedRunner(nil)
	resolver := &stubResolver{fail: map[string]error{"convert": errors.New("template exploded")}}
	settings := twoSteps().ApplyDefaults()

	task, result := newTestFileRunner(resolver, events).Run(context.Background(), runner, singleTask(settings), settings)

	require.Zero(t, runner.callCount())
	require.Zero(t, events.count(ports.EventStepStarted))
	require.True(t, batch.IsConfigurationError(task.Failure))
	require.Equal(t, batch.OutcomeSkipped, task.Executions[0].Outcome)
	require.Equal(t, batch.OutcomeSkipped, task.Executions[1].Outcome)
	require.Equal(t, batch.ClassFailed, result.Classification)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "template exploded")
}

func TestFileRunnerCancelledContextSkipsSteps(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newScriptedRunner(nil)
	settings := twoSteps().ApplyDefaults()
	task, result := newTestFileRunner(&stubResolver{}, nil).Run(ctx, runner, singleTask(settings), settings)

	require.Zero(t, runner.callCount())
	for _, exec := range task.Executions {
		require.Equal(t, batch.OutcomeSkipped, exec.Outcome)
	}
	require.Equal(t, batch.ClassFailed, result.Classification)
}

func TestFileRunnerCancelledStepSkipsRest(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner(map[string]stepBehaviour{
		"convert": func(context.Context, <-chan struct{}, ports.Command, ports.OutputSink) (batch.Outcome, int, string) {
			return batch.OutcomeCancelled, -1, "cancelled"
		},
	})
	settings := twoSteps().ApplyDefaults()
	task, _ := newTestFileRunner(&stubResolver{}, nil).Run(context.Background(), runner, singleTask(settings), settings)

	require.Equal(t, 1, runner.callCount())
	require.Equal(t, batch.OutcomeSkipped, task.Executions[1].Outcome)
}
