package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

type fakeInspector struct {
	sizes    map[string]int64
	accuracy map[string]float64
}

func (f fakeInspector) Stat(path string) ports.Artifact {
	size, ok := f.sizes[path]
	return ports.Artifact{Path: path, Exists: ok, Size: size}
}

func (f fakeInspector) Accuracy(path string) (float64, bool) {
	value, ok := f.accuracy[path]
	return value, ok
}

func execution(id string, outcome batch.Outcome, output string, took time.Duration) batch.StepExecution {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return batch.StepExecution{
		StepID:     id,
		Name:       id,
		OutputPath: output,
		StartedAt:  start,
		EndedAt:    start.Add(took),
		Outcome:    outcome,
		Message:    string(outcome),
	}
}

func reportSettings(threshold float64) batch.Settings {
	return batch.Settings{
		AccuracyThreshold: threshold,
		Steps: []batch.StepSpec{
			{ID: "convert", Required: true},
			{ID: "info", Report: true},
			{ID: "validate"},
		},
	}
}

func taskWith(execs ...batch.StepExecution) batch.FileTask {
	task := batch.NewFileTasks([]string{"music/Commando.sid"}, []string{"convert", "info", "validate"})[0]
	task.Executions = execs
	return task
}

func TestAggregatorPassed(t *testing.T) {
	t.Parallel()

	inspector := fakeInspector{
		sizes:    map[string]int64{"out/a.sf2": 4096, "out/a.txt": 100},
		accuracy: map[string]float64{"out/a.txt": 98.5},
	}
	agg := NewAggregator(inspector, nil)

	result := agg.Collect(context.Background(), taskWith(
		execution("convert", batch.OutcomeSuccess, "out/a.sf2", time.Second),
		execution("info", batch.OutcomeSuccess, "out/a.txt", 2*time.Second),
		execution("validate", batch.OutcomeSuccess, "", 3*time.Second),
	), reportSettings(90))

	require.Equal(t, batch.ClassPassed, result.Classification)
	require.Equal(t, "Commando.sid", result.Name)
	require.Equal(t, 3, result.StepsAttempted)
	require.Equal(t, 3, result.StepsCompleted)
	require.Equal(t, 3, result.TotalSteps)
	require.Equal(t, 6*time.Second, result.Duration)
	require.Equal(t, int64(4196), result.OutputBytes)
	require.NotNil(t, result.Accuracy)
	require.InDelta(t, 98.5, *result.Accuracy, 0.001)
	require.Empty(t, result.Errors)
	require.Empty(t, result.Notes)
}

func TestAggregatorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		execs     []batch.StepExecution
		failure   error
		threshold float64
		want      batch.Classification
		errors    int
	}{
		{
			name: "required non-zero exit",
			execs: []batch.StepExecution{
				execution("convert", batch.OutcomeNonZeroExit, "", time.Second),
				execution("info", batch.OutcomeSuccess, "", time.Second),
				execution("validate", batch.OutcomeSuccess, "", time.Second),
			},
			want:   batch.ClassFailed,
			errors: 1,
		},
		{
			name: "optional timeout",
			execs: []batch.StepExecution{
				execution("convert", batch.OutcomeSuccess, "", time.Second),
				execution("info", batch.OutcomeSuccess, "", time.Second),
				execution("validate", batch.OutcomeTimeout, "", time.Second),
			},
			want:   batch.ClassWarning,
			errors: 1,
		},
		{
			name: "required skipped",
			execs: []batch.StepExecution{
				execution("convert", batch.OutcomeSkipped, "", 0),
				execution("info", batch.OutcomeSkipped, "", 0),
				execution("validate", batch.OutcomeSkipped, "", 0),
			},
			want: batch.ClassFailed,
		},
		{
			name: "optional skipped is not a warning",
			execs: []batch.StepExecution{
				execution("convert", batch.OutcomeSuccess, "", time.Second),
				execution("info", batch.OutcomeSuccess, "", time.Second),
				execution("validate", batch.OutcomeSkipped, "", 0),
			},
			want: batch.ClassPassed,
		},
		{
			name: "resolution failure",
			execs: []batch.StepExecution{
				execution("convert", batch.OutcomeSuccess, "", time.Second),
				execution("info", batch.OutcomeSkipped, "", 0),
				execution("validate", batch.OutcomeSkipped, "", 0),
			},
			failure: batch.NewConfigurationError("unknown placeholder {bogus}", nil),
			want:    batch.ClassFailed,
			errors:  1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			task := taskWith(tt.execs...)
			task.Failure = tt.failure
			result := NewAggregator(nil, nil).Collect(context.Background(), task, reportSettings(tt.threshold))
			require.Equal(t, tt.want, result.Classification)
			require.Len(t, result.Errors, tt.errors)
			require.Equal(t, tt.want == batch.ClassFailed, result.RequiredFailed)
		})
	}
}

func TestAggregatorAccuracyBelowThreshold(t *testing.T) {
	t.Parallel()

	inspector := fakeInspector{
		sizes:    map[string]int64{"out/a.txt": 10},
		accuracy: map[string]float64{"out/a.txt": 72.25},
	}
	result := NewAggregator(inspector, nil).Collect(context.Background(), taskWith(
		execution("convert", batch.OutcomeSuccess, "", time.Second),
		execution("info", batch.OutcomeSuccess, "out/a.txt", time.Second),
		execution("validate", batch.OutcomeSuccess, "", time.Second),
	), reportSettings(90))

	require.Equal(t, batch.ClassWarning, result.Classification)
	require.Len(t, result.Notes, 1)
	assert.Contains(t, result.Notes[0], "below threshold")

	unset := NewAggregator(inspector, nil).Collect(context.Background(), taskWith(
		execution("convert", batch.OutcomeSuccess, "", time.Second),
		execution("info", batch.OutcomeSuccess, "out/a.txt", time.Second),
		execution("validate", batch.OutcomeSuccess, "", time.Second),
	), reportSettings(0))
	require.Equal(t, batch.ClassPassed, unset.Classification)
}

func TestAggregatorMissingArtifactIsNonFatal(t *testing.T) {
	t.Parallel()

	result := NewAggregator(fakeInspector{}, nil).Collect(context.Background(), taskWith(
		execution("convert", batch.OutcomeSuccess, "out/missing.sf2", time.Second),
		execution("info", batch.OutcomeSuccess, "out/missing.txt", time.Second),
		execution("validate", batch.OutcomeSuccess, "", time.Second),
	), reportSettings(90))

	require.Equal(t, batch.ClassPassed, result.Classification)
	require.Nil(t, result.Accuracy)
	require.Len(t, result.Notes, 2)
	assert.Contains(t, result.Notes[0], string(batch.ErrCodeArtifactMissing))
	assert.Contains(t, result.Notes[0], "out/missing.sf2")
	require.Zero(t, result.OutputBytes)
}

func TestAggregatorErrorsInStepOrder(t *testing.T) {
	t.Parallel()

	first := execution("convert", batch.OutcomeNonZeroExit, "", time.Second)
	first.Message = "exited with status 2"
	second := execution("info", batch.OutcomeStartFailure, "", 0)
	second.Message = "start sf2info: executable file not found"

	result := NewAggregator(nil, nil).Collect(context.Background(), taskWith(
		first,
		second,
		execution("validate", batch.OutcomeSuccess, "", time.Second),
	), reportSettings(0))

	require.Equal(t, []string{
		"convert: exited with status 2",
		"info: start sf2info: executable file not found",
	}, result.Errors)
	require.Equal(t, "convert: exited with status 2", result.FirstError())
	require.Equal(t, 3, result.StepsAttempted)
	require.Equal(t, 1, result.StepsCompleted)
}

func TestAggregatorFailureMessageIsRecorded(t *testing.T) {
	t.Parallel()

	task := taskWith(execution("convert", batch.OutcomeSkipped, "", 0))
	task.Failure = errors.New("boom")
	result := NewAggregator(nil, nil).Collect(context.Background(), task, reportSettings(0))
	require.Equal(t, []string{"boom"}, result.Errors)
	require.Zero(t, result.StepsAttempted)
}

func TestAggregatorRepeatedStepIsJudgedPerRun(t *testing.T) {
	t.Parallel()

	task := batch.NewFileTasks([]string{"music/Commando.sid"}, []string{"convert", "convert"})[0]
	second := execution("convert", batch.OutcomeNonZeroExit, "", time.Second)
	second.Message = "exited with status 3"
	task.Executions = []batch.StepExecution{
		execution("convert", batch.OutcomeSuccess, "", time.Second),
		second,
	}
	settings := batch.Settings{Steps: []batch.StepSpec{
		{ID: "convert", Required: true},
		{ID: "convert", Required: true},
	}}

	result := NewAggregator(nil, nil).Collect(context.Background(), task, settings)

	require.Equal(t, batch.ClassFailed, result.Classification)
	require.True(t, result.RequiredFailed)
	require.Equal(t, 2, result.StepsAttempted)
	require.Equal(t, 1, result.StepsCompleted)
	require.Equal(t, []string{"convert: exited with status 3"}, result.Errors)
}
