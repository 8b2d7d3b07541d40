package batch

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// Aggregator turns a finished FileTask into its FileResult.
type Aggregator struct {
	inspector ports.ArtifactInspector
	logger    ports.Logger
}

// NewAggregator creates an aggregator. A nil inspector disables artifact
// checks and accuracy parsing.
func NewAggregator(inspector ports.ArtifactInspector, logger ports.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Aggregator{inspector: inspector, logger: logger}
}

// Collect classifies the task and summarises its executions. It never fails:
// unreadable artifacts leave accuracy unknown.
func (a *Aggregator) Collect(ctx context.Context, task batch.FileTask, settings batch.Settings) batch.FileResult {
	result := batch.FileResult{
		Path:       task.Path,
		Name:       task.Name(),
		TotalSteps: len(task.StepIDs),
	}

	verdict := batch.Verdict{Threshold: settings.AccuracyThreshold}
	for i, id := range task.StepIDs {
		exec, ok := task.ExecutionAt(i)
		spec := stepAt(settings, i, id)

		if !ok || !exec.Success() {
			if spec.Required {
				verdict.RequiredFailed = true
			} else if ok && exec.Attempted() {
				verdict.OptionalFailed = true
			}
		}
		if !ok {
			continue
		}

		if exec.Attempted() {
			result.StepsAttempted++
			result.Duration += exec.Duration()
			if !exec.Success() {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", exec.Name, exec.Summary()))
			}
		}
		if !exec.Success() {
			continue
		}
		result.StepsCompleted++

		if exec.OutputPath == "" || a.inspector == nil {
			continue
		}
		artifact := a.inspector.Stat(exec.OutputPath)
		if !artifact.Exists {
			note := batch.NewError(batch.ErrCodeArtifactMissing,
				fmt.Sprintf("%s: expected output %s not found", exec.Name, exec.OutputPath), nil, nil)
			result.Notes = append(result.Notes, note.Error())
			a.logger.Warn(ctx, "expected artifact missing", "file", task.Path, "step", id, "output", exec.OutputPath)
			continue
		}
		result.OutputBytes += artifact.Size

		if spec.Report && result.Accuracy == nil {
			if accuracy, found := a.inspector.Accuracy(exec.OutputPath); found {
				value := accuracy
				result.Accuracy = &value
			}
		}
	}

	if task.Failure != nil {
		verdict.RequiredFailed = true
		result.Errors = append(result.Errors, task.Failure.Error())
	}

	verdict.Accuracy = result.Accuracy
	result.Classification = batch.Classify(verdict)
	result.RequiredFailed = verdict.RequiredFailed

	if result.Accuracy != nil && settings.AccuracyThreshold > 0 && *result.Accuracy < settings.AccuracyThreshold {
		result.Notes = append(result.Notes,
			fmt.Sprintf("accuracy %.1f%% below threshold %.1f%%", *result.Accuracy, settings.AccuracyThreshold))
	}

	return result
}

// stepAt pairs the i-th step of a task with its settings entry. Tasks built
// from the same snapshot line up by position; a mismatch falls back to the
// first entry with that ID.
func stepAt(settings batch.Settings, i int, id string) batch.StepSpec {
	if i < len(settings.Steps) && settings.Steps[i].ID == id {
		return settings.Steps[i]
	}
	for _, spec := range settings.Steps {
		if spec.ID == id {
			return spec
		}
	}
	return batch.StepSpec{ID: id}
}
