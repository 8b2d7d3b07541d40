package batch

import "time"

// Classification is the final verdict for one file.
type Classification string

const (
	ClassPassed  Classification = "passed"
	ClassWarning Classification = "warning"
	ClassFailed  Classification = "failed"
)

// rank orders classifications from best to worst.
func (c Classification) rank() int {
	switch c {
	case ClassPassed:
		return 0
	case ClassWarning:
		return 1
	default:
		return 2
	}
}

// WorseThan reports whether c is a strictly worse verdict than other.
func (c Classification) WorseThan(other Classification) bool {
	return c.rank() > other.rank()
}

// Verdict holds the facts the classification rule looks at.
type Verdict struct {
	RequiredFailed bool
	OptionalFailed bool
	Accuracy       *float64
	Threshold      float64
}

// Classify applies the classification rule: failed when a required step did
// not succeed; warning when an optional step did not succeed or a known
// accuracy is below a positive threshold; passed otherwise.
func Classify(v Verdict) Classification {
	if v.RequiredFailed {
		return ClassFailed
	}
	if v.OptionalFailed {
		return ClassWarning
	}
	if v.Accuracy != nil && v.Threshold > 0 && *v.Accuracy < v.Threshold {
		return ClassWarning
	}
	return ClassPassed
}

// FileResult is the aggregated outcome for one file. It is produced once per
// task and never mutated after emission.
type FileResult struct {
	Path           string
	Name           string
	StepsAttempted int
	StepsCompleted int
	TotalSteps     int
	Classification Classification
	Accuracy       *float64
	Duration       time.Duration
	Errors         []string
	Notes          []string
	OutputBytes    int64
	RequiredFailed bool
}

// FirstError returns the first recorded error message, or "".
func (r FileResult) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0]
}

// HasAccuracy reports whether an accuracy value was parsed.
func (r FileResult) HasAccuracy() bool {
	return r.Accuracy != nil
}

// BatchSummary aggregates the results of one batch job.
type BatchSummary struct {
	Total           int
	Processed       int
	Passed          int
	Warning         int
	Failed          int
	Skipped         int
	PassRate        float64
	AverageAccuracy float64
	AccuracySamples int
	OutputBytes     int64
	Elapsed         time.Duration
	Stopped         bool
	StopReason      string
	FirstErrors     map[string]string
}

// Summarize computes the batch summary from the emitted file results.
func Summarize(total int, results []FileResult, elapsed time.Duration, stopReason string) BatchSummary {
	summary := BatchSummary{
		Total:       total,
		Processed:   len(results),
		Elapsed:     elapsed,
		Stopped:     stopReason != "",
		StopReason:  stopReason,
		FirstErrors: make(map[string]string),
	}

	var accuracySum float64
	for _, res := range results {
		switch res.Classification {
		case ClassPassed:
			summary.Passed++
		case ClassWarning:
			summary.Warning++
		default:
			summary.Failed++
			summary.FirstErrors[res.Path] = res.FirstError()
		}
		if res.Accuracy != nil {
			accuracySum += *res.Accuracy
			summary.AccuracySamples++
		}
		summary.OutputBytes += res.OutputBytes
	}

	summary.Skipped = total - summary.Processed
	if summary.Skipped < 0 {
		summary.Skipped = 0
	}
	if summary.Processed > 0 {
		summary.PassRate = float64(summary.Passed) / float64(summary.Processed) * 100
	}
	if summary.AccuracySamples > 0 {
		summary.AverageAccuracy = accuracySum / float64(summary.AccuracySamples)
	}

	return summary
}
