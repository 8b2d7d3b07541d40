package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
)

// Summary renders the final batch summary.
type Summary struct {
	data batch.BatchSummary
}

// NewSummary creates a new Summary component.
func NewSummary(data batch.BatchSummary) Summary {
	return Summary{data: data}
}

// View renders the summary as plain lines.
func (s Summary) View() string {
	d := s.data
	if d.Total == 0 {
		return ""
	}

	lines := []string{
		fmt.Sprintf("Files: %d processed of %d (%d skipped)", d.Processed, d.Total, d.Skipped),
		fmt.Sprintf("Passed: %d  Warning: %d  Failed: %d  Pass rate: %.1f%%", d.Passed, d.Warning, d.Failed, d.PassRate),
	}
	if d.AccuracySamples > 0 {
		lines = append(lines, fmt.Sprintf("Average accuracy: %.2f%% over %d file(s)", d.AverageAccuracy, d.AccuracySamples))
	}
	if d.OutputBytes > 0 {
		lines = append(lines, fmt.Sprintf("Output: %s", humanize.Bytes(uint64(d.OutputBytes))))
	}
	lines = append(lines, fmt.Sprintf("Elapsed: %s", d.Elapsed.Round(time.Millisecond)))

	if d.Stopped {
		lines = append(lines, fmt.Sprintf("Batch stopped (%s)", d.StopReason))
	}

	if len(d.FirstErrors) > 0 {
		paths := make([]string, 0, len(d.FirstErrors))
		for path := range d.FirstErrors {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		lines = append(lines, "Failures:")
		for _, path := range paths {
			lines = append(lines, fmt.Sprintf("  ✗ %s: %s", path, d.FirstErrors[path]))
		}
	}

	return strings.Join(lines, "\n")
}
