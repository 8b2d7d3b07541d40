package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Tally counts the files of a batch that are no longer pending.
type Tally struct {
	Done    int
	Failed  int
	Skipped int
}

// Progress renders how many files of the batch are done.
type Progress struct {
	bar   progress.Model
	total int
}

// NewProgress creates a progress component for the given number of files.
func NewProgress(total int) Progress {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return Progress{bar: bar, total: total}
}

// View renders the bar and a label counting files, not steps. Skipped files
// fill the bar but are not counted as done.
func (p Progress) View(t Tally) string {
	ratio := 0.0
	if p.total > 0 {
		ratio = math.Min(1.0, float64(t.Done+t.Skipped)/float64(p.total))
	}

	parts := []string{fmt.Sprintf("%d/%d files", t.Done, p.total)}
	if t.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", t.Failed))
	}
	if t.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", t.Skipped))
	}
	label := lipgloss.NewStyle().Bold(true).Render(strings.Join(parts, " · "))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", p.bar.ViewAs(ratio))
}
