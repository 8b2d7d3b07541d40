package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/tunebatch/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string
	sections = append(sections, titleStyle.Render(fmt.Sprintf("tunebatch • %s • %s", m.title(), m.stateLabel())))

	progress := components.NewProgress(m.total).View(m.tally)
	if !m.finished && m.stepName != "" {
		progress = fmt.Sprintf("%s  %s step %d/%d: %s", progress, m.spinner.View(), m.stepIndex, m.stepTotal, m.stepName)
	}
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := components.NewFileList(m.files).Window(maxFileLines)
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Files"), renderFileEntries(entries))
	}

	if len(m.logs) > 0 && !m.finished {
		sections = append(sections, sectionStyle.Render("Output"), renderLogs(m.logs))
	}

	if m.summary != nil {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(components.NewSummary(*m.summary).View()))
	}

	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	sections = append(sections, helpStyle.Render(m.help()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderFileEntries(entries []components.FileEntry) string {
	var lines []string
	for _, entry := range entries {
		line := fmt.Sprintf(" %s %s", StatusIcon(entry.Status), entry.Name)
		if entry.Status == components.FileRunning && entry.Step != "" {
			line = fmt.Sprintf("%s [%s]", line, entry.Step)
		}
		if entry.Percent != nil {
			line = fmt.Sprintf("%s %.1f%%", line, *entry.Percent)
		}
		if strings.TrimSpace(entry.Detail) != "" {
			line = fmt.Sprintf("%s — %s", line, entry.Detail)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderLogs(logs []LogMsg) string {
	var lines []string
	for _, l := range logs {
		lines = append(lines, logStyle(l.Level).Render(fmt.Sprintf("  %s", l.Message)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) title() string {
	if strings.TrimSpace(m.name) != "" {
		return m.name
	}
	return "batch"
}

func (m Model) stateLabel() string {
	switch {
	case m.finished && m.summary != nil && m.summary.Stopped:
		return "stopped"
	case m.finished:
		return "completed"
	case m.stopping:
		return "stopping"
	case m.paused:
		return "paused"
	default:
		return "running"
	}
}

func (m Model) help() string {
	switch {
	case m.finished:
		return "q quit"
	case m.paused:
		return "r resume • s stop"
	default:
		return "p pause • s stop"
	}
}

// StatusIcon returns the glyph representing a file status.
func StatusIcon(status components.FileStatus) string {
	g, ok := statusGlyphs[status]
	if !ok {
		g = statusGlyphs[components.FilePending]
	}
	return g.style.Render(g.symbol)
}
