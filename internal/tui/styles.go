package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/tui/components"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)
	summaryStyle = lipgloss.NewStyle().MarginTop(1)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type glyph struct {
	symbol string
	style  lipgloss.Style
}

var statusGlyphs = map[components.FileStatus]glyph{
	components.FilePassed:  {"✓", lipgloss.NewStyle().Foreground(lipgloss.Color("42"))},
	components.FileWarning: {"!", lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)},
	components.FileRunning: {"⏳", runningStyle},
	components.FileFailed:  {"✗", lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)},
	components.FileSkipped: {"⊘", lipgloss.NewStyle().Foreground(lipgloss.Color("244"))},
	components.FilePending: {"…", pendingStyle},
}

// Tool output lines are tinted by level; INFO and DEBUG stay muted.
var logStyles = map[batch.LogLevel]lipgloss.Style{
	batch.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	batch.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

func logStyle(level string) lipgloss.Style {
	if style, ok := logStyles[batch.LogLevel(level)]; ok {
		return style
	}
	return pendingStyle
}
