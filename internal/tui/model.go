package tui

import (
	"path/filepath"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/tui/components"
)

const (
	maxLogLines  = 8
	maxFileLines = 12
)

// Controls is the subset of the batch controller the UI drives.
type Controls interface {
	Pause() bool
	Resume() bool
	Stop() bool
}

// Model contains the Bubbletea state for the batch progress view.
type Model struct {
	name     string
	controls Controls
	start    func() error

	files []components.FileEntry
	index map[string]int
	total int
	tally components.Tally

	stepName  string
	stepIndex int
	stepTotal int
	logs      []LogMsg

	pausePending bool
	paused       bool
	stopping     bool
	finished     bool
	quitting     bool
	summary      *batch.BatchSummary
	startErr     error
	notice       string

	spinner spinner.Model
}

// Option customises a Model.
type Option func(*Model)

// WithStart registers the function that launches the batch. It runs from
// Init, once the program is ready to receive events.
func WithStart(start func() error) Option {
	return func(m *Model) {
		m.start = start
	}
}

// NewModel constructs the progress view for the given files.
func NewModel(title string, files []string, controls Controls, opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = runningStyle

	m := Model{
		name:     title,
		controls: controls,
		index:    make(map[string]int, len(files)),
		total:    len(files),
		spinner:  s,
	}
	for i, path := range files {
		if _, seen := m.index[path]; !seen {
			m.index[path] = i
		}
		m.files = append(m.files, components.FileEntry{
			Path:   path,
			Name:   filepath.Base(path),
			Status: components.FilePending,
		})
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner and, when configured, the batch itself.
func (m Model) Init() tea.Cmd {
	if m.start == nil {
		return m.spinner.Tick
	}
	start := m.start
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		if err := start(); err != nil {
			return StartFailedMsg{Err: err}
		}
		return nil
	})
}

// Finished reports whether batch.completed has been received.
func (m Model) Finished() bool {
	return m.finished
}

// Summary returns the final summary, or nil while running.
func (m Model) Summary() *batch.BatchSummary {
	return m.summary
}

// StartErr returns the error that prevented the batch from starting.
func (m Model) StartErr() error {
	return m.startErr
}

// entry finds the row for a file event. position is the 1-based index from
// the event; it tells repeated inputs apart. Without a usable position the
// first row with that path is used.
func (m *Model) entry(position int, path string) *components.FileEntry {
	if position >= 1 && position <= len(m.files) && m.files[position-1].Path == path {
		return &m.files[position-1]
	}
	i, ok := m.index[path]
	if !ok {
		return nil
	}
	return &m.files[i]
}

func (m *Model) appendLog(msg LogMsg) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogLines {
		m.logs = append([]LogMsg(nil), m.logs[len(m.logs)-maxLogLines:]...)
	}
}
