package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/tui/components"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case StartFailedMsg:
		m.startErr = msg.Err
		m.finished = true
		m.quitting = true
		return m, tea.Quit
	case BatchStartedMsg:
		if msg.Total > 0 {
			m.total = msg.Total
		}
		return m, nil
	case FileStartedMsg:
		if entry := m.entry(msg.Index, msg.Path); entry != nil {
			entry.Status = components.FileRunning
			entry.Detail = ""
		}
		m.stepName, m.stepIndex, m.stepTotal = "", 0, 0
		return m, nil
	case StepStartedMsg:
		m.stepName, m.stepIndex, m.stepTotal = msg.Name, msg.Index, msg.Total
		if entry := m.entry(msg.FileIndex, msg.Path); entry != nil {
			entry.Step = msg.Name
		}
		return m, nil
	case StepCompletedMsg:
		if !msg.Success {
			if entry := m.entry(msg.FileIndex, msg.Path); entry != nil {
				entry.Detail = fmt.Sprintf("%s: %s", msg.Name, msg.Message)
			}
		}
		return m, nil
	case FileCompletedMsg:
		res := msg.Result
		if entry := m.entry(msg.Index, res.Path); entry != nil {
			entry.Status = statusFor(res.Classification)
			entry.Step = ""
			entry.Percent = res.Accuracy
			entry.Detail = res.FirstError()
			if entry.Detail == "" && len(res.Notes) > 0 {
				entry.Detail = res.Notes[0]
			}
		}
		m.tally.Done++
		if res.Classification == batch.ClassFailed {
			m.tally.Failed++
		}
		return m, nil
	case FileSkippedMsg:
		if entry := m.entry(msg.Index, msg.Path); entry != nil {
			entry.Status = components.FileSkipped
		}
		m.tally.Skipped++
		return m, nil
	case PausedMsg:
		m.paused = true
		m.pausePending = false
		m.notice = ""
		return m, nil
	case ResumedMsg:
		m.paused = false
		return m, nil
	case BatchCompletedMsg:
		summary := msg.Summary
		m.summary = &summary
		m.finished = true
		m.paused = false
		m.pausePending = false
		m.stopping = false
		m.notice = ""
		return m, nil
	case LogMsg:
		m.appendLog(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.QuitMsg:
		m.quitting = true
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.finished {
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "p":
		if m.controls != nil && m.controls.Pause() {
			m.pausePending = true
			m.notice = "pause requested: waiting for the current file to finish"
		}
	case "r":
		if m.controls != nil && m.controls.Resume() {
			m.paused = false
			m.notice = ""
		}
	case "s", "ctrl+c":
		if m.stopping {
			if msg.String() == "ctrl+c" {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
		if m.controls != nil && m.controls.Stop() {
			m.stopping = true
			m.notice = "stopping: cancelling the running step"
		}
	case "q":
		m.notice = "batch still running: press s to stop first"
	}
	return m, nil
}

func statusFor(c batch.Classification) components.FileStatus {
	switch c {
	case batch.ClassPassed:
		return components.FilePassed
	case batch.ClassWarning:
		return components.FileWarning
	default:
		return components.FileFailed
	}
}
