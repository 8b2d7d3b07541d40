package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/tui/components"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func apply(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestUpdateTracksFileLifecycle(t *testing.T) {
	accuracy := 96.0
	m := apply(t, NewModel("demo", testFiles(), nil),
		BatchStartedMsg{JobID: "job", Total: 3},
		FileStartedMsg{Path: "music/a.sid", Index: 1, Total: 3},
		StepStartedMsg{Path: "music/a.sid", Step: "convert", Name: "Convert", Index: 1, Total: 2},
	)
	require.Equal(t, components.FileRunning, m.files[0].Status)
	require.Equal(t, "Convert", m.files[0].Step)
	require.Equal(t, 1, m.stepIndex)

	m = apply(t, m,
		StepCompletedMsg{Path: "music/a.sid", Step: "convert", Name: "Convert", Success: true},
		FileCompletedMsg{Result: batch.FileResult{Path: "music/a.sid", Classification: batch.ClassPassed, Accuracy: &accuracy}},
		FileStartedMsg{Path: "music/b.sid", Index: 2, Total: 3},
		StepCompletedMsg{Path: "music/b.sid", Step: "convert", Name: "Convert", Success: false, Message: "exited with status 1"},
		FileCompletedMsg{Result: batch.FileResult{
			Path:           "music/b.sid",
			Classification: batch.ClassFailed,
			Errors:         []string{"Convert: exited with status 1"},
		}},
		FileSkippedMsg{Path: "music/c.sid"},
	)

	require.Equal(t, components.FilePassed, m.files[0].Status)
	require.Equal(t, &accuracy, m.files[0].Percent)
	require.Equal(t, components.FileFailed, m.files[1].Status)
	require.Equal(t, "Convert: exited with status 1", m.files[1].Detail)
	require.Equal(t, components.FileSkipped, m.files[2].Status)
	require.Equal(t, components.Tally{Done: 2, Failed: 1, Skipped: 1}, m.tally)
}

func TestUpdateIgnoresUnknownFiles(t *testing.T) {
	m := apply(t, NewModel("demo", testFiles(), nil),
		FileStartedMsg{Path: "elsewhere.sid"},
		FileCompletedMsg{Result: batch.FileResult{Path: "elsewhere.sid", Classification: batch.ClassPassed}},
	)
	for _, entry := range m.files {
		require.Equal(t, components.FilePending, entry.Status)
	}
}

func TestUpdatePauseResumeKeys(t *testing.T) {
	controls := &fakeControls{pause: true, resume: true}
	m := apply(t, NewModel("demo", testFiles(), controls), key("p"))
	require.True(t, m.pausePending)
	require.Contains(t, m.notice, "pause requested")

	m = apply(t, m, PausedMsg{})
	require.True(t, m.paused)
	require.False(t, m.pausePending)

	m = apply(t, m, key("r"), ResumedMsg{})
	require.False(t, m.paused)
	require.Equal(t, []string{"pause", "resume"}, controls.calls)
}

func TestUpdateRejectedControlLeavesState(t *testing.T) {
	controls := &fakeControls{}
	m := apply(t, NewModel("demo", testFiles(), controls), key("p"), key("s"))
	require.False(t, m.pausePending)
	require.False(t, m.stopping)
	require.Equal(t, []string{"pause", "stop"}, controls.calls)
}

func TestUpdateStopKeys(t *testing.T) {
	controls := &fakeControls{stop: true}
	m := NewModel("demo", testFiles(), controls)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)
	require.True(t, m.stopping)
	require.False(t, isQuit(cmd))

	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)
	require.True(t, isQuit(cmd))
	require.True(t, m.quitting)
	require.Equal(t, []string{"stop"}, controls.calls)
}

func TestUpdateQuitOnlyAfterCompletion(t *testing.T) {
	m := NewModel("demo", testFiles(), &fakeControls{})

	updated, cmd := m.Update(key("q"))
	m = updated.(Model)
	require.False(t, isQuit(cmd))
	require.Contains(t, m.notice, "still running")

	m = apply(t, m, BatchCompletedMsg{Summary: batch.BatchSummary{Total: 3, Processed: 3, Passed: 3}})
	require.True(t, m.Finished())
	require.NotNil(t, m.Summary())
	require.Empty(t, m.notice)

	_, cmd = m.Update(key("q"))
	require.True(t, isQuit(cmd))
}

func TestUpdateStartFailureQuits(t *testing.T) {
	m := NewModel("demo", testFiles(), nil)
	updated, cmd := m.Update(StartFailedMsg{Err: errors.New("unknown step")})
	m = updated.(Model)
	require.True(t, isQuit(cmd))
	require.EqualError(t, m.StartErr(), "unknown step")
}

func TestUpdateRepeatedInputUsesPosition(t *testing.T) {
	m := apply(t, NewModel("demo", []string{"music/a.sid", "music/a.sid"}, nil),
		FileStartedMsg{Path: "music/a.sid", Index: 1, Total: 2},
		FileCompletedMsg{Index: 1, Result: batch.FileResult{Path: "music/a.sid", Classification: batch.ClassPassed}},
		FileStartedMsg{Path: "music/a.sid", Index: 2, Total: 2},
		StepStartedMsg{Path: "music/a.sid", FileIndex: 2, Step: "convert", Name: "Convert", Index: 1, Total: 1},
		StepCompletedMsg{Path: "music/a.sid", FileIndex: 2, Step: "convert", Name: "Convert", Message: "exited with status 1"},
	)

	require.Equal(t, components.FilePassed, m.files[0].Status)
	require.Empty(t, m.files[0].Detail)
	require.Equal(t, components.FileRunning, m.files[1].Status)
	require.Equal(t, "Convert", m.files[1].Step)
	require.Equal(t, "Convert: exited with status 1", m.files[1].Detail)

	m = apply(t, m, FileCompletedMsg{Index: 2, Result: batch.FileResult{Path: "music/a.sid", Classification: batch.ClassFailed}})
	require.Equal(t, components.FileFailed, m.files[1].Status)
	require.Equal(t, components.FilePassed, m.files[0].Status)
}

func TestUpdateWithoutPositionFallsBackToFirstRow(t *testing.T) {
	m := apply(t, NewModel("demo", []string{"music/a.sid", "music/a.sid"}, nil),
		FileSkippedMsg{Path: "music/a.sid"},
	)
	require.Equal(t, components.FileSkipped, m.files[0].Status)
	require.Equal(t, components.FilePending, m.files[1].Status)
}
