package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// BatchStartedMsg announces a new job.
type BatchStartedMsg struct {
	JobID string
	Total int
}

// FileStartedMsg reports that a file began processing.
type FileStartedMsg struct {
	Path  string
	Index int
	Total int
}

// StepStartedMsg reports that a step's process is about to launch. Index
// and Total count steps; FileIndex is the file's 1-based position.
type StepStartedMsg struct {
	Path      string
	FileIndex int
	Step      string
	Name      string
	Index     int
	Total     int
}

// StepCompletedMsg reports that a step finished.
type StepCompletedMsg struct {
	Path      string
	FileIndex int
	Step      string
	Name    string
	Success bool
	Message string
}

// FileCompletedMsg carries the aggregated result of a file.
type FileCompletedMsg struct {
	Index  int
	Result batch.FileResult
}

// FileSkippedMsg reports a file that never ran.
type FileSkippedMsg struct {
	Path  string
	Index int
}

// PausedMsg and ResumedMsg mirror the controller's pause lifecycle.
type PausedMsg struct{}

type ResumedMsg struct{}

// BatchCompletedMsg carries the final summary.
type BatchCompletedMsg struct {
	Summary batch.BatchSummary
}

// LogMsg is one line of tool output.
type LogMsg struct {
	Level   string
	Message string
	Path    string
	Step    string
}

// StartFailedMsg is sent when the batch could not be started.
type StartFailedMsg struct {
	Err error
}

// Translate maps a domain event onto its Bubbletea message.
func Translate(event ports.DomainEvent) (tea.Msg, bool) {
	if event == nil {
		return nil, false
	}
	payload, _ := event.Payload().(map[string]interface{})
	str := func(key string) string {
		v, _ := payload[key].(string)
		return v
	}
	num := func(key string) int {
		v, _ := payload[key].(int)
		return v
	}

	switch event.EventType() {
	case ports.EventBatchStarted:
		return BatchStartedMsg{JobID: str(ports.KeyJobID), Total: num(ports.KeyTotal)}, true
	case ports.EventFileStarted:
		return FileStartedMsg{Path: str(ports.KeyFile), Index: num(ports.KeyIndex), Total: num(ports.KeyTotal)}, true
	case ports.EventStepStarted:
		return StepStartedMsg{
			Path:      str(ports.KeyFile),
			FileIndex: num(ports.KeyFileIndex),
			Step:      str(ports.KeyStep),
			Name:      str(ports.KeyName),
			Index:     num(ports.KeyIndex),
			Total:     num(ports.KeyTotal),
		}, true
	case ports.EventStepCompleted:
		success, _ := payload[ports.KeySuccess].(bool)
		return StepCompletedMsg{
			Path:      str(ports.KeyFile),
			FileIndex: num(ports.KeyFileIndex),
			Step:      str(ports.KeyStep),
			Name:      str(ports.KeyName),
			Success:   success,
			Message:   str(ports.KeyMessage),
		}, true
	case ports.EventFileCompleted:
		result, ok := payload[ports.KeyResult].(batch.FileResult)
		if !ok {
			return nil, false
		}
		return FileCompletedMsg{Index: num(ports.KeyIndex), Result: result}, true
	case ports.EventFileSkipped:
		return FileSkippedMsg{Path: str(ports.KeyFile), Index: num(ports.KeyIndex)}, true
	case ports.EventBatchPaused:
		return PausedMsg{}, true
	case ports.EventBatchResumed:
		return ResumedMsg{}, true
	case ports.EventBatchCompleted:
		summary, ok := payload[ports.KeySummary].(batch.BatchSummary)
		if !ok {
			return nil, false
		}
		return BatchCompletedMsg{Summary: summary}, true
	case ports.EventLog:
		return LogMsg{
			Level:   str(ports.KeyLevel),
			Message: str(ports.KeyMessage),
			Path:    str(ports.KeyFile),
			Step:    str(ports.KeyStep),
		}, true
	default:
		return nil, false
	}
}

// Bridge forwards every batch event to send, typically tea.Program.Send.
func Bridge(publisher ports.EventPublisher, send func(tea.Msg)) (ports.Subscription, error) {
	return events.SubscribeAll(publisher, func(_ context.Context, event ports.DomainEvent) error {
		if msg, ok := Translate(event); ok {
			send(msg)
		}
		return nil
	})
}
