package ports

import "context"

const (
	// EventBatchStarted is emitted once a batch job has been accepted.
	EventBatchStarted = "batch.started"
	// EventBatchPaused is emitted when a pause request takes effect at a file boundary.
	EventBatchPaused = "batch.paused"
	// EventBatchResumed is emitted when a paused batch continues.
	EventBatchResumed = "batch.resumed"
	// EventBatchCompleted is emitted exactly once per job, after the last file or an early stop.
	EventBatchCompleted = "batch.completed"
	// EventFileStarted is emitted before the first step of a file.
	EventFileStarted = "file.started"
	// EventFileCompleted is emitted with the aggregated FileResult.
	EventFileCompleted = "file.completed"
	// EventFileSkipped is emitted for every file that never ran because the batch stopped.
	EventFileSkipped = "file.skipped"
	// EventStepStarted is emitted before a step's process is launched.
	EventStepStarted = "step.started"
	// EventStepCompleted is emitted after the step's process has been reaped.
	EventStepCompleted = "step.completed"
	// EventLog carries one line of tool output with its level.
	EventLog = "log"
	// EventError is emitted once per file classified as failed.
	EventError = "error"
)

// AllEventTypes lists every event type in protocol order.
var AllEventTypes = []string{
	EventBatchStarted,
	EventFileStarted,
	EventStepStarted,
	EventLog,
	EventStepCompleted,
	EventFileCompleted,
	EventError,
	EventFileSkipped,
	EventBatchPaused,
	EventBatchResumed,
	EventBatchCompleted,
}

// Payload keys shared by publishers and subscribers.
const (
	KeyJobID   = "job_id"
	KeyTotal   = "total"
	KeyName    = "name"
	KeyIndex   = "index"
	KeySuccess = "success"
	KeyMessage = "message"
	KeyResult  = "result"
	KeySummary = "summary"
	KeyLevel   = "level"
	KeyFile    = "file"
	KeyStep    = "step"
	// KeyFileIndex is the 1-based position of the file on step and log
	// events, where KeyIndex counts steps.
	KeyFileIndex = "file_index"
)

// DomainEvent represents a significant occurrence within the application
// layer. Events carry structured payloads that subscribers use for logging,
// UI updates, or report generation.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// EventPublisher distributes events to interested subscribers. Dispatch is
// synchronous: Publish blocks until all handlers run, so the order in which a
// single goroutine publishes is the order every subscriber observes.
// Implementations must be thread-safe.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes an event of a specific type. Failures are returned so
// the publisher can log them and continue delivering to remaining subscribers.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler.
type Subscription interface {
	Unsubscribe()
}
