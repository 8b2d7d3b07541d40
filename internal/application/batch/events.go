package batch

import (
	"context"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// batchEvent is the DomainEvent published for every step of the protocol.
// Payloads are plain maps keyed by the ports.Key* constants.
type batchEvent struct {
	eventType string
	payload   map[string]interface{}
}

func (e batchEvent) EventType() string {
	return e.eventType
}

func (e batchEvent) Payload() interface{} {
	return e.payload
}

type eventPayload map[string]interface{}

func jobPayload(jobID string, total int) eventPayload {
	return eventPayload{
		ports.KeyJobID: jobID,
		ports.KeyTotal: total,
	}
}

func filePayload(task batch.FileTask, total int) eventPayload {
	return eventPayload{
		ports.KeyName:  task.Name(),
		ports.KeyIndex: task.Position,
		ports.KeyTotal: total,
		ports.KeyFile:  task.Path,
	}
}

// stepPayload describes step index (1-based) of total within task.
func stepPayload(task batch.FileTask, step batch.StepSpec, index, total int) eventPayload {
	return eventPayload{
		ports.KeyName:  step.DisplayName(),
		ports.KeyIndex: index,
		ports.KeyTotal: total,
		ports.KeyFile:  task.Path,
		ports.KeyStep:  step.ID,

		ports.KeyFileIndex: task.Position,
	}
}

func (p eventPayload) with(key string, value interface{}) eventPayload {
	p[key] = value
	return p
}

func publishEvent(ctx context.Context, publisher ports.EventPublisher, logger ports.Logger, eventType string, payload eventPayload) {
	if publisher == nil {
		return
	}
	event := batchEvent{eventType: eventType, payload: map[string]interface{}(payload)}
	if err := publisher.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn(ctx, "failed to publish batch event", "event_type", eventType, "error", err)
	}
}
