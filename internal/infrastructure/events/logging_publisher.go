package events

import (
	"context"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// LoggingPublisher writes every event as a structured log entry and then
// dispatches it synchronously to the subscribers of its type, in
// subscription order.
type LoggingPublisher struct {
	logger ports.Logger
	subs   map[string][]subscriptionEntry
	nextID int
	mu     sync.RWMutex
}

var _ ports.EventPublisher = (*LoggingPublisher)(nil)

// NewLoggingPublisher creates an event publisher backed by logger. A nil
// logger disables the log output but keeps dispatching.
func NewLoggingPublisher(logger ports.Logger) *LoggingPublisher {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &LoggingPublisher{
		logger: logger,
		subs:   make(map[string][]subscriptionEntry),
	}
}

// Publish logs the event, then runs its handlers. Handler errors are logged
// and never stop delivery to the remaining handlers.
func (p *LoggingPublisher) Publish(ctx context.Context, event ports.DomainEvent) error {
	if p == nil || event == nil {
		return nil
	}

	p.mu.RLock()
	handlers := append([]subscriptionEntry(nil), p.subs[event.EventType()]...)
	p.mu.RUnlock()

	fields := eventFields(event)
	switch event.EventType() {
	case ports.EventLog:
		p.logger.Debug(ctx, "tool output", fields...)
	case ports.EventError:
		p.logger.Warn(ctx, "batch event", fields...)
	default:
		p.logger.Info(ctx, "batch event", fields...)
	}

	for _, entry := range handlers {
		if entry.handler == nil {
			continue
		}
		if err := entry.handler(ctx, event); err != nil {
			p.logger.Warn(ctx, "event handler failed", "event_type", event.EventType(), "error", err)
		}
	}

	return nil
}

// Subscribe registers a handler for the provided event type.
func (p *LoggingPublisher) Subscribe(eventType string, handler ports.EventHandler) (ports.Subscription, error) {
	if p == nil || handler == nil {
		return noopSubscription{}, nil
	}
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[eventType] = append(p.subs[eventType], subscriptionEntry{id: id, handler: handler})
	p.mu.Unlock()

	return subscription{
		cancel: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			handlers := p.subs[eventType]
			for i, entry := range handlers {
				if entry.id == id {
					p.subs[eventType] = append(handlers[:i:i], handlers[i+1:]...)
					break
				}
			}
		},
	}, nil
}

// SubscribeAll registers handler for every event type of the protocol.
func SubscribeAll(publisher ports.EventPublisher, handler ports.EventHandler) (ports.Subscription, error) {
	subs := make(multiSubscription, 0, len(ports.AllEventTypes))
	for _, eventType := range ports.AllEventTypes {
		sub, err := publisher.Subscribe(eventType, handler)
		if err != nil {
			subs.Unsubscribe()
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// eventFields flattens a payload into log fields. Results and summaries are
// reduced to their headline numbers.
func eventFields(event ports.DomainEvent) []interface{} {
	fields := []interface{}{"event_type", event.EventType()}
	payload, ok := event.Payload().(map[string]interface{})
	if !ok {
		if event.Payload() != nil {
			fields = append(fields, "payload", event.Payload())
		}
		return fields
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch value := payload[key].(type) {
		case batch.FileResult:
			fields = append(fields, "classification", string(value.Classification), "steps_completed", value.StepsCompleted)
			if value.Accuracy != nil {
				fields = append(fields, "accuracy", *value.Accuracy)
			}
		case batch.BatchSummary:
			fields = append(fields,
				"passed", value.Passed,
				"warning", value.Warning,
				"failed", value.Failed,
				"skipped", value.Skipped,
				"stopped", value.Stopped,
			)
		default:
			fields = append(fields, key, value)
		}
	}
	return fields
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type subscription struct {
	cancel func()
}

func (s subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type multiSubscription []ports.Subscription

func (m multiSubscription) Unsubscribe() {
	for _, sub := range m {
		sub.Unsubscribe()
	}
}

type subscriptionEntry struct {
	id      int
	handler ports.EventHandler
}
