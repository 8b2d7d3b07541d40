package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventRecord
}

type eventRecord struct {
	eventType     string
	payload       map[string]interface{}
	correlationID string
}

func (r *recordingPublisher) Publish(ctx context.Context, event ports.DomainEvent) error {
	if event == nil {
		return nil
	}
	payload := map[string]interface{}{}
	if raw, ok := event.Payload().(map[string]interface{}); ok {
		payload = raw
	}
	record := eventRecord{
		eventType:     event.EventType(),
		payload:       payload,
		correlationID: ports.GetCorrelationID(ctx),
	}
	r.mu.Lock()
	r.events = append(r.events, record)
	r.mu.Unlock()
	return nil
}

func (r *recordingPublisher) Subscribe(string, ports.EventHandler) (ports.Subscription, error) {
	return noopSubscription{}, nil
}

func (r *recordingPublisher) snapshot() []eventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]eventRecord(nil), r.events...)
}

// types returns the recorded event types, without log events.
func (r *recordingPublisher) types() []string {
	var out []string
	for _, evt := range r.snapshot() {
		if evt.eventType == ports.EventLog {
			continue
		}
		out = append(out, evt.eventType)
	}
	return out
}

func (r *recordingPublisher) ofType(eventType string) []eventRecord {
	var out []eventRecord
	for _, evt := range r.snapshot() {
		if evt.eventType == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func (r *recordingPublisher) count(eventType string) int {
	return len(r.ofType(eventType))
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

// stubResolver resolves every step to argv [step, file] and an optional
// output path under dir.
type stubResolver struct {
	outputs map[string]string
	fail    map[string]error
}

func (s *stubResolver) Resolve(stepID string, file ports.FileRef) (ports.Command, error) {
	if err, ok := s.fail[stepID]; ok {
		return ports.Command{}, err
	}
	cmd := ports.Command{Argv: []string{stepID, file.Path}}
	if dir, ok := s.outputs[stepID]; ok {
		cmd.OutputPath = filepath.Join(dir, filepath.Base(file.Path)+"."+stepID)
	}
	return cmd, nil
}

type stubCatalog map[string]bool

func (c stubCatalog) Has(id string) bool { return c[id] }

type stepBehaviour func(ctx context.Context, cancelled <-chan struct{}, cmd ports.Command, sink ports.OutputSink) (batch.Outcome, int, string)

// scriptedRunner fakes a StepRunner. Behaviours are keyed by "step" or
// "step|file-base-name"; the default is success.
type scriptedRunner struct {
	mu         sync.Mutex
	behaviours map[string]stepBehaviour
	calls      []ports.Command
	running    int
	maxRunning int
	cancelOnce sync.Once
	cancelled  chan struct{}
}

func newScriptedRunner(behaviours map[string]stepBehaviour) *scriptedRunner {
	if behaviours == nil {
		behaviours = map[string]stepBehaviour{}
	}
	return &scriptedRunner{behaviours: behaviours, cancelled: make(chan struct{})}
}

func (r *scriptedRunner) Run(ctx context.Context, cmd ports.Command, _ ports.Limits, sink ports.OutputSink) batch.StepExecution {
	started := time.Now()
	exec := batch.StepExecution{Argv: cmd.Argv, OutputPath: cmd.OutputPath, StartedAt: started}

	select {
	case <-r.cancelled:
		exec.Outcome, exec.ExitCode, exec.Message = batch.OutcomeCancelled, -1, "cancelled before start"
		exec.EndedAt = time.Now()
		return exec
	default:
	}

	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.running++
	if r.running > r.maxRunning {
		r.maxRunning = r.running
	}
	behaviour := r.behaviours[cmd.Argv[0]+"|"+filepath.Base(cmd.Argv[1])]
	if behaviour == nil {
		behaviour = r.behaviours[cmd.Argv[0]]
	}
	r.mu.Unlock()

	if behaviour == nil {
		behaviour = succeed
	}
	exec.Outcome, exec.ExitCode, exec.Message = behaviour(ctx, r.cancelled, cmd, sink)

	r.mu.Lock()
	r.running--
	r.mu.Unlock()

	exec.EndedAt = time.Now()
	return exec
}

func (r *scriptedRunner) Cancel() {
	r.cancelOnce.Do(func() { close(r.cancelled) })
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *scriptedRunner) factory() ports.StepRunnerFactory {
	return func() ports.StepRunner { return r }
}

func succeed(_ context.Context, _ <-chan struct{}, cmd ports.Command, sink ports.OutputSink) (batch.Outcome, int, string) {
	sink(batch.ParseOutputLine(fmt.Sprintf("[INFO] %s ok", cmd.Argv[0])))
	return batch.OutcomeSuccess, 0, ""
}

func exitWith(code int) stepBehaviour {
	return func(_ context.Context, _ <-chan struct{}, _ ports.Command, sink ports.OutputSink) (batch.Outcome, int, string) {
		sink(batch.ParseOutputLine("[ERROR] conversion failed"))
		return batch.OutcomeNonZeroExit, code, fmt.Sprintf("exited with status %d", code)
	}
}

// blockUntil blocks until gate is closed, or until the step is cancelled.
func blockUntil(gate <-chan struct{}, entered chan<- struct{}) stepBehaviour {
	return func(ctx context.Context, cancelled <-chan struct{}, _ ports.Command, _ ports.OutputSink) (batch.Outcome, int, string) {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-gate:
			return batch.OutcomeSuccess, 0, ""
		case <-cancelled:
			return batch.OutcomeCancelled, -1, "cancelled"
		case <-ctx.Done():
			return batch.OutcomeCancelled, -1, "cancelled"
		}
	}
}

func twoSteps() batch.Settings {
	return batch.Settings{
		Steps: []batch.StepSpec{
			{ID: "convert", Name: "Convert", Required: true},
			{ID: "validate", Name: "Validate"},
		},
	}
}

func files(names ...string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = filepath.Join("music", name)
	}
	return out
}
