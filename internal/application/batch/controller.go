package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// Stop reasons reported in BatchSummary.StopReason.
const (
	StopReasonRequested   = "stopped"
	StopReasonStopOnError = "stop_on_error"
	StopReasonCancelled   = "cancelled"
)

// ControllerDeps collects the collaborators of a Controller.
type ControllerDeps struct {
	Resolver  ports.CommandResolver
	Catalog   ports.StepCatalog
	Runners   ports.StepRunnerFactory
	Inspector ports.ArtifactInspector
	Events    ports.EventPublisher
	Logger    ports.Logger
	Clock     func() time.Time
}

// Report is the outcome of one batch job.
type Report struct {
	JobID   string
	Tasks   []batch.FileTask
	Results []batch.FileResult
	Summary batch.BatchSummary
}

// Failed reports whether any file failed or the batch ended early.
func (r *Report) Failed() bool {
	return r != nil && (r.Summary.Failed > 0 || r.Summary.Stopped)
}

// Controller drives batch jobs one file at a time. Control methods are safe
// to call from any goroutine.
type Controller struct {
	catalog ports.StepCatalog
	runners ports.StepRunnerFactory
	files   *FileRunner
	events  ports.EventPublisher
	logger  ports.Logger
	now     func() time.Time

	mu    sync.Mutex
	state batch.State
	job   *job
}

type job struct {
	id        string
	ctx       context.Context
	eventCtx  context.Context
	cancel    context.CancelFunc
	settings  batch.Settings
	runner    ports.StepRunner
	startedAt time.Time

	// guarded by Controller.mu
	tasks      []batch.FileTask
	results    []batch.FileResult
	stopReason string
	report     *Report

	pauseRequested atomic.Bool
	stopRequested  atomic.Bool
	resumeCh       chan struct{}
	stopCh         chan struct{}
	stopOnce       sync.Once
	done           chan struct{}
}

func (j *job) signalStop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

func (j *job) finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// NewController creates an idle controller.
func NewController(deps ControllerDeps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	logger = logger.With("component", "batch_controller")

	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	files := NewFileRunner(deps.Resolver, NewAggregator(deps.Inspector, logger), deps.Events, logger)
	files.now = now

	return &Controller{
		catalog: deps.Catalog,
		runners: deps.Runners,
		files:   files,
		events:  deps.Events,
		logger:  logger,
		now:     now,
		state:   batch.StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() batch.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start validates the request and launches a new job. On error nothing
// changes and no event is emitted.
func (c *Controller) Start(ctx context.Context, files []string, settings batch.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(files) == 0 {
		return batch.NewConfigurationError("no input files", nil)
	}
	if len(settings.Steps) == 0 {
		return batch.NewConfigurationError("no enabled steps", nil)
	}
	if unknown := c.unknownSteps(settings); len(unknown) > 0 {
		return batch.NewConfigurationError(
			fmt.Sprintf("unknown step identifier(s): %s", strings.Join(unknown, ", ")),
			map[string]interface{}{"steps": unknown})
	}
	if dup := duplicateSteps(settings); len(dup) > 0 {
		return batch.NewConfigurationError(
			fmt.Sprintf("duplicate step identifier(s): %s", strings.Join(dup, ", ")),
			map[string]interface{}{"steps": dup})
	}
	if c.runners == nil {
		return batch.NewConfigurationError("no step runner configured", nil)
	}

	c.mu.Lock()
	if c.state.IsActive() || (c.job != nil && !c.job.finished()) {
		state := c.state
		c.mu.Unlock()
		return batch.NewInvalidStateError("start", state)
	}

	snapshot := settings.ApplyDefaults()
	jobID := ports.GenerateCorrelationID()
	jobCtx, cancel := context.WithCancel(ports.WithCorrelationID(ctx, jobID))
	j := &job{
		id:        jobID,
		ctx:       jobCtx,
		eventCtx:  context.WithoutCancel(jobCtx),
		cancel:    cancel,
		settings:  snapshot,
		runner:    c.runners(),
		startedAt: c.now(),
		tasks:     batch.NewFileTasks(files, snapshot.StepIDs()),
		resumeCh:  make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	c.job = j
	c.state = batch.StateRunning
	c.mu.Unlock()

	c.logger.Info(j.eventCtx, "batch started", "job_id", jobID, "files", len(files), "steps", len(snapshot.Steps))
	publishEvent(j.eventCtx, c.events, c.logger, ports.EventBatchStarted, jobPayload(jobID, len(files)))

	go c.drive(j)
	return nil
}

func (c *Controller) unknownSteps(settings batch.Settings) []string {
	var unknown []string
	for _, step := range settings.Steps {
		if step.ID == "" || (c.catalog != nil && !c.catalog.Has(step.ID)) {
			unknown = append(unknown, step.ID)
		}
	}
	return unknown
}

func duplicateSteps(settings batch.Settings) []string {
	seen := make(map[string]int, len(settings.Steps))
	var dup []string
	for _, step := range settings.Steps {
		seen[step.ID]++
		if seen[step.ID] == 2 {
			dup = append(dup, step.ID)
		}
	}
	return dup
}

// Pause requests a pause at the next file boundary. It reports false when
// the batch is not running or a pause is already pending.
func (c *Controller) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != batch.StateRunning || c.job == nil {
		return false
	}
	return c.job.pauseRequested.CompareAndSwap(false, true)
}

// Resume continues a paused batch. It reports false unless the batch is
// paused.
func (c *Controller) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != batch.StatePaused || c.job == nil {
		return false
	}
	c.job.pauseRequested.Store(false)
	c.state = batch.StateRunning
	select {
	case c.job.resumeCh <- struct{}{}:
	default:
	}
	return true
}

// Stop cancels the in-flight step and skips the remaining files. It reports
// false unless the batch is running or paused.
func (c *Controller) Stop() bool {
	return c.requestStop(StopReasonRequested)
}

func (c *Controller) requestStop(reason string) bool {
	c.mu.Lock()
	if c.job == nil || (c.state != batch.StateRunning && c.state != batch.StatePaused) {
		c.mu.Unlock()
		return false
	}
	j := c.job
	c.state = batch.StateStopping
	if j.stopReason == "" {
		j.stopReason = reason
	}
	j.stopRequested.Store(true)
	c.mu.Unlock()

	c.logger.Info(j.eventCtx, "stop requested", "job_id", j.id, "reason", reason)
	j.signalStop()
	j.runner.Cancel()
	j.cancel()
	return true
}

// Done is closed when the current job has emitted batch.completed. With no
// job it returns a closed channel.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return c.job.done
}

// Wait blocks until the current job finishes and returns its report.
func (c *Controller) Wait(ctx context.Context) (*Report, error) {
	c.mu.Lock()
	j := c.job
	state := c.state
	c.mu.Unlock()
	if j == nil {
		return nil, batch.NewInvalidStateError("wait", state)
	}

	select {
	case <-j.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return j.report, nil
	case <-ctx.Done():
		return nil, batch.NewError(batch.ErrCodeCancelled, "wait cancelled", ctx.Err(), map[string]interface{}{"job_id": j.id})
	}
}

// Report returns a snapshot of the current or last job, or nil before the
// first Start.
func (c *Controller) Report() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	j := c.job
	if j == nil {
		return nil
	}
	if j.report != nil {
		return j.report
	}
	return c.snapshotLocked(j, "")
}

func (c *Controller) snapshotLocked(j *job, stopReason string) *Report {
	tasks := make([]batch.FileTask, len(j.tasks))
	for i, task := range j.tasks {
		tasks[i] = task.Clone()
	}
	results := append([]batch.FileResult(nil), j.results...)
	return &Report{
		JobID:   j.id,
		Tasks:   tasks,
		Results: results,
		Summary: batch.Summarize(len(j.tasks), results, c.now().Sub(j.startedAt), stopReason),
	}
}

func (c *Controller) drive(j *job) {
	defer close(j.done)
	defer j.cancel()

	total := len(j.tasks)
	for i := 0; i < total; i++ {
		if c.checkpoint(j, i) {
			break
		}

		c.mu.Lock()
		j.tasks[i].State = batch.FileRunning
		task := j.tasks[i].Clone()
		c.mu.Unlock()

		publishEvent(j.eventCtx, c.events, c.logger, ports.EventFileStarted, filePayload(task, total))

		task, result := c.files.Run(j.ctx, j.runner, task, j.settings)
		task.State = batch.FileCompleted

		c.mu.Lock()
		j.tasks[i] = task
		j.results = append(j.results, result)
		c.mu.Unlock()

		publishEvent(j.eventCtx, c.events, c.logger, ports.EventFileCompleted, filePayload(task, total).with(ports.KeyResult, result))

		if result.Classification == batch.ClassFailed {
			c.logger.Warn(j.eventCtx, "file failed", "file", task.Path, "error", result.FirstError())
			publishEvent(j.eventCtx, c.events, c.logger, ports.EventError, filePayload(task, total).with(ports.KeyMessage, result.FirstError()))
		}

		if j.settings.StopOnError && result.RequiredFailed {
			c.mu.Lock()
			if j.stopReason == "" {
				j.stopReason = StopReasonStopOnError
			}
			c.mu.Unlock()
			j.stopRequested.Store(true)
			c.logger.Info(j.eventCtx, "stopping after required step failure", "file", task.Path)
			break
		}
	}

	c.finish(j)
}

// checkpoint runs at every file boundary. It blocks while paused and
// reports true when the loop must stop.
func (c *Controller) checkpoint(j *job, next int) bool {
	for {
		if j.stopRequested.Load() {
			return true
		}
		if j.ctx.Err() != nil {
			c.markCancelled(j)
			return true
		}
		if !j.pauseRequested.Load() {
			return false
		}

		c.mu.Lock()
		if j.stopRequested.Load() || c.state != batch.StateRunning {
			c.mu.Unlock()
			continue
		}
		c.state = batch.StatePaused
		c.mu.Unlock()

		c.logger.Info(j.eventCtx, "batch paused", "job_id", j.id, "next", next+1)
		publishEvent(j.eventCtx, c.events, c.logger, ports.EventBatchPaused, jobPayload(j.id, len(j.tasks)).with(ports.KeyIndex, next+1))

		select {
		case <-j.resumeCh:
			c.logger.Info(j.eventCtx, "batch resumed", "job_id", j.id)
			publishEvent(j.eventCtx, c.events, c.logger, ports.EventBatchResumed, jobPayload(j.id, len(j.tasks)).with(ports.KeyIndex, next+1))
		case <-j.stopCh:
		case <-j.ctx.Done():
		}
	}
}

// markCancelled turns a parent-context cancellation into a stop.
func (c *Controller) markCancelled(j *job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if j.stopReason == "" {
		j.stopReason = StopReasonCancelled
	}
	if c.state == batch.StateRunning || c.state == batch.StatePaused {
		c.state = batch.StateStopping
	}
	j.stopRequested.Store(true)
	j.runner.Cancel()
}

func (c *Controller) finish(j *job) {
	if !j.stopRequested.Load() && j.ctx.Err() != nil {
		c.markCancelled(j)
	}

	c.mu.Lock()
	stopped := j.stopRequested.Load()
	var skipped []batch.FileTask
	for i := range j.tasks {
		if j.tasks[i].State == batch.FilePending {
			j.tasks[i].State = batch.FileSkipped
			skipped = append(skipped, j.tasks[i])
		}
	}
	stopReason := ""
	if stopped {
		stopReason = j.stopReason
		if stopReason == "" {
			stopReason = StopReasonRequested
		}
	}
	report := c.snapshotLocked(j, stopReason)
	j.report = report
	if stopped {
		c.state = batch.StateStopped
	} else {
		c.state = batch.StateCompleted
	}
	c.mu.Unlock()

	for _, task := range skipped {
		publishEvent(j.eventCtx, c.events, c.logger, ports.EventFileSkipped, filePayload(task, len(j.tasks)))
	}

	summary := report.Summary
	c.logger.Info(j.eventCtx, "batch completed",
		"job_id", j.id,
		"passed", summary.Passed,
		"warning", summary.Warning,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"stopped", summary.Stopped,
		"elapsed", summary.Elapsed,
	)
	publishEvent(j.eventCtx, c.events, c.logger, ports.EventBatchCompleted, jobPayload(j.id, len(j.tasks)).with(ports.KeySummary, summary))
}
