package ports

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
)

// Command is a fully resolved external-process invocation.
type Command struct {
	Argv       []string
	OutputPath string
	Dir        string
	Env        []string
}

// Limits bounds a single process invocation.
type Limits struct {
	StartTimeout time.Duration
	RunTimeout   time.Duration
}

// OutputSink receives each merged output line as soon as it is read.
type OutputSink func(batch.OutputLine)

// StepRunner runs exactly one external process at a time. Implementations
// must guarantee that the process is exited or killed, and reaped, before Run
// returns, on every path.
//
// Cancel may be called from any goroutine, before, during or after Run. A
// cancel issued before the process exists is remembered and applied to the
// next Run; once cancelled, a runner stays cancelled.
type StepRunner interface {
	Run(ctx context.Context, cmd Command, limits Limits, sink OutputSink) batch.StepExecution
	Cancel()
}

// StepRunnerFactory builds a fresh StepRunner for each batch job so a sticky
// cancel never leaks into the next job.
type StepRunnerFactory func() StepRunner

// FileRef identifies the file a command is being resolved for.
type FileRef struct {
	Path      string
	Index     int
	Driver    string
	OutputDir string
}

// CommandResolver maps a step and a file to the command to run. Resolution
// is pure; failures are reported as CONFIGURATION_ERROR.
type CommandResolver interface {
	Resolve(stepID string, file FileRef) (Command, error)
}

// StepCatalog answers whether a step identifier is known.
type StepCatalog interface {
	Has(stepID string) bool
}
