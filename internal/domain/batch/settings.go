package batch

import "time"

const (
	// DefaultStartTimeout bounds how long a process may take to launch.
	DefaultStartTimeout = 3 * time.Second
	// DefaultRunTimeout bounds how long a process may run once launched.
	DefaultRunTimeout = 120 * time.Second
)

// StepSpec is the executor's view of one enabled pipeline step.
type StepSpec struct {
	ID           string
	Name         string
	Required     bool
	Report       bool
	StartTimeout time.Duration
	RunTimeout   time.Duration
}

// DisplayName returns Name, falling back to the identifier.
func (s StepSpec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Settings is the configuration snapshot a batch job runs with. A controller
// clones it at start so later changes to the caller's copy have no effect.
type Settings struct {
	Steps             []StepSpec
	StartTimeout      time.Duration
	RunTimeout        time.Duration
	StopOnError       bool
	AccuracyThreshold float64
	Driver            string
	OutputDir         string
}

// Clone returns a deep copy of settings to avoid accidental mutations.
func (s Settings) Clone() Settings {
	clone := s
	clone.Steps = append([]StepSpec(nil), s.Steps...)
	return clone
}

// ApplyDefaults fills unset timeouts.
func (s Settings) ApplyDefaults() Settings {
	clone := s.Clone()
	if clone.StartTimeout <= 0 {
		clone.StartTimeout = DefaultStartTimeout
	}
	if clone.RunTimeout <= 0 {
		clone.RunTimeout = DefaultRunTimeout
	}
	return clone
}

// StepIDs returns the ordered identifiers of the enabled steps.
func (s Settings) StepIDs() []string {
	ids := make([]string, len(s.Steps))
	for i, step := range s.Steps {
		ids[i] = step.ID
	}
	return ids
}

// LimitsFor returns the effective start and run timeouts for a step, taking
// per-step overrides over the batch defaults.
func (s Settings) LimitsFor(step StepSpec) (start, run time.Duration) {
	start, run = s.StartTimeout, s.RunTimeout
	if step.StartTimeout > 0 {
		start = step.StartTimeout
	}
	if step.RunTimeout > 0 {
		run = step.RunTimeout
	}
	if start <= 0 {
		start = DefaultStartTimeout
	}
	if run <= 0 {
		run = DefaultRunTimeout
	}
	return start, run
}

// IsRequired reports whether the step with the given ID is required.
func (s Settings) IsRequired(stepID string) bool {
	for _, step := range s.Steps {
		if step.ID == stepID {
			return step.Required
		}
	}
	return false
}
