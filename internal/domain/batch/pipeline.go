package batch

import (
	"regexp"
	"strings"
	"time"
)

var stepIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// StepDefinition is a configured pipeline step including its command template.
type StepDefinition struct {
	ID           string
	Name         string
	Enabled      bool
	Required     bool
	Report       bool
	StartTimeout time.Duration
	RunTimeout   time.Duration
	Command      []string
	Output       string
	WorkDir      string
	Env          map[string]string
}

// Spec projects the definition onto the executor's StepSpec.
func (d StepDefinition) Spec() StepSpec {
	return StepSpec{
		ID:           d.ID,
		Name:         d.Name,
		Required:     d.Required,
		Report:       d.Report,
		StartTimeout: d.StartTimeout,
		RunTimeout:   d.RunTimeout,
	}
}

// Validate ensures the step satisfies all business rules.
func (d StepDefinition) Validate() error {
	if d.ID == "" {
		return NewConfigurationError("missing required field", map[string]interface{}{"field": "id"})
	}
	if !stepIDPattern.MatchString(d.ID) {
		return NewConfigurationError("step id must match ^[a-z0-9_-]+$", map[string]interface{}{"step_id": d.ID})
	}
	if len(d.Command) == 0 || strings.TrimSpace(d.Command[0]) == "" {
		return NewConfigurationError("step requires a command", map[string]interface{}{"step_id": d.ID})
	}
	if d.StartTimeout < 0 || d.RunTimeout < 0 {
		return NewConfigurationError("timeouts must be non-negative", map[string]interface{}{"step_id": d.ID})
	}
	return nil
}

// Pipeline is a loaded pipeline definition.
type Pipeline struct {
	Version     string
	Name        string
	Description string
	Settings    Settings
	Steps       []StepDefinition
}

// Validate ensures the pipeline satisfies all invariants.
func (p Pipeline) Validate() error {
	if p.Name == "" {
		return NewConfigurationError("missing required field", map[string]interface{}{"field": "name"})
	}
	if len(p.Steps) == 0 {
		return NewConfigurationError("pipeline requires at least one step", nil)
	}

	seen := make(map[string]struct{}, len(p.Steps))
	enabled := 0
	for _, step := range p.Steps {
		if err := step.Validate(); err != nil {
			return err
		}
		if _, ok := seen[step.ID]; ok {
			return NewConfigurationError("duplicate step identifier", map[string]interface{}{"step_id": step.ID})
		}
		seen[step.ID] = struct{}{}
		if step.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return NewConfigurationError("pipeline has no enabled steps", nil)
	}

	return nil
}

// GetStep retrieves a step definition by identifier.
func (p Pipeline) GetStep(id string) (StepDefinition, bool) {
	for _, step := range p.Steps {
		if step.ID == id {
			return step, true
		}
	}
	return StepDefinition{}, false
}

// Snapshot builds executor settings. When only is non-empty it selects those
// steps in the given order regardless of their enabled flag; identifiers that
// do not exist are kept so the controller can reject them at start.
func (p Pipeline) Snapshot(only []string) Settings {
	settings := p.Settings.ApplyDefaults()
	settings.Steps = nil

	if len(only) == 0 {
		for _, step := range p.Steps {
			if step.Enabled {
				settings.Steps = append(settings.Steps, step.Spec())
			}
		}
		return settings
	}

	for _, id := range only {
		if step, ok := p.GetStep(id); ok {
			settings.Steps = append(settings.Steps, step.Spec())
			continue
		}
		settings.Steps = append(settings.Steps, StepSpec{ID: id})
	}
	return settings
}
