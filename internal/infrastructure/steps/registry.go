package steps

import (
	"sync"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// Registry is an in-memory catalog of configured step definitions, keyed by
// identifier and kept in registration order.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]batch.StepDefinition
	order []string
}

var _ ports.StepCatalog = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		steps: make(map[string]batch.StepDefinition),
	}
}

// FromPipeline registers every step of p, enabled or not.
func FromPipeline(p *batch.Pipeline) (*Registry, error) {
	reg := NewRegistry()
	if p == nil {
		return reg, nil
	}
	for _, step := range p.Steps {
		if err := reg.Register(step); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register validates and stores a step definition.
func (r *Registry) Register(step batch.StepDefinition) error {
	if err := step.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[step.ID]; exists {
		return batch.NewConfigurationError("step already registered", map[string]interface{}{"step_id": step.ID})
	}
	step.Command = append([]string(nil), step.Command...)
	r.steps[step.ID] = step
	r.order = append(r.order, step.ID)
	return nil
}

// Has reports whether a step with the identifier is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.steps[id]
	return ok
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (batch.StepDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, ok := r.steps[id]
	if !ok {
		return batch.StepDefinition{}, batch.NewConfigurationError("unknown step", map[string]interface{}{"step_id": id})
	}
	return step, nil
}

// List returns all definitions in registration order.
func (r *Registry) List() []batch.StepDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]batch.StepDefinition, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.steps[id])
	}
	return result
}

// Unknown returns the identifiers in ids that are not registered, in order.
func (r *Registry) Unknown(ids []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string
	for _, id := range ids {
		if _, ok := r.steps[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
