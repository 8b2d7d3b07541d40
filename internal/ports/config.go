package ports

import (
	"context"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
)

// ConfigLoader loads pipeline definitions from the filesystem. Implementations
// must respect context cancellation and translate parse and schema failures
// into CONFIGURATION_ERROR domain errors that wrap the underlying
// pkg/errors.ParseError or pkg/errors.ValidationError.
type ConfigLoader interface {
	// Load materialises a fully validated pipeline from path.
	Load(ctx context.Context, path string) (*batch.Pipeline, error)

	// Validate performs the same checks as Load without returning the result.
	Validate(ctx context.Context, path string) error
}
