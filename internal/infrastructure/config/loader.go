package config

import (
	"context"
	"errors"
	"os"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
	apperrors "github.com/alexisbeaulieu97/tunebatch/pkg/errors"
)

// Loader implements ports.ConfigLoader for YAML and TOML pipeline files.
type Loader struct {
	logger ports.Logger
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a loader; a nil logger discards diagnostics.
func NewLoader(logger ports.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Loader{logger: logger.With("component", "config_loader")}
}

// Load implements ports.ConfigLoader.
func (l *Loader) Load(ctx context.Context, path string) (*batch.Pipeline, error) {
	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	l.logger.Debug(ctx, "loading pipeline definition", "path", path)

	doc, err := ParseFile(path)
	if err != nil {
		l.logger.Error(ctx, "failed to load pipeline definition", "path", path, "error", err)
		return nil, convertError(err, path)
	}

	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	pipeline := doc.ToDomain()
	if err := pipeline.Validate(); err != nil {
		l.logger.Error(ctx, "pipeline failed domain validation", "path", path, "error", err)
		return nil, err
	}

	l.logger.Info(ctx, "pipeline definition loaded", "path", path, "name", pipeline.Name, "steps", len(pipeline.Steps))
	return pipeline, nil
}

// Validate implements ports.ConfigLoader.
func (l *Loader) Validate(ctx context.Context, path string) error {
	if err := contextCheck(ctx); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return convertError(err, path)
	}
	if info.IsDir() {
		return batch.NewConfigurationError("pipeline path is a directory", map[string]interface{}{"path": path})
	}

	_, err = l.Load(ctx, path)
	return err
}

// convertError wraps file and schema problems as CONFIGURATION_ERROR while
// keeping the typed cause reachable through errors.As.
func convertError(err error, path string) error {
	if err == nil {
		return nil
	}
	context := map[string]interface{}{"path": path}

	var parseErr *apperrors.ParseError
	if errors.As(err, &parseErr) {
		if errors.Is(parseErr.Err, os.ErrNotExist) {
			return batch.WrapConfigurationError("pipeline file not found", err, context)
		}
		if parseErr.Line > 0 {
			context["line"] = parseErr.Line
		}
		return batch.WrapConfigurationError("invalid pipeline syntax", err, context)
	}

	var valErr *apperrors.ValidationError
	if errors.As(err, &valErr) {
		if valErr.Field != "" {
			context["field"] = valErr.Field
		}
		return batch.WrapConfigurationError("invalid pipeline definition", err, context)
	}

	if errors.Is(err, os.ErrNotExist) {
		return batch.WrapConfigurationError("pipeline file not found", err, context)
	}
	return batch.WrapConfigurationError("pipeline load failed", err, context)
}

func contextCheck(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return batch.NewError(batch.ErrCodeCancelled, "operation cancelled", err, nil)
	}
	return nil
}
