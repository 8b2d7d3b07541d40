package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
)

// Document is the on-disk pipeline definition, shared by the YAML and TOML
// encodings.
type Document struct {
	Version     string    `yaml:"version" toml:"version" validate:"omitempty,version"`
	Name        string    `yaml:"name" toml:"name" validate:"required,min=1,max=100"`
	Description string    `yaml:"description,omitempty" toml:"description,omitempty"`
	Settings    Settings  `yaml:"settings,omitempty" toml:"settings,omitempty"`
	Steps       []StepDoc `yaml:"steps" toml:"steps" validate:"required,min=1,dive"`
}

// Settings holds the batch-wide defaults. Durations are in seconds.
type Settings struct {
	StartTimeout      float64 `yaml:"start_timeout,omitempty" toml:"start_timeout,omitempty" validate:"omitempty,gt=0,max=600"`
	Timeout           float64 `yaml:"timeout,omitempty" toml:"timeout,omitempty" validate:"omitempty,gt=0,max=86400"`
	StopOnError       bool    `yaml:"stop_on_error,omitempty" toml:"stop_on_error,omitempty"`
	AccuracyThreshold float64 `yaml:"accuracy_threshold,omitempty" toml:"accuracy_threshold,omitempty" validate:"min=0,max=100"`
	Driver            string  `yaml:"driver,omitempty" toml:"driver,omitempty"`
	OutputDir         string  `yaml:"output_dir,omitempty" toml:"output_dir,omitempty"`
}

// StepDoc describes one configured tool invocation.
type StepDoc struct {
	ID           string            `yaml:"id" toml:"id" validate:"required,step_id"`
	Name         string            `yaml:"name,omitempty" toml:"name,omitempty" validate:"max=100"`
	Enabled      *bool             `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Required     bool              `yaml:"required,omitempty" toml:"required,omitempty"`
	Report       bool              `yaml:"report,omitempty" toml:"report,omitempty"`
	StartTimeout float64           `yaml:"start_timeout,omitempty" toml:"start_timeout,omitempty" validate:"omitempty,gt=0,max=600"`
	Timeout      float64           `yaml:"timeout,omitempty" toml:"timeout,omitempty" validate:"omitempty,gt=0,max=86400"`
	Command      []string          `yaml:"command" toml:"command" validate:"required,min=1,dive,required,placeholders"`
	Output       string            `yaml:"output,omitempty" toml:"output,omitempty" validate:"omitempty,placeholders"`
	WorkDir      string            `yaml:"workdir,omitempty" toml:"workdir,omitempty" validate:"omitempty,placeholders"`
	Env          map[string]string `yaml:"env,omitempty" toml:"env,omitempty" validate:"omitempty,dive,keys,required,endkeys,placeholders"`
}

// IsEnabled reports the effective enabled flag; steps are enabled unless
// explicitly disabled.
func (s StepDoc) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ToDomain converts the document into a domain pipeline.
func (d *Document) ToDomain() *batch.Pipeline {
	if d == nil {
		return &batch.Pipeline{}
	}

	steps := make([]batch.StepDefinition, len(d.Steps))
	for i, step := range d.Steps {
		var env map[string]string
		if len(step.Env) > 0 {
			env = make(map[string]string, len(step.Env))
			for k, v := range step.Env {
				env[k] = v
			}
		}
		steps[i] = batch.StepDefinition{
			ID:           step.ID,
			Name:         step.Name,
			Enabled:      step.IsEnabled(),
			Required:     step.Required,
			Report:       step.Report,
			StartTimeout: seconds(step.StartTimeout),
			RunTimeout:   seconds(step.Timeout),
			Command:      append([]string(nil), step.Command...),
			Output:       step.Output,
			WorkDir:      step.WorkDir,
			Env:          env,
		}
	}

	return &batch.Pipeline{
		Version:     d.Version,
		Name:        d.Name,
		Description: d.Description,
		Settings: batch.Settings{
			StartTimeout:      seconds(d.Settings.StartTimeout),
			RunTimeout:        seconds(d.Settings.Timeout),
			StopOnError:       d.Settings.StopOnError,
			AccuracyThreshold: d.Settings.AccuracyThreshold,
			Driver:            d.Settings.Driver,
			OutputDir:         ExpandPath(d.Settings.OutputDir),
		},
		Steps: steps,
	}
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
