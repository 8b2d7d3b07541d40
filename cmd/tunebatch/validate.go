package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/config"
	pkgerrors "github.com/alexisbeaulieu97/tunebatch/pkg/errors"
)

type validateOptions struct {
	ConfigPath string
}

func newValidateCmd(root *rootFlags) *cobra.Command {
	opts := validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a pipeline file without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(opts.ConfigPath)
			if err != nil {
				return err
			}

			logger, closeLog, err := root.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			pipeline, err := config.NewLoader(logger).Load(cmd.Context(), path)
			if err != nil {
				return newCommandError("validate", describeConfigError(err), err, "Fix the reported field and try again.")
			}

			enabled := 0
			for _, step := range pipeline.Steps {
				if step.Enabled {
					enabled++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d steps, %d enabled)\n", pipeline.Name, len(pipeline.Steps), enabled)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to the pipeline file (defaults to $"+envConfig+")")

	return cmd
}

func describeConfigError(err error) string {
	var parseErr *pkgerrors.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Sprintf("parsing %s", parseErr.Location())
	}
	var validationErr *pkgerrors.ValidationError
	if errors.As(err, &validationErr) && validationErr.Field != "" {
		return fmt.Sprintf("validating pipeline (field %s)", validationErr.Field)
	}
	var domainErr *batch.DomainError
	if errors.As(err, &domainErr) && domainErr.Context != nil {
		if stepID, ok := domainErr.Context["step_id"].(string); ok && stepID != "" {
			return fmt.Sprintf("validating pipeline (step %s)", stepID)
		}
	}
	return "validating pipeline"
}
