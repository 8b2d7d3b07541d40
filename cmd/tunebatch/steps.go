package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/steps"
)

func newStepsCmd(root *rootFlags) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List the steps of a pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(configPath)
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
				return newCommandError("list steps", "loading pipeline", err, "Run 'tunebatch validate' for details.")
			}
			registry, err := steps.FromPipeline(pipeline)
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tNAME\tFLAGS\tCOMMAND")
			for _, step := range registry.List() {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
					step.ID,
					step.Spec().DisplayName(),
					stepFlags(step),
					strings.Join(step.Command, " "),
				)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the pipeline file (defaults to $"+envConfig+")")

	return cmd
}

func stepFlags(step batch.StepDefinition) string {
	var flags []string
	if !step.Enabled {
		flags = append(flags, "disabled")
	}
	if step.Required {
		flags = append(flags, "required")
	}
	if step.Report {
		flags = append(flags, "report")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
