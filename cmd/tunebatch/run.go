package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	batchapp "github.com/alexisbeaulieu97/tunebatch/internal/application/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/artifacts"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/process"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/resolver"
	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/steps"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
	"github.com/alexisbeaulieu97/tunebatch/internal/tui"
	"github.com/alexisbeaulieu97/tunebatch/internal/tui/components"
)

var errBatchFailed = errors.New("batch finished with failed or skipped files")

type runOptions struct {
	ConfigPath     string
	Steps          []string
	StopOnError    bool
	Driver         string
	Timeout        float64
	OutputDir      string
	SummaryPath    string
	NonInteractive bool
	Files          []string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run [flags] FILE...",
		Short: "Run the pipeline over a batch of input files",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.ConfigPath = path
			opts.Files = args
			opts.Steps = splitSteps(opts.Steps)
			if !opts.NonInteractive {
				opts.NonInteractive = !term.IsTerminal(int(os.Stdout.Fd()))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBatch(ctx, cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to the pipeline file (defaults to $"+envConfig+")")
	cmd.Flags().StringSliceVar(&opts.Steps, "steps", nil, "Run only these step ids, in this order")
	cmd.Flags().BoolVar(&opts.StopOnError, "stop-on-error", false, "Stop the batch after the first failed file")
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "Override the driver placeholder")
	cmd.Flags().Float64Var(&opts.Timeout, "timeout", 0, "Default per-step run timeout in seconds")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "Override the output directory")
	cmd.Flags().StringVar(&opts.SummaryPath, "summary", "", "Write the final summary as YAML to this path")
	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false, "Disable the progress view")

	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command, root *rootFlags, opts runOptions) error {
	var console io.Writer = cmd.ErrOrStderr()
	if !opts.NonInteractive {
		console = nil
	}
	logger, closeLog, err := root.logger(console)
	if err != nil {
		return err
	}
	defer closeLog()

	pipeline, err := config.NewLoader(logger).Load(ctx, opts.ConfigPath)
	if err != nil {
		return newCommandError("run", "loading pipeline", err, "Run 'tunebatch validate' for details.")
	}

	settings := applyOverrides(pipeline.Snapshot(opts.Steps), opts)
	if settings.OutputDir != "" {
		if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
			return newCommandError("run", "creating output directory", err, "Check the output_dir setting.")
		}
	}

	registry, err := steps.FromPipeline(pipeline)
	if err != nil {
		return err
	}

	publisher := events.NewLoggingPublisher(logger.With("component", "events"))
	controller := batchapp.NewController(batchapp.ControllerDeps{
		Resolver:  resolver.NewTemplate(registry),
		Catalog:   registry,
		Runners:   process.NewFactory(process.WithLogger(logger)),
		Inspector: artifacts.NewInspector(0),
		Events:    publisher,
		Logger:    logger,
	})

	var report *batchapp.Report
	if opts.NonInteractive {
		report, err = runPlain(ctx, cmd.OutOrStdout(), controller, publisher, opts.Files, settings)
	} else {
		report, err = runInteractive(ctx, controller, publisher, pipeline.Name, opts.Files, settings)
	}
	if err != nil {
		return err
	}

	if opts.SummaryPath != "" {
		if err := writeSummary(opts.SummaryPath, pipeline.Name, report); err != nil {
			return newCommandError("run", "writing summary", err, "Check that the summary path is writable.")
		}
		logger.Info(ctx, "summary written", "path", opts.SummaryPath)
	}

	if report.Failed() {
		return errBatchFailed
	}
	return nil
}

func applyOverrides(settings batch.Settings, opts runOptions) batch.Settings {
	if opts.StopOnError {
		settings.StopOnError = true
	}
	if opts.Driver != "" {
		settings.Driver = opts.Driver
	}
	if opts.Timeout > 0 {
		settings.RunTimeout = time.Duration(opts.Timeout * float64(time.Second))
	}
	if opts.OutputDir != "" {
		settings.OutputDir = config.ExpandPath(opts.OutputDir)
	}
	return settings
}

// runPlain prints one line per finished file and the summary at the end.
func runPlain(ctx context.Context, out io.Writer, controller *batchapp.Controller, publisher ports.EventPublisher, files []string, settings batch.Settings) (*batchapp.Report, error) {
	sub, err := tui.Bridge(publisher, func(msg tea.Msg) {
		switch msg := msg.(type) {
		case tui.FileCompletedMsg:
			fmt.Fprintln(out, plainResultLine(msg.Result))
		case tui.FileSkippedMsg:
			fmt.Fprintf(out, "%s %s (skipped)\n", tui.StatusIcon(components.FileSkipped), msg.Path)
		}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	if err := controller.Start(ctx, files, settings); err != nil {
		return nil, err
	}
	report, err := controller.Wait(context.Background())
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, components.NewSummary(report.Summary).View())
	return report, nil
}

func plainResultLine(res batch.FileResult) string {
	status := components.FileFailed
	switch res.Classification {
	case batch.ClassPassed:
		status = components.FilePassed
	case batch.ClassWarning:
		status = components.FileWarning
	}
	line := fmt.Sprintf("%s %s (%s, %d/%d steps)", tui.StatusIcon(status), res.Path, res.Classification, res.StepsCompleted, res.TotalSteps)
	if res.Accuracy != nil {
		line = fmt.Sprintf("%s accuracy %.1f%%", line, *res.Accuracy)
	}
	if first := res.FirstError(); first != "" {
		line = fmt.Sprintf("%s: %s", line, first)
	}
	return line
}

func runInteractive(ctx context.Context, controller *batchapp.Controller, publisher ports.EventPublisher, name string, files []string, settings batch.Settings) (*batchapp.Report, error) {
	model := tui.NewModel(name, files, controller, tui.WithStart(func() error {
		return controller.Start(ctx, files, settings)
	}))
	program := tea.NewProgram(model)

	sub, err := tui.Bridge(publisher, program.Send)
	if err != nil {
		return nil, err
	}
	final, runErr := program.Run()
	sub.Unsubscribe()
	if runErr != nil {
		controller.Stop()
		return nil, runErr
	}
	if m, ok := final.(tui.Model); ok && m.StartErr() != nil {
		return nil, m.StartErr()
	}

	// Quitting before completion stops the batch; the report is still final.
	controller.Stop()
	return controller.Wait(context.Background())
}
