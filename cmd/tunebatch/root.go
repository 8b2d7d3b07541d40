package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

const (
	envConfig   = "TUNEBATCH_CONFIG"
	envLogLevel = "TUNEBATCH_LOG_LEVEL"
)

type rootFlags struct {
	verbose   bool
	logFormat string
	logFile   string

	startup *logging.StartupLog
}

func newRootCmd(startup *logging.StartupLog) *cobra.Command {
	if startup == nil {
		startup = logging.NewStartupLog(0)
	}
	flags := &rootFlags{startup: startup}

	cmd := &cobra.Command{
		Use:           "tunebatch",
		Short:         "tunebatch runs a conversion pipeline over a batch of music files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "text", "Console log format (text or json)")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Append JSON logs to this file")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newStepsCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (f *rootFlags) level() string {
	if f.verbose {
		return "debug"
	}
	if level := strings.TrimSpace(os.Getenv(envLogLevel)); level != "" {
		return level
	}
	return "info"
}

// logger builds the console logger, fanned out to the JSON log file when one
// is configured. A nil console writer leaves only the file logger, which is
// what the interactive view needs. Entries recorded during startup are replayed
// into the result.
func (f *rootFlags) logger(console io.Writer) (ports.Logger, func(), error) {
	format, err := logging.ParseFormat(f.logFormat)
	if err != nil {
		return nil, nil, err
	}

	var loggers []ports.Logger
	closeFn := func() {}

	if console != nil {
		base, err := logging.New(logging.Options{
			Writer:    console,
			Level:     f.level(),
			Format:    format,
			Layer:     "cli",
			Component: "tunebatch",
		})
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, base)
	}

	if strings.TrimSpace(f.logFile) != "" {
		file, err := logging.OpenJSONFile(f.logFile, f.level())
		if err != nil {
			return nil, nil, fmt.Errorf("configure log file: %w", err)
		}
		loggers = append(loggers, file)
		closeFn = func() { _ = file.Close() }
	}

	logger := logging.NewFanout(loggers...)
	if f.startup != nil {
		f.startup.Replay(logger)
	}
	return logger, closeFn, nil
}
