package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set through -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type buildInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Platform  string
}

// currentBuild falls back to the VCS stamps recorded by the go tool when the
// binary was built without release ldflags.
func currentBuild(read func() (*debug.BuildInfo, bool)) buildInfo {
	info := buildInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if read == nil {
		return info
	}
	bi, ok := read()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" && s.Value != "" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if info.Date == "unknown" && s.Value != "" {
				info.Date = s.Value
			}
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func (b buildInfo) write(w io.Writer, short bool) {
	if short {
		fmt.Fprintln(w, b.Version)
		return
	}
	fmt.Fprintf(w, "tunebatch %s\n", b.Version)
	fmt.Fprintf(w, "  commit:   %s\n", b.Commit)
	fmt.Fprintf(w, "  built:    %s\n", b.Date)
	fmt.Fprintf(w, "  go:       %s (%s)\n", b.GoVersion, b.Platform)
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			currentBuild(debug.ReadBuildInfo).write(cmd.OutOrStdout(), short)
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version")

	return cmd
}
