package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/classcache/pkg/version"
)

// versionOutput is the --json form when --deps is set.
type versionOutput struct {
	version.BuildInfo
	Dependencies []version.Dependency `json:"dependencies,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var jsonOutput, shortOutput, depsOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the classcache version, module path, git commit and Go version.

With --deps the modules linked into the binary are listed as well, which
helps when reporting parser or watcher issues.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if shortOutput {
				_, err := fmt.Fprintln(out, version.Short())
				return err
			}

			info := version.GetInfo()
			var deps []version.Dependency
			if depsOutput {
				deps = version.Dependencies()
			}

			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(versionOutput{BuildInfo: info, Dependencies: deps})
			}
			return printVersion(out, info, deps)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version number")
	cmd.Flags().BoolVar(&depsOutput, "deps", false, "Also list linked module dependencies")

	return cmd
}

func printVersion(w io.Writer, info version.BuildInfo, deps []version.Dependency) error {
	if _, err := fmt.Fprintln(w, version.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "module: %s\n", info.Module); err != nil {
		return err
	}
	for _, d := range deps {
		if _, err := fmt.Fprintf(w, "  %s %s\n", d.Path, d.Version); err != nil {
			return err
		}
	}
	return nil
}
