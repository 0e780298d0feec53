package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/classcache/internal/output"
	"github.com/Aman-CERP/classcache/internal/profiling"
	"github.com/Aman-CERP/classcache/pkg/classindex"
)

// listResult is the --json output of list.
type listResult struct {
	Root         string   `json:"root"`
	Files        int      `json:"files"`
	ReadFailures int      `json:"read_failures"`
	ListError    string   `json:"list_error,omitempty"`
	Classes      []string `json:"classes"`
}

func newListCmd() *cobra.Command {
	var (
		jsonOutput bool
		dotted     bool
		prof       profiling.Profiler
	)

	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "Print every class name used in the project's markup",
		Long: `Scan the project's markup files once and print the class names found in
their class attributes, one per line and sorted.

A summary is written to stderr so stdout can be piped.`,
		Example: `  # Classes in the current project
  classcache list

  # As JSON
  classcache list ./site --json

  # Profile the scan of a large site
  classcache list ./site --cpuprofile cpu.pprof > /dev/null`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prof.Start(); err != nil {
				return err
			}
			err := runList(cmd, args, jsonOutput, dotted)
			if perr := prof.Stop(); err == nil {
				err = perr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&dotted, "dotted", false, "Prefix each class with a dot")
	cmd.Flags().StringVar(&prof.CPUPath, "cpuprofile", "", "Write a CPU profile of the scan to `file`")
	cmd.Flags().StringVar(&prof.HeapPath, "memprofile", "", "Write a heap profile after the scan to `file`")

	return cmd
}

func runList(cmd *cobra.Command, args []string, jsonOutput, dotted bool) error {
	ctx := cmd.Context()

	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cache, _, _, err := openWorkspace(root, nil)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	if err := cache.Start(ctx); err != nil {
		return err
	}
	if err := cache.WaitReady(ctx); err != nil {
		return err
	}

	status := cache.Status()
	classes := cache.AllTokens().Sorted()

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(listResult{
			Root:         root,
			Files:        status.Init.FilesScanned,
			ReadFailures: status.Init.ReadFailures,
			ListError:    status.Init.ListError,
			Classes:      classes,
		})
	}

	if dotted {
		for i, c := range classes {
			classes[i] = "." + c
		}
	}
	output.New(cmd.OutOrStdout()).Lines(classes)

	writeListSummary(cmd.ErrOrStderr(), len(classes), status.Init)
	if status.Progress.ErrorMessage != "" {
		return fmt.Errorf("initialization failed: %s", status.Progress.ErrorMessage)
	}
	return nil
}

// writeListSummary reports counts and anything that left the list partial.
func writeListSummary(w io.Writer, classes int, stats classindex.InitStats) {
	summary := output.New(w)
	summary.Successf("%d classes in %d files", classes, stats.FilesScanned)
	if stats.ReadFailures > 0 {
		summary.Warningf("%d files could not be read (run with --debug for details)", stats.ReadFailures)
	}
	if stats.ListError != "" {
		summary.Warningf("file listing incomplete, classes may be missing: %s", stats.ListError)
	}
}
