package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/classcache/internal/config"
	cerrors "github.com/Aman-CERP/classcache/internal/errors"
	"github.com/Aman-CERP/classcache/internal/workspace"
)

// resolveRoot returns the absolute project directory: args[0] when given,
// otherwise the project root containing the working directory.
func resolveRoot(args []string) (string, error) {
	if len(args) > 0 {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", args[0], err)
		}
		info, err := os.Stat(root)
		if err != nil {
			return "", cerrors.ClassifyReadError(root, err)
		}
		if !info.IsDir() {
			return "", cerrors.New(cerrors.ErrCodeInvalidPath, "not a directory: "+root, nil).
				WithSuggestion("pass the project directory, not a file")
		}
		return root, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return cwd, nil
	}
	return root, nil
}

// openWorkspace builds an unstarted cache over the markup files of root.
// A nil cfg is loaded from root.
func openWorkspace(root string, cfg *config.Config, opts ...workspace.Option) (*workspace.Cache, *workspace.DiskSource, *config.Config, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.Load(root); err != nil {
			return nil, nil, nil, err
		}
	}
	disk, err := workspace.NewDiskSource(root, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append([]workspace.Option{workspace.WithConfig(cfg)}, opts...)
	return workspace.New(disk, opts...), disk, cfg, nil
}
