package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"statproj/internal/logging"
	"statproj/internal/workflow"
)

var (
	buildNoKernel bool
	buildForce    bool
)

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Install dependencies and kernel for an existing project",
	Long: `Re-provisions the Poetry virtual environment and Jupyter kernel of an
existing project. Runs are idempotent: when the lock file is unchanged and
the environment still exists, nothing is reinstalled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildNoKernel, "no-kernel", false, "Skip Jupyter kernel registration")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Reinstall even when the lock file is unchanged")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	rt, err := newRuntime(ctx, "")
	if err != nil {
		return err
	}
	defer rt.Close()

	dir, err := workingDir()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		dir = filepath.Join(dir, args[0])
	}

	sum, runErr := rt.engine.Build(ctx, dir, workflow.BuildOpts{
		NoKernel: buildNoKernel || rt.cfg.NoKernel,
		Force:    buildForce,
	})
	sum.Render(os.Stdout)

	if runErr != nil {
		if path := logging.DumpError(rt.stateDir, "build", runErr.Error()); path != "" {
			fmt.Printf("full error detail: %s\n", path)
		}
		return runErr
	}
	return nil
}
