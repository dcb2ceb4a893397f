package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"statproj/internal/logging"
)

var updateCheckout string

var updateTemplateCmd = &cobra.Command{
	Use:   "update-template",
	Short: "Re-apply template updates to this project",
	Long: `Fetches the template this project was created from and merges its changes
into the working tree. Files changed both locally and in the template get
git-style conflict markers; resolve them and run the command again.

Exit status is 0 when the merge is clean, 3 when conflicts need manual
resolution.`,
	Args: cobra.NoArgs,
	RunE: runUpdateTemplate,
}

func init() {
	updateTemplateCmd.Flags().StringVar(&updateCheckout, "checkout", "", "Template git reference (default: the recorded one)")
}

func runUpdateTemplate(cmd *cobra.Command, args []string) error {
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

	sum, runErr := rt.engine.UpdateTemplate(ctx, dir, updateCheckout)
	sum.Render(os.Stdout)

	if runErr != nil {
		if path := logging.DumpError(rt.stateDir, "update-template", runErr.Error()); path != "" {
			fmt.Printf("full error detail: %s\n", path)
		}
		return runErr
	}
	return nil
}
