package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"statproj/internal/errs"
	"statproj/internal/validate"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [path]",
	Short: "Upgrade project dependencies to their latest compatible versions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUpgrade,
}

func runUpgrade(cmd *cobra.Command, args []string) error {
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

	root, err := validate.FindProjectRoot(dir)
	if err != nil {
		return errs.WithHint(
			errs.Wrap(errs.ENoProject, "locate project root", err),
			"run upgrade inside a project created by statproj")
	}

	if err := rt.prov.Upgrade(ctx, root, filepath.Base(root)); err != nil {
		return err
	}
	fmt.Printf("Upgraded dependencies for %s.\n", filepath.Base(root))
	return nil
}
