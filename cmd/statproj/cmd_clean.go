package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"statproj/internal/errs"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <name>",
	Short: "Remove the Jupyter kernel and virtual environment of a project",
	Long: `Removes the Jupyter kernel registered for a project, and optionally its
.venv directory. Project files are left untouched; delete those manually if
you also want them gone.`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	name := args[0]

	rt, err := newRuntime(ctx, "")
	if err != nil {
		return err
	}
	defer rt.Close()

	dir, err := workingDir()
	if err != nil {
		return err
	}

	ok, err := rt.prompter.Confirm(
		fmt.Sprintf("Delete the kernel %q? The virtual environment and project files are not affected.", name), false)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.EUsage, "clean canceled")
	}

	removeVenv, err := rt.prompter.Confirm("Also delete the project's .venv directory?", false)
	if err != nil {
		return err
	}

	if err := rt.prov.Clean(ctx, dir, name, removeVenv); err != nil {
		return err
	}
	fmt.Printf("Deleted Jupyter kernel %s.\n", name)
	if removeVenv {
		fmt.Println("Deleted the virtual environment.")
	}
	return nil
}
