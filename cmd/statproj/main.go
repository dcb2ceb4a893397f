package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"statproj/internal/config"
	"statproj/internal/errs"
	"statproj/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	cmdTimeout time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "statproj",
	Short: "statproj - scaffold and maintain statistical-analysis projects",
	Long: `statproj creates statistical-analysis projects from a shared template,
provisions a Poetry virtual environment with a Jupyter kernel, and can
publish the result to GitHub with branch protection and team access.

Typical use:
  statproj create my-analysis "Quarterly price statistics"
  statproj build
  statproj update-template`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&cmdTimeout, "timeout", 15*time.Minute, "Operation timeout")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(updateTemplateCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(errs.ExitCode(err))
	}
}

// commandContext builds the per-command context with timeout and graceful
// shutdown on SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// workingDir resolves the --workspace flag, defaulting to the process cwd.
func workingDir() (string, error) {
	if workspace != "" {
		return workspace, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return dir, nil
}

// loadConfig reads the user config with env overrides applied.
func loadConfig() (*config.Config, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.EUsage, "invalid configuration", err)
	}
	return cfg, nil
}
