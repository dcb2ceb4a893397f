package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"statproj/internal/config"
	"statproj/internal/errs"
)

var (
	configureOrgName     string
	configureGitHubOrg   string
	configureTemplateURL string
	configureTemplateRef string
	configureVisibility  string
	configureShow        bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set per-user defaults for project creation",
	Long: `Writes defaults (organization, template repository, visibility) to
~/.statproj/config.yaml. Values can still be overridden per invocation with
flags or STATPROJ_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&configureOrgName, "org", "", "Organization name rendered into templates")
	configureCmd.Flags().StringVar(&configureGitHubOrg, "github-org", "", "GitHub organization owning published repositories")
	configureCmd.Flags().StringVar(&configureTemplateURL, "template-git-url", "", "Default template repository URL")
	configureCmd.Flags().StringVar(&configureTemplateRef, "template-ref", "", "Default template git reference")
	configureCmd.Flags().StringVar(&configureVisibility, "visibility", "", "Default repository visibility")
	configureCmd.Flags().BoolVar(&configureShow, "show", false, "Print the effective configuration and exit")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	path, err := config.DefaultPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if configureShow {
		fmt.Printf("config file:       %s\n", path)
		fmt.Printf("org_name:          %s\n", cfg.OrgName)
		fmt.Printf("github_org:        %s\n", cfg.GitHubOrg)
		fmt.Printf("template_repo_url: %s\n", cfg.TemplateRepoURL)
		fmt.Printf("template_ref:      %s\n", cfg.TemplateRef)
		fmt.Printf("visibility:        %s\n", cfg.Visibility)
		fmt.Printf("no_kernel:         %v\n", cfg.NoKernel)
		return nil
	}

	changed := false
	if configureOrgName != "" {
		cfg.OrgName = configureOrgName
		changed = true
	}
	if configureGitHubOrg != "" {
		cfg.GitHubOrg = configureGitHubOrg
		changed = true
	}
	if configureTemplateURL != "" {
		cfg.TemplateRepoURL = configureTemplateURL
		changed = true
	}
	if configureTemplateRef != "" {
		cfg.TemplateRef = configureTemplateRef
		changed = true
	}
	if configureVisibility != "" {
		cfg.Visibility = configureVisibility
		changed = true
	}
	if !changed {
		return errs.WithHint(
			errs.New(errs.EUsage, "nothing to configure"),
			"pass at least one flag, or --show to inspect the current values")
	}

	if err := cfg.Validate(); err != nil {
		return errs.Wrap(errs.EUsage, "invalid configuration", err)
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
