package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"statproj/internal/hosting"
	"statproj/internal/logging"
	"statproj/internal/workflow"
)

var (
	createGitHub      bool
	createTeams       []string
	createToken       string
	createVisibility  string
	createTemplateURL string
	createCheckout    string
	createNoKernel    bool
	createSecrets     []string
)

var createCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Create a new project from the template",
	Long: `Creates a project directory from the configured template, initializes a
git repository, installs the Poetry virtual environment and registers a
Jupyter kernel. With --github the project is also published to the
configured GitHub organization.

Example:
  statproj create price-stats "Quarterly price statistics" --github`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().BoolVar(&createGitHub, "github", false, "Publish the project to GitHub")
	createCmd.Flags().StringArrayVar(&createTeams, "github-team", nil, "Team to grant push access (repeatable)")
	createCmd.Flags().StringVar(&createToken, "github-token", "", "GitHub personal access token")
	createCmd.Flags().StringVar(&createVisibility, "visibility", "", "Repository visibility: internal, private or public")
	createCmd.Flags().StringVar(&createTemplateURL, "template-git-url", "", "Template repository URL (overrides config)")
	createCmd.Flags().StringVar(&createCheckout, "checkout", "", "Template git reference: branch, tag or commit")
	createCmd.Flags().BoolVar(&createNoKernel, "no-kernel", false, "Skip Jupyter kernel registration")
	createCmd.Flags().StringArrayVar(&createSecrets, "secret", nil, "Repository secret as NAME=VALUE (repeatable)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	name := args[0]
	description := strings.Join(args[1:], " ")

	secrets, err := parseSecrets(createSecrets)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, createToken)
	if err != nil {
		return err
	}
	defer rt.Close()

	token := ""
	if createGitHub {
		token = rt.token
		if description == "" {
			description, err = rt.prompter.Text("Project description", "")
			if err != nil {
				return err
			}
		}
	}

	authorName, authorEmail, err := resolveAuthor(rt.prompter)
	if err != nil {
		return err
	}

	workDir, err := workingDir()
	if err != nil {
		return err
	}

	visibility := rt.cfg.Visibility
	if createVisibility != "" {
		visibility = createVisibility
	}
	templateURL := rt.cfg.TemplateRepoURL
	if createTemplateURL != "" {
		templateURL = createTemplateURL
	}
	templateRef := rt.cfg.TemplateRef
	if createCheckout != "" {
		templateRef = createCheckout
	}

	var grants []hosting.TeamGrant
	for _, team := range createTeams {
		grants = append(grants, hosting.TeamGrant{Team: team, Permission: "push"})
	}

	desc := workflow.Descriptor{
		Name:        name,
		Description: description,
		WorkDir:     workDir,
		TemplateURL: templateURL,
		TemplateRef: templateRef,
		AuthorName:  authorName,
		AuthorEmail: authorEmail,
		NoKernel:    createNoKernel || rt.cfg.NoKernel,
		AddRemote:   createGitHub,
		Org:         rt.cfg.GitHubOrg,
		Visibility:  visibility,
		Token:       token,
		Grants:      grants,
		Secrets:     secrets,
	}

	logger.Info("creating project", zap.String("name", name), zap.Bool("github", createGitHub))

	sum, runErr := rt.engine.Create(ctx, desc)
	sum.Render(os.Stdout)

	if runErr != nil {
		if path := logging.DumpError(rt.stateDir, "create", runErr.Error()); path != "" {
			fmt.Printf("full error detail: %s\n", path)
		}
		return runErr
	}
	fmt.Printf("Created project %s in %s\n", name, desc.TargetDir())
	return nil
}
