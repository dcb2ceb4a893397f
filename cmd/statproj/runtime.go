package main

import (
	"context"
	"os"
	"sort"
	"strings"

	"statproj/internal/config"
	"statproj/internal/errs"
	"statproj/internal/gitrepo"
	"statproj/internal/hosting"
	"statproj/internal/prompt"
	"statproj/internal/provision"
	"statproj/internal/shell"
	"statproj/internal/template"
	"statproj/internal/validate"
	"statproj/internal/workflow"
)

// runtime bundles the wired components behind a command invocation.
type runtime struct {
	cfg      *config.Config
	stateDir string
	token    string // resolved GitHub token; also what the API client holds
	runner   shell.Runner
	registry *provision.Registry
	prov     *provision.Provisioner
	engine   *workflow.Engine
	prompter prompt.Prompter
}

// newRuntime wires the production components. The GitHub token is resolved
// here, before the API client is constructed, so the client and the push
// always authenticate with the same credential. flagToken may be empty.
func newRuntime(ctx context.Context, flagToken string) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	stateDir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	token := resolveToken(flagToken, cfg)

	runner := shell.NewExecRunner()
	registry, err := provision.OpenRegistry(stateDir)
	if err != nil {
		return nil, err
	}

	prov := provision.NewProvisioner(provision.NewPoetryManager(runner), registry, logger)
	pub := hosting.NewPublisher(hosting.NewGitHubHost(ctx, token), logger)
	engine := workflow.NewEngine(
		validate.New(runner),
		template.NewGitEngine(),
		prov,
		pub,
		validate.HostProbe{},
		logger,
	)

	return &runtime{
		cfg:      cfg,
		stateDir: stateDir,
		token:    token,
		runner:   runner,
		registry: registry,
		prov:     prov,
		engine:   engine,
		prompter: prompt.New(),
	}, nil
}

func (r *runtime) Close() {
	if r.registry != nil {
		_ = r.registry.Close()
	}
}

// resolveToken picks the GitHub token: flag, then config/env, then stored
// credentials in the home directory. When several users have stored
// credentials the first username in sorted order wins, so repeated runs pick
// the same token.
func resolveToken(flagToken string, cfg *config.Config) string {
	if flagToken != "" {
		return flagToken
	}
	if cfg.GitHubToken != "" {
		return cfg.GitHubToken
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	tokens := hosting.DiscoverTokens(home)
	if len(tokens) == 0 {
		return ""
	}
	users := make([]string, 0, len(tokens))
	for user := range tokens {
		users = append(users, user)
	}
	sort.Strings(users)
	return tokens[users[0]]
}

// resolveAuthor reads the commit author from the global git config, prompting
// for anything missing.
func resolveAuthor(p prompt.Prompter) (name, email string, err error) {
	name, email = gitrepo.GlobalAuthor()
	if name == "" {
		name, err = p.Text("Your full name (for the initial commit)", "")
		if err != nil {
			return "", "", err
		}
	}
	if email == "" {
		email, err = p.Text("Your email (for the initial commit)", "")
		if err != nil {
			return "", "", err
		}
	}
	return name, email, nil
}

// parseSecrets turns repeated NAME=VALUE flags into a map.
func parseSecrets(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	secrets := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errs.WithHint(
				errs.Newf(errs.EUsage, "invalid secret %q", pair),
				"secrets are passed as --secret NAME=VALUE")
		}
		secrets[name] = value
	}
	return secrets, nil
}
