// Package config holds the per-user statproj configuration.
//
// The config file lives at ~/.statproj/config.yaml and stores defaults for
// project creation: organization name, template reference and GitHub
// settings. It is loaded once at startup and passed explicitly to the
// workflow; nothing reads it as ambient global state. Only the `configure`
// command mutates it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the persisted per-user configuration.
type Config struct {
	// Organization name rendered into templates (copyright holder etc.).
	OrgName string `yaml:"org_name"`

	// GitHub organization that owns published repositories.
	GitHubOrg string `yaml:"github_org"`

	// Template repository and default git reference (branch, tag or commit).
	TemplateRepoURL string `yaml:"template_repo_url"`
	TemplateRef     string `yaml:"template_ref"`

	// Default repository visibility: internal, private or public.
	Visibility string `yaml:"visibility"`

	// GitHub token. Usually left empty here and discovered from
	// ~/.git-credentials / ~/.netrc or the STATPROJ_GITHUB_TOKEN variable;
	// never logged.
	GitHubToken string `yaml:"github_token,omitempty"`

	// Skip Jupyter kernel registration during build/create.
	NoKernel bool `yaml:"no_kernel"`
}

// Default returns the configuration used before the user has run `configure`.
func Default() *Config {
	return &Config{
		OrgName:         "statistics-org",
		GitHubOrg:       "statistics-org",
		TemplateRepoURL: "https://github.com/statistics-org/stat-project-template",
		TemplateRef:     "main",
		Visibility:      "internal",
	}
}

// Dir returns the per-user statproj state directory (~/.statproj).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".statproj"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config from path, falling back to defaults when the file
// does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnv layers environment variables over the file values. The CLI flag,
// when set, still wins over both.
func (c *Config) applyEnv() {
	if v := os.Getenv("STATPROJ_TEMPLATE_URL"); v != "" {
		c.TemplateRepoURL = v
	}
	if v := os.Getenv("STATPROJ_TEMPLATE_REF"); v != "" {
		c.TemplateRef = v
	}
	if v := os.Getenv("STATPROJ_GITHUB_ORG"); v != "" {
		c.GitHubOrg = v
	}
	if v := os.Getenv("STATPROJ_GITHUB_TOKEN"); v != "" {
		c.GitHubToken = v
	}
	if v := os.Getenv("NO_KERNEL"); v == "True" || v == "true" || v == "1" {
		c.NoKernel = true
	}
}

// Validate checks the loaded values that later steps depend on.
func (c *Config) Validate() error {
	switch c.Visibility {
	case "internal", "private", "public":
	default:
		return fmt.Errorf("invalid visibility %q: must be internal, private or public", c.Visibility)
	}
	if c.TemplateRepoURL == "" {
		return fmt.Errorf("template_repo_url must not be empty")
	}
	return nil
}
