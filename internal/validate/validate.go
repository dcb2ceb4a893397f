// Package validate performs the preflight checks that gate every mutating
// command. All problems are collected into a single Issue list so the user
// sees everything at once; validation itself has no side effects.
package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Issue describes one problem found during validation.
type Issue struct {
	Code    string // matching errs code, e.g. E_TOOL_MISSING
	Message string
	Hint    string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}

// ToolChecker reports whether a binary is available on PATH.
type ToolChecker interface {
	LookPath(name string) (string, error)
}

// Checks configures what to validate for a given command.
type Checks struct {
	// Binaries that must be present (poetry, jupyter).
	RequiredTools []string

	// For create: the target directory that must not already exist non-empty.
	TargetDir string

	// For build/update: a directory that must contain a recognizable project.
	ProjectDir string

	// Set when remote publication was requested; empty token is an issue.
	RemoteRequested bool
	Token           string

	// Host resource preflight; nil disables it.
	Resources Probe
}

// Validator runs preflight checks.
type Validator struct {
	tools ToolChecker
}

func New(tools ToolChecker) *Validator {
	return &Validator{tools: tools}
}

// Validate runs all configured checks and returns every issue found. An empty
// slice means proceed.
func (v *Validator) Validate(ctx context.Context, c Checks) []Issue {
	var issues []Issue

	for _, tool := range c.RequiredTools {
		if _, err := v.tools.LookPath(tool); err != nil {
			issues = append(issues, Issue{
				Code:    "E_TOOL_MISSING",
				Message: fmt.Sprintf("required tool %q not found on PATH", tool),
				Hint:    fmt.Sprintf("install %s and retry", tool),
			})
		}
	}

	if c.TargetDir != "" {
		if conflict, why := targetConflicts(c.TargetDir); conflict {
			issues = append(issues, Issue{
				Code:    "E_TARGET_CONFLICT",
				Message: why,
				Hint:    "choose another project name or remove the existing directory",
			})
		}
	}

	if c.ProjectDir != "" {
		if _, err := FindProjectRoot(c.ProjectDir); err != nil {
			issues = append(issues, Issue{
				Code:    "E_NO_PROJECT",
				Message: fmt.Sprintf("no project found at or above %s", c.ProjectDir),
				Hint:    "run this command inside a project created by statproj",
			})
		}
	}

	if c.RemoteRequested && c.Token == "" {
		issues = append(issues, Issue{
			Code:    "E_TOKEN_MISSING",
			Message: "GitHub publication requested but no token is available",
			Hint:    "pass --github-token or add the token to ~/.netrc",
		})
	}

	if c.Resources != nil {
		issues = append(issues, resourceIssues(c.Resources)...)
	}

	return issues
}

// targetConflicts reports whether the create target already exists with
// content in it. An existing but empty directory is fine.
func targetConflicts(dir string) (bool, string) {
	info, err := os.Stat(dir)
	if err != nil {
		return false, ""
	}
	if !info.IsDir() {
		return true, fmt.Sprintf("%s exists and is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true, fmt.Sprintf("%s exists but cannot be read: %v", dir, err)
	}
	if len(entries) > 0 {
		return true, fmt.Sprintf("directory %s already exists and is not empty", dir)
	}
	return false, ""
}

// projectMarkers identify a recognizable project tree, in priority order.
var projectMarkers = []string{
	filepath.Join(".statproj", "template.json"),
	"pyproject.toml",
	".git",
}

// FindProjectRoot walks from dir upward looking for a project marker and
// returns the first directory containing one.
func FindProjectRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(abs, marker)); err == nil {
				return abs, nil
			}
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no project root found above %s", dir)
		}
		abs = parent
	}
}
