// Package template materializes project trees from a parameterized template
// repository and re-applies template updates onto existing projects.
//
// The production engine clones the template with go-git, checks out the
// requested reference and renders Go template placeholders in file paths and
// contents. The applied template version is recorded in
// .statproj/template.json so updates can three-way merge against the exact
// baseline that was originally rendered.
package template

import (
	"context"
)

// Context maps template variable names to their values for one apply.
type Context map[string]string

// ApplyResult describes a completed template application.
type ApplyResult struct {
	Files  []string // rendered files, relative to the target directory
	URL    string
	Ref    string
	Commit string // resolved commit, empty for local template directories
}

// Conflict identifies a file the user must resolve by hand after an update.
type Conflict struct {
	Path string // relative to the project root
	Line int    // first conflict marker line (1-based)
}

// ReapplyResult describes a template update pass.
type ReapplyResult struct {
	Updated   []string // files rewritten from the new template version
	Conflicts []Conflict
	Unchanged int
}

// Engine is the templating capability. One implementation per backend,
// selected at startup.
type Engine interface {
	// Apply renders the template at ref into targetDir. The target must not
	// already contain files.
	Apply(ctx context.Context, url, ref string, tc Context, targetDir string) (*ApplyResult, error)

	// Reapply renders the recorded baseline and the new ref, then merges the
	// template changes into the project tree, reporting per-file conflicts.
	Reapply(ctx context.Context, projectDir, newRef string) (*ReapplyResult, error)
}
