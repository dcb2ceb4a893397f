// Package hosting publishes a freshly created project to a repository host.
// The Host interface isolates the GitHub API so the publication flow can be
// tested without network access.
package hosting

import (
	"context"
	"regexp"
)

// RepoInfo describes the remote repository to create.
type RepoInfo struct {
	Org         string
	Name        string
	Description string
	Visibility  string // internal, private or public
}

// TeamGrant gives a team access to the new repository.
type TeamGrant struct {
	Team       string // team slug
	Permission string // pull, push, maintain or admin
}

// Host is the capability surface of a repository hosting service.
type Host interface {
	// Login returns the authenticated username, verifying the token.
	Login(ctx context.Context) (string, error)
	// RepoExists reports whether org/name already exists.
	RepoExists(ctx context.Context, org, name string) (bool, error)
	// CreateRepo creates the repository and returns its clone URL.
	CreateRepo(ctx context.Context, info RepoInfo) (string, error)
	// ProtectBranch enables review-required protection on a branch.
	ProtectBranch(ctx context.Context, org, name, branch string) error
	// GrantTeam gives a team access to the repository.
	GrantTeam(ctx context.Context, org, name string, grant TeamGrant) error
	// SetSecret stores an encrypted actions secret on the repository.
	SetSecret(ctx context.Context, org, name, secretName, value string) error
}

var repoNameRe = regexp.MustCompile(`^[a-zA-Z0-9-_]+$`)

// ValidRepoName reports whether name is acceptable as a repository name:
// ASCII letters, digits, hyphens and underscores, at least 3 characters.
func ValidRepoName(name string) bool {
	return len(name) >= 3 && repoNameRe.MatchString(name)
}
