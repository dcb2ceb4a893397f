// Package gitrepo handles the local git side of a project: initial repository
// setup and the first push to a remote. Everything goes through go-git, so no
// git binary is required on the host.
package gitrepo

import (
	"context"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"statproj/internal/errs"
)

const defaultBranch = "main"

// GlobalAuthor reads user.name and user.email from the global git config.
// Missing values come back empty; the caller decides whether to prompt.
func GlobalAuthor() (name, email string) {
	cfg, err := gitconfig.LoadConfig(gitconfig.GlobalScope)
	if err != nil {
		return "", ""
	}
	return cfg.User.Name, cfg.User.Email
}

// InitAndCommit initializes a repository on the main branch, stages the whole
// tree and records the initial commit.
func InitAndCommit(dir, authorName, authorEmail string) error {
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(defaultBranch),
		},
	})
	if err != nil {
		return errs.Wrap(errs.EPush, "initialize git repository", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return errs.Wrap(errs.EPush, "open worktree", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return errs.Wrap(errs.EPush, "stage project files", err)
	}
	_, err = wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return errs.Wrap(errs.EPush, "record initial commit", err)
	}
	return nil
}

// Push uploads the main branch to remoteURL as origin, creating the remote if
// needed. The token travels as basic auth, never inside the URL, so error
// messages and remote config stay free of credentials.
func Push(ctx context.Context, dir, remoteURL, token string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return errs.Wrap(errs.EPush, "open git repository", err)
	}

	if _, err := repo.Remote(git.DefaultRemoteName); err == nil {
		if err := repo.DeleteRemote(git.DefaultRemoteName); err != nil {
			return errs.Wrap(errs.EPush, "replace origin remote", err)
		}
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{remoteURL},
	}); err != nil {
		return errs.Wrap(errs.EPush, "configure origin remote", err)
	}

	opts := &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec("refs/heads/" + defaultBranch + ":refs/heads/" + defaultBranch),
		},
	}
	if token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}

	if err := repo.PushContext(ctx, opts); err != nil {
		return errs.WithHint(
			errs.Wrap(errs.EPush, "push to "+remoteURL, err),
			"check your network connection and that the token has push access")
	}
	return nil
}
