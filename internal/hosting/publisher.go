package hosting

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"statproj/internal/errs"
	"statproj/internal/gitrepo"
)

// Request describes one publication.
type Request struct {
	ProjectDir  string
	Name        string
	Description string
	Visibility  string
	Org         string
	Grants      []TeamGrant
	Secrets     map[string]string
	Token       string
}

// PublishResult reports what was done. Warnings are non-fatal steps (branch
// protection, team grants) that the user should follow up on manually.
type PublishResult struct {
	RepoURL  string
	Warnings []string
}

// Publisher drives the publication flow against a Host.
type Publisher struct {
	host Host
	log  *zap.Logger

	// push is stubbed in tests; the real one talks to the network.
	push func(ctx context.Context, dir, remoteURL, token string) error
}

func NewPublisher(host Host, log *zap.Logger) *Publisher {
	return &Publisher{host: host, log: log, push: gitrepo.Push}
}

// Publish verifies the credential, creates the remote repository, pushes the
// initial commit and applies protection, grants and secrets. The existence
// check and the push are retried with exponential backoff; transient network
// failures are the common case right after repository creation.
func (p *Publisher) Publish(ctx context.Context, req Request) (*PublishResult, error) {
	if !ValidRepoName(req.Name) {
		return nil, errs.WithHint(
			errs.Newf(errs.EUsage, "invalid repository name %q", req.Name),
			"use at least 3 characters: letters, digits, hyphens and underscores")
	}

	login, err := p.host.Login(ctx)
	if err != nil {
		return nil, err
	}
	p.log.Debug("authenticated against host", zap.String("login", login))

	var exists bool
	err = retry.Do(ctx, retry.WithMaxRetries(3, retry.NewExponential(time.Second)),
		func(ctx context.Context) error {
			found, existsErr := p.host.RepoExists(ctx, req.Org, req.Name)
			if existsErr != nil {
				p.log.Warn("repository existence check failed", zap.Error(existsErr))
				return retry.RetryableError(existsErr)
			}
			exists = found
			return nil
		})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.WithHint(
			errs.Newf(errs.ERepoExists, "repository %s/%s already exists", req.Org, req.Name),
			"choose another project name or delete the existing repository")
	}

	repoURL, err := p.host.CreateRepo(ctx, RepoInfo{
		Org:         req.Org,
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("created remote repository",
		zap.String("repo", req.Org+"/"+req.Name),
		zap.String("visibility", req.Visibility))

	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pushErr := p.push(ctx, req.ProjectDir, repoURL, req.Token); pushErr != nil {
			p.log.Warn("push attempt failed", zap.Error(pushErr))
			return retry.RetryableError(pushErr)
		}
		return nil
	})
	if err != nil {
		return nil, errs.WithHint(
			errs.Wrap(errs.EPush, "push initial commit", err),
			"the remote repository was created; push manually once the problem is fixed")
	}

	res := &PublishResult{RepoURL: repoURL}

	if err := p.host.ProtectBranch(ctx, req.Org, req.Name, "main"); err != nil {
		p.log.Warn("branch protection failed", zap.Error(err))
		res.Warnings = append(res.Warnings,
			"branch protection could not be enabled: "+err.Error())
	}

	for _, grant := range req.Grants {
		if err := p.host.GrantTeam(ctx, req.Org, req.Name, grant); err != nil {
			p.log.Warn("team grant failed",
				zap.String("team", grant.Team), zap.Error(err))
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("team %s was not granted %s access: %v", grant.Team, grant.Permission, err))
		}
	}

	for name, value := range req.Secrets {
		if err := p.host.SetSecret(ctx, req.Org, req.Name, name, value); err != nil {
			return nil, err
		}
		p.log.Info("configured repository secret", zap.String("secret", name))
	}

	return res, nil
}
