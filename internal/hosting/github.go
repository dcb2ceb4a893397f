package hosting

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/oauth2"

	"statproj/internal/errs"
)

// repoTopic tags repositories created by this tool.
const repoTopic = "statproj"

// GitHubHost is the production Host backed by the GitHub REST API.
type GitHubHost struct {
	client *github.Client
}

func NewGitHubHost(ctx context.Context, token string) *GitHubHost {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHubHost{client: github.NewClient(oauth2.NewClient(ctx, ts))}
}

func (h *GitHubHost) Login(ctx context.Context) (string, error) {
	user, _, err := h.client.Users.Get(ctx, "")
	if err != nil {
		if isStatus(err, http.StatusUnauthorized) {
			return "", errs.WithHint(
				errs.Wrap(errs.ETokenMissing, "token rejected by GitHub", err),
				"check that your personal access token has not expired")
		}
		return "", errs.Wrap(errs.EPermission, "verify GitHub login", err)
	}
	return user.GetLogin(), nil
}

func (h *GitHubHost) RepoExists(ctx context.Context, org, name string) (bool, error) {
	_, resp, err := h.client.Repositories.Get(ctx, org, name)
	if err == nil {
		return true, nil
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, errs.Wrap(errs.EPermission, fmt.Sprintf("look up %s/%s", org, name), err)
}

func (h *GitHubHost) CreateRepo(ctx context.Context, info RepoInfo) (string, error) {
	repo := &github.Repository{
		Name:        github.String(info.Name),
		Description: github.String(info.Description),
		Visibility:  github.String(info.Visibility),
		AutoInit:    github.Bool(false),
	}
	created, _, err := h.client.Repositories.Create(ctx, info.Org, repo)
	if err != nil {
		switch {
		case isStatus(err, http.StatusUnprocessableEntity):
			return "", errs.Newf(errs.ERepoExists,
				"a repository named %s already exists in %s", info.Name, info.Org)
		case isStatus(err, http.StatusForbidden), isStatus(err, http.StatusUnauthorized):
			return "", errs.WithHint(
				errs.Wrap(errs.EPermission, "create repository", err),
				"the token needs repo creation rights in the organization")
		}
		return "", errs.Wrap(errs.EPermission, "create repository", err)
	}

	// Topic tagging is cosmetic; a failure here should not fail the create.
	_, _, _ = h.client.Repositories.ReplaceAllTopics(ctx, info.Org, info.Name, []string{repoTopic})

	return created.GetCloneURL(), nil
}

func (h *GitHubHost) ProtectBranch(ctx context.Context, org, name, branch string) error {
	req := &github.ProtectionRequest{
		RequiredPullRequestReviews: &github.PullRequestReviewsEnforcementRequest{
			RequiredApprovingReviewCount: 1,
			DismissStaleReviews:          true,
		},
	}
	if _, _, err := h.client.Repositories.UpdateBranchProtection(ctx, org, name, branch, req); err != nil {
		return errs.Wrap(errs.EProtection,
			fmt.Sprintf("protect branch %s on %s/%s", branch, org, name), err)
	}
	return nil
}

func (h *GitHubHost) GrantTeam(ctx context.Context, org, name string, grant TeamGrant) error {
	opts := &github.TeamAddTeamRepoOptions{Permission: grant.Permission}
	if _, err := h.client.Teams.AddTeamRepoBySlug(ctx, org, grant.Team, org, name, opts); err != nil {
		return errs.Wrap(errs.EGrant,
			fmt.Sprintf("grant %s access to team %s", grant.Permission, grant.Team), err)
	}
	return nil
}

func (h *GitHubHost) SetSecret(ctx context.Context, org, name, secretName, value string) error {
	key, _, err := h.client.Actions.GetRepoPublicKey(ctx, org, name)
	if err != nil {
		return errs.Wrap(errs.ESecretConfig, "fetch repository public key", err)
	}

	sealed, err := sealSecret(key.GetKey(), value)
	if err != nil {
		return errs.Wrap(errs.ESecretConfig, "seal secret "+secretName, err)
	}

	secret := &github.EncryptedSecret{
		Name:           secretName,
		KeyID:          key.GetKeyID(),
		EncryptedValue: sealed,
	}
	if _, err := h.client.Actions.CreateOrUpdateRepoSecret(ctx, org, name, secret); err != nil {
		return errs.Wrap(errs.ESecretConfig, "store secret "+secretName, err)
	}
	return nil
}

// sealSecret encrypts value against the repository's base64 NaCl public key,
// as required by the actions secrets API.
func sealSecret(publicKeyB64, value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("public key is %d bytes, want 32", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)

	sealed, err := box.SealAnonymous(nil, []byte(value), &key, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func isStatus(err error, status int) bool {
	if ghErr, ok := err.(*github.ErrorResponse); ok && ghErr.Response != nil {
		return ghErr.Response.StatusCode == status
	}
	return false
}
