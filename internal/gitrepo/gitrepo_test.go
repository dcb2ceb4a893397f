package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statproj/internal/errs"
)

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# demo\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src/functions.py"), []byte("pass\n"), 0o644))
	return dir
}

func TestInitAndCommit(t *testing.T) {
	dir := writeProject(t)
	require.NoError(t, InitAndCommit(dir, "Test Author", "author@example.com"))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", head.Name().String())

	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Initial commit", commit.Message)
	assert.Equal(t, "Test Author", commit.Author.Name)
	assert.Equal(t, "author@example.com", commit.Author.Email)

	tree, err := commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("src/functions.py")
	assert.NoError(t, err, "all files must be staged")
}

func TestPushToLocalRemote(t *testing.T) {
	dir := writeProject(t)
	require.NoError(t, InitAndCommit(dir, "Test Author", "author@example.com"))

	bare := t.TempDir()
	_, err := git.PlainInit(bare, true)
	require.NoError(t, err)

	require.NoError(t, Push(context.Background(), dir, bare, ""))

	remote, err := git.PlainOpen(bare)
	require.NoError(t, err)
	ref, err := remote.Reference("refs/heads/main", true)
	require.NoError(t, err)
	assert.False(t, ref.Hash().IsZero())
}

func TestPushReplacesExistingOrigin(t *testing.T) {
	dir := writeProject(t)
	require.NoError(t, InitAndCommit(dir, "Test Author", "author@example.com"))

	stale := t.TempDir()
	_, err := git.PlainInit(stale, true)
	require.NoError(t, err)
	require.NoError(t, Push(context.Background(), dir, stale, ""))

	bare := t.TempDir()
	_, err = git.PlainInit(bare, true)
	require.NoError(t, err)
	require.NoError(t, Push(context.Background(), dir, bare, ""))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	remote, err := repo.Remote(git.DefaultRemoteName)
	require.NoError(t, err)
	assert.Equal(t, []string{bare}, remote.Config().URLs)
}

func TestPushFailureIsCoded(t *testing.T) {
	dir := writeProject(t)
	require.NoError(t, InitAndCommit(dir, "Test Author", "author@example.com"))

	err := Push(context.Background(), dir, filepath.Join(t.TempDir(), "missing.git"), "secret-token")
	require.Error(t, err)
	assert.Equal(t, errs.EPush, errs.CodeOf(err))
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestGlobalAuthorDoesNotFail(t *testing.T) {
	// Whatever the host config looks like, this must not panic or error.
	name, email := GlobalAuthor()
	_ = name
	_ = email
}
