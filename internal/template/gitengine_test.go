package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statproj/internal/errs"
)

// writeTemplateFixture lays out a minimal template directory. Local
// directories are used by the engine without cloning, so tests never touch
// the network.
func writeTemplateFixture(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func defaultFixture(t *testing.T) string {
	t.Helper()
	return writeTemplateFixture(t, map[string]string{
		"README.md":        "# {{.ProjectName}}\n\n{{.Description}}\n",
		"pyproject.toml":   "[tool.poetry]\nname = \"{{.ProjectName}}\"\nversion = \"0.1.0\"\n",
		"src/functions.py": "def main():\n    pass\n",
	})
}

func testContext() Context {
	return Context{
		"ProjectName": "demo-project",
		"Description": "A demo statistical project",
	}
}

func TestApplyRendersTree(t *testing.T) {
	src := defaultFixture(t)
	target := filepath.Join(t.TempDir(), "demo-project")

	eng := NewGitEngine()
	res, err := eng.Apply(context.Background(), src, "main", testContext(), target)
	require.NoError(t, err)
	assert.Len(t, res.Files, 3)

	readme, err := os.ReadFile(filepath.Join(target, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# demo-project")
	assert.Contains(t, string(readme), "A demo statistical project")

	// The template version and context are recorded for later updates.
	st, err := LoadState(target)
	require.NoError(t, err)
	assert.Equal(t, src, st.TemplateURL)
	assert.Equal(t, "demo-project", st.Context["ProjectName"])

	// A pristine baseline render is kept for three-way merging.
	base, err := os.ReadFile(filepath.Join(target, ".statproj/baseline/README.md"))
	require.NoError(t, err)
	assert.Equal(t, string(readme), string(base))
}

func TestApplyTemplatedPaths(t *testing.T) {
	src := writeTemplateFixture(t, map[string]string{
		"{{.ProjectName}}.code-workspace": "{}\n",
	})
	target := filepath.Join(t.TempDir(), "demo-project")

	eng := NewGitEngine()
	res, err := eng.Apply(context.Background(), src, "main", testContext(), target)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo-project.code-workspace"}, res.Files)
}

func TestApplyRejectsNonEmptyTarget(t *testing.T) {
	src := defaultFixture(t)
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "existing.txt"), []byte("x"), 0o644))

	eng := NewGitEngine()
	_, err := eng.Apply(context.Background(), src, "main", testContext(), target)
	require.Error(t, err)
	assert.Equal(t, errs.ETargetConflict, errs.CodeOf(err))

	// Nothing else was written.
	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestApplyMissingContextVariable(t *testing.T) {
	src := writeTemplateFixture(t, map[string]string{
		"README.md": "# {{.ProjectName}} by {{.Author}}\n",
	})
	target := filepath.Join(t.TempDir(), "demo-project")

	eng := NewGitEngine()
	_, err := eng.Apply(context.Background(), src, "main", Context{"ProjectName": "demo"}, target)
	require.Error(t, err)
	assert.Equal(t, errs.ETemplateRender, errs.CodeOf(err))
}

func TestApplyFetchFailure(t *testing.T) {
	eng := NewGitEngine()
	_, err := eng.Apply(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), "main",
		testContext(), filepath.Join(t.TempDir(), "p"))
	require.Error(t, err)
	assert.Equal(t, errs.ETemplateFetch, errs.CodeOf(err))
}

func TestReapplyNoChangesIsQuiet(t *testing.T) {
	src := defaultFixture(t)
	target := filepath.Join(t.TempDir(), "demo-project")

	eng := NewGitEngine()
	_, err := eng.Apply(context.Background(), src, "main", testContext(), target)
	require.NoError(t, err)

	before, err := os.ReadFile(filepath.Join(target, "README.md"))
	require.NoError(t, err)

	res, err := eng.Reapply(context.Background(), target, "")
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	assert.Empty(t, res.Updated)
	assert.Equal(t, 3, res.Unchanged)

	after, err := os.ReadFile(filepath.Join(target, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "reapply with no template changes must not modify files")
}

func TestReapplyTakesTemplateUpdateWhenUserUnchanged(t *testing.T) {
	src := defaultFixture(t)
	target := filepath.Join(t.TempDir(), "demo-project")

	eng := NewGitEngine()
	_, err := eng.Apply(context.Background(), src, "main", testContext(), target)
	require.NoError(t, err)

	// Upstream template change; the project file is untouched.
	require.NoError(t, os.WriteFile(filepath.Join(src, "src/functions.py"),
		[]byte("def main():\n    return 0\n"), 0o644))

	res, err := eng.Reapply(context.Background(), target, "")
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, []string{filepath.Join("src", "functions.py")}, res.Updated)

	body, err := os.ReadFile(filepath.Join(target, "src/functions.py"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "return 0")
}

func TestReapplyKeepsUserEditsWhenTemplateUnchanged(t *testing.T) {
	src := defaultFixture(t)
	target := filepath.Join(t.TempDir(), "demo-project")

	eng := NewGitEngine()
	_, err := eng.Apply(context.Background(), src, "main", testContext(), target)
	require.NoError(t, err)

	userBody := "def main():\n    run_user_pipeline()\n"
	require.NoError(t, os.WriteFile(filepath.Join(target, "src/functions.py"), []byte(userBody), 0o644))

	res, err := eng.Reapply(context.Background(), target, "")
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	assert.Empty(t, res.Updated)

	body, err := os.ReadFile(filepath.Join(target, "src/functions.py"))
	require.NoError(t, err)
	assert.Equal(t, userBody, string(body))
}

func TestReapplyReportsConflicts(t *testing.T) {
	src := defaultFixture(t)
	target := filepath.Join(t.TempDir(), "demo-project")

	eng := NewGitEngine()
	_, err := eng.Apply(context.Background(), src, "main", testContext(), target)
	require.NoError(t, err)

	// User and template change the same region.
	userFile := filepath.Join(target, "src/functions.py")
	require.NoError(t, os.WriteFile(userFile,
		[]byte("def main():\n    run_user_pipeline()\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "src/functions.py"),
		[]byte("def main():\n    run_template_pipeline()\n"), 0o644))

	res, err := eng.Reapply(context.Background(), target, "")
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, filepath.Join("src", "functions.py"), res.Conflicts[0].Path)
	assert.Equal(t, 2, res.Conflicts[0].Line)

	body, err := os.ReadFile(userFile)
	require.NoError(t, err)
	assert.Contains(t, string(body), markerOurs)
	assert.Contains(t, string(body), "run_user_pipeline")
	assert.Contains(t, string(body), "run_template_pipeline")

	// Conflicted runs must not advance the baseline: the pristine render is
	// still the one from the original apply.
	base, err := os.ReadFile(filepath.Join(target, ".statproj/baseline/src/functions.py"))
	require.NoError(t, err)
	assert.Contains(t, string(base), "pass")
}

func TestReapplyResurrectsOnlyNewTemplateFiles(t *testing.T) {
	src := defaultFixture(t)
	target := filepath.Join(t.TempDir(), "demo-project")

	eng := NewGitEngine()
	_, err := eng.Apply(context.Background(), src, "main", testContext(), target)
	require.NoError(t, err)

	// User deletes a templated file on purpose; the template also gains a
	// brand new file.
	require.NoError(t, os.Remove(filepath.Join(target, "README.md")))
	require.NoError(t, os.WriteFile(filepath.Join(src, "CONTRIBUTING.md"), []byte("guidelines\n"), 0o644))

	res, err := eng.Reapply(context.Background(), target, "")
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, []string{"CONTRIBUTING.md"}, res.Updated)

	_, err = os.Stat(filepath.Join(target, "README.md"))
	assert.True(t, os.IsNotExist(err), "deliberately deleted files must stay deleted")
	_, err = os.Stat(filepath.Join(target, "CONTRIBUTING.md"))
	assert.NoError(t, err)
}
