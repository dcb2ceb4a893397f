package template

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	texttemplate "text/template"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"statproj/internal/errs"
)

// baselineDir holds a pristine copy of the last applied render, relative to
// the project root. It is the "base" side of the three-way merge during
// update-template; keeping the render (rather than just the template commit)
// means updates never need to re-fetch historical template versions.
const baselineDir = ".statproj/baseline"

// GitEngine renders templates fetched from a git repository. A URL that
// resolves to a local directory is used in place (no clone), which keeps
// tests and air-gapped use working without a network.
type GitEngine struct{}

func NewGitEngine() *GitEngine {
	return &GitEngine{}
}

// fetch materializes the template source at ref into a readable directory.
// cleanup must be called when done; commit is empty for plain local dirs.
func (e *GitEngine) fetch(ctx context.Context, url, ref string) (dir, commit string, cleanup func(), err error) {
	if info, statErr := os.Stat(url); statErr == nil && info.IsDir() {
		return url, "", func() {}, nil
	}

	tmp, err := os.MkdirTemp("", "statproj-template-*")
	if err != nil {
		return "", "", nil, errs.Wrap(errs.ETemplateFetch, "create temp dir", err)
	}
	cleanup = func() { _ = os.RemoveAll(tmp) }

	repo, err := git.PlainCloneContext(ctx, tmp, false, &git.CloneOptions{URL: url})
	if err != nil {
		cleanup()
		return "", "", nil, errs.Wrap(errs.ETemplateFetch,
			fmt.Sprintf("clone template %s", url), err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		cleanup()
		return "", "", nil, errs.Wrap(errs.ETemplateFetch,
			fmt.Sprintf("resolve template reference %q", ref), err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		cleanup()
		return "", "", nil, errs.Wrap(errs.ETemplateFetch, "open template worktree", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		cleanup()
		return "", "", nil, errs.Wrap(errs.ETemplateFetch,
			fmt.Sprintf("checkout %q", ref), err)
	}

	return tmp, hash.String(), cleanup, nil
}

// Apply renders the template into targetDir, snapshots the render as the
// merge baseline and records the template state.
func (e *GitEngine) Apply(ctx context.Context, url, ref string, tc Context, targetDir string) (*ApplyResult, error) {
	if entries, err := os.ReadDir(targetDir); err == nil && len(entries) > 0 {
		return nil, errs.Newf(errs.ETargetConflict,
			"target directory %s already exists and is not empty", targetDir)
	}

	srcDir, commit, cleanup, err := e.fetch(ctx, url, ref)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	files, err := renderTree(srcDir, targetDir, tc)
	if err != nil {
		return nil, err
	}
	if err := snapshotBaseline(targetDir, files); err != nil {
		return nil, errs.Wrap(errs.ETemplateRender, "record merge baseline", err)
	}

	if err := SaveState(targetDir, &State{
		TemplateURL: url,
		Ref:         ref,
		Commit:      commit,
		Context:     tc,
		AppliedAt:   nowFunc(),
	}); err != nil {
		return nil, errs.Wrap(errs.ETemplateRender, "record template state", err)
	}

	return &ApplyResult{Files: files, URL: url, Ref: ref, Commit: commit}, nil
}

// Reapply merges the template changes between the recorded baseline and
// newRef into the project tree, reporting per-file conflicts. An empty
// newRef means the recorded ref.
func (e *GitEngine) Reapply(ctx context.Context, projectDir, newRef string) (*ReapplyResult, error) {
	st, err := LoadState(projectDir)
	if err != nil {
		return nil, errs.Wrap(errs.ETemplateFetch, "project has no recorded template", err)
	}
	if newRef == "" {
		newRef = st.Ref
	}

	newDir, newCommit, cleanup, err := e.fetch(ctx, st.TemplateURL, newRef)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	incomingTmp, err := os.MkdirTemp("", "statproj-incoming-*")
	if err != nil {
		return nil, errs.Wrap(errs.ETemplateRender, "create temp dir", err)
	}
	defer os.RemoveAll(incomingTmp)

	incomingFiles, err := renderTree(newDir, incomingTmp, st.Context)
	if err != nil {
		return nil, err
	}

	res := &ReapplyResult{}
	for _, rel := range incomingFiles {
		incoming, err := os.ReadFile(filepath.Join(incomingTmp, rel))
		if err != nil {
			return nil, errs.Wrap(errs.ETemplateRender, "read incoming render", err)
		}
		base, baseErr := os.ReadFile(filepath.Join(projectDir, baselineDir, rel))
		current, curErr := os.ReadFile(filepath.Join(projectDir, rel))

		if curErr != nil {
			// Deleted locally: only resurrect files the template added since
			// the last apply.
			if baseErr == nil {
				res.Unchanged++
				continue
			}
			if err := writeFileMkdir(filepath.Join(projectDir, rel), incoming); err != nil {
				return nil, errs.Wrap(errs.ETemplateRender, "write new template file", err)
			}
			res.Updated = append(res.Updated, rel)
			continue
		}

		merged, conflictLine := merge3(base, incoming, current)
		if conflictLine > 0 {
			if err := writeFileMkdir(filepath.Join(projectDir, rel), merged); err != nil {
				return nil, errs.Wrap(errs.ETemplateRender, "write conflict markers", err)
			}
			res.Conflicts = append(res.Conflicts, Conflict{Path: rel, Line: conflictLine})
			continue
		}
		if string(merged) == string(current) {
			res.Unchanged++
			continue
		}
		if err := writeFileMkdir(filepath.Join(projectDir, rel), merged); err != nil {
			return nil, errs.Wrap(errs.ETemplateRender, "write merged file", err)
		}
		res.Updated = append(res.Updated, rel)
	}

	// Only advance the baseline once nothing is left to resolve; a re-run
	// after fixing conflicts must merge against the same baseline.
	if len(res.Conflicts) == 0 {
		if err := replaceBaseline(projectDir, incomingTmp, incomingFiles); err != nil {
			return nil, errs.Wrap(errs.ETemplateRender, "refresh merge baseline", err)
		}
		st.Ref = newRef
		if newCommit != "" {
			st.Commit = newCommit
		}
		st.AppliedAt = nowFunc()
		if err := SaveState(projectDir, st); err != nil {
			return nil, errs.Wrap(errs.ETemplateRender, "record template state", err)
		}
	}

	return res, nil
}

// snapshotBaseline copies freshly rendered files into the baseline directory.
func snapshotBaseline(projectDir string, files []string) error {
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(projectDir, rel))
		if err != nil {
			return err
		}
		if err := writeFileMkdir(filepath.Join(projectDir, baselineDir, rel), data); err != nil {
			return err
		}
	}
	return nil
}

// replaceBaseline swaps the baseline for the given render.
func replaceBaseline(projectDir, renderDir string, files []string) error {
	dst := filepath.Join(projectDir, baselineDir)
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(renderDir, rel))
		if err != nil {
			return err
		}
		if err := writeFileMkdir(filepath.Join(dst, rel), data); err != nil {
			return err
		}
	}
	return nil
}

// renderTree renders every file under srcDir into dstDir, templating both
// paths and contents. The .git directory and statproj state are skipped.
// Returns the rendered relative paths, sorted.
func renderTree(srcDir, dstDir string, tc Context) ([]string, error) {
	var files []string

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || rel == ".statproj" {
				return filepath.SkipDir
			}
			return nil
		}
		if rel == filepath.FromSlash(StateFile) {
			return nil
		}

		outRel, err := renderString(rel, rel, tc)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rendered, err := renderString(rel, string(data), tc)
		if err != nil {
			return err
		}
		if err := writeFileMkdir(filepath.Join(dstDir, outRel), []byte(rendered)); err != nil {
			return err
		}
		files = append(files, outRel)
		return nil
	})
	if err != nil {
		var ce *errs.Error
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ETemplateRender, "render template tree", err)
	}

	sort.Strings(files)
	return files, nil
}

// renderString executes one template body. Missing context variables are an
// error: a half-rendered project is worse than a failed create.
func renderString(name, body string, tc Context) (string, error) {
	tmpl, err := texttemplate.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return "", errs.Wrap(errs.ETemplateRender, fmt.Sprintf("parse %s", name), err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, tc); err != nil {
		return "", errs.Wrap(errs.ETemplateRender, fmt.Sprintf("render %s", name), err)
	}
	return sb.String(), nil
}

func writeFileMkdir(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
