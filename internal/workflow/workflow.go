// Package workflow sequences the phases of each command: validation,
// template rendering, environment provisioning and publication. It owns the
// abort semantics: before provisioning a failed create removes the partial
// project directory, from provisioning on partial results stand.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"statproj/internal/errs"
	"statproj/internal/gitrepo"
	"statproj/internal/hosting"
	"statproj/internal/provision"
	"statproj/internal/report"
	"statproj/internal/template"
	"statproj/internal/validate"
)

// Phase is a stage of a command run.
type Phase string

const (
	PhaseValidating   Phase = "VALIDATING"
	PhaseTemplating   Phase = "TEMPLATING"
	PhaseProvisioning Phase = "PROVISIONING"
	PhasePublishing   Phase = "PUBLISHING"
	PhaseSummarizing  Phase = "SUMMARIZING"
	PhaseDone         Phase = "DONE"
	PhaseAborted      Phase = "ABORTED"
)

// Descriptor carries everything needed to create a project.
type Descriptor struct {
	Name        string
	Description string
	WorkDir     string

	TemplateURL string
	TemplateRef string

	AuthorName  string
	AuthorEmail string

	NoKernel bool

	AddRemote  bool
	Org        string
	Visibility string
	Token      string
	Grants     []hosting.TeamGrant
	Secrets    map[string]string
}

// TargetDir is where the project will be rendered.
func (d Descriptor) TargetDir() string {
	return filepath.Join(d.WorkDir, d.Name)
}

// environment is the provisioning surface the engine needs.
type environment interface {
	Provision(ctx context.Context, projectDir, projectName string, opts provision.Opts) (*provision.Outcome, error)
}

// remotePublisher is the publication surface the engine needs.
type remotePublisher interface {
	Publish(ctx context.Context, req hosting.Request) (*hosting.PublishResult, error)
}

// Engine runs the workflows.
type Engine struct {
	validator *validate.Validator
	templates template.Engine
	env       environment
	pub       remotePublisher
	resources validate.Probe
	log       *zap.Logger

	// initRepo is stubbed in tests.
	initRepo func(dir, authorName, authorEmail string) error

	phases []Phase
}

func NewEngine(v *validate.Validator, t template.Engine, env environment,
	pub remotePublisher, resources validate.Probe, log *zap.Logger) *Engine {
	return &Engine{
		validator: v,
		templates: t,
		env:       env,
		pub:       pub,
		resources: resources,
		log:       log,
		initRepo:  gitrepo.InitAndCommit,
	}
}

// Phases returns the phase transitions of the last run, in order.
func (e *Engine) Phases() []Phase {
	return e.phases
}

func (e *Engine) enter(p Phase) {
	e.phases = append(e.phases, p)
	e.log.Debug("phase", zap.String("phase", string(p)))
}

// Create runs the full project creation workflow. The returned summary always
// reflects everything that was attempted, also on failure.
func (e *Engine) Create(ctx context.Context, d Descriptor) (*report.Summary, error) {
	e.phases = nil
	sum := report.NewSummary()
	target := d.TargetDir()

	e.enter(PhaseValidating)
	tools := []string{"poetry"}
	if !d.NoKernel {
		tools = append(tools, "jupyter")
	}
	issues := e.validator.Validate(ctx, validate.Checks{
		RequiredTools:   tools,
		TargetDir:       target,
		RemoteRequested: d.AddRemote,
		Token:           d.Token,
		Resources:       e.resources,
	})
	if !hosting.ValidRepoName(d.Name) {
		issues = append(issues, validate.Issue{
			Code:    string(errs.EUsage),
			Message: fmt.Sprintf("invalid project name %q", d.Name),
			Hint:    "use at least 3 characters: letters, digits, hyphens and underscores",
		})
	}
	if len(issues) > 0 {
		for _, issue := range issues {
			sum.Add(report.StepResult{
				Name: "validate", Status: report.StatusFailed,
				Message: issue.Message, Hint: issue.Hint,
			})
		}
		e.enter(PhaseAborted)
		return sum, errs.WithHint(
			errs.Newf(errs.Code(issues[0].Code), "%s", issues[0].Message), issues[0].Hint)
	}
	sum.OK("validate", "all preflight checks passed")

	e.enter(PhaseTemplating)
	tctx := template.Context{
		"ProjectName": d.Name,
		"Description": d.Description,
		"FullName":    d.AuthorName,
		"Email":       d.AuthorEmail,
		"LicenseYear": strconv.Itoa(time.Now().Year()),
	}
	applied, err := e.templates.Apply(ctx, d.TemplateURL, d.TemplateRef, tctx, target)
	if err != nil {
		sum.Fail("template", err)
		e.abortCreate(target)
		return sum, err
	}
	sum.OK("template", fmt.Sprintf("rendered %d files from %s", len(applied.Files), d.TemplateURL))

	if err := e.initRepo(target, d.AuthorName, d.AuthorEmail); err != nil {
		sum.Fail("repository", err)
		e.abortCreate(target)
		return sum, err
	}
	sum.OK("repository", "initialized git repository on main")

	e.enter(PhaseProvisioning)
	out, err := e.env.Provision(ctx, target, d.Name, provision.Opts{NoKernel: d.NoKernel})
	if err != nil {
		sum.Fail("environment", err)
		e.summarize(sum)
		return sum, err
	}
	sum.OK("environment", "virtual environment at "+out.EnvPath)
	if d.NoKernel {
		sum.Skip("kernel", "kernel registration disabled")
	} else {
		sum.OK("kernel", "registered Jupyter kernel "+out.KernelName)
	}

	e.enter(PhasePublishing)
	if !d.AddRemote {
		sum.Skip("publish", "remote repository not requested")
	} else {
		res, err := e.pub.Publish(ctx, hosting.Request{
			ProjectDir:  target,
			Name:        d.Name,
			Description: d.Description,
			Visibility:  d.Visibility,
			Org:         d.Org,
			Grants:      d.Grants,
			Secrets:     d.Secrets,
			Token:       d.Token,
		})
		if err != nil {
			sum.Fail("publish", err)
			e.summarize(sum)
			return sum, err
		}
		for _, w := range res.Warnings {
			sum.Warn("publish", w)
		}
		sum.OK("publish", res.RepoURL)
	}

	e.summarize(sum)
	return sum, nil
}

// BuildOpts tunes a re-provisioning run.
type BuildOpts struct {
	NoKernel bool
	Force    bool
}

// Build re-provisions the environment of an existing project.
func (e *Engine) Build(ctx context.Context, dir string, opts BuildOpts) (*report.Summary, error) {
	e.phases = nil
	sum := report.NewSummary()

	e.enter(PhaseValidating)
	tools := []string{"poetry"}
	if !opts.NoKernel {
		tools = append(tools, "jupyter")
	}
	issues := e.validator.Validate(ctx, validate.Checks{
		RequiredTools: tools,
		ProjectDir:    dir,
		Resources:     e.resources,
	})
	if len(issues) > 0 {
		for _, issue := range issues {
			sum.Add(report.StepResult{
				Name: "validate", Status: report.StatusFailed,
				Message: issue.Message, Hint: issue.Hint,
			})
		}
		e.enter(PhaseAborted)
		return sum, errs.WithHint(
			errs.Newf(errs.Code(issues[0].Code), "%s", issues[0].Message), issues[0].Hint)
	}
	root, err := validate.FindProjectRoot(dir)
	if err != nil {
		e.enter(PhaseAborted)
		return sum, errs.Wrap(errs.ENoProject, "locate project root", err)
	}
	sum.OK("validate", "project found at "+root)

	e.enter(PhaseProvisioning)
	out, err := e.env.Provision(ctx, root, filepath.Base(root), provision.Opts{
		NoKernel: opts.NoKernel,
		Force:    opts.Force,
	})
	if err != nil {
		sum.Fail("environment", err)
		e.summarize(sum)
		return sum, err
	}
	if out.Skipped {
		sum.Skip("environment", "skipped, up to date")
	} else {
		sum.OK("environment", "virtual environment at "+out.EnvPath)
	}

	e.summarize(sum)
	return sum, nil
}

// UpdateTemplate re-applies the recorded template at ref (or the recorded ref
// when empty) onto an existing project. Conflicted files are written with
// markers and reported; the caller maps the error to exit code 3.
func (e *Engine) UpdateTemplate(ctx context.Context, dir, ref string) (*report.Summary, error) {
	e.phases = nil
	sum := report.NewSummary()

	e.enter(PhaseValidating)
	root, err := validate.FindProjectRoot(dir)
	if err != nil {
		e.enter(PhaseAborted)
		return sum, errs.WithHint(
			errs.Wrap(errs.ENoProject, "locate project root", err),
			"run update-template inside a project created by statproj")
	}
	if !template.HasState(root) {
		e.enter(PhaseAborted)
		return sum, errs.WithHint(
			errs.Newf(errs.ENoProject, "%s has no recorded template", root),
			"only projects created by this tool can be updated")
	}
	sum.OK("validate", "project found at "+root)

	e.enter(PhaseTemplating)
	res, err := e.templates.Reapply(ctx, root, ref)
	if err != nil {
		sum.Fail("template", err)
		e.summarize(sum)
		return sum, err
	}

	sum.OK("template", fmt.Sprintf("%d files updated, %d unchanged", len(res.Updated), res.Unchanged))
	if len(res.Conflicts) > 0 {
		for _, c := range res.Conflicts {
			sum.Warn("merge", fmt.Sprintf("%s: conflict at line %d", c.Path, c.Line))
		}
		e.summarize(sum)
		return sum, errs.WithHint(
			errs.Newf(errs.EMergeConflicts, "%d files need manual resolution", len(res.Conflicts)),
			"resolve the conflict markers and run update-template again")
	}

	e.summarize(sum)
	return sum, nil
}

func (e *Engine) summarize(sum *report.Summary) {
	e.enter(PhaseSummarizing)
	if sum.Failed() {
		return
	}
	e.enter(PhaseDone)
}

// abortCreate removes a partially rendered project directory. Only called
// before provisioning; later failures keep partial results.
func (e *Engine) abortCreate(target string) {
	e.enter(PhaseAborted)
	if err := os.RemoveAll(target); err != nil {
		e.log.Warn("could not remove partial project directory",
			zap.String("dir", target), zap.Error(err))
	}
}
