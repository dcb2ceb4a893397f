// Package provision creates and maintains the Python environment behind a
// project: the Poetry virtualenv, the lock file and the Jupyter kernel.
package provision

import (
	"context"
	"strings"

	"statproj/internal/errs"
	"statproj/internal/shell"
)

// Manager abstracts the environment tooling so the provisioning flow can be
// tested without poetry or jupyter installed.
type Manager interface {
	// Lock resolves dependencies and writes poetry.lock.
	Lock(ctx context.Context, projectDir string) error
	// Install materializes the virtualenv from the lock file.
	Install(ctx context.Context, projectDir string) error
	// EnvPath returns the virtualenv directory for the project.
	EnvPath(ctx context.Context, projectDir string) (string, error)
	// RegisterKernel installs a user-level Jupyter kernel for the project env.
	RegisterKernel(ctx context.Context, projectDir, name string) error
	// RemoveKernel deletes the named Jupyter kernel spec.
	RemoveKernel(ctx context.Context, name string) error
	// KernelDir returns the resource directory of an installed kernel.
	KernelDir(ctx context.Context, name string) (string, error)
	// Upgrade bumps dependencies to their latest compatible versions.
	Upgrade(ctx context.Context, projectDir string) error
}

// PoetryManager is the production Manager. All work is shelled out through
// the Runner port.
type PoetryManager struct {
	runner shell.Runner
}

func NewPoetryManager(runner shell.Runner) *PoetryManager {
	return &PoetryManager{runner: runner}
}

func (m *PoetryManager) Lock(ctx context.Context, projectDir string) error {
	res, err := m.runner.Run(ctx, "poetry", []string{"lock"}, shell.Opts{Dir: projectDir})
	if err != nil {
		return errs.Wrap(errs.EDependencyResolution, "run poetry lock", err)
	}
	if res.ExitCode != 0 {
		return errs.WithHint(
			errs.Newf(errs.EDependencyResolution, "poetry lock failed: %s", tail(res.Stderr)),
			"fix the dependency constraints in pyproject.toml and re-run build")
	}
	return nil
}

func (m *PoetryManager) Install(ctx context.Context, projectDir string) error {
	res, err := m.runner.Run(ctx, "poetry", []string{"install"}, shell.Opts{Dir: projectDir})
	if err != nil {
		return errs.Wrap(errs.EEnvCreate, "run poetry install", err)
	}
	if res.ExitCode != 0 {
		return errs.Newf(errs.EEnvCreate, "poetry install failed: %s", tail(res.Stderr))
	}
	return nil
}

func (m *PoetryManager) EnvPath(ctx context.Context, projectDir string) (string, error) {
	res, err := m.runner.Run(ctx, "poetry", []string{"env", "info", "--path"}, shell.Opts{Dir: projectDir})
	if err != nil {
		return "", errs.Wrap(errs.EEnvCreate, "run poetry env info", err)
	}
	if res.ExitCode != 0 {
		return "", errs.Newf(errs.EEnvCreate, "poetry env info failed: %s", tail(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (m *PoetryManager) RegisterKernel(ctx context.Context, projectDir, name string) error {
	args := []string{"run", "python3", "-m", "ipykernel", "install", "--user", "--name", name}
	res, err := m.runner.Run(ctx, "poetry", args, shell.Opts{Dir: projectDir})
	if err != nil {
		return errs.Wrap(errs.EKernelRegistration, "run ipykernel install", err)
	}
	if res.ExitCode != 0 {
		return errs.WithHint(
			errs.Newf(errs.EKernelRegistration, "ipykernel install failed: %s", tail(res.Stderr)),
			"the environment is ready; re-run build to retry kernel registration")
	}
	return nil
}

func (m *PoetryManager) RemoveKernel(ctx context.Context, name string) error {
	res, err := m.runner.Run(ctx, "jupyter", []string{"kernelspec", "remove", "-f", name}, shell.Opts{})
	if err != nil {
		return errs.Wrap(errs.EKernelRegistration, "run jupyter kernelspec remove", err)
	}
	if res.ExitCode != 0 {
		return errs.Newf(errs.EKernelRegistration, "kernelspec remove failed: %s", tail(res.Stderr))
	}
	return nil
}

func (m *PoetryManager) KernelDir(ctx context.Context, name string) (string, error) {
	kernels, err := m.kernels(ctx)
	if err != nil {
		return "", err
	}
	dir, ok := kernels[name]
	if !ok {
		return "", errs.Newf(errs.EKernelRegistration, "kernel %q is not installed", name)
	}
	return dir, nil
}

func (m *PoetryManager) Upgrade(ctx context.Context, projectDir string) error {
	res, err := m.runner.Run(ctx, "poetry", []string{"update"}, shell.Opts{Dir: projectDir})
	if err != nil {
		return errs.Wrap(errs.EDependencyResolution, "run poetry update", err)
	}
	if res.ExitCode != 0 {
		return errs.Newf(errs.EDependencyResolution, "poetry update failed: %s", tail(res.Stderr))
	}
	return nil
}

// kernels parses "jupyter kernelspec list" into name -> resource directory.
func (m *PoetryManager) kernels(ctx context.Context) (map[string]string, error) {
	res, err := m.runner.Run(ctx, "jupyter", []string{"kernelspec", "list"}, shell.Opts{})
	if err != nil {
		return nil, errs.Wrap(errs.EKernelRegistration, "run jupyter kernelspec list", err)
	}
	if res.ExitCode != 0 {
		return nil, errs.Newf(errs.EKernelRegistration, "kernelspec list failed: %s", tail(res.Stderr))
	}

	kernels := map[string]string{}
	lines := strings.Split(res.Stdout, "\n")
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[0] == "Available" {
			continue
		}
		kernels[fields[0]] = fields[1]
	}
	return kernels, nil
}

// tail returns the last few lines of tool output for error messages. Resolver
// errors tend to end with the useful part.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(no output)"
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " / ")
}
