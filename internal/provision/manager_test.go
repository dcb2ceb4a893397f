package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statproj/internal/errs"
	"statproj/internal/shell"
)

func TestPoetryManagerInstall(t *testing.T) {
	runner := shell.NewFakeRunner()
	mgr := NewPoetryManager(runner)

	require.NoError(t, mgr.Install(context.Background(), "/work/demo"))
	assert.True(t, runner.CalledWith("poetry install"))
}

func TestPoetryManagerInstallFailure(t *testing.T) {
	runner := shell.NewFakeRunner()
	runner.Responses["poetry install"] = shell.Result{
		Stderr:   "The current project could not be installed: no build system",
		ExitCode: 1,
	}
	mgr := NewPoetryManager(runner)

	err := mgr.Install(context.Background(), "/work/demo")
	require.Error(t, err)
	assert.Equal(t, errs.EEnvCreate, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "no build system")
}

func TestPoetryManagerLockFailureCarriesResolverOutput(t *testing.T) {
	runner := shell.NewFakeRunner()
	runner.Responses["poetry lock"] = shell.Result{
		Stderr:   "SolverProblemError\nBecause demo depends on pandas (^3.0) which doesn't match any versions",
		ExitCode: 1,
	}
	mgr := NewPoetryManager(runner)

	err := mgr.Lock(context.Background(), "/work/demo")
	require.Error(t, err)
	assert.Equal(t, errs.EDependencyResolution, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "pandas")
	assert.NotEmpty(t, errs.HintOf(err))
}

func TestPoetryManagerEnvPath(t *testing.T) {
	runner := shell.NewFakeRunner()
	runner.Responses["poetry env info --path"] = shell.Result{Stdout: "/home/user/.venvs/demo-abc123\n"}
	mgr := NewPoetryManager(runner)

	path, err := mgr.EnvPath(context.Background(), "/work/demo")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/.venvs/demo-abc123", path)
}

func TestPoetryManagerRegisterKernel(t *testing.T) {
	runner := shell.NewFakeRunner()
	mgr := NewPoetryManager(runner)

	require.NoError(t, mgr.RegisterKernel(context.Background(), "/work/demo", "demo-project"))
	assert.True(t, runner.CalledWith("poetry run python3 -m ipykernel install --user --name demo-project"))
}

func TestPoetryManagerRegisterKernelFailureIsRetryable(t *testing.T) {
	runner := shell.NewFakeRunner()
	runner.Responses["poetry run python3 -m ipykernel install"] = shell.Result{
		Stderr: "ModuleNotFoundError: No module named 'ipykernel'", ExitCode: 1,
	}
	mgr := NewPoetryManager(runner)

	err := mgr.RegisterKernel(context.Background(), "/work/demo", "demo-project")
	require.Error(t, err)
	assert.Equal(t, errs.EKernelRegistration, errs.CodeOf(err))
	assert.Contains(t, errs.HintOf(err), "re-run build")
}

func TestPoetryManagerKernelDirParsesList(t *testing.T) {
	runner := shell.NewFakeRunner()
	runner.Responses["jupyter kernelspec list"] = shell.Result{Stdout: `Available kernels:
  python3        /usr/share/jupyter/kernels/python3
  demo-project   /home/user/.local/share/jupyter/kernels/demo-project
`}
	mgr := NewPoetryManager(runner)

	dir, err := mgr.KernelDir(context.Background(), "demo-project")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/.local/share/jupyter/kernels/demo-project", dir)

	_, err = mgr.KernelDir(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errs.EKernelRegistration, errs.CodeOf(err))
}

func TestPoetryManagerRemoveKernel(t *testing.T) {
	runner := shell.NewFakeRunner()
	mgr := NewPoetryManager(runner)

	require.NoError(t, mgr.RemoveKernel(context.Background(), "demo-project"))
	assert.True(t, runner.CalledWith("jupyter kernelspec remove -f demo-project"))
}

func TestPoetryManagerUpgrade(t *testing.T) {
	runner := shell.NewFakeRunner()
	mgr := NewPoetryManager(runner)

	require.NoError(t, mgr.Upgrade(context.Background(), "/work/demo"))
	assert.True(t, runner.CalledWith("poetry update"))
}
