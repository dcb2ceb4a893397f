package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"statproj/internal/errs"
)

// startScriptName is the wrapper installed next to kernel.json. Jupyter
// launches kernels outside a login shell, so proxy settings and module loads
// from ~/.bashrc are invisible to notebooks unless the kernel sources it
// first.
const startScriptName = "python.sh"

var pythonArgvRe = regexp.MustCompile(`^.*(?:/python3|/python|/python\.sh)$`)

// AttachLoginShell rewrites an installed kernel spec so the interpreter is
// started through a wrapper that sources ~/.bashrc. Calling it on an already
// wrapped kernel is a no-op.
func AttachLoginShell(kernelDir string) error {
	specPath := filepath.Join(kernelDir, "kernel.json")
	data, err := os.ReadFile(specPath)
	if err != nil {
		return errs.Wrap(errs.EKernelRegistration, "read kernel spec", err)
	}

	var spec map[string]any
	if err := json.Unmarshal(data, &spec); err != nil {
		return errs.Wrap(errs.EKernelRegistration, "parse kernel spec", err)
	}

	argv, ok := spec["argv"].([]any)
	if !ok {
		return errs.New(errs.EKernelRegistration, "kernel spec has no argv")
	}
	python := findPythonArg(argv)
	if python == "" {
		return errs.Newf(errs.EKernelRegistration, "no python executable in %s", specPath)
	}
	if filepath.Base(python) == startScriptName {
		return nil
	}

	scriptPath := filepath.Join(kernelDir, startScriptName)
	// "$@" keeps arguments intact; the connection file path may contain spaces.
	script := fmt.Sprintf("#!/usr/bin/env bash\nsource $HOME/.bashrc\nexec %s \"$@\"\n", python)
	// rx for everyone: jupyterlab runs the script as the notebook user.
	if err := os.WriteFile(scriptPath, []byte(script), 0o555); err != nil {
		return errs.Wrap(errs.EKernelRegistration, "write kernel start script", err)
	}

	spec["argv"] = []string{scriptPath, "-m", "ipykernel_launcher", "-f", "{connection_file}"}
	out, err := json.MarshalIndent(spec, "", " ")
	if err != nil {
		return errs.Wrap(errs.EKernelRegistration, "encode kernel spec", err)
	}
	if err := os.WriteFile(specPath, out, 0o644); err != nil {
		return errs.Wrap(errs.EKernelRegistration, "write kernel spec", err)
	}
	return nil
}

func findPythonArg(argv []any) string {
	for _, a := range argv {
		s, ok := a.(string)
		if ok && pythonArgvRe.MatchString(s) {
			return s
		}
	}
	return ""
}
