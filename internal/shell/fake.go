package shell

import (
	"context"
	"fmt"
	"strings"
)

// FakeRunner is a scripted Runner for tests. Responses are keyed by the
// command name plus arguments joined with spaces; the longest matching prefix
// wins, so a response for "poetry install" also matches
// "poetry install --no-root".
type FakeRunner struct {
	Responses map[string]Result
	Errors    map[string]error
	Missing   map[string]bool // binaries LookPath should report absent
	Calls     []string
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Responses: map[string]Result{},
		Errors:    map[string]error{},
		Missing:   map[string]bool{},
	}
}

func (f *FakeRunner) Run(ctx context.Context, name string, args []string, opts Opts) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	call := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.Calls = append(f.Calls, call)

	var best string
	for key := range f.Responses {
		if strings.HasPrefix(call, key) && len(key) > len(best) {
			best = key
		}
	}
	for key := range f.Errors {
		if strings.HasPrefix(call, key) && len(key) > len(best) {
			best = key
		}
	}
	if err, ok := f.Errors[best]; ok && best != "" {
		return Result{}, err
	}
	if res, ok := f.Responses[best]; ok && best != "" {
		return res, nil
	}
	return Result{}, nil
}

func (f *FakeRunner) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

// CalledWith reports whether any recorded call starts with the given prefix.
func (f *FakeRunner) CalledWith(prefix string) bool {
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
