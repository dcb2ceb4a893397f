// Package errs defines the stable error code system for statproj.
//
// Components report failures as coded errors instead of terminating the
// process; the workflow orchestrator decides fatality and the CLI maps the
// code to an exit status and a user-facing hint.
package errs

import (
	"errors"
	"fmt"
)

// Code is a stable error code string.
type Code string

const (
	EUsage      Code = "E_USAGE"
	EUnexpected Code = "E_UNEXPECTED"

	// Precondition / validation codes. Raised before anything is mutated.
	EPrecondition    Code = "E_PRECONDITION"
	EToolMissing     Code = "E_TOOL_MISSING"
	ENoProject       Code = "E_NO_PROJECT"
	ETokenMissing    Code = "E_TOKEN_MISSING"
	EResourcePressed Code = "E_RESOURCE_PRESSURE"

	// Template codes.
	ETemplateFetch  Code = "E_TEMPLATE_FETCH"
	ETemplateRender Code = "E_TEMPLATE_RENDER"
	ETargetConflict Code = "E_TARGET_CONFLICT"
	EMergeConflicts Code = "E_MERGE_CONFLICTS"

	// Provisioning codes.
	EDependencyResolution Code = "E_DEPENDENCY_RESOLUTION"
	EEnvCreate            Code = "E_ENV_CREATE"
	EKernelRegistration   Code = "E_KERNEL_REGISTRATION"

	// Publication codes.
	ERepoExists   Code = "E_REPO_EXISTS"
	EPermission   Code = "E_PERMISSION"
	EPush         Code = "E_PUSH"
	EProtection   Code = "E_PROTECTION"
	EGrant        Code = "E_GRANT"
	ESecretConfig Code = "E_SECRET_CONFIG"
)

// Error is the standard coded error type.
type Error struct {
	Code  Code
	Msg   string
	Cause error
	Hint  string // actionable next step shown in the summary table
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error wrapping an underlying cause.
func Wrap(code Code, msg string, err error) error {
	return &Error{Code: code, Msg: msg, Cause: err}
}

// WithHint attaches an actionable hint to a coded error. Non-coded errors are
// first wrapped as E_UNEXPECTED.
func WithHint(err error, hint string) error {
	var ce *Error
	if errors.As(err, &ce) {
		cp := *ce
		cp.Hint = hint
		return &cp
	}
	return &Error{Code: EUnexpected, Msg: err.Error(), Cause: err, Hint: hint}
}

// CodeOf extracts the code from err, or E_UNEXPECTED for uncoded errors.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return EUnexpected
}

// HintOf returns the attached hint, if any.
func HintOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Hint
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// ExitCode maps an error to the process exit status: 0 for nil, 2 for usage
// errors, 3 for merge conflicts awaiting manual resolution, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case EUsage:
		return 2
	case EMergeConflicts:
		return 3
	default:
		return 1
	}
}
