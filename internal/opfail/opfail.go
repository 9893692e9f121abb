// Package opfail implements the tagged operation-failure taxonomy every
// mediated action in the core returns instead of a bare error.
package opfail

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
)

// Failure codes from the error handling design (spec §7).
const (
	PathTraversal     = "PATH_TRAVERSAL"
	PolicyDeny        = "POLICY_DENY"
	RequireApproval   = "REQUIRE_APPROVAL"
	InvalidTransition = "INVALID_TRANSITION"
	MissingManifest       = "MISSING_MANIFEST"
	ExpiredManifest       = "EXPIRED_MANIFEST"
	ConflictDetected      = "CONFLICT_DETECTED"
	ValidationError       = "VALIDATION_ERROR"
	ValidationWarning     = "VALIDATION_WARNING"
	SummaryEnforcement    = "SUMMARY_ENFORCEMENT_FAILED"
	ConstitutionViolation = "CONSTITUTION_VIOLATION"
	ChainCorruption       = "CHAIN_CORRUPTION"
	IOError               = "IO_ERROR"
	InvalidArgument       = "INVALID_ARGUMENT"
	NotFound              = "NOT_FOUND"
	Unknown               = "UNKNOWN_FAILURE"

	defaultRemediation = "inspect the error details and retry after correcting inputs or state"
)

// Failure is the tagged error every fallible core operation returns.
type Failure struct {
	Code        string
	Stage       string
	Target      string
	Remediation string
	Err         error
}

func (f *Failure) Error() string {
	if f == nil || f.Err == nil {
		return ""
	}
	return strings.TrimSpace(f.Err.Error())
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// New builds a Failure wrapping err with taxonomy metadata.
func New(code, stage, target, remediation string, err error) error {
	return &Failure{
		Code:        strings.TrimSpace(code),
		Stage:       strings.TrimSpace(stage),
		Target:      strings.TrimSpace(target),
		Remediation: strings.TrimSpace(remediation),
		Err:         err,
	}
}

// Newf is a convenience constructor combining fmt.Errorf with New.
func Newf(code, stage, target, remediation, format string, args ...interface{}) error {
	return New(code, stage, target, remediation, fmt.Errorf(format, args...))
}

// As normalizes any error into a Failure, defaulting code/remediation for
// errors that didn't originate as one.
func As(err error) Failure {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		code := strings.TrimSpace(f.Code)
		if code == "" {
			code = Unknown
		}
		remediation := strings.TrimSpace(f.Remediation)
		if remediation == "" {
			remediation = defaultRemediation
		}
		return Failure{Code: code, Stage: f.Stage, Target: f.Target, Remediation: remediation, Err: f.Err}
	}
	message := strings.TrimSpace(errString(err))
	if message == "" {
		message = "unknown failure"
	}
	return Failure{Code: Unknown, Remediation: defaultRemediation, Err: errors.New(message)}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

// Report renders a failure to stderr (text) or stdout (JSON) and exits 1.
// It is the sole exit point for CLI-boundary fatal errors, mirroring every
// verb's uniform error rendering.
func Report(command string, jsonOut bool, err error) {
	f := As(err)
	message := errString(f.Err)
	if jsonOut {
		payload := map[string]any{
			"ok":      false,
			"command": command,
			"error": map[string]any{
				"code":        f.Code,
				"stage":       f.Stage,
				"target":      f.Target,
				"message":     message,
				"remediation": f.Remediation,
			},
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(payload)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, style.Error(fmt.Sprintf("[%s] %s", f.Code, message)))
	if strings.TrimSpace(f.Remediation) != "" {
		fmt.Fprintln(os.Stderr, style.Dim("hint: "+f.Remediation))
	}
	os.Exit(1)
}
