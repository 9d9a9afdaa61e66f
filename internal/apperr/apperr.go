// Package apperr models the error kinds the orchestrator and CLI need to
// distinguish, following Go's errors.Is/errors.As idiom rather than a typed
// exception hierarchy.
package apperr

import "errors"

// Sentinel kinds. Wrap these with fmt.Errorf("...: %w", ErrXxx) at the call
// site so errors.Is still matches while the message carries detail.
var (
	ErrInvalidPlan     = errors.New("invalid plan configuration")
	ErrInvalidTarget   = errors.New("invalid target configuration")
	ErrConnectFailed   = errors.New("failed to connect to target")
	ErrStreamError     = errors.New("ext_proc stream error")
	ErrStageAborted    = errors.New("stage aborted")
	ErrSinkFailure     = errors.New("failed to write stage artifact")
	ErrCancelled       = errors.New("run cancelled")
	ErrCollectorClosed = errors.New("collector already drained")
)

// ExitCode maps an error returned from a run to the process exit code
// described in the external interfaces: 0 on success, 1 for stage-level
// failures that still produced partial artifacts, 2 for configuration and
// target-URI errors caught before any dial attempt, 3 for connect
// failures on an otherwise well-formed target.
//
// A run cancelled mid-sweep is not by itself a failure: the orchestrator
// returns nil when every attempted stage produced its artifact, so there
// is no separate ErrCancelled case here. Cancellation that left a stage's
// artifact unwritten surfaces as the underlying ErrSinkFailure instead.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidPlan):
		return 2
	case errors.Is(err, ErrInvalidTarget):
		return 2
	case errors.Is(err, ErrConnectFailed):
		return 3
	default:
		return 1
	}
}
