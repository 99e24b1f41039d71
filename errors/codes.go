// Package errors provides the error model for upload orchestration.
//
// Every failure carries a Kind so callers can tell a precondition failure
// from a downstream store failure without string matching.
package errors

// Kind classifies an upload orchestration failure.
// Kinds are string-based for debuggability and natural JSON serialization.
type Kind string

const (
	// KindInvalidInput indicates caller-supplied data violates a precondition.
	// Recoverable by correcting the input; never retried.
	KindInvalidInput Kind = "INVALID_INPUT"

	// KindPlanning indicates no chunk size satisfies the size, part-count and
	// ceiling constraints for a file under the current configuration.
	KindPlanning Kind = "PLANNING_FAILED"

	// KindProtocol indicates the object store rejected a request or returned
	// a malformed response.
	KindProtocol Kind = "PROTOCOL_ERROR"

	// KindCleanup indicates an abort did not succeed. It is advisory.
	KindCleanup Kind = "CLEANUP_FAILED"

	// KindInvalidConfig indicates the orchestrator or a store was configured
	// with inconsistent values.
	KindInvalidConfig Kind = "INVALID_CONFIGURATION"

	// KindNotImplemented indicates the store does not support the capability.
	KindNotImplemented Kind = "NOT_IMPLEMENTED"

	// KindInternal indicates an unexpected internal failure.
	KindInternal Kind = "INTERNAL_ERROR"
)

// String returns the kind code.
func (k Kind) String() string {
	return string(k)
}
