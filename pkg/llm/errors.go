package llm

import (
	"errors"
	"fmt"
)

// Error taxonomy for inference routing. Provider-level errors trigger router
// failover and stay invisible to the executor unless both providers are
// exhausted. Output-level errors trigger a strategy switch or one bounded
// retry within the same provider before surfacing.
var (
	// ErrProviderUnavailable means the backend cannot take requests at all
	// (probe failed, process gone, network down).
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrGenerationTruncated means the provider cut output short or
	// rejected a native constraint past its capacity ceiling. This is a
	// capacity boundary, not a bug: never retry the identical request.
	ErrGenerationTruncated = errors.New("generation truncated")

	// ErrSchemaViolation means output parsed as JSON but fails validation
	// against the real schema.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrRepairFailed means no repair pass could recover parseable text.
	ErrRepairFailed = errors.New("repair failed")

	// ErrActionInvalid means an action instance had zero or undefined keys.
	ErrActionInvalid = errors.New("action invalid")

	// ErrInputTooLarge means the request exceeds the provider's input
	// budget.
	ErrInputTooLarge = errors.New("input too large")

	// ErrBridgeTimeout means the cross-context bridge did not answer within
	// its deadline. Treated as a provider failure.
	ErrBridgeTimeout = errors.New("bridge timeout")

	// ErrAllProvidersExhausted means failover ran out of providers. Fatal;
	// surfaces to the user with the last underlying error retained.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)

// IsProviderLevel reports whether err warrants failing over to the alternate
// provider. Request-level failures (the schema not matching the actual data,
// unrecoverable output) are excluded: retrying them elsewhere won't help.
func IsProviderLevel(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrInputTooLarge) ||
		errors.Is(err, ErrBridgeTimeout)
}

// IsOutputLevel reports whether err describes unusable output from an
// otherwise healthy provider, warranting a strategy switch or one bounded
// same-provider retry.
func IsOutputLevel(err error) bool {
	return errors.Is(err, ErrGenerationTruncated) ||
		errors.Is(err, ErrRepairFailed) ||
		errors.Is(err, ErrSchemaViolation)
}

// ExhaustedError wraps the last provider error once failover has nowhere
// left to go, so diagnostics keep the original cause.
type ExhaustedError struct {
	Last error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return ErrAllProvidersExhausted.Error()
	}
	return fmt.Sprintf("%v: last error: %v", ErrAllProvidersExhausted, e.Last)
}

// Is makes errors.Is(err, ErrAllProvidersExhausted) hold.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// Unwrap exposes the last underlying provider error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
