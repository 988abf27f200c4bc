package types

// ProviderKind identifies which backend produced (or should produce) a
// generation.
type ProviderKind string

const (
	// ProviderOnDevice is the local model backend with strict input/output
	// size limits and no network dependency.
	ProviderOnDevice ProviderKind = "on_device"

	// ProviderCloud is the remote model backend, reached through the
	// cross-context bridge.
	ProviderCloud ProviderKind = "cloud"
)

// Availability describes the readiness of a provider backend.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
	AvailabilityDownloading Availability = "downloading" // model weights still being fetched
)

// StrategyKind identifies the structured-output generation strategy used for
// a request.
type StrategyKind string

const (
	// StrategyNativeConstrained passes the response schema to the provider
	// as a generation constraint.
	StrategyNativeConstrained StrategyKind = "native_constrained"

	// StrategyPromptEngineered embeds a compact shape description in the
	// prompt and repairs the free-text output afterwards.
	StrategyPromptEngineered StrategyKind = "prompt_engineered"
)

// GenerationRequest carries the incremental conversational state for one
// turn, plus an optional response schema. System and schema instructions are
// NOT part of the request; they are captured once at session creation.
type GenerationRequest struct {
	// Incremental is the new state text for this turn (page snapshot,
	// step results, user intent delta).
	Incremental string

	// SchemaName names the response schema, when one is required. The
	// session resolves it against its descriptor set; an empty name means
	// free-text generation.
	SchemaName string
}

// GenerationResponse carries the raw text a strategy produced, which strategy
// actually ran, and whether the repair pipeline had to touch the output.
type GenerationResponse struct {
	// Text is the raw (post-repair, pre-decode) output text.
	Text string

	// Strategy is the strategy that produced Text. It may differ from the
	// originally selected strategy when a fallback occurred.
	Strategy StrategyKind

	// Provider is the backend that served the request. It may differ from
	// the session's original provider after a failover.
	Provider ProviderKind

	// Repaired reports whether the repair pipeline modified the output
	// before it parsed.
	Repaired bool
}
