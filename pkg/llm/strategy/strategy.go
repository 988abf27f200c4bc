package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/llm/repair"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// Generator is one way of producing raw text believed to satisfy a schema.
type Generator interface {
	// Kind identifies the strategy for cache bookkeeping and diagnostics.
	Kind() types.StrategyKind

	// Generate runs the strategy for one turn on the given provider
	// session. It returns the raw text and whether the repair pipeline was
	// applied. Output-level failures (truncation, repair failure, schema
	// violation) are returned typed so the caller can fall back.
	Generate(ctx context.Context, sess llm.ProviderSession, prompt, schemaName string, sch *schema.Schema) (string, bool, error)
}

// NativeConstrained passes the (simplified) schema to the provider as a
// generation constraint. When the provider accepts the constraint the output
// is syntactically valid by construction; past a provider-specific capacity
// ceiling the provider silently truncates or rejects, which surfaces here as
// ErrGenerationTruncated and must never be retried identically.
type NativeConstrained struct {
	// SimplifyOpts tunes the constraint-shrinking pass. Simplification
	// never prunes union-like schemas (see schema.Simplify).
	SimplifyOpts schema.SimplifyOptions
}

// Kind implements Generator.
func (n *NativeConstrained) Kind() types.StrategyKind {
	return types.StrategyNativeConstrained
}

// Generate implements Generator.
func (n *NativeConstrained) Generate(ctx context.Context, sess llm.ProviderSession, prompt, schemaName string, sch *schema.Schema) (string, bool, error) {
	constraint := schema.Simplify(sch, n.SimplifyOpts)

	text, err := sess.Generate(ctx, prompt, constraint)
	if err != nil {
		return "", false, err
	}

	// A constrained provider returning unparseable text hit its capacity
	// boundary mid-output.
	if !json.Valid([]byte(text)) {
		return "", false, fmt.Errorf("%w: constrained output did not parse", llm.ErrGenerationTruncated)
	}

	if err := schema.Check(sch, json.RawMessage(text)); err != nil {
		return "", false, fmt.Errorf("%w: %v", llm.ErrSchemaViolation, err)
	}

	return text, false, nil
}

// PromptEngineered requests free text, relying on the compact shape guide
// cached in the session instructions plus a one-line per-turn directive, and
// routes the output through the repair pipeline before validating it against
// the real schema.
type PromptEngineered struct{}

// Kind implements Generator.
func (p *PromptEngineered) Kind() types.StrategyKind {
	return types.StrategyPromptEngineered
}

// Generate implements Generator.
func (p *PromptEngineered) Generate(ctx context.Context, sess llm.ProviderSession, prompt, schemaName string, sch *schema.Schema) (string, bool, error) {
	turnPrompt := prompt
	if schemaName != "" {
		turnPrompt = prompt + "\n\n" + Directive(schemaName)
	}

	text, err := sess.Generate(ctx, turnPrompt, nil)
	if err != nil {
		return "", false, err
	}

	result, err := repair.Repair(text)
	if err != nil {
		return "", false, err
	}

	if sch != nil {
		if err := schema.Check(sch, json.RawMessage(result.Text)); err != nil {
			return "", result.Repaired, fmt.Errorf("%w: %v", llm.ErrSchemaViolation, err)
		}
	}

	return result.Text, result.Repaired, nil
}
