package strategy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

// fakeSession scripts provider responses and records what was asked of it.
type fakeSession struct {
	responses []string
	errs      []error
	prompts   []string
	schemas   []*schema.Schema
	calls     int
}

func (f *fakeSession) Generate(_ context.Context, prompt string, constraint *schema.Schema) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.schemas = append(f.schemas, constraint)
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", errors.New("fake session: no scripted response")
}

func (f *fakeSession) Close() error { return nil }

func planSchema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"next_goal": schema.String("what to do next"),
		"done":      schema.Boolean(""),
	}, "next_goal")
}

func TestNativeConstrained(t *testing.T) {
	sch := planSchema()

	t.Run("PassesConstraintToProvider", func(t *testing.T) {
		sess := &fakeSession{responses: []string{`{"next_goal":"log in","done":false}`}}
		gen := &NativeConstrained{}

		text, repaired, err := gen.Generate(context.Background(), sess, "state", "plan", sch)
		require.NoError(t, err)
		assert.Equal(t, `{"next_goal":"log in","done":false}`, text)
		assert.False(t, repaired)
		require.NotNil(t, sess.schemas[0], "native strategy must send a constraint")
	})

	t.Run("TruncatedOutputIsTyped", func(t *testing.T) {
		sess := &fakeSession{responses: []string{`{"next_goal":"log`}}
		gen := &NativeConstrained{}

		_, _, err := gen.Generate(context.Background(), sess, "state", "plan", sch)
		assert.True(t, errors.Is(err, llm.ErrGenerationTruncated))
	})

	t.Run("ValidJSONWrongShapeIsViolation", func(t *testing.T) {
		sess := &fakeSession{responses: []string{`{"unrelated":true}`}}
		gen := &NativeConstrained{}

		_, _, err := gen.Generate(context.Background(), sess, "state", "plan", sch)
		assert.True(t, errors.Is(err, llm.ErrSchemaViolation))
	})

	t.Run("ConstraintIsSimplifiedCopy", func(t *testing.T) {
		rich := planSchema()
		rich.Properties["next_goal"].Description = "verbose description"
		sess := &fakeSession{responses: []string{`{"next_goal":"x"}`}}
		gen := &NativeConstrained{}

		_, _, err := gen.Generate(context.Background(), sess, "state", "plan", rich)
		require.NoError(t, err)
		assert.Empty(t, sess.schemas[0].Properties["next_goal"].Description)
		assert.Equal(t, "verbose description", rich.Properties["next_goal"].Description, "caller schema untouched")
	})
}

func TestPromptEngineered(t *testing.T) {
	sch := planSchema()

	t.Run("RepairsFencedOutput", func(t *testing.T) {
		sess := &fakeSession{responses: []string{"```json\n{\"next_goal\":\"submit\"}\n```"}}
		gen := &PromptEngineered{}

		text, repaired, err := gen.Generate(context.Background(), sess, "state", "plan", sch)
		require.NoError(t, err)
		assert.Equal(t, `{"next_goal":"submit"}`, text)
		assert.True(t, repaired)
	})

	t.Run("NeverSendsConstraint", func(t *testing.T) {
		sess := &fakeSession{responses: []string{`{"next_goal":"x"}`}}
		gen := &PromptEngineered{}

		_, _, err := gen.Generate(context.Background(), sess, "state", "plan", sch)
		require.NoError(t, err)
		assert.Nil(t, sess.schemas[0])
	})

	t.Run("AppendsShapeDirective", func(t *testing.T) {
		sess := &fakeSession{responses: []string{`{"next_goal":"x"}`}}
		gen := &PromptEngineered{}

		_, _, err := gen.Generate(context.Background(), sess, "page state", "plan", sch)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sess.prompts[0], "page state"))
		assert.Contains(t, sess.prompts[0], Directive("plan"))
	})

	t.Run("UnrecoverableOutputIsTyped", func(t *testing.T) {
		sess := &fakeSession{responses: []string{"sorry, I cannot help with that"}}
		gen := &PromptEngineered{}

		_, _, err := gen.Generate(context.Background(), sess, "state", "plan", sch)
		assert.True(t, errors.Is(err, llm.ErrRepairFailed))
	})
}

func TestSelectorPlan(t *testing.T) {
	cache := NewCache()
	sel := NewSelector(cache, SelectorOptions{ComplexityThreshold: 10})

	simple := schema.Estimate(schema.Object(map[string]*schema.Schema{
		"done": schema.Boolean(""),
	}, "done"), schema.EstimatorOptions{})

	complexDesc := schema.Descriptor{Hash: "deadbeef", ComplexityScore: 500}

	t.Run("SimpleSchemaTriesNativeFirst", func(t *testing.T) {
		plan := sel.Plan(simple)
		require.Len(t, plan, 2)
		assert.Equal(t, types.StrategyNativeConstrained, plan[0].Kind())
		assert.Equal(t, types.StrategyPromptEngineered, plan[1].Kind())
	})

	t.Run("ComplexSchemaSkipsNativeEntirely", func(t *testing.T) {
		plan := sel.Plan(complexDesc)
		require.Len(t, plan, 1)
		assert.Equal(t, types.StrategyPromptEngineered, plan[0].Kind())
	})

	t.Run("CachedPreferenceLeads", func(t *testing.T) {
		sel.Record(complexDesc, types.StrategyNativeConstrained, true)
		plan := sel.Plan(complexDesc)
		require.Len(t, plan, 2)
		assert.Equal(t, types.StrategyNativeConstrained, plan[0].Kind())
	})

	t.Run("FailureClearsPreference", func(t *testing.T) {
		sel.Record(complexDesc, types.StrategyNativeConstrained, false)
		plan := sel.Plan(complexDesc)
		require.Len(t, plan, 1)
		assert.Equal(t, types.StrategyPromptEngineered, plan[0].Kind())
	})
}

func TestCache(t *testing.T) {
	t.Run("EmptyLookup", func(t *testing.T) {
		c := NewCache()
		_, ok := c.Lookup("missing")
		assert.False(t, ok)
	})

	t.Run("SuccessInstallsPreference", func(t *testing.T) {
		c := NewCache()
		c.Record("h", types.StrategyPromptEngineered, true)
		got, ok := c.Lookup("h")
		require.True(t, ok)
		assert.Equal(t, types.StrategyPromptEngineered, got)
		assert.Equal(t, 1, c.Stats("h").SuccessCount)
	})

	t.Run("ForeignFailureKeepsPreference", func(t *testing.T) {
		c := NewCache()
		c.Record("h", types.StrategyPromptEngineered, true)
		c.Record("h", types.StrategyNativeConstrained, false)
		got, ok := c.Lookup("h")
		require.True(t, ok)
		assert.Equal(t, types.StrategyPromptEngineered, got)
	})

	t.Run("ConcurrentWritersDoNotCorrupt", func(t *testing.T) {
		c := NewCache()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				kind := types.StrategyNativeConstrained
				if i%2 == 0 {
					kind = types.StrategyPromptEngineered
				}
				for j := 0; j < 100; j++ {
					c.Record("shared", kind, j%3 != 0)
					c.Lookup("shared")
				}
			}(i)
		}
		wg.Wait()

		// Advisory last-writer-wins: the surviving value just has to be
		// one of the two strategies, or cleared.
		stats := c.Stats("shared")
		assert.Equal(t, 16*100, stats.SuccessCount+stats.FailureCount)
	})
}

func TestGuide(t *testing.T) {
	t.Run("UnionGuideShowsOneKeyRule", func(t *testing.T) {
		catalogue := schema.Object(map[string]*schema.Schema{
			"click_element": schema.Object(map[string]*schema.Schema{"index": schema.Integer("")}, "index"),
			"done":          schema.Object(map[string]*schema.Schema{"success": schema.Boolean("")}, "success"),
		})
		guide := Guide("actions", catalogue)
		assert.Contains(t, guide, "exactly one key")
		assert.Contains(t, guide, "actions")
	})

	t.Run("GuideIsCompact", func(t *testing.T) {
		big := schema.Object(map[string]*schema.Schema{})
		for i := 0; i < 40; i++ {
			big.Properties[string(rune('a'+i%26))+"_action"] = schema.Object(map[string]*schema.Schema{
				"index": schema.Integer("element index"),
			}, "index")
		}
		guide := Guide("actions", big)
		assert.Less(t, len(guide), 600, "guide must stay far smaller than the formal schema")
	})

	t.Run("RequiredKeysListed", func(t *testing.T) {
		guide := Guide("plan", planSchema())
		assert.Contains(t, guide, "next_goal")
	})
}
