package actions

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/types"
)

func loadRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := LoadDefault()
	require.NoError(t, err)
	return reg
}

func rawAction(s string) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		panic(err)
	}
	return m
}

func TestLoad(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		reg := loadRegistry(t)
		assert.Equal(t, 1, reg.Version())
		assert.True(t, reg.IsKnown("click_element"))
		assert.True(t, reg.IsKnown("done"))
		assert.False(t, reg.IsKnown("self_destruct"))
	})

	t.Run("UnionSchemaIsAllOptional", func(t *testing.T) {
		reg := loadRegistry(t)
		union := reg.Schema()
		assert.Empty(t, union.Required)
		assert.Len(t, union.Properties, len(reg.Names()))
		// All-optional single-key unions read as union-like downstream.
		assert.Greater(t, union.OptionalRatio(), 0.8)
	})

	t.Run("MissingVersionRejected", func(t *testing.T) {
		_, err := Load([]byte("actions:\n  noop:\n    params: {}\n"))
		assert.Error(t, err)
	})

	t.Run("UnsupportedParamTypeRejected", func(t *testing.T) {
		_, err := Load([]byte("version: 1\nactions:\n  bad:\n    params:\n      blob:\n        type: binary\n"))
		assert.Error(t, err)
	})
}

func TestDecode(t *testing.T) {
	t.Run("SingleKey", func(t *testing.T) {
		inst, err := Decode(rawAction(`{"click_element":{"index":3}}`))
		require.NoError(t, err)
		assert.Equal(t, "click_element", inst.Name)
		assert.JSONEq(t, `{"index":3}`, string(inst.Params))
	})

	t.Run("EmptyObjectRejected", func(t *testing.T) {
		_, err := Decode(rawAction(`{}`))
		assert.True(t, errors.Is(err, llm.ErrActionInvalid))
	})

	t.Run("TwoKeysRejected", func(t *testing.T) {
		_, err := Decode(rawAction(`{"click_element":{"index":1},"done":{"success":true}}`))
		assert.True(t, errors.Is(err, llm.ErrActionInvalid))
	})
}

func TestValidateInstances(t *testing.T) {
	reg := loadRegistry(t)

	t.Run("AllValid", func(t *testing.T) {
		valid, validation := ValidateInstances(reg, nil, []map[string]json.RawMessage{
			rawAction(`{"click_element":{"index":3}}`),
			rawAction(`{"done":{"success":true,"message":"done"}}`),
		})
		assert.Len(t, valid, 2)
		assert.Equal(t, types.ValidationValid, validation.State)
		assert.Zero(t, validation.DroppedCount)
	})

	t.Run("EmptyEntryDroppedNotFatal", func(t *testing.T) {
		valid, validation := ValidateInstances(reg, nil, []map[string]json.RawMessage{
			rawAction(`{"click_element":{"index":3}}`),
			rawAction(`{}`),
			rawAction(`{"done":{"success":true}}`),
		})
		assert.Len(t, valid, 2)
		assert.Equal(t, types.ValidationPartial, validation.State)
		assert.Equal(t, 1, validation.DroppedCount)
	})

	t.Run("UnknownActionDropped", func(t *testing.T) {
		valid, validation := ValidateInstances(reg, nil, []map[string]json.RawMessage{
			rawAction(`{"teleport":{"to":"checkout"}}`),
			rawAction(`{"go_back":{}}`),
		})
		assert.Len(t, valid, 1)
		assert.Equal(t, types.ValidationPartial, validation.State)
		assert.Contains(t, validation.Reason, "teleport")
	})

	t.Run("BadParamsDropped", func(t *testing.T) {
		valid, validation := ValidateInstances(reg, nil, []map[string]json.RawMessage{
			rawAction(`{"click_element":{"index":"three"}}`),
		})
		assert.Empty(t, valid)
		assert.Equal(t, types.ValidationInvalid, validation.State)
	})

	t.Run("EnumEnforced", func(t *testing.T) {
		_, validation := ValidateInstances(reg, nil, []map[string]json.RawMessage{
			rawAction(`{"scroll":{"direction":"sideways"}}`),
		})
		assert.Equal(t, types.ValidationInvalid, validation.State)
	})

	t.Run("NothingSurvivesIsInvalid", func(t *testing.T) {
		valid, validation := ValidateInstances(reg, nil, []map[string]json.RawMessage{
			rawAction(`{}`),
			rawAction(`{"teleport":{}}`),
		})
		assert.Empty(t, valid)
		assert.Equal(t, types.ValidationInvalid, validation.State)
		assert.Equal(t, 2, validation.DroppedCount)
	})

	t.Run("EmptyListIsInvalid", func(t *testing.T) {
		// No actions means no progress: the step must be retried, not
		// silently completed.
		valid, validation := ValidateInstances(reg, nil, nil)
		assert.Empty(t, valid)
		assert.Equal(t, types.ValidationInvalid, validation.State)
		assert.Contains(t, validation.Reason, "empty")
	})
}

func TestWhitelist(t *testing.T) {
	reg := loadRegistry(t)

	t.Run("NilAllowsEverything", func(t *testing.T) {
		var w *Whitelist
		assert.True(t, w.Allowed("click_element"))
	})

	t.Run("GlobPatterns", func(t *testing.T) {
		w, err := NewWhitelist([]string{"click_*", "done", "go_back"})
		require.NoError(t, err)
		assert.True(t, w.Allowed("click_element"))
		assert.True(t, w.Allowed("done"))
		assert.False(t, w.Allowed("navigate"))
	})

	t.Run("DisallowedActionsDropped", func(t *testing.T) {
		w, err := NewWhitelist([]string{"done"})
		require.NoError(t, err)

		valid, validation := ValidateInstances(reg, w, []map[string]json.RawMessage{
			rawAction(`{"navigate":{"url":"https://example.com"}}`),
			rawAction(`{"done":{"success":true}}`),
		})
		assert.Len(t, valid, 1)
		assert.Equal(t, "done", valid[0].Name)
		assert.Equal(t, types.ValidationPartial, validation.State)
	})

	t.Run("BadPatternRejected", func(t *testing.T) {
		_, err := NewWhitelist([]string{"[unclosed"})
		assert.Error(t, err)
	})
}
