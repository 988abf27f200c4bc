package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

type stubProvider struct {
	kind         types.ProviderKind
	availability types.Availability
}

func (p *stubProvider) Kind() types.ProviderKind { return p.kind }

func (p *stubProvider) Availability(context.Context) types.Availability { return p.availability }

func (p *stubProvider) OpenSession(context.Context, llm.SessionOptions) (llm.ProviderSession, error) {
	return &stubSession{}, nil
}

type stubSession struct{}

func (s *stubSession) Generate(context.Context, string, *schema.Schema) (string, error) {
	return "", nil
}

func (s *stubSession) Close() error { return nil }

func TestSelectProvider(t *testing.T) {
	onDevice := &stubProvider{kind: types.ProviderOnDevice, availability: types.AvailabilityAvailable}
	cloud := &stubProvider{kind: types.ProviderCloud, availability: types.AvailabilityAvailable}

	t.Run("PrefersFirstListed", func(t *testing.T) {
		r := New([]llm.Provider{onDevice, cloud})
		p, err := r.SelectProvider(context.Background())
		require.NoError(t, err)
		assert.Equal(t, types.ProviderOnDevice, p.Kind())
	})

	t.Run("DownloadingIsSkippedNotAwaited", func(t *testing.T) {
		downloading := &stubProvider{kind: types.ProviderOnDevice, availability: types.AvailabilityDownloading}
		r := New([]llm.Provider{downloading, cloud})
		p, err := r.SelectProvider(context.Background())
		require.NoError(t, err)
		assert.Equal(t, types.ProviderCloud, p.Kind())
	})

	t.Run("NoneAvailable", func(t *testing.T) {
		down := &stubProvider{kind: types.ProviderOnDevice, availability: types.AvailabilityUnavailable}
		r := New([]llm.Provider{down})
		_, err := r.SelectProvider(context.Background())
		assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
	})
}

func TestAlternate(t *testing.T) {
	onDevice := &stubProvider{kind: types.ProviderOnDevice, availability: types.AvailabilityAvailable}
	cloud := &stubProvider{kind: types.ProviderCloud, availability: types.AvailabilityAvailable}
	r := New([]llm.Provider{onDevice, cloud})

	t.Run("ReturnsOtherProvider", func(t *testing.T) {
		p, ok := r.Alternate(context.Background(), types.ProviderOnDevice)
		require.True(t, ok)
		assert.Equal(t, types.ProviderCloud, p.Kind())
	})

	t.Run("NoAlternateWhenOtherIsDown", func(t *testing.T) {
		deadCloud := &stubProvider{kind: types.ProviderCloud, availability: types.AvailabilityUnavailable}
		r := New([]llm.Provider{onDevice, deadCloud})
		_, ok := r.Alternate(context.Background(), types.ProviderOnDevice)
		assert.False(t, ok)
	})
}
