package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votedeck/internal/settings"
	"votedeck/internal/settings/store/memory"
)

func boolPtr(b bool) *bool { return &b }

func TestDefaults(t *testing.T) {
	d := settings.Defaults()
	assert.True(t, d.VotingEnabled)
	assert.False(t, d.ShowPollCount)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	svc, err := settings.NewService(memory.NewInMemoryStore())
	require.NoError(t, err)

	t.Run("partial update leaves other fields alone", func(t *testing.T) {
		updated, err := svc.Apply(ctx, settings.Update{ShowPollCount: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, updated.VotingEnabled)
		assert.True(t, updated.ShowPollCount)
	})

	t.Run("closing voting is visible to the ballot gate", func(t *testing.T) {
		_, err := svc.Apply(ctx, settings.Update{VotingEnabled: boolPtr(false)})
		require.NoError(t, err)

		enabled, err := svc.VotingEnabled(ctx)
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		before, err := svc.Get(ctx)
		require.NoError(t, err)

		after, err := svc.Apply(ctx, settings.Update{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}
