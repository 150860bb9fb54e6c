package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	stats, _, err := root.Find([]string{"memory", "stats"})
	require.NoError(t, err)
	assert.Equal(t, "stats", stats.Name())

	clearCmd, _, err := root.Find([]string{"memory", "clear"})
	require.NoError(t, err)
	assert.Error(t, clearCmd.Args(clearCmd, nil))
	assert.NoError(t, clearCmd.Args(clearCmd, []string{"conv-1"}))
}

func TestMemoryStoreFallsBackToLocal(t *testing.T) {
	cfg := &AppConfig{Memory: model.MemoryConfig{Backend: "redis"}}

	store, closeStore := newMemoryStore(cfg)
	defer closeStore()

	ctx := context.Background()
	assert.True(t, store.Healthy(ctx))
	require.NoError(t, store.LinkIdentifier(ctx, "conv-1", "+905551234567"))
	id, ok := store.LinkedIdentifier(ctx, "conv-1")
	require.True(t, ok)
	assert.Equal(t, "+905551234567", id)
}

func TestBuildAppRequiresAPIKey(t *testing.T) {
	_, err := buildApp(context.Background(), &AppConfig{})
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}
