package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionRepo(t *testing.T) (storage.SessionRepository, *Backend) {
	t.Helper()
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	return NewSessionRepository(backend), backend
}

func TestSessionRepository_SaveAndGet(t *testing.T) {
	repo, backend := newTestSessionRepo(t)
	defer backend.Close()

	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Microsecond)
	log := &core.SessionLog{
		Id:        "20250101120000_usd_rate",
		Query:     "what is the usd rate",
		Steps:     []core.AgentStep{{Thought: "look it up", At: started}},
		Result:    "1.08",
		Succeeded: true,
		StartedAt: started,
	}

	require.NoError(t, repo.Save(ctx, log))

	got, err := repo.Get(ctx, log.Id)
	require.NoError(t, err)
	assert.Equal(t, log, got)
}

func TestSessionRepository_Get_NotFound(t *testing.T) {
	repo, backend := newTestSessionRepo(t)
	defer backend.Close()

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionRepository_SaveOverwrites(t *testing.T) {
	repo, backend := newTestSessionRepo(t)
	defer backend.Close()

	ctx := context.Background()
	log := &core.SessionLog{Id: "s1", Query: "q"}
	require.NoError(t, repo.Save(ctx, log))

	log.Steps = append(log.Steps, core.AgentStep{Thought: "step one"})
	log.Succeeded = true
	require.NoError(t, repo.Save(ctx, log))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Steps, 1)
	assert.True(t, got.Succeeded)
}

func TestSessionRepository_FindSimilar(t *testing.T) {
	repo, backend := newTestSessionRepo(t)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &core.SessionLog{
		Id: "s1", Query: "current euro exchange rate", Succeeded: true,
	}))
	require.NoError(t, repo.Save(ctx, &core.SessionLog{
		Id: "s2", Query: "euro rate history", Succeeded: true,
	}))
	require.NoError(t, repo.Save(ctx, &core.SessionLog{
		Id: "s3", Query: "weather in paris", Succeeded: true,
	}))
	require.NoError(t, repo.Save(ctx, &core.SessionLog{
		Id: "s4", Query: "euro exchange rate today", Succeeded: false,
	}))

	t.Run("orders by word overlap", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, "euro exchange rate", 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "s1", results[0].Id)
		assert.Equal(t, "s2", results[1].Id)
	})

	t.Run("excludes failed sessions", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, "euro exchange rate", 10)
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, "s4", r.Id)
		}
	})

	t.Run("no overlap returns nothing", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, "quantum chromodynamics", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("stop words only returns nothing", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, "the of and", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestTokenizeAndFilter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lowercases and trims punctuation", "What's the Euro rate?", []string{"what's", "euro", "rate"}},
		{"removes stop words", "the cat is on a mat", []string{"cat", "mat"}},
		{"empty input", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenizeAndFilter(tt.input))
		})
	}
}
