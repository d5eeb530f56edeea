package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/ragware/ragloop/ai/mock"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/feedback"
	badgerstore "github.com/ragware/ragloop/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRetriever is a test double for Retriever.
type fakeRetriever struct {
	retrieveFunc func(ctx context.Context, query string) (string, error)
	calls        int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	f.calls++
	return f.retrieveFunc(ctx, query)
}

func TestFunc(t *testing.T) {
	tool := Func("echo", "echoes input", func(ctx context.Context, input string) (string, error) {
		return "echo: " + input, nil
	})

	assert.Equal(t, "echo", tool.Name())
	assert.Equal(t, "echoes input", tool.Description())

	out, err := tool.Invoke(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
}

func TestKnowledgeSearch(t *testing.T) {
	retriever := &fakeRetriever{
		retrieveFunc: func(ctx context.Context, query string) (string, error) {
			return "the euro trades at 1.08 US dollars", nil
		},
	}
	tool := NewKnowledgeSearch(retriever)
	assert.Equal(t, "knowledge_search", tool.Name())
	ctx := context.Background()

	t.Run("delegates to the retriever", func(t *testing.T) {
		out, err := tool.Invoke(ctx, "euro rate")
		require.NoError(t, err)
		assert.Equal(t, "the euro trades at 1.08 US dollars", out)
		assert.Equal(t, 1, retriever.calls)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := tool.Invoke(ctx, "  ")
		assert.ErrorIs(t, err, core.ErrEmptyQuery)
		assert.Equal(t, 1, retriever.calls, "retriever should not run on empty input")
	})

	t.Run("retrieval failure propagates", func(t *testing.T) {
		retriever.retrieveFunc = func(ctx context.Context, query string) (string, error) {
			return "", errors.New("provider down")
		}
		_, err := tool.Invoke(ctx, "euro rate")
		assert.Error(t, err)
	})
}

func TestFeedbackRecorder(t *testing.T) {
	col, backend, err := badgerstore.NewMemoryCollection("memory")
	require.NoError(t, err)
	defer backend.Close()

	gen := mock.NewMockGenerator()
	gen.DefaultResponse = `{"accuracy": 3, "completeness": 3, "cohesion": 3, "comment": "ok"}`
	store := feedback.NewStore(col, mock.NewMockEmbedder(), feedback.NewEvaluator(gen))

	tool := NewFeedbackRecorder(store)
	assert.Equal(t, "record_feedback", tool.Name())
	ctx := context.Background()

	t.Run("records valid feedback", func(t *testing.T) {
		out, err := tool.Invoke(ctx, `{"query": "euro rate", "response": "1.08", "score": 5, "comment": "spot on"}`)
		require.NoError(t, err)
		assert.Contains(t, out, "feedback recorded")

		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalFeedback)
		assert.Equal(t, 5.0, stats.AverageScore)
	})

	t.Run("rejects non-JSON input", func(t *testing.T) {
		_, err := tool.Invoke(ctx, "five stars!")
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range score", func(t *testing.T) {
		_, err := tool.Invoke(ctx, `{"query": "q", "response": "r", "score": 9}`)
		assert.ErrorIs(t, err, core.ErrScoreOutOfRange)
	})
}
