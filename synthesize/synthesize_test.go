package synthesize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/ai/mock"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
	badgerstore "github.com/ragware/ragloop/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSynthesizer(t *testing.T, gen *mock.MockGenerator, emb *mock.MockEmbedder) (Synthesizer, storage.Collection) {
	t.Helper()
	col, backend, err := badgerstore.NewMemoryCollection("knowledge")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	return New(gen, emb, col), col
}

func TestSynthesize_EmptyQuery(t *testing.T) {
	s, _ := newTestSynthesizer(t, mock.NewMockGenerator(), mock.NewMockEmbedder())
	_, err := s.Synthesize(context.Background(), "", nil)
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
}

func TestSynthesize_OneThoughtPerCandidate(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.Enqueue("the first passage gives the rate")
	gen.Enqueue("the second passage gives the date")
	gen.Enqueue("The rate was 1.08 on Friday.")

	s, _ := newTestSynthesizer(t, gen, mock.NewMockEmbedder())

	answer, err := s.Synthesize(context.Background(), "what was the rate", []core.Candidate{
		{Text: "the rate is 1.08"},
		{Text: "quoted on friday"},
	})
	require.NoError(t, err)
	assert.Equal(t, "The rate was 1.08 on Friday.", answer)
	assert.Equal(t, 3, gen.CallCount(), "two thought calls plus one final call")
}

func TestSynthesize_FinalCallSeesThoughts(t *testing.T) {
	gen := mock.NewMockGenerator()
	var finalInput string
	gen.GenerateFunc = func(ctx context.Context, system []string, user []string, opts ...ai.GenerateOption) (string, error) {
		if strings.Contains(system[0], "reasoning step") && !strings.Contains(system[0], "Compose") {
			return "thought about the passage", nil
		}
		finalInput = user[0]
		return "final answer", nil
	}

	s, _ := newTestSynthesizer(t, gen, mock.NewMockEmbedder())

	_, err := s.Synthesize(context.Background(), "query", []core.Candidate{{Text: "passage text"}})
	require.NoError(t, err)
	assert.Contains(t, finalInput, "passage text")
	assert.Contains(t, finalInput, "thought about the passage")
}

func TestSynthesize_FailedThoughtIsSkipped(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.EnqueueError(errors.New("model hiccup"))
	gen.Enqueue("surviving thought")
	gen.Enqueue("answer")

	s, _ := newTestSynthesizer(t, gen, mock.NewMockEmbedder())

	answer, err := s.Synthesize(context.Background(), "query", []core.Candidate{
		{Text: "first"},
		{Text: "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
}

func TestSynthesize_EmptyCandidatesFallsBackToCollection(t *testing.T) {
	gen := mock.NewMockGenerator()
	var sawPassage bool
	gen.GenerateFunc = func(ctx context.Context, system []string, user []string, opts ...ai.GenerateOption) (string, error) {
		if strings.Contains(user[0], "stored passage") {
			sawPassage = true
		}
		return "answer from stored knowledge", nil
	}

	emb := mock.NewMockEmbedder()
	emb.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	s, col := newTestSynthesizer(t, gen, emb)
	ctx := context.Background()

	require.NoError(t, col.Add(ctx, &storage.Record{
		Id:       "k1",
		Document: "stored passage",
		Vector:   []float32{1, 0, 0},
		Metadata: map[string]string{"kind": "knowledge"},
	}))

	answer, err := s.Synthesize(ctx, "query", nil)
	require.NoError(t, err)
	assert.Equal(t, "answer from stored knowledge", answer)
	assert.True(t, sawPassage, "fallback passage should reach the model")
}

func TestSynthesize_EmptyCollectionStillAnswers(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.Enqueue("I don't have enough information.")

	s, _ := newTestSynthesizer(t, gen, mock.NewMockEmbedder())

	answer, err := s.Synthesize(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Equal(t, "I don't have enough information.", answer)
	assert.Equal(t, 1, gen.CallCount(), "no passages means no thought calls")
}

func TestSynthesize_FinalCallErrorPropagates(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.Enqueue("thought")
	gen.EnqueueError(errors.New("model down"))

	s, _ := newTestSynthesizer(t, gen, mock.NewMockEmbedder())

	_, err := s.Synthesize(context.Background(), "query", []core.Candidate{{Text: "x"}})
	assert.Error(t, err)
}
