package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	emb := NewMockEmbedder()
	ctx := context.Background()

	first, err := emb.EmbedText(ctx, "the euro trades at 1.08")
	require.NoError(t, err)
	second, err := emb.EmbedText(ctx, "the euro trades at 1.08")
	require.NoError(t, err)
	other, err := emb.EmbedText(ctx, "a different sentence")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, mockVectorDim)
	assert.Equal(t, 3, emb.CallCount())
}

func TestMockEmbedder_UnitNorm(t *testing.T) {
	emb := NewMockEmbedder()

	vector, err := emb.EmbedText(context.Background(), "normalize me")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-3)
}

func TestMockEmbedder_BatchMatchesSingle(t *testing.T) {
	emb := NewMockEmbedder()
	ctx := context.Background()

	single, err := emb.EmbedText(ctx, "alpha")
	require.NoError(t, err)

	batch, err := emb.EmbedTexts(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, single, batch[0])
	assert.NotEqual(t, batch[0], batch[1])
}

func TestMockEmbedder_Override(t *testing.T) {
	emb := NewMockEmbedder()
	emb.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	vector, err := emb.EmbedText(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vector)

	emb.Reset()
	vector, err = emb.EmbedText(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, vector, mockVectorDim)
	assert.Equal(t, 1, emb.CallCount())
}
