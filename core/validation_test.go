package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFeedbackRecord(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid response record", func(t *testing.T) {
		err := ValidateFeedbackRecord(&FeedbackRecord{
			Id:        "abc",
			Kind:      KindResponse,
			Query:     "what is the USD exchange rate",
			Response:  "4.01 PLN",
			Timestamp: now,
		})
		assert.NoError(t, err)
	})

	t.Run("valid feedback record with score", func(t *testing.T) {
		err := ValidateFeedbackRecord(&FeedbackRecord{
			Id:        "abc",
			Kind:      KindFeedback,
			Query:     "q",
			Response:  "r",
			UserScore: 5,
			Timestamp: now,
		})
		assert.NoError(t, err)
	})

	t.Run("nil record", func(t *testing.T) {
		assert.Error(t, ValidateFeedbackRecord(nil))
	})

	t.Run("empty query", func(t *testing.T) {
		err := ValidateFeedbackRecord(&FeedbackRecord{Kind: KindFeedback, Timestamp: now})
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("wrong kind", func(t *testing.T) {
		err := ValidateFeedbackRecord(&FeedbackRecord{Kind: KindSearchQuery, Query: "q", Timestamp: now})
		assert.ErrorIs(t, err, ErrInvalidRecordKind)
	})

	t.Run("score out of range", func(t *testing.T) {
		err := ValidateFeedbackRecord(&FeedbackRecord{Kind: KindFeedback, Query: "q", UserScore: 6, Timestamp: now})
		assert.ErrorIs(t, err, ErrScoreOutOfRange)
	})

	t.Run("future timestamp", func(t *testing.T) {
		err := ValidateFeedbackRecord(&FeedbackRecord{
			Kind:      KindFeedback,
			Query:     "q",
			Timestamp: now.Add(time.Hour),
		})
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
	})
}

func TestValidateScore(t *testing.T) {
	for score := 1; score <= 5; score++ {
		require.NoError(t, ValidateScore(score))
	}
	assert.Error(t, ValidateScore(0))
	assert.Error(t, ValidateScore(6))
	assert.Error(t, ValidateScore(-3))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 1, ClampScore(0))
	assert.Equal(t, 1, ClampScore(-2))
	assert.Equal(t, 3, ClampScore(3))
	assert.Equal(t, 5, ClampScore(9))
}
