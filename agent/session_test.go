package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeSessionId(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      string
		wantPrefix string
	}{
		{"plain query", "what is the euro rate", "20250101120000_what_is_the_euro_rate_"},
		{"punctuation stripped", "what's the rate?!", "20250101120000_whats_the_rate_"},
		{"truncated to thirty chars", "this query is much longer than thirty characters in total", "20250101120000_this_query_is_much_longer_than_"},
		{"keeps dashes and underscores", "eur-usd_rate", "20250101120000_eur-usd_rate_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := makeSessionId(at, tt.query)
			assert.True(t, strings.HasPrefix(id, tt.wantPrefix),
				"id %q should start with %q", id, tt.wantPrefix)
			suffix := strings.TrimPrefix(id, tt.wantPrefix)
			assert.Len(t, suffix, 8)
		})
	}
}

func TestMakeSessionId_SameSecondIdsDiffer(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	first := makeSessionId(at, "euro rate")
	second := makeSessionId(at, "euro rate")

	require.NotEqual(t, first, second,
		"two sessions for one query within a second get distinct logs")
}
