package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     step
	}{
		{
			name:     "action turn",
			response: "Thought: I should look up the rate\nAction: search\nAction Input: euro rate",
			want: step{
				thought:     "I should look up the rate",
				action:      "search",
				actionInput: "euro rate",
			},
		},
		{
			name:     "final answer turn",
			response: "Thought: I have everything\nFinal Answer: The rate is 1.08",
			want: step{
				thought:     "I have everything",
				finalAnswer: "The rate is 1.08",
			},
		},
		{
			name:     "bare text is a final answer",
			response: "The rate is 1.08",
			want:     step{finalAnswer: "The rate is 1.08"},
		},
		{
			name:     "multi-line final answer",
			response: "Final Answer: The rate is 1.08.\nIt was quoted on Friday.",
			want:     step{finalAnswer: "The rate is 1.08.\nIt was quoted on Friday."},
		},
		{
			name:     "action input without action is ignored",
			response: "Action Input: dangling",
			want:     step{finalAnswer: "Action Input: dangling"},
		},
		{
			name:     "whitespace around fields",
			response: "  Thought:   padded  \n  Action:  search \n  Action Input:  x ",
			want: step{
				thought:     "padded",
				action:      "search",
				actionInput: "x",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseStep(tt.response))
		})
	}
}

func TestParseStep_Predicates(t *testing.T) {
	action := parseStep("Action: search\nAction Input: x")
	assert.True(t, action.isAction())
	assert.False(t, action.isFinal())

	final := parseStep("Final Answer: done")
	assert.False(t, final.isAction())
	assert.True(t, final.isFinal())
}
