package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ragware/ragloop/agent"
	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/feedback"
)

// feedbackRecorder is an agent tool that records a user score for an
// earlier response. The model supplies a JSON argument.
type feedbackRecorder struct {
	store feedback.Store
}

// feedbackArgs is the tool's JSON input shape.
type feedbackArgs struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	Score    int    `json:"score"`
	Comment  string `json:"comment"`
}

// NewFeedbackRecorder creates the feedback recording tool.
func NewFeedbackRecorder(store feedback.Store) agent.Tool {
	return &feedbackRecorder{store: store}
}

func (t *feedbackRecorder) Name() string {
	return "record_feedback"
}

func (t *feedbackRecorder) Description() string {
	return `records a user rating for an answer; input is JSON: {"query": "...", "response": "...", "score": 1-5, "comment": "..."}`
}

// Invoke parses the JSON argument and stores the feedback.
func (t *feedbackRecorder) Invoke(ctx context.Context, input string) (string, error) {
	var args feedbackArgs
	if err := json.Unmarshal([]byte(ai.SanitizeJSON(input)), &args); err != nil {
		return "", fmt.Errorf("feedback input must be JSON: %w", err)
	}

	record, err := t.store.RecordFeedback(ctx, strings.TrimSpace(args.Query),
		strings.TrimSpace(args.Response), args.Score, strings.TrimSpace(args.Comment))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("feedback recorded with id %s", record.Id), nil
}
