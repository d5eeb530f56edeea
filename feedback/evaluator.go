// Copyright 2025 Ragware Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/core"
)

// Evaluator scores a response for accuracy, completeness, and cohesion.
type Evaluator interface {
	// Evaluate never fails: an unusable model response degrades to the
	// minimum scores with the failure noted in the comment.
	Evaluate(ctx context.Context, query, response string) core.Evaluation
}

type llmEvaluator struct {
	generator ai.Generator
	logger    *slog.Logger
}

// NewEvaluator creates an evaluator backed by a language model.
//
// Returns the Evaluator interface to enforce abstraction.
func NewEvaluator(generator ai.Generator) Evaluator {
	return &llmEvaluator{
		generator: generator,
		logger:    slog.Default().With("component", "feedback-evaluator"),
	}
}

// rawEvaluation tolerates models that return scores as strings.
type rawEvaluation struct {
	Accuracy     json.RawMessage `json:"accuracy"`
	Completeness json.RawMessage `json:"completeness"`
	Cohesion     json.RawMessage `json:"cohesion"`
	Comment      string          `json:"comment"`
}

// Evaluate scores a response on three 1-5 axes.
func (e *llmEvaluator) Evaluate(ctx context.Context, query, response string) core.Evaluation {
	raw, err := e.generator.Generate(ctx,
		[]string{evaluationSystemPrompt},
		[]string{fmt.Sprintf("Question: %s\n\nAnswer: %s", query, response)},
		ai.WithJSONOutput(), ai.WithTemperature(0.0))
	if err != nil {
		e.logger.Warn("evaluation degraded to minimum scores", "err", err)
		return degradedEvaluation(err.Error())
	}

	eval, err := parseEvaluation(raw)
	if err != nil {
		e.logger.Warn("evaluation response unparseable", "response", raw, "err", err)
		return degradedEvaluation(err.Error())
	}
	return eval
}

// parseEvaluation decodes an evaluation JSON object, repairing common
// model formatting mistakes and clamping scores into [1,5].
func parseEvaluation(response string) (core.Evaluation, error) {
	cleaned := ai.SanitizeJSON(response)

	var raw rawEvaluation
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return core.Evaluation{}, err
	}

	accuracy, err := flexibleInt(raw.Accuracy)
	if err != nil {
		return core.Evaluation{}, fmt.Errorf("accuracy: %w", err)
	}
	completeness, err := flexibleInt(raw.Completeness)
	if err != nil {
		return core.Evaluation{}, fmt.Errorf("completeness: %w", err)
	}
	cohesion, err := flexibleInt(raw.Cohesion)
	if err != nil {
		return core.Evaluation{}, fmt.Errorf("cohesion: %w", err)
	}

	return core.Evaluation{
		Accuracy:     core.ClampScore(accuracy),
		Completeness: core.ClampScore(completeness),
		Cohesion:     core.ClampScore(cohesion),
		Comment:      raw.Comment,
	}, nil
}

// flexibleInt accepts both 4 and "4".
func flexibleInt(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing score")
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	return 0, fmt.Errorf("not a number: %s", raw)
}

// degradedEvaluation is the floor returned when evaluation itself fails.
func degradedEvaluation(note string) core.Evaluation {
	return core.Evaluation{
		Accuracy:     1,
		Completeness: 1,
		Cohesion:     1,
		Comment:      fmt.Sprintf("evaluation failed: %s", note),
	}
}
