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

package synthesize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
)

// fallbackLimit is how many passages are pulled from the collection when
// synthesis is invoked with no candidates.
const fallbackLimit = 3

// Synthesizer composes a final answer from retrieved passages using
// per-passage reasoning steps.
type Synthesizer interface {
	// Synthesize produces an answer to the query grounded in the
	// candidates. With no candidates it falls back to a direct
	// collection lookup, once, without re-entering the pipeline.
	Synthesize(ctx context.Context, query string, candidates []core.Candidate) (string, error)
}

type cotSynthesizer struct {
	generator  ai.Generator
	embedder   ai.Embedder
	collection storage.Collection
	logger     *slog.Logger
}

// New creates a chain-of-thought synthesizer. The collection is only
// consulted when Synthesize is called with an empty candidate list.
//
// Returns the Synthesizer interface to enforce abstraction.
func New(generator ai.Generator, embedder ai.Embedder, collection storage.Collection) Synthesizer {
	return &cotSynthesizer{
		generator:  generator,
		embedder:   embedder,
		collection: collection,
		logger:     slog.Default().With("component", "synthesize"),
	}
}

// Synthesize produces an answer to the query grounded in the candidates.
func (s *cotSynthesizer) Synthesize(ctx context.Context, query string, candidates []core.Candidate) (string, error) {
	if query == "" {
		return "", core.ErrEmptyQuery
	}

	if len(candidates) == 0 {
		candidates = s.collectFallback(ctx, query)
	}

	thoughts := s.reason(ctx, query, candidates)
	return s.compose(ctx, query, candidates, thoughts)
}

// collectFallback pulls the closest passages straight from the collection.
// This is a single lookup, not a second pass through the pipeline.
func (s *cotSynthesizer) collectFallback(ctx context.Context, query string) []core.Candidate {
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Warn("fallback collection skipped", "err", err)
		return nil
	}

	matches, err := s.collection.Query(ctx, vector, fallbackLimit,
		map[string]string{"kind": string(core.KindKnowledge)})
	if err != nil {
		s.logger.Warn("fallback collection skipped", "err", err)
		return nil
	}

	candidates := make([]core.Candidate, len(matches))
	for i, m := range matches {
		candidates[i] = core.Candidate{Text: m.Record.Document, Vector: m.Record.Vector}
	}
	s.logger.Debug("synthesis fell back to direct lookup", "passages", len(candidates))
	return candidates
}

// reason produces one reasoning step per candidate.
// A failed step is skipped, not fatal.
func (s *cotSynthesizer) reason(ctx context.Context, query string, candidates []core.Candidate) []string {
	thoughts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		thought, err := s.generator.Generate(ctx,
			[]string{thoughtSystemPrompt},
			[]string{fmt.Sprintf("Question: %s\n\nPassage: %s", query, c.Text)},
			ai.WithTemperature(0.0))
		if err != nil {
			s.logger.Warn("reasoning step failed, skipping passage", "err", err)
			continue
		}
		if thought = strings.TrimSpace(thought); thought != "" {
			thoughts = append(thoughts, thought)
		}
	}
	return thoughts
}

// compose issues the final generation call combining the reasoning steps.
func (s *cotSynthesizer) compose(ctx context.Context, query string, candidates []core.Candidate, thoughts []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", query)

	if len(candidates) > 0 {
		b.WriteString("\nPassages:\n")
		for i, c := range candidates {
			fmt.Fprintf(&b, "%d. %s\n", i+1, c.Text)
		}
	}
	if len(thoughts) > 0 {
		b.WriteString("\nReasoning steps:\n")
		for i, thought := range thoughts {
			fmt.Fprintf(&b, "%d. %s\n", i+1, thought)
		}
	}

	answer, err := s.generator.Generate(ctx,
		[]string{answerSystemPrompt},
		[]string{b.String()},
		ai.WithTemperature(0.0))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
