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

package expand

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
)

const (
	// DefaultReuseThreshold is the minimum word-set Jaccard similarity
	// for reusing a stored expansion instead of regenerating.
	DefaultReuseThreshold = 0.85

	// maxVariants caps how many generated variants are kept per query.
	maxVariants = 2
)

// Expander rewrites queries into alternative phrasings to widen retrieval.
type Expander interface {
	// Expand returns the original query followed by up to two variants.
	// With quick set, no variants are produced. Expansion never fails:
	// provider or storage trouble yields just the original query.
	Expand(ctx context.Context, query string, quick bool) []string
}

type queryExpander struct {
	collection storage.Collection
	embedder   ai.Embedder
	generator  ai.Generator
	threshold  float64
	logger     *slog.Logger
}

// Option is a functional option for configuring the expander.
type Option func(*queryExpander) error

// WithReuseThreshold sets the Jaccard similarity above which a stored
// expansion is reused.
func WithReuseThreshold(threshold float64) Option {
	return func(e *queryExpander) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("expand: reuse threshold must be in (0, 1], got %f", threshold)
		}
		e.threshold = threshold
		return nil
	}
}

// New creates a query expander backed by the given collection.
//
// Returns the Expander interface to enforce abstraction.
func New(collection storage.Collection, embedder ai.Embedder, generator ai.Generator, opts ...Option) (Expander, error) {
	e := &queryExpander{
		collection: collection,
		embedder:   embedder,
		generator:  generator,
		threshold:  DefaultReuseThreshold,
		logger:     slog.Default().With("component", "expand"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Expand returns the original query followed by up to two variants.
// The result always has the query as its first element, even when the
// query is empty or expansion is skipped.
func (e *queryExpander) Expand(ctx context.Context, query string, quick bool) []string {
	if query == "" || quick {
		return []string{query}
	}

	if variants, ok := e.lookupStored(ctx, query); ok {
		e.logger.Debug("reusing stored expansion", "query", query, "variants", len(variants))
		return append([]string{query}, variants...)
	}

	variants := e.generate(ctx, query)
	if len(variants) > 0 {
		e.persist(ctx, query, variants)
	}
	return append([]string{query}, variants...)
}

// lookupStored searches stored expansions for a near-identical original query.
func (e *queryExpander) lookupStored(ctx context.Context, query string) ([]string, bool) {
	records, err := e.collection.Get(ctx, map[string]string{"kind": string(core.KindExpansion)})
	if err != nil {
		e.logger.Warn("expansion lookup failed", "err", err)
		return nil, false
	}

	queryWords := wordSet(query)
	for _, record := range records {
		if jaccard(queryWords, wordSet(record.Document)) < e.threshold {
			continue
		}
		var variants []string
		if err := json.Unmarshal([]byte(record.Metadata["variants"]), &variants); err != nil {
			e.logger.Warn("stored expansion is unreadable", "id", record.Id, "err", err)
			continue
		}
		return variants, true
	}
	return nil, false
}

// generate asks the model for alternative phrasings.
// Any failure is logged and swallowed so expansion degrades to the
// original query alone.
func (e *queryExpander) generate(ctx context.Context, query string) []string {
	response, err := e.generator.Generate(ctx,
		[]string{expansionSystemPrompt},
		[]string{fmt.Sprintf("Query: %s", query)},
		ai.WithJSONOutput(), ai.WithTemperature(0.0))
	if err != nil {
		e.logger.Warn("expansion generation failed", "err", err)
		return nil
	}

	variants := parseVariants(response)

	// Drop restatements of the original query and duplicates.
	seen := map[string]bool{normalize(query): true}
	kept := make([]string, 0, maxVariants)
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" || seen[normalize(v)] {
			continue
		}
		seen[normalize(v)] = true
		kept = append(kept, v)
		if len(kept) == maxVariants {
			break
		}
	}
	return kept
}

// persist stores the generated expansion for later reuse.
func (e *queryExpander) persist(ctx context.Context, query string, variants []string) {
	vector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		e.logger.Warn("expansion not persisted", "err", err)
		return
	}

	encoded, err := json.Marshal(variants)
	if err != nil {
		e.logger.Warn("expansion not persisted", "err", err)
		return
	}

	record := &storage.Record{
		Id:       fmt.Sprintf("%d", core.IDFromContent("expansion:"+query)),
		Document: query,
		Vector:   vector,
		Metadata: map[string]string{
			"kind":       string(core.KindExpansion),
			"variants":   string(encoded),
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := e.collection.Add(ctx, record); err != nil {
		e.logger.Warn("expansion not persisted", "err", err)
	}
}

// parseVariants extracts a list of variant strings from a model response.
// Accepts either a bare JSON array or an object with a "variants" key.
func parseVariants(response string) []string {
	cleaned := ai.SanitizeJSON(response)

	var variants []string
	if err := json.Unmarshal([]byte(cleaned), &variants); err == nil {
		return variants
	}

	var wrapped struct {
		Variants []string `json:"variants"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil {
		return wrapped.Variants
	}
	return nil
}

// wordSet builds a lowercase word set for Jaccard comparison.
func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,!?;:'\"")] = true
	}
	delete(set, "")
	return set
}

// jaccard computes word-set Jaccard similarity.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// normalize folds case and outer whitespace for duplicate detection.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
