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

package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/core"
)

const (
	// DefaultTopK is the number of candidates kept after scoring.
	DefaultTopK = 5

	// DefaultScoreWeight is the weight of the user feedback score in the
	// combined ranking score.
	DefaultScoreWeight = 0.2
)

// Scored pairs a candidate with its combined ranking score.
type Scored struct {
	Candidate core.Candidate
	Score     float64
}

// Reranker orders retrieval candidates by combined semantic and feedback
// score, then filters them through a model relevance check.
type Reranker interface {
	// Rerank scores the candidates against the query, keeps the topK
	// best, and drops those the model judges irrelevant. A candidate
	// whose relevance check fails is excluded rather than failing the
	// whole call.
	Rerank(ctx context.Context, query string, candidates []core.Candidate) ([]Scored, error)

	// Close releases the worker pool.
	Close() error
}

type hybridReranker struct {
	embedder    ai.Embedder
	generator   ai.Generator
	topK        int
	scoreWeight float64
	pool        *ants.Pool
	logger      *slog.Logger
}

// Option is a functional option for configuring the reranker.
type Option func(*hybridReranker) error

// WithTopK sets how many candidates survive scoring.
func WithTopK(k int) Option {
	return func(r *hybridReranker) error {
		if k <= 0 {
			return fmt.Errorf("rerank: topK must be positive, got %d", k)
		}
		r.topK = k
		return nil
	}
}

// WithScoreWeight sets the weight applied to user feedback scores.
func WithScoreWeight(w float64) Option {
	return func(r *hybridReranker) error {
		if w < 0 {
			return fmt.Errorf("rerank: score weight must be non-negative, got %f", w)
		}
		r.scoreWeight = w
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent relevance checks.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *hybridReranker) error {
		if size < 1 {
			size = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// New creates a hybrid reranker.
//
// Returns the Reranker interface to enforce abstraction.
func New(embedder ai.Embedder, generator ai.Generator, opts ...Option) (Reranker, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &hybridReranker{
		embedder:    embedder,
		generator:   generator,
		topK:        DefaultTopK,
		scoreWeight: DefaultScoreWeight,
		pool:        pool,
		logger:      slog.Default().With("component", "rerank"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			pool.Release()
			return nil, err
		}
	}
	return r, nil
}

// Rerank scores, truncates, and filters the candidates.
func (r *hybridReranker) Rerank(ctx context.Context, query string, candidates []core.Candidate) ([]Scored, error) {
	if query == "" {
		return nil, core.ErrEmptyQuery
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	queryVector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := r.fillVectors(ctx, candidates); err != nil {
		return nil, err
	}

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{
			Candidate: c,
			Score:     float64(core.CosineSimilarity(queryVector, c.Vector)) + c.UserScore*r.scoreWeight,
		}
	}

	// Stable sort keeps the original retrieval order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}

	return r.filterRelevant(ctx, query, scored), nil
}

// Close releases the worker pool.
func (r *hybridReranker) Close() error {
	r.pool.Release()
	return nil
}

// fillVectors embeds candidates that arrived without vectors in one batch.
func (r *hybridReranker) fillVectors(ctx context.Context, candidates []core.Candidate) error {
	var texts []string
	var indexes []int
	for i, c := range candidates {
		if len(c.Vector) == 0 {
			texts = append(texts, c.Text)
			indexes = append(indexes, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("rerank: embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for j, i := range indexes {
		candidates[i].Vector = vectors[j]
	}
	return nil
}

// filterRelevant asks the model a binary relevance question per candidate.
// Checks run concurrently but the output preserves the ranked order.
// Candidates whose check errors are excluded.
func (r *hybridReranker) filterRelevant(ctx context.Context, query string, scored []Scored) []Scored {
	relevant := make([]bool, len(scored))

	var wg sync.WaitGroup
	for i := range scored {
		i := i
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			relevant[i] = r.checkRelevance(ctx, query, scored[i].Candidate.Text)
		})
		if err != nil {
			// Pool rejected the task; run the check inline.
			relevant[i] = r.checkRelevance(ctx, query, scored[i].Candidate.Text)
			wg.Done()
		}
	}
	wg.Wait()

	kept := make([]Scored, 0, len(scored))
	for i, s := range scored {
		if relevant[i] {
			kept = append(kept, s)
		}
	}
	return kept
}

// checkRelevance asks the model whether a passage helps answer the query.
// The model must reply with a bare 0 or 1.
func (r *hybridReranker) checkRelevance(ctx context.Context, query, text string) bool {
	response, err := r.generator.Generate(ctx,
		[]string{relevanceSystemPrompt},
		[]string{fmt.Sprintf("Query: %s\n\nPassage: %s", query, text)},
		ai.WithTemperature(0.0))
	if err != nil {
		r.logger.Warn("relevance check failed, excluding candidate", "err", err)
		return false
	}

	switch strings.TrimSpace(response) {
	case "1":
		return true
	case "0":
		return false
	default:
		// Tolerate chatty models that wrap the digit in text.
		trimmed := strings.TrimSpace(response)
		if strings.HasPrefix(trimmed, "1") {
			return true
		}
		r.logger.Debug("unparseable relevance verdict, excluding candidate", "response", response)
		return false
	}
}
