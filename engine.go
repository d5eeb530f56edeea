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

package ragloop

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ragware/ragloop/agent"
	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/cache"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/expand"
	"github.com/ragware/ragloop/feedback"
	"github.com/ragware/ragloop/rerank"
	"github.com/ragware/ragloop/storage"
	"github.com/ragware/ragloop/storage/badger"
	"github.com/ragware/ragloop/synthesize"
	"github.com/ragware/ragloop/tools"
)

// defaultRetrievalLimit is how many passages each query variant pulls
// from the knowledge collection before reranking.
const defaultRetrievalLimit = 8

// Engine ties the retrieval pipeline and the reasoning loop together
// over a single Badger-backed store.
type Engine struct {
	backend     *badger.Backend
	knowledge   storage.Collection
	memory      storage.Collection
	sessions    storage.SessionRepository
	provider    ai.Provider
	cache       cache.Cache
	expander    expand.Expander
	reranker    rerank.Reranker
	synthesizer synthesize.Synthesizer
	feedback    feedback.Store
	agent       *agent.Agent
	retrieval   int
	logger      *slog.Logger
}

// New opens (or creates) the store at filePath and wires the engine
// around the given AI provider.
func New(filePath string, provider ai.Provider, opts ...Option) (*Engine, error) {
	options := defaultEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	knowledge := badger.NewCollection(backend, "knowledge")
	memory := badger.NewCollection(backend, "memory")
	sessions := badger.NewSessionRepository(backend)

	semanticCache, err := cache.New(memory, provider.Embedder(), options.cacheOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	expander, err := expand.New(memory, provider.Embedder(), provider.Generator())
	if err != nil {
		backend.Close()
		return nil, err
	}

	reranker, err := rerank.New(provider.Embedder(), provider.Generator(), options.rerankOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	store := feedback.NewStore(memory, provider.Embedder(),
		feedback.NewEvaluator(provider.Generator()))

	e := &Engine{
		backend:     backend,
		knowledge:   knowledge,
		memory:      memory,
		sessions:    sessions,
		provider:    provider,
		cache:       semanticCache,
		expander:    expander,
		reranker:    reranker,
		synthesizer: synthesize.New(provider.Generator(), provider.Embedder(), knowledge),
		feedback:    store,
		retrieval:   options.retrievalLimit,
		logger:      slog.Default().With("component", "engine"),
	}

	// The knowledge tool runs the engine's full retrieval path, so the
	// loop's lookups also benefit from the cache and the write-back.
	registry := agent.NewRegistry()
	toolSet := append([]agent.Tool{
		tools.NewKnowledgeSearch(e),
		tools.NewFeedbackRecorder(store),
	}, options.extraTools...)
	for _, tool := range toolSet {
		if err := registry.Register(tool); err != nil {
			reranker.Close()
			backend.Close()
			return nil, err
		}
	}

	loop, err := agent.New(provider.Generator(), registry, sessions, options.agentOpts...)
	if err != nil {
		reranker.Close()
		backend.Close()
		return nil, err
	}
	e.agent = loop

	return e, nil
}

// Retrieve answers a query through the retrieval pipeline: cache check,
// query expansion, per-variant knowledge lookup, reranking and
// synthesis. The answer is cached and recorded before returning.
func (e *Engine) Retrieve(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", core.ErrEmptyQuery
	}

	if response, hit := e.cache.Check(ctx, query); hit {
		e.logger.Debug("cache hit", "query", query)
		return response, nil
	}

	candidates := e.gatherCandidates(ctx, e.expander.Expand(ctx, query, false))

	ranked, err := e.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return "", fmt.Errorf("reranking failed: %w", err)
	}
	kept := make([]core.Candidate, len(ranked))
	for i, scored := range ranked {
		kept[i] = scored.Candidate
	}

	answer, err := e.synthesizer.Synthesize(ctx, query, kept)
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}

	e.remember(ctx, query, answer, nil)
	return answer, nil
}

// Answer answers a query through the reasoning loop over the tool
// registry. Successful answers are cached and recorded.
func (e *Engine) Answer(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", core.ErrEmptyQuery
	}

	if response, hit := e.cache.Check(ctx, query); hit {
		e.logger.Debug("cache hit", "query", query)
		return response, nil
	}

	result, err := e.agent.Run(ctx, query)
	if err != nil {
		return "", err
	}
	if result.Succeeded {
		e.remember(ctx, query, result.Answer, result.UsedTools)
	}
	return result.Answer, nil
}

// AddKnowledge embeds the given passages and stores them in the
// knowledge collection. Blank passages are skipped. Returns the number
// of passages stored.
func (e *Engine) AddKnowledge(ctx context.Context, texts ...string) (int, error) {
	kept := make([]string, 0, len(texts))
	for _, text := range texts {
		if text = strings.TrimSpace(text); text != "" {
			kept = append(kept, text)
		}
	}
	if len(kept) == 0 {
		return 0, nil
	}

	vectors, err := e.provider.Embedder().EmbedTexts(ctx, kept)
	if err != nil {
		return 0, fmt.Errorf("embedding passages failed: %w", err)
	}
	if len(vectors) != len(kept) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d passages", len(vectors), len(kept))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	records := make([]*storage.Record, len(kept))
	for i, text := range kept {
		records[i] = &storage.Record{
			Id:       fmt.Sprintf("%d", core.IDFromContent(text)),
			Document: text,
			Vector:   vectors[i],
			Metadata: map[string]string{
				"kind":     string(core.KindKnowledge),
				"added_at": now,
			},
		}
	}
	if err := e.knowledge.Add(ctx, records...); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ProvideFeedback records a user's score and comment for a response.
func (e *Engine) ProvideFeedback(ctx context.Context, query, response string, score int, comment string) (*core.FeedbackRecord, error) {
	return e.feedback.RecordFeedback(ctx, query, response, score, comment)
}

// FeedbackStore exposes the underlying feedback store for corrections
// and similarity lookups.
func (e *Engine) FeedbackStore() feedback.Store {
	return e.feedback
}

// CacheStats reports aggregate usage statistics for the semantic cache.
func (e *Engine) CacheStats(ctx context.Context) (*core.CacheStats, error) {
	return e.cache.Stats(ctx)
}

// FeedbackStats reports aggregate statistics over user feedback.
func (e *Engine) FeedbackStats(ctx context.Context) (*core.FeedbackStats, error) {
	return e.feedback.Stats(ctx)
}

// ClearCache removes all cached responses.
func (e *Engine) ClearCache(ctx context.Context) error {
	return e.cache.Clear(ctx)
}

// Close releases the worker pool, the AI provider and the store.
func (e *Engine) Close() error {
	if err := e.reranker.Close(); err != nil {
		e.logger.Error("error closing reranker", "err", err)
	}
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	if err := e.sessions.Close(); err != nil {
		e.logger.Error("error closing session repository", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// gatherCandidates queries the knowledge collection once per variant
// and merges the results, deduplicating by record id. Variant failures
// shrink the candidate pool rather than failing retrieval.
func (e *Engine) gatherCandidates(ctx context.Context, variants []string) []core.Candidate {
	seen := make(map[string]bool)
	var candidates []core.Candidate
	for _, variant := range variants {
		vector, err := e.provider.Embedder().EmbedText(ctx, variant)
		if err != nil {
			e.logger.Warn("embedding variant failed", "variant", variant, "err", err)
			continue
		}
		matches, err := e.knowledge.Query(ctx, vector, e.retrieval,
			map[string]string{"kind": string(core.KindKnowledge)})
		if err != nil {
			e.logger.Warn("knowledge lookup failed", "variant", variant, "err", err)
			continue
		}
		for _, match := range matches {
			if seen[match.Record.Id] {
				continue
			}
			seen[match.Record.Id] = true
			candidates = append(candidates, core.Candidate{
				Text:      match.Record.Document,
				Vector:    match.Record.Vector,
				UserScore: parseUserScore(match.Record.Metadata),
			})
		}
	}
	return candidates
}

// remember writes an answer back to the cache and the response history.
// Failures are logged; the answer is already in hand.
func (e *Engine) remember(ctx context.Context, query, answer string, usedTools []string) {
	if err := e.cache.Store(ctx, query, answer); err != nil {
		e.logger.Warn("caching answer failed", "query", query, "err", err)
	}
	if _, err := e.feedback.RecordResponse(ctx, query, answer, usedTools, true); err != nil {
		e.logger.Warn("recording response failed", "query", query, "err", err)
	}
}

func parseUserScore(metadata map[string]string) float64 {
	raw, ok := metadata["user_score"]
	if !ok {
		return 0
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return score
}
