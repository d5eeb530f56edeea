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

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
)

const (
	// DefaultThreshold is the minimum cosine similarity for a cache hit.
	DefaultThreshold = 0.7

	// DefaultCandidates is how many stored queries are scored per lookup.
	DefaultCandidates = 20
)

// Cache answers repeated queries from stored responses using semantic
// similarity rather than exact matching.
type Cache interface {
	// Check looks up a cached response for the query. A hit increments
	// the entry's usage count. Provider and storage failures degrade to
	// a miss so the pipeline can proceed.
	Check(ctx context.Context, query string) (response string, hit bool)

	// Store caches a response for the query. Re-storing the same query
	// overwrites the previous entry.
	Store(ctx context.Context, query, response string) error

	// Stats reports aggregate usage statistics for the cache.
	Stats(ctx context.Context) (*core.CacheStats, error)

	// Clear removes all cached entries.
	Clear(ctx context.Context) error
}

// semanticCache implements Cache over a vector collection.
type semanticCache struct {
	collection storage.Collection
	embedder   ai.Embedder
	threshold  float32
	candidates int
	logger     *slog.Logger
}

// Option is a functional option for configuring the cache.
type Option func(*semanticCache) error

// WithThreshold sets the minimum similarity for a cache hit.
func WithThreshold(threshold float32) Option {
	return func(c *semanticCache) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("cache: threshold must be in (0, 1], got %f", threshold)
		}
		c.threshold = threshold
		return nil
	}
}

// WithCandidates sets how many stored queries are scored per lookup.
func WithCandidates(n int) Option {
	return func(c *semanticCache) error {
		if n <= 0 {
			return fmt.Errorf("cache: candidates must be positive, got %d", n)
		}
		c.candidates = n
		return nil
	}
}

// New creates a semantic cache backed by the given collection.
//
// Returns the Cache interface to enforce abstraction.
func New(collection storage.Collection, embedder ai.Embedder, opts ...Option) (Cache, error) {
	c := &semanticCache{
		collection: collection,
		embedder:   embedder,
		threshold:  DefaultThreshold,
		candidates: DefaultCandidates,
		logger:     slog.Default().With("component", "cache"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Check looks up a cached response for the query.
// The best-scoring stored query wins; anything below the threshold is a miss.
func (c *semanticCache) Check(ctx context.Context, query string) (string, bool) {
	if query == "" {
		return "", false
	}

	vector, err := c.embedder.EmbedText(ctx, query)
	if err != nil {
		c.logger.Warn("cache lookup degraded to miss", "err", err)
		return "", false
	}

	matches, err := c.collection.Query(ctx, vector, c.candidates,
		map[string]string{"kind": string(core.KindSearchQuery)})
	if err != nil {
		c.logger.Warn("cache lookup degraded to miss", "err", err)
		return "", false
	}
	if len(matches) == 0 {
		return "", false
	}

	// Matches are ordered by score, so the first one is the best candidate.
	best := matches[0]
	if best.Score < c.threshold {
		c.logger.Debug("cache miss", "best_score", best.Score, "threshold", c.threshold)
		return "", false
	}

	response := best.Record.Metadata["response"]
	c.logger.Info("cache hit", "score", best.Score, "cached_query", best.Record.Document)

	if err := c.touch(ctx, best.Record.Id); err != nil {
		c.logger.Warn("failed to update cache usage count", "err", err)
	}

	return response, true
}

// Store caches a response for the query.
func (c *semanticCache) Store(ctx context.Context, query, response string) error {
	if query == "" {
		return core.ErrEmptyQuery
	}
	if response == "" {
		return core.ErrEmptyResponse
	}

	vector, err := c.embedder.EmbedText(ctx, query)
	if err != nil {
		return err
	}

	record := &storage.Record{
		Id:       fmt.Sprintf("%d", core.IDFromContent(query)),
		Document: query,
		Vector:   vector,
		Metadata: map[string]string{
			"kind":     string(core.KindSearchQuery),
			"response": response,
			// The creating lookup counts as the first use.
			"usage_count": "1",
			"created_at":  time.Now().UTC().Format(time.RFC3339),
		},
	}
	return c.collection.Add(ctx, record)
}

// Stats reports aggregate usage statistics for the cache.
func (c *semanticCache) Stats(ctx context.Context) (*core.CacheStats, error) {
	records, err := c.collection.Get(ctx, map[string]string{"kind": string(core.KindSearchQuery)})
	if err != nil {
		return nil, err
	}

	stats := &core.CacheStats{TotalEntries: len(records)}
	for _, r := range records {
		if n, err := strconv.Atoi(r.Metadata["usage_count"]); err == nil {
			stats.TotalUsage += n
		}
	}
	if stats.TotalEntries > 0 {
		stats.AverageUsage = float64(stats.TotalUsage) / float64(stats.TotalEntries)
	}
	return stats, nil
}

// Clear removes all cached entries.
func (c *semanticCache) Clear(ctx context.Context) error {
	records, err := c.collection.Get(ctx, map[string]string{"kind": string(core.KindSearchQuery)})
	if err != nil {
		return err
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.Id
	}
	if len(ids) == 0 {
		return nil
	}

	c.logger.Info("clearing cache", "entries", len(ids))
	return c.collection.Delete(ctx, ids...)
}

// touch increments the usage count of a cache entry in one transaction.
func (c *semanticCache) touch(ctx context.Context, id string) error {
	return c.collection.Modify(ctx, id, func(r *storage.Record) error {
		count, _ := strconv.Atoi(r.Metadata["usage_count"])
		r.Metadata["usage_count"] = strconv.Itoa(count + 1)
		return nil
	})
}
