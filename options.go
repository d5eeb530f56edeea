package ragloop

import (
	"github.com/ragware/ragloop/agent"
	"github.com/ragware/ragloop/cache"
	"github.com/ragware/ragloop/rerank"
)

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	inMemory       bool
	retrievalLimit int
	cacheOpts      []cache.Option
	rerankOpts     []rerank.Option
	agentOpts      []agent.Option
	extraTools     []agent.Tool
}

func defaultEngineOptions() *engineOptions {
	return &engineOptions{retrievalLimit: defaultRetrievalLimit}
}

// WithInMemory keeps the store in memory instead of on disk. Intended
// for tests and throwaway sessions.
func WithInMemory() Option {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithRetrievalLimit sets how many passages each query variant pulls
// from the knowledge collection before reranking.
func WithRetrievalLimit(n int) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.retrievalLimit = n
		}
	}
}

// WithCacheThreshold sets the minimum similarity for a cache hit.
func WithCacheThreshold(threshold float32) Option {
	return func(o *engineOptions) {
		o.cacheOpts = append(o.cacheOpts, cache.WithThreshold(threshold))
	}
}

// WithTopK sets how many candidates survive reranking.
func WithTopK(k int) Option {
	return func(o *engineOptions) {
		o.rerankOpts = append(o.rerankOpts, rerank.WithTopK(k))
	}
}

// WithScoreWeight sets the user score weight in the reranking formula.
func WithScoreWeight(w float64) Option {
	return func(o *engineOptions) {
		o.rerankOpts = append(o.rerankOpts, rerank.WithScoreWeight(w))
	}
}

// WithMaxIterations bounds the reasoning loop.
func WithMaxIterations(n int) Option {
	return func(o *engineOptions) {
		o.agentOpts = append(o.agentOpts, agent.WithMaxIterations(n))
	}
}

// WithExtraTools registers additional tools with the reasoning loop
// alongside the built-in knowledge search and feedback recorder.
func WithExtraTools(tools ...agent.Tool) Option {
	return func(o *engineOptions) {
		o.extraTools = append(o.extraTools, tools...)
	}
}
