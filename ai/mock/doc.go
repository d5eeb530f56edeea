// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator,
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Scripted multi-turn responses
//	gen := mock.NewMockGenerator().
//	    Enqueue("Thought: look it up\nAction: search\nAction Input: rates").
//	    Enqueue("Final Answer: 1.08")
//
//	// Custom behavior injection
//	emb := mock.NewMockEmbedder()
//	emb.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := gen.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockGenerator: Returns a fixed response until a script is enqueued
//   - MockProvider: Aggregates mock embedder and generator
package mock
