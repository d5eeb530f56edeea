package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from a structured message sequence.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate sends the system and user messages to a language model and
	// returns the generated text. Options can constrain the output, e.g.
	// WithJSONOutput for JSON-only responses.
	// Returns an error if the generation call fails.
	Generate(ctx context.Context, system []string, user []string, opts ...GenerateOption) (string, error)
}

// GenerateOption configures a single generation call.
type GenerateOption func(*GenerateSettings)

// GenerateSettings holds per-call generation settings.
type GenerateSettings struct {
	// JSONOutput asks the model to produce structured JSON only.
	JSONOutput bool
	// Temperature controls sampling randomness. Default 0.
	Temperature float64
}

// WithJSONOutput forces structured JSON output. Used for evaluation and
// expansion calls that are parsed rather than shown to the user.
func WithJSONOutput() GenerateOption {
	return func(s *GenerateSettings) {
		s.JSONOutput = true
	}
}

// WithTemperature sets the sampling temperature for one call.
func WithTemperature(t float64) GenerateOption {
	return func(s *GenerateSettings) {
		s.Temperature = t
	}
}

// ApplySettings builds GenerateSettings from a list of options.
func ApplySettings(opts []GenerateOption) GenerateSettings {
	var s GenerateSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the text generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
