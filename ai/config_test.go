package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "llama3.1:8b", cfg.ChatModel)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ChatHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithChatHost("http://chat:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090/v1", cfg.ChatHost)
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithChatModel("gpt-4o-mini"),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	})
}

func TestConfig_Normalize(t *testing.T) {
	t.Run("adds v1 suffix", func(t *testing.T) {
		cfg := &Config{
			EmbeddingHost: "http://localhost:11434",
			ChatHost:      "http://localhost:11434/",
		}
		cfg.Normalize()

		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	t.Run("leaves v1 suffix alone", func(t *testing.T) {
		cfg := &Config{EmbeddingHost: "http://h/v1", ChatHost: "http://h/v1"}
		cfg.Normalize()

		assert.Equal(t, "http://h/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://h/v1", cfg.ChatHost)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	t.Run("missing embedding host", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EmbeddingHost = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing chat model", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ChatModel = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("validate normalizes hosts", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ChatHost = "http://localhost:9100"
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:9100/v1", cfg.ChatHost)
	})
}

func TestApplySettings(t *testing.T) {
	s := ApplySettings([]GenerateOption{WithJSONOutput(), WithTemperature(0.3)})
	assert.True(t, s.JSONOutput)
	assert.Equal(t, 0.3, s.Temperature)

	s = ApplySettings(nil)
	assert.False(t, s.JSONOutput)
	assert.Equal(t, 0.0, s.Temperature)
}
