package ai

import "errors"

var (
	// ErrEmptyCompletion indicates the model returned no choices.
	ErrEmptyCompletion = errors.New("model returned no completion")

	// ErrInvalidConfig indicates the provider configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid provider configuration")
)
