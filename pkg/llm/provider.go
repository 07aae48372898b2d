package llm

import (
	"context"
)

// Message is one chat turn in a provider-agnostic shape.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option tunes a single call without widening the interface.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider is the contract every model backend satisfies. Pipeline
// stages depend on this, never on a concrete provider.
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response.
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model.
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
