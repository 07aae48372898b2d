package pipeline

import (
	"context"

	"ai-tripplanner-be/internal/pkg/logger"
	"ai-tripplanner-be/pkg/llm"
	"ai-tripplanner-be/pkg/search"
	"ai-tripplanner-be/pkg/trip"
)

// Result is the unified outcome of a pipeline stage execution.
type Result struct {
	Reply string
	// Advanced reports whether the workflow moved forward this turn, as
	// opposed to re-asking or re-presenting.
	Advanced bool
}

// Stage executes one turn's worth of work for a routed conversation.
type Stage interface {
	Run(ctx context.Context, st *trip.ConversationState, message string) (*Result, error)
}

// Deps bundles the external capabilities every stage draws on.
type Deps struct {
	LLM     llm.LLMProvider
	Search  search.Provider
	Fetcher search.TextFetcher
	Logger  logger.ILogger
}

func (d Deps) debug(module, msg string, details map[string]interface{}) {
	if d.Logger != nil {
		d.Logger.Debug(module, msg, details)
	}
}

func (d Deps) info(module, msg string, details map[string]interface{}) {
	if d.Logger != nil {
		d.Logger.Info(module, msg, details)
	}
}

func (d Deps) warn(module, msg string, details map[string]interface{}) {
	if d.Logger != nil {
		d.Logger.Warn(module, msg, details)
	}
}
