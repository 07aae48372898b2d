package router

import (
	"context"
	"fmt"
	"strings"

	"ai-tripplanner-be/pkg/llm"
)

// LLMClassifier asks the model to pick one route from a restricted option
// list. Any answer outside the list, and any transport error, falls back
// to the first option so routing never fails a turn.
type LLMClassifier struct {
	provider llm.LLMProvider
}

func NewLLMClassifier(provider llm.LLMProvider) *LLMClassifier {
	return &LLMClassifier{provider: provider}
}

var _ Classifier = &LLMClassifier{}

const classifyPromptTemplate = `You are routing a message inside a trip planning conversation.

Conversation state: %s
User message: %q

Pick the single best next step from these options:
%s

Respond with ONLY this JSON format: {"route": "<option>"}. No other text.`

func (c *LLMClassifier) Classify(ctx context.Context, message, stateSummary string, options []Route) (Route, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("classify: no options")
	}

	var lines []string
	for _, o := range options {
		lines = append(lines, "- "+string(o))
	}
	prompt := fmt.Sprintf(classifyPromptTemplate, stateSummary, message, strings.Join(lines, "\n"))

	response, err := c.provider.Generate(ctx, prompt, llm.WithTemperature(0.1))
	if err != nil {
		return options[0], fmt.Errorf("classify: %w", err)
	}

	var out struct {
		Route string `json:"route"`
	}
	if err := llm.UnmarshalResponse(response, &out); err != nil {
		return options[0], fmt.Errorf("classify: %w", err)
	}

	picked := Route(strings.TrimSpace(out.Route))
	if !validRoute(picked) || !validOption(picked, options) {
		return options[0], fmt.Errorf("classify: model picked %q outside options", out.Route)
	}
	return picked, nil
}
