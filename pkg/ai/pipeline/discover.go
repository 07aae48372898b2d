package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ai-tripplanner-be/pkg/llm"
	"ai-tripplanner-be/pkg/trip"
)

// DiscoverStage turns a vague destination wish ("somewhere warm in
// November") into a concrete destination through a bounded suggest loop:
// search for candidates, show up to three, and either lock in the user's
// pick or offer more. After the cycle cap it asks for specifics instead of
// searching again.
type DiscoverStage struct {
	deps Deps
}

func NewDiscoverStage(deps Deps) *DiscoverStage {
	return &DiscoverStage{deps: deps}
}

var _ Stage = &DiscoverStage{}

const discoverIntentPromptTemplate = `A user is choosing a travel destination. They were shown these suggestions:
%s

Their latest message: %q

Classify their intent. Respond with ONLY this JSON format:
{"action": "destination_confirmed|needs_options|wants_more|unclear", "destination": "<name if confirmed, else empty>"}
No other text.`

const suggestPromptTemplate = `A traveller wants: %q
Web search results:
%s

Suggest up to 3 concrete destinations that fit, each grounded in the results. Respond with ONLY this JSON format:
{"suggestions": [{"name": "", "description": "one sentence", "source_url": ""}]}
Do not repeat these already-shown destinations: %s. No other text.`

type discoverIntent struct {
	Action      string `json:"action"`
	Destination string `json:"destination"`
}

type suggestionList struct {
	Suggestions []trip.Suggestion `json:"suggestions"`
}

func (s *DiscoverStage) Run(ctx context.Context, st *trip.ConversationState, message string) (*Result, error) {
	// With suggestions already on the table, interpret the reply first.
	if len(st.Discovery.Suggestion) > 0 {
		intent := s.classifyIntent(ctx, st, message)
		switch intent.Action {
		case "destination_confirmed":
			dest := trip.NormalizeValue(intent.Destination)
			if dest == "" {
				dest = st.Discovery.Suggestion[0].Name
			}
			return s.confirmDestination(st, dest), nil
		case "needs_options", "wants_more":
			// fall through to another search cycle
		default:
			// Unclear replies cost no cycle; re-present what we have.
			return &Result{Reply: s.renderSuggestions(st.Discovery.Suggestion, "Did any of these catch your eye, or should I look for something different?")}, nil
		}
	}

	if st.Discovery.CycleCount >= trip.MaxDiscoveryCycles {
		return &Result{Reply: "I've shown you quite a few options. Could you be more specific about what you're looking for, or name a destination you're leaning towards?"}, nil
	}
	st.Discovery.CycleCount++

	query := st.Extracted.DestinationHint
	if query == "" {
		query = message
	}
	suggestions, err := s.suggest(ctx, st, query)
	if err != nil {
		s.deps.warn("discover", "suggestion cycle failed", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"cycle":           st.Discovery.CycleCount,
			"error":           err.Error(),
		})
		return &Result{Reply: "I couldn't pull up destination ideas just now. Could you name a place you're considering?"}, nil
	}
	if len(suggestions) == 0 {
		return &Result{Reply: "I couldn't find destinations matching that. Could you describe what you're looking for differently?"}, nil
	}

	st.Discovery.Suggestion = suggestions
	for _, sg := range suggestions {
		st.Discovery.Shown = append(st.Discovery.Shown, sg.Name)
	}
	return &Result{Reply: s.renderSuggestions(suggestions, "Do any of these appeal to you? I can also look for more options."), Advanced: true}, nil
}

func (s *DiscoverStage) confirmDestination(st *trip.ConversationState, dest string) *Result {
	st.Extracted.Destination = dest
	st.Discovery.Resolved = true
	s.deps.info("discover", "destination resolved", map[string]interface{}{
		"conversation_id": st.ConversationID,
		"destination":     dest,
		"cycles":          st.Discovery.CycleCount,
	})
	return &Result{
		Reply:    fmt.Sprintf("%s it is! Let me make sure I have the rest of your trip details.", dest),
		Advanced: true,
	}
}

func (s *DiscoverStage) classifyIntent(ctx context.Context, st *trip.ConversationState, message string) discoverIntent {
	var names []string
	for _, sg := range st.Discovery.Suggestion {
		names = append(names, "- "+sg.Name)
	}
	prompt := fmt.Sprintf(discoverIntentPromptTemplate, strings.Join(names, "\n"), message)

	var intent discoverIntent
	response, err := s.deps.LLM.Generate(ctx, prompt, llm.WithTemperature(0.1))
	if err == nil {
		err = llm.UnmarshalResponse(response, &intent)
	}
	if err != nil {
		s.deps.warn("discover", "intent classification failed", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"error":           err.Error(),
		})
		intent.Action = "unclear"
	}
	return intent
}

func (s *DiscoverStage) suggest(ctx context.Context, st *trip.ConversationState, query string) ([]trip.Suggestion, error) {
	results, err := s.deps.Search.Search(ctx, "best travel destinations "+query, 5)
	if err != nil {
		return nil, fmt.Errorf("destination search: %w", err)
	}
	var lines []string
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", r.Title, r.URL, r.Snippet))
	}
	shown := strings.Join(st.Discovery.Shown, ", ")
	if shown == "" {
		shown = "(none)"
	}
	prompt := fmt.Sprintf(suggestPromptTemplate, query, strings.Join(lines, "\n"), shown)

	response, err := s.deps.LLM.Generate(ctx, prompt, llm.WithTemperature(0.4))
	if err != nil {
		return nil, fmt.Errorf("suggest destinations: %w", err)
	}
	var list suggestionList
	if err := llm.UnmarshalResponse(response, &list); err != nil {
		return nil, err
	}

	// Drop anything already shown; cap at three.
	seen := make(map[string]bool, len(st.Discovery.Shown))
	for _, name := range st.Discovery.Shown {
		seen[strings.ToLower(name)] = true
	}
	var out []trip.Suggestion
	for _, sg := range list.Suggestions {
		if sg.Name == "" || seen[strings.ToLower(sg.Name)] {
			continue
		}
		out = append(out, sg)
		if len(out) == 3 {
			break
		}
	}
	return out, nil
}

func (s *DiscoverStage) renderSuggestions(suggestions []trip.Suggestion, prompt string) string {
	var b strings.Builder
	b.WriteString("Here are some ideas:\n\n")
	for i, sg := range suggestions {
		fmt.Fprintf(&b, "%d. **%s** - %s\n", i+1, sg.Name, sg.Description)
	}
	b.WriteString("\n" + prompt)
	return b.String()
}
