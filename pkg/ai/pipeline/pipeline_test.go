package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ai-tripplanner-be/pkg/llm"
	"ai-tripplanner-be/pkg/search"
	"ai-tripplanner-be/pkg/trip"
)

// scriptedLLM returns canned responses in order and records prompts.
type scriptedLLM struct {
	responses []string
	err       error
	prompts   []string
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	prompt := ""
	if len(history) > 0 {
		prompt = history[len(history)-1].Content
	}
	return s.next(prompt)
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.next(prompt)
}

func (s *scriptedLLM) next(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", fmt.Errorf("scripted llm exhausted after %d calls", len(s.prompts))
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

func (s *scriptedLLM) lastPrompt() string {
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

// scriptedSearch returns fixed results for every query.
type scriptedSearch struct {
	results []search.Result
	err     error
	queries []string
}

func (s *scriptedSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// scriptedFetcher returns fixed page text and records fetched urls.
type scriptedFetcher struct {
	text string
	err  error
	urls []string
}

func (f *scriptedFetcher) FetchText(ctx context.Context, pageURL string) (string, error) {
	f.urls = append(f.urls, pageURL)
	return f.text, f.err
}

func testDeps(l *scriptedLLM, sr *scriptedSearch) Deps {
	if sr == nil {
		sr = &scriptedSearch{results: []search.Result{
			{Title: "Result A", URL: "https://a.test", Snippet: "snippet a"},
			{Title: "Result B", URL: "https://b.test", Snippet: "snippet b"},
		}}
	}
	return Deps{LLM: l, Search: sr, Fetcher: &scriptedFetcher{}}
}

func completeFactsState() *trip.ConversationState {
	st := trip.NewState("conv-1", "")
	st.Extracted = trip.TripInfo{
		Origin:        "Jakarta",
		Destination:   "Tokyo",
		DepartureDate: "2026-10-01",
		ReturnDate:    "2026-10-07",
		DurationDays:  6,
		TripPurpose:   "sightseeing",
		TravelPack:    "couple",
	}
	st.Clarification.Status = trip.ClarificationComplete
	st.Clarification.ConfirmedHash = trip.ConfirmationHash(st.Extracted)
	return st
}

func composeResponse(withDays bool) string {
	hotels := `[{"name": "Hotel Indigo", "area": "Shibuya", "price_per_night": 180, "currency": "USD"},
		{"name": "Sakura Inn", "area": "Asakusa", "price_per_night": 90, "currency": "USD"},
		{"name": "Park Hyatt", "area": "Shinjuku", "price_per_night": 420, "currency": "USD"}]`
	transport := `[{"mode": "flight", "name": "ANA direct flight", "price": 650, "currency": "USD"}]`
	days := `[]`
	if withDays {
		days = `[{"number": 1, "title": "Old Tokyo", "morning": [{"kind": "activity", "name": "Senso-ji Temple"}],
			"afternoon": [], "evening": [{"kind": "restaurant", "name": "Ichiran Ramen"}]},
			{"number": 2, "morning": [{"kind": "activity", "name": "Meiji Shrine"}], "afternoon": [], "evening": []}]`
	}
	return fmt.Sprintf(`{"hotels": %s, "transport": %s, "days": %s, "notes": ""}`, hotels, transport, days)
}

func markSelected(resp, hotel string) string {
	return strings.Replace(resp,
		fmt.Sprintf(`"name": %q`, hotel),
		fmt.Sprintf(`"name": %q, "selected": true`, hotel), 1)
}
