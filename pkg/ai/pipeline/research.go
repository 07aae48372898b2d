package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ai-tripplanner-be/pkg/llm"
	"ai-tripplanner-be/pkg/search"
	"ai-tripplanner-be/pkg/trip"
)

// sectionSpec configures one research section: which trip fields key its
// fingerprint, how queries are built and what the model is asked for.
type sectionSpec struct {
	kind        string
	fingerprint []string
	maxResults  int
	queries     func(ti trip.TripInfo, refinement string) []string
	instruction string
}

var sectionSpecs = map[string]sectionSpec{
	trip.SectionTravel: {
		kind:        trip.SectionTravel,
		fingerprint: trip.TravelFingerprintFields,
		maxResults:  12,
		queries: func(ti trip.TripInfo, refinement string) []string {
			q := fmt.Sprintf("flights %s to %s %s", ti.Origin, ti.Destination, ti.DepartureDate)
			if refinement != "" {
				q += " " + refinement
			}
			return []string{q, fmt.Sprintf("how to get from %s to %s train bus", ti.Origin, ti.Destination)}
		},
		instruction: "Summarize 1-3 realistic ways to get there (flights first if sensible) with rough prices and travel time.",
	},
	trip.SectionStays: {
		kind:        trip.SectionStays,
		fingerprint: trip.StaysFingerprintFields,
		maxResults:  8,
		queries: func(ti trip.TripInfo, refinement string) []string {
			q := fmt.Sprintf("best hotels in %s for %s trip", ti.Destination, ti.TravelPack)
			if refinement != "" {
				q += " " + refinement
			}
			return []string{q, fmt.Sprintf("%s hotels price per night %s", ti.Destination, refinement)}
		},
		instruction: "Summarize promising places to stay across price points with area, rough nightly price and what makes each notable.",
	},
	trip.SectionActivities: {
		kind:        trip.SectionActivities,
		fingerprint: trip.ActivitiesFingerprintFields,
		maxResults:  8,
		queries: func(ti trip.TripInfo, refinement string) []string {
			q := fmt.Sprintf("things to do in %s %s", ti.Destination, ti.TripPurpose)
			if refinement != "" {
				q += " " + refinement
			}
			return []string{q, fmt.Sprintf("best restaurants in %s", ti.Destination)}
		},
		instruction: "Summarize activities and restaurants worth slotting into a day-by-day plan, spread across mornings, afternoons and evenings.",
	},
}

const researchPromptTemplate = `You are researching the %s portion of a trip.

Trip facts: %s
%s

Web search results:
%s
%s
%s
Respond with ONLY this JSON format:
{"recommendations": "<markdown summary>", "sources": [{"title": "", "url": ""}]}
Only cite urls from the results above. No other text.`

// ResearchStage runs external research for one section, gated two ways:
// the fingerprint gate skips work when the relevant trip facts have not
// changed since the last run, and the merge gate refuses to overwrite a
// good section with an empty patch.
type ResearchStage struct {
	deps Deps
	spec sectionSpec
}

func NewResearchStage(deps Deps, section string) *ResearchStage {
	spec, ok := sectionSpecs[section]
	if !ok {
		panic(fmt.Sprintf("unknown research section %q", section))
	}
	return &ResearchStage{deps: deps, spec: spec}
}

var _ Stage = &ResearchStage{}

func (s *ResearchStage) Run(ctx context.Context, st *trip.ConversationState, message string) (*Result, error) {
	refinement := ""
	if r, ok := st.Refinement[s.spec.kind]; ok {
		refinement = r.Request
	}

	fp := trip.Fingerprint(st.Extracted.FieldMap(), s.spec.fingerprint)
	existing := st.Plan.Section(s.spec.kind)
	if !existing.Empty() && existing.Fingerprint == fp && refinement == "" {
		s.deps.debug("research", "fingerprint unchanged, reusing section", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"section":         s.spec.kind,
		})
		return &Result{Reply: s.present(st, existing), Advanced: true}, nil
	}

	section, err := s.research(ctx, st, refinement)
	if err != nil {
		s.deps.warn("research", "section research failed", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"section":         s.spec.kind,
			"error":           err.Error(),
		})
		if !existing.Empty() {
			return &Result{Reply: s.present(st, existing), Advanced: true}, nil
		}
		return &Result{Reply: fmt.Sprintf("I hit a snag researching %s options. Mind if we try that again in a moment?", s.spec.kind)}, nil
	}

	// Merge gate: a patch with neither recommendations nor sources is
	// discarded, keeping whatever was there before.
	if section.Empty() {
		s.deps.warn("research", "empty research patch rejected", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"section":         s.spec.kind,
		})
		if !existing.Empty() {
			return &Result{Reply: s.present(st, existing), Advanced: true}, nil
		}
		return &Result{Reply: fmt.Sprintf("I couldn't find solid %s options for this trip yet. Want me to try a different angle?", s.spec.kind)}, nil
	}

	section.Fingerprint = fp
	st.Plan.SetSection(s.spec.kind, section)
	delete(st.Refinement, s.spec.kind)

	s.deps.info("research", "section updated", map[string]interface{}{
		"conversation_id": st.ConversationID,
		"section":         s.spec.kind,
		"sources":         len(section.Sources),
	})
	return &Result{Reply: s.present(st, section), Advanced: true}, nil
}

func (s *ResearchStage) research(ctx context.Context, st *trip.ConversationState, refinement string) (*trip.ResearchSection, error) {
	var results []search.Result
	for _, q := range s.spec.queries(st.Extracted, refinement) {
		r, err := s.deps.Search.Search(ctx, q, s.spec.maxResults/2+1)
		if err != nil {
			s.deps.warn("research", "search query failed", map[string]interface{}{
				"conversation_id": st.ConversationID,
				"query":           q,
				"error":           err.Error(),
			})
			continue
		}
		results = append(results, r...)
	}
	results = search.Deduplicate(results)
	if len(results) > s.spec.maxResults {
		results = results[:s.spec.maxResults]
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no search results for %s", s.spec.kind)
	}

	var lines []string
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", r.Title, r.URL, r.Snippet))
	}
	refinementLine := ""
	if refinement != "" {
		refinementLine = "User refinement request: " + refinement
	}
	prompt := fmt.Sprintf(researchPromptTemplate,
		s.spec.kind, s.factsLine(st.Extracted), refinementLine,
		strings.Join(lines, "\n"), s.pageContext(ctx, st, results), s.spec.instruction)

	response, err := s.deps.LLM.Generate(ctx, prompt, llm.WithTemperature(0.3))
	if err != nil {
		return nil, fmt.Errorf("summarize %s research: %w", s.spec.kind, err)
	}
	var section trip.ResearchSection
	if err := llm.UnmarshalResponse(response, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

// pageContext fetches the top result's page text for the activities
// section, where snippets alone are too thin to fill a day-by-day plan.
// Fetch failures degrade to snippet-only research.
func (s *ResearchStage) pageContext(ctx context.Context, st *trip.ConversationState, results []search.Result) string {
	if s.spec.kind != trip.SectionActivities || s.deps.Fetcher == nil || len(results) == 0 {
		return ""
	}
	top := results[0]
	text, err := s.deps.Fetcher.FetchText(ctx, top.URL)
	if err != nil || text == "" {
		if err != nil {
			s.deps.warn("research", "page fetch failed", map[string]interface{}{
				"conversation_id": st.ConversationID,
				"url":             top.URL,
				"error":           err.Error(),
			})
		}
		return ""
	}
	return fmt.Sprintf("\nPage content from %s:\n%s\n", top.URL, text)
}

func (s *ResearchStage) factsLine(ti trip.TripInfo) string {
	parts := []string{fmt.Sprintf("%s to %s", ti.Origin, ti.Destination)}
	if ti.HasDates() {
		parts = append(parts, fmt.Sprintf("%s to %s", ti.DepartureDate, ti.ReturnDate))
	} else if ti.DurationDays > 0 {
		parts = append(parts, fmt.Sprintf("%d days", ti.DurationDays))
	}
	if ti.TripPurpose != "" {
		parts = append(parts, ti.TripPurpose)
	}
	if ti.TravelPack != "" {
		parts = append(parts, ti.TravelPack)
	}
	return strings.Join(parts, ", ")
}

func (s *ResearchStage) present(st *trip.ConversationState, section *trip.ResearchSection) string {
	var b strings.Builder
	b.WriteString(section.Recommendations)
	if len(section.Sources) > 0 {
		b.WriteString("\n\n**Sources:**\n")
		for _, src := range section.Sources {
			fmt.Fprintf(&b, "- [%s](%s)\n", src.Title, src.URL)
		}
	}
	switch s.spec.kind {
	case trip.SectionTravel:
		b.WriteString("\nDo these travel options work for you?")
	case trip.SectionStays:
		// The composer turns stays research into concrete hotel options.
	case trip.SectionActivities:
	}
	return strings.TrimRight(b.String(), "\n")
}
