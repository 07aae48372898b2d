package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"ai-tripplanner-be/pkg/llm"
	"ai-tripplanner-be/pkg/trip"
)

// RefineStage applies targeted changes to an already-presented plan:
// picking a hotel, asking for cheaper options, swapping or removing a
// component, or imposing a budget. Deterministic patterns resolve the
// common cases; everything else is classified into a per-section
// refinement request that forces that section's research to re-run.
type RefineStage struct {
	deps Deps
}

func NewRefineStage(deps Deps) *RefineStage {
	return &RefineStage{deps: deps}
}

var _ Stage = &RefineStage{}

var (
	cheaperRe = regexp.MustCompile(`(?i)\b(cheaper|less expensive|lower price|more affordable|budget option)\b`)
	removeRe  = regexp.MustCompile(`(?i)\b(remove|delete|drop|take out|skip)\b`)
	swapRe    = regexp.MustCompile(`(?i)\b(swap|replace|different|another|something else|change)\b`)
	budgetRe  = regexp.MustCompile(`(?i)(?:under|below|less than|max(?:imum)?(?:\s+of)?)\s*\$?\s*(\d+)`)
)

const refineClassifyPromptTemplate = `A user wants to refine their trip plan. Their message: %q

Which part of the plan does it target?
Respond with ONLY this JSON format:
{"section": "travel|stays|activities|none", "request": "<short restatement of what they want>"}
No other text.`

func (s *RefineStage) Run(ctx context.Context, st *trip.ConversationState, message string) (*Result, error) {
	// A hotel pick answers the pending decision.
	if !st.Flags.HotelSelected && st.Context.Pending != nil && st.Context.Pending.Type == trip.ComponentAccommodation {
		if idx := st.Context.ResolveOption(message); idx > 0 {
			return s.selectHotel(st, idx)
		}
	}

	if m := budgetRe.FindStringSubmatch(message); m != nil {
		return s.applyBudget(st, message, m[1])
	}
	if cheaperRe.MatchString(message) {
		return s.pickCheaperHotel(st)
	}
	if removeRe.MatchString(message) {
		return s.removeComponent(st, message)
	}
	if swapRe.MatchString(message) {
		return s.swapComponent(ctx, st, message)
	}

	return s.classifyAndQueue(ctx, st, message)
}

func (s *RefineStage) selectHotel(st *trip.ConversationState, idx int) (*Result, error) {
	if st.Itinerary == nil || idx > len(st.Itinerary.Hotels) {
		return &Result{Reply: "I lost track of the hotel options. Let me put them together again."}, nil
	}
	for i := range st.Itinerary.Hotels {
		st.Itinerary.Hotels[i].Selected = i == idx-1
	}
	chosen := &st.Itinerary.Hotels[idx-1]
	if chosen.ComponentID != "" {
		for _, c := range st.Components.Accommodations {
			if _, err := st.Components.Update(c.ID, map[string]any{"selected": c.ID == chosen.ComponentID}); err != nil {
				return nil, err
			}
		}
		st.Context.Touch(chosen.ComponentID)
	}
	st.Flags.HotelSelected = true
	st.Flags.HotelConfirmed = true
	st.Context.ClearPending()

	s.deps.info("refine", "hotel selected", map[string]interface{}{
		"conversation_id": st.ConversationID,
		"hotel":           chosen.Name,
	})
	return &Result{
		Reply:    fmt.Sprintf("Great choice! I'll plan your days around **%s**.", chosen.Name),
		Advanced: true,
	}, nil
}

// pickCheaperHotel re-selects the cheapest of the already-researched
// options instead of spending another research pass.
func (s *RefineStage) pickCheaperHotel(st *trip.ConversationState) (*Result, error) {
	if st.Itinerary == nil || len(st.Itinerary.Hotels) == 0 {
		return s.queueSectionRefinement(st, trip.SectionStays, "cheaper options"), nil
	}
	hotels := st.Itinerary.Hotels
	order := make([]int, len(hotels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return hotels[order[a]].PricePerNight < hotels[order[b]].PricePerNight
	})
	cheapest := order[0]

	if hotels[cheapest].Selected {
		// Already on the cheapest shown option; only re-research helps.
		return s.queueSectionRefinement(st, trip.SectionStays, "cheaper than "+hotels[cheapest].Name), nil
	}
	return s.selectHotel(st, cheapest+1)
}

func (s *RefineStage) applyBudget(st *trip.ConversationState, message, amount string) (*Result, error) {
	// Budget phrasing defaults to accommodation unless the message clearly
	// targets transport.
	section := trip.SectionStays
	request := fmt.Sprintf("under $%s per night", amount)
	if strings.Contains(strings.ToLower(message), "flight") || strings.Contains(strings.ToLower(message), "transport") {
		section = trip.SectionTravel
		request = fmt.Sprintf("under $%s total", amount)
	}
	return s.queueSectionRefinement(st, section, request), nil
}

func (s *RefineStage) removeComponent(st *trip.ConversationState, message string) (*Result, error) {
	c := st.Context.ResolveReference(&st.Components, message)
	if c == nil {
		return &Result{Reply: "Which part of the plan should I remove? You can say things like 'remove the day 2 dinner'."}, nil
	}
	if c.Type == trip.ComponentAccommodation || c.Type == trip.ComponentTransport {
		return &Result{Reply: fmt.Sprintf("I can swap **%s** for a different option, but the plan needs at least one %s. Want me to find alternatives?", c.Name(), c.Type)}, nil
	}

	name := c.Name()
	if err := st.Components.Delete(c.ID); err != nil {
		return nil, err
	}
	if st.Itinerary != nil {
		removeEntry(st.Itinerary, c.ID)
		st.Itinerary.Normalize()
		// Normalize can renumber days when one empties out entirely, so the
		// registry must be rebuilt against the new numbering.
		if err := st.Itinerary.RegisterComponents(&st.Components); err != nil {
			return nil, err
		}
	}
	s.deps.info("refine", "component removed", map[string]interface{}{
		"conversation_id": st.ConversationID,
		"component":       c.ID,
	})
	reply := fmt.Sprintf("Done, I've taken **%s** out of the plan.", name)
	if st.Itinerary != nil {
		reply += "\n\n" + st.Itinerary.RenderMarkdown()
	}
	return &Result{Reply: reply, Advanced: true}, nil
}

func (s *RefineStage) swapComponent(ctx context.Context, st *trip.ConversationState, message string) (*Result, error) {
	c := st.Context.ResolveReference(&st.Components, message)
	if c == nil {
		return s.classifyAndQueue(ctx, st, message)
	}
	st.Context.Touch(c.ID)
	if _, err := st.Components.Update(c.ID, map[string]any{"pending_replacement": true}); err != nil {
		return nil, err
	}

	request := fmt.Sprintf("alternative to %s: %s", c.Name(), message)
	switch c.Type {
	case trip.ComponentAccommodation:
		return s.queueSectionRefinement(st, trip.SectionStays, request), nil
	case trip.ComponentTransport:
		return s.queueSectionRefinement(st, trip.SectionTravel, request), nil
	default:
		return s.queueSectionRefinement(st, trip.SectionActivities, request), nil
	}
}

func (s *RefineStage) classifyAndQueue(ctx context.Context, st *trip.ConversationState, message string) (*Result, error) {
	prompt := fmt.Sprintf(refineClassifyPromptTemplate, message)
	var out struct {
		Section string `json:"section"`
		Request string `json:"request"`
	}
	response, err := s.deps.LLM.Generate(ctx, prompt, llm.WithTemperature(0.1))
	if err == nil {
		err = llm.UnmarshalResponse(response, &out)
	}
	if err != nil {
		s.deps.warn("refine", "refinement classification failed", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"error":           err.Error(),
		})
		return &Result{Reply: "I'm not sure which part of the plan you'd like to change. Is it the travel, the hotel, or the daily activities?"}, nil
	}

	switch out.Section {
	case trip.SectionTravel, trip.SectionStays, trip.SectionActivities:
		request := out.Request
		if request == "" {
			request = message
		}
		return s.queueSectionRefinement(st, out.Section, request), nil
	default:
		return &Result{Reply: "I'm not sure which part of the plan you'd like to change. Is it the travel, the hotel, or the daily activities?"}, nil
	}
}

// queueSectionRefinement records the request, invalidates the section and
// rolls the workflow back so the section re-runs with the request applied.
func (s *RefineStage) queueSectionRefinement(st *trip.ConversationState, section, request string) *Result {
	st.Refinement[section] = trip.RefinementRequest{Request: request, RequestedAt: time.Now()}
	st.Plan.SetSection(section, nil)
	switch section {
	case trip.SectionTravel:
		st.Flags.TravelConfirmed = false
	case trip.SectionStays:
		st.Flags.HotelSelected = false
		st.Flags.HotelConfirmed = false
		st.Flags.ItineraryPresented = false
		st.Itinerary = nil
	case trip.SectionActivities:
		st.Flags.ItineraryPresented = false
	}
	s.deps.info("refine", "section refinement queued", map[string]interface{}{
		"conversation_id": st.ConversationID,
		"section":         section,
		"request":         request,
	})
	return &Result{Reply: "", Advanced: true}
}

func removeEntry(it *trip.Itinerary, componentID string) {
	for di := range it.Days {
		d := &it.Days[di]
		for _, entries := range []*[]trip.SlotEntry{&d.Morning, &d.Afternoon, &d.Evening} {
			kept := (*entries)[:0]
			for _, e := range *entries {
				if e.ComponentID != componentID {
					kept = append(kept, e)
				}
			}
			*entries = kept
		}
	}
}
