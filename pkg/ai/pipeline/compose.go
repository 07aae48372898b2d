package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ai-tripplanner-be/pkg/llm"
	"ai-tripplanner-be/pkg/trip"
)

// composeMaxAttempts bounds the validate-and-retry loop. Each retry feeds
// the validation failures back to the model; after the last attempt the
// stage apologizes instead of presenting a malformed plan.
const composeMaxAttempts = 3

// ComposeStage assembles the research sections into a structured
// itinerary: exactly three hotel options, one to three transport options,
// and (only once a hotel is picked) up to seven days of slotted plans.
type ComposeStage struct {
	deps Deps
}

func NewComposeStage(deps Deps) *ComposeStage {
	return &ComposeStage{deps: deps}
}

var _ Stage = &ComposeStage{}

const composePromptTemplate = `Compose a trip itinerary from this research.

Trip facts: %s

Travel research:
%s

Stay research:
%s
%s
Rules:
- "hotels" must contain exactly 3 options drawn from the stay research.
- "transport" must contain 1 to 3 options drawn from the travel research.
%s
Respond with ONLY this JSON format:
{
  "hotels": [{"name": "", "area": "", "price_per_night": 0, "currency": "USD", "rating": 0, "url": "", "highlights": ""}],
  "transport": [{"mode": "flight", "name": "", "departure": "", "arrival": "", "price": 0, "currency": "USD", "url": "", "notes": ""}],
  "days": [{"number": 1, "title": "", "morning": [{"kind": "activity", "name": "", "description": ""}], "afternoon": [], "evening": []}],
  "notes": ""
}
No other text.%s`

func (s *ComposeStage) Run(ctx context.Context, st *trip.ConversationState, message string) (*Result, error) {
	hotelSelected := st.Flags.HotelSelected

	var lastErr error
	feedback := ""
	for attempt := 1; attempt <= composeMaxAttempts; attempt++ {
		it, err := s.compose(ctx, st, hotelSelected, feedback)
		if err == nil {
			s.accept(st, it, hotelSelected)
			return &Result{Reply: s.presentReply(st, it, hotelSelected), Advanced: true}, nil
		}
		lastErr = err
		feedback = err.Error()
		s.deps.warn("compose", "itinerary attempt rejected", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"attempt":         attempt,
			"error":           err.Error(),
		})
	}

	s.deps.warn("compose", "giving up after repeated invalid itineraries", map[string]interface{}{
		"conversation_id": st.ConversationID,
		"error":           lastErr.Error(),
	})
	return &Result{Reply: "I'm having trouble putting a clean itinerary together right now. Give me another go in a moment, or tweak any detail and I'll retry."}, nil
}

func (s *ComposeStage) compose(ctx context.Context, st *trip.ConversationState, hotelSelected bool, feedback string) (*trip.Itinerary, error) {
	dayRules := "- \"days\" must be an empty list: the user has not picked a hotel yet."
	activitiesBlock := ""
	if hotelSelected {
		days := st.Extracted.DurationDays
		if days <= 0 || days > trip.MaxItineraryDays {
			days = trip.MaxItineraryDays
		}
		dayRules = fmt.Sprintf("- \"days\" must cover up to %d days, numbered contiguously from 1, each day holding morning/afternoon/evening entries of kind \"activity\" or \"restaurant\".\n- Keep the selected hotel's location in mind when ordering days.", days)
		if act := st.Plan.Activities; !act.Empty() {
			activitiesBlock = "\nActivity research:\n" + act.Recommendations + "\n"
		}
		if sel := selectedHotelName(st); sel != "" {
			dayRules += fmt.Sprintf("\n- Mark the hotel named %q with \"selected\": true.", sel)
		}
	}

	feedbackBlock := ""
	if feedback != "" {
		feedbackBlock = "\nYour previous attempt was rejected: " + feedback + "\nFix every listed problem."
	}

	travel, stays := st.Plan.Travel, st.Plan.Stays
	prompt := fmt.Sprintf(composePromptTemplate,
		s.factsLine(st),
		sectionText(travel), sectionText(stays), activitiesBlock,
		dayRules, feedbackBlock)

	response, err := s.deps.LLM.Generate(ctx, prompt, llm.WithTemperature(0.4))
	if err != nil {
		return nil, fmt.Errorf("compose itinerary: %w", err)
	}
	var it trip.Itinerary
	if err := llm.UnmarshalResponse(response, &it); err != nil {
		return nil, err
	}

	it.Summary = trip.PlanSummary{
		Origin:        st.Extracted.Origin,
		Destination:   st.Extracted.Destination,
		DepartureDate: st.Extracted.DepartureDate,
		ReturnDate:    st.Extracted.ReturnDate,
		DurationDays:  st.Extracted.DurationDays,
		Purpose:       st.Extracted.TripPurpose,
		Pack:          st.Extracted.TravelPack,
	}
	it.Normalize()
	if !hotelSelected {
		// Models love to volunteer day plans anyway; drop them rather than
		// burning retries on the violation.
		it.Days = nil
	}
	if hotelSelected && it.SelectedHotel() == nil {
		// Model lost the selection; reapply it by name before validating.
		if sel := selectedHotelName(st); sel != "" {
			for i := range it.Hotels {
				if strings.EqualFold(it.Hotels[i].Name, sel) {
					it.Hotels[i].Selected = true
				}
			}
		}
	}
	if err := it.Validate(hotelSelected); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *ComposeStage) accept(st *trip.ConversationState, it *trip.Itinerary, hotelSelected bool) {
	st.Itinerary = it
	st.Plan.Summary = it.Summary
	if err := it.RegisterComponents(&st.Components); err != nil {
		s.deps.warn("compose", "component registration failed", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"error":           err.Error(),
		})
	}

	if !hotelSelected {
		names := make([]string, len(it.Hotels))
		for i, h := range it.Hotels {
			names[i] = h.Name
		}
		st.Context.SetPending("Which hotel would you like?", trip.ComponentAccommodation, names)
	} else {
		st.Flags.ItineraryPresented = true
		st.Context.ClearPending()
	}

	s.deps.info("compose", "itinerary accepted", map[string]interface{}{
		"conversation_id": st.ConversationID,
		"hotels":          len(it.Hotels),
		"transport":       len(it.Transport),
		"days":            len(it.Days),
	})
}

func (s *ComposeStage) presentReply(st *trip.ConversationState, it *trip.Itinerary, hotelSelected bool) string {
	return it.RenderMarkdown()
}

func (s *ComposeStage) factsLine(st *trip.ConversationState) string {
	ti := st.Extracted
	parts := []string{fmt.Sprintf("%s to %s", ti.Origin, ti.Destination)}
	if ti.HasDates() {
		parts = append(parts, fmt.Sprintf("%s to %s", ti.DepartureDate, ti.ReturnDate))
	}
	if ti.DurationDays > 0 {
		parts = append(parts, fmt.Sprintf("%d days", ti.DurationDays))
	}
	if ti.TripPurpose != "" {
		parts = append(parts, ti.TripPurpose)
	}
	if ti.TravelPack != "" {
		parts = append(parts, "travelling as "+ti.TravelPack)
	}
	return strings.Join(parts, ", ")
}

func sectionText(s *trip.ResearchSection) string {
	if s.Empty() {
		return "(none)"
	}
	return s.Recommendations
}

func selectedHotelName(st *trip.ConversationState) string {
	for _, c := range st.Components.Accommodations {
		if sel, _ := c.Fields["selected"].(bool); sel {
			return c.Name()
		}
	}
	if st.Itinerary != nil {
		if h := st.Itinerary.SelectedHotel(); h != nil {
			return h.Name
		}
	}
	return ""
}
