package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ai-tripplanner-be/pkg/llm"
	"ai-tripplanner-be/pkg/trip"
)

// ExtractStage pulls structured trip facts out of the conversation and
// runs the confirm-once handshake: when every required fact is present,
// a summary is shown exactly once and research only starts after the user
// confirms it. Re-confirmation is only requested when the facts change.
type ExtractStage struct {
	deps Deps
}

func NewExtractStage(deps Deps) *ExtractStage {
	return &ExtractStage{deps: deps}
}

var _ Stage = &ExtractStage{}

const extractPromptTemplate = `Extract trip planning facts from this conversation. Only fill fields the user actually stated; leave unknown fields empty. Today is a reference point for relative dates.

Recent user messages:
%s

Respond with ONLY this JSON format:
{
  "origin": "",
  "destination": "",
  "destination_hint": "",
  "departure_date": "YYYY-MM-DD or empty",
  "return_date": "YYYY-MM-DD or empty",
  "duration_days": 0,
  "trip_purpose": "",
  "travel_pack": "solo|couple|family|friends or empty"
}
Use destination_hint for vague wishes ("somewhere warm") when no concrete destination was named. No other text.`

type extractedFacts struct {
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	DestinationHint string `json:"destination_hint"`
	DepartureDate   string `json:"departure_date"`
	ReturnDate      string `json:"return_date"`
	DurationDays    int    `json:"duration_days"`
	TripPurpose     string `json:"trip_purpose"`
	TravelPack      string `json:"travel_pack"`
}

// requiredFieldLabels maps missing fields to the labels used when asking
// for them, in ask order.
var requiredFieldLabels = []struct {
	field string
	label string
}{
	{"origin", "where you're travelling from"},
	{"destination", "where you'd like to go"},
	{"dates", "your travel dates (or how many days)"},
	{"trip_purpose", "what kind of trip this is"},
	{"travel_pack", "who's travelling"},
}

func (s *ExtractStage) Run(ctx context.Context, st *trip.ConversationState, message string) (*Result, error) {
	if err := s.extractInto(ctx, st); err != nil {
		s.deps.warn("extract", "fact extraction failed, keeping previous facts", map[string]interface{}{
			"conversation_id": st.ConversationID,
			"error":           err.Error(),
		})
	}

	missing := MissingFields(st.Extracted)
	if len(missing) > 0 {
		st.Clarification.Status = trip.ClarificationIncomplete
		st.Clarification.Missing = missing
		return &Result{Reply: s.askForMissing(st, missing)}, nil
	}

	// All facts present. Pin them behind a confirmation exactly once per
	// distinct fact set.
	hash := trip.ConfirmationHash(st.Extracted)
	if st.Clarification.ConfirmedHash == hash {
		st.Clarification.Status = trip.ClarificationComplete
		return &Result{Reply: "", Advanced: true}, nil
	}

	st.Clarification.Status = trip.ClarificationAwaitConfirm
	st.Clarification.Missing = nil
	st.Clarification.Summary = s.summarize(st.Extracted)
	return &Result{Reply: st.Clarification.Summary + "\n\nShall I start planning with these details?"}, nil
}

// Confirm pins the current fact set as confirmed. Called by the
// orchestrator when the router sees a confirmation while the summary is
// awaiting one.
func (s *ExtractStage) Confirm(st *trip.ConversationState) {
	st.Clarification.ConfirmedHash = trip.ConfirmationHash(st.Extracted)
	st.Clarification.Status = trip.ClarificationComplete
	st.Flags.Confirmed = true
}

func (s *ExtractStage) extractInto(ctx context.Context, st *trip.ConversationState) error {
	recent := st.RecentUserMessages(6)
	if len(recent) == 0 {
		return nil
	}
	prompt := fmt.Sprintf(extractPromptTemplate, "- "+strings.Join(recent, "\n- "))

	response, err := s.deps.LLM.Generate(ctx, prompt, llm.WithTemperature(0.1))
	if err != nil {
		return fmt.Errorf("extract facts: %w", err)
	}
	var facts extractedFacts
	if err := llm.UnmarshalResponse(response, &facts); err != nil {
		return err
	}

	merge := func(dst *string, v string) {
		if nv := trip.NormalizeValue(v); nv != "" {
			*dst = nv
		}
	}
	merge(&st.Extracted.Origin, facts.Origin)
	merge(&st.Extracted.Destination, facts.Destination)
	merge(&st.Extracted.DestinationHint, facts.DestinationHint)
	merge(&st.Extracted.DepartureDate, facts.DepartureDate)
	merge(&st.Extracted.ReturnDate, facts.ReturnDate)
	merge(&st.Extracted.TripPurpose, facts.TripPurpose)
	merge(&st.Extracted.TravelPack, facts.TravelPack)
	if facts.DurationDays > 0 {
		st.Extracted.DurationDays = facts.DurationDays
	}

	s.deps.debug("extract", "facts merged", map[string]interface{}{
		"conversation_id": st.ConversationID,
		"destination":     st.Extracted.Destination,
		"hint":            st.Extracted.DestinationHint,
	})
	return nil
}

// MissingFields lists which required facts are still absent, in ask order.
// Destination counts as covered by a hint: discovery resolves the rest.
func MissingFields(ti trip.TripInfo) []string {
	var missing []string
	for _, f := range requiredFieldLabels {
		switch f.field {
		case "origin":
			if ti.Origin == "" {
				missing = append(missing, f.field)
			}
		case "destination":
			if ti.Destination == "" && ti.DestinationHint == "" {
				missing = append(missing, f.field)
			}
		case "dates":
			if !ti.HasDatesOrDuration() {
				missing = append(missing, f.field)
			}
		case "trip_purpose":
			if ti.TripPurpose == "" {
				missing = append(missing, f.field)
			}
		case "travel_pack":
			if ti.TravelPack == "" {
				missing = append(missing, f.field)
			}
		}
	}
	return missing
}

func (s *ExtractStage) askForMissing(st *trip.ConversationState, missing []string) string {
	labels := make([]string, 0, len(missing))
	for _, m := range missing {
		for _, f := range requiredFieldLabels {
			if f.field == m {
				labels = append(labels, f.label)
			}
		}
	}
	var b strings.Builder
	if st.Extracted.Destination != "" {
		fmt.Fprintf(&b, "%s sounds great! ", st.Extracted.Destination)
	}
	b.WriteString("To plan your trip I still need to know ")
	switch len(labels) {
	case 1:
		b.WriteString(labels[0])
	case 2:
		b.WriteString(labels[0] + " and " + labels[1])
	default:
		b.WriteString(strings.Join(labels[:len(labels)-1], ", ") + ", and " + labels[len(labels)-1])
	}
	b.WriteString(".")
	return b.String()
}

func (s *ExtractStage) summarize(ti trip.TripInfo) string {
	var b strings.Builder
	b.WriteString("Here's what I have so far:\n")
	fmt.Fprintf(&b, "- **From:** %s\n", ti.Origin)
	fmt.Fprintf(&b, "- **To:** %s\n", ti.Destination)
	if ti.HasDates() {
		fmt.Fprintf(&b, "- **Dates:** %s to %s\n", ti.DepartureDate, ti.ReturnDate)
	} else if ti.DurationDays > 0 {
		fmt.Fprintf(&b, "- **Duration:** %d days\n", ti.DurationDays)
	}
	fmt.Fprintf(&b, "- **Trip type:** %s\n", ti.TripPurpose)
	fmt.Fprintf(&b, "- **Travelling:** %s", ti.TravelPack)
	return b.String()
}
