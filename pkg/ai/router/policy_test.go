package router

import (
	"context"
	"testing"

	"ai-tripplanner-be/pkg/trip"
)

// scriptedClassifier returns a fixed route, recording what it was asked.
type scriptedClassifier struct {
	route   Route
	err     error
	called  bool
	options []Route
}

func (s *scriptedClassifier) Classify(_ context.Context, _, _ string, options []Route) (Route, error) {
	s.called = true
	s.options = options
	if s.err != nil {
		return options[0], s.err
	}
	return s.route, nil
}

func baseState() *trip.ConversationState {
	st := trip.NewState("conv-1", "")
	st.Extracted = trip.TripInfo{
		Origin:        "Jakarta",
		Destination:   "Tokyo",
		DepartureDate: "2026-10-01",
		ReturnDate:    "2026-10-07",
		TravelPack:    "couple",
	}
	return st
}

func confirmedState() *trip.ConversationState {
	st := baseState()
	st.Clarification.Status = trip.ClarificationComplete
	return st
}

func TestStageProgression(t *testing.T) {
	st := baseState()
	if got := StageOf(st); got != StageGathering {
		t.Fatalf("fresh state should gather, got %s", got)
	}

	st.Clarification.Status = trip.ClarificationComplete
	if got := StageOf(st); got != StageNeedTravel {
		t.Fatalf("confirmed facts should need travel, got %s", got)
	}

	st.Plan.Travel = &trip.ResearchSection{Recommendations: "fly ANA"}
	if got := StageOf(st); got != StageAwaitTravelConfirm {
		t.Fatalf("travel researched should await confirm, got %s", got)
	}

	st.Flags.TravelConfirmed = true
	if got := StageOf(st); got != StageNeedStays {
		t.Fatalf("travel confirmed should need stays, got %s", got)
	}

	st.Plan.Stays = &trip.ResearchSection{Recommendations: "three hotels"}
	if got := StageOf(st); got != StageAwaitHotelConfirm {
		t.Fatalf("stays researched should await hotel choice, got %s", got)
	}

	st.Flags.HotelSelected = true
	if got := StageOf(st); got != StageNeedActivities {
		t.Fatalf("hotel selected should need activities, got %s", got)
	}

	st.Plan.Activities = &trip.ResearchSection{Recommendations: "temples"}
	if got := StageOf(st); got != StageComplete {
		t.Fatalf("all sections done should be complete, got %s", got)
	}
}

func TestDecideGathering(t *testing.T) {
	p := NewPolicy(nil)
	st := trip.NewState("conv-1", "")
	d := p.Decide(context.Background(), st, "I want to go somewhere")
	if d.Route != RouteAskMore {
		t.Errorf("no facts should ask more, got %s", d.Route)
	}

	st.Extracted.DestinationHint = "somewhere tropical in asia"
	d = p.Decide(context.Background(), st, "somewhere tropical")
	if d.Route != RouteDiscover {
		t.Errorf("hint without destination should discover, got %s", d.Route)
	}

	st.Discovery.Resolved = true
	st.Extracted.Destination = "Bali"
	d = p.Decide(context.Background(), st, "bali sounds nice")
	if d.Route != RouteAskMore {
		t.Errorf("resolved destination with missing facts should ask more, got %s", d.Route)
	}
}

func TestDecideSummaryConfirmation(t *testing.T) {
	p := NewPolicy(nil)
	st := baseState()
	st.Clarification.Status = trip.ClarificationAwaitConfirm

	d := p.Decide(context.Background(), st, "yes that's right")
	if d.Route != RouteResearchTravel {
		t.Errorf("confirmed summary should start travel research, got %s", d.Route)
	}

	d = p.Decide(context.Background(), st, "no, we leave from Bandung")
	if d.Route != RouteAskMore {
		t.Errorf("rejected summary should re-gather, got %s", d.Route)
	}
}

func TestConfirmationIgnoredWhenNotAwaiting(t *testing.T) {
	p := NewPolicy(nil)
	st := trip.NewState("conv-1", "")
	st.Extracted.Origin = "Jakarta"
	d := p.Decide(context.Background(), st, "yes")
	if d.Route != RouteAskMore {
		t.Errorf("\"yes\" with nothing awaiting must not advance, got %s", d.Route)
	}
}

func TestDecideAwaitTravelConfirm(t *testing.T) {
	st := confirmedState()
	st.Plan.Travel = &trip.ResearchSection{Recommendations: "fly ANA"}

	p := NewPolicy(nil)
	d := p.Decide(context.Background(), st, "looks good")
	if d.Route != RouteResearchStays {
		t.Errorf("confirming travel should move to stays, got %s", d.Route)
	}

	d = p.Decide(context.Background(), st, "thanks")
	if d.Route != RouteAskMore {
		t.Errorf("bare ack must not advance, got %s", d.Route)
	}

	sc := &scriptedClassifier{route: RouteResearchTravel}
	p = NewPolicy(sc)
	d = p.Decide(context.Background(), st, "can we leave a day earlier instead")
	if !sc.called {
		t.Fatal("ambiguous reply should consult classifier")
	}
	if d.Route != RouteResearchTravel {
		t.Errorf("classifier choice should win, got %s", d.Route)
	}
}

func TestDecideHotelChoice(t *testing.T) {
	st := confirmedState()
	st.Plan.Travel = &trip.ResearchSection{Recommendations: "fly"}
	st.Flags.TravelConfirmed = true
	st.Plan.Stays = &trip.ResearchSection{Recommendations: "hotels"}
	st.Context.SetPending("Which hotel?", trip.ComponentAccommodation, []string{"Hotel Indigo", "Sakura Inn", "Park Hyatt"})

	p := NewPolicy(nil)
	d := p.Decide(context.Background(), st, "2")
	if d.Route != RouteRefine {
		t.Errorf("numeric hotel pick should route to refine, got %s", d.Route)
	}
	if d.Stage != StageAwaitHotelConfirm {
		t.Errorf("unexpected stage %s", d.Stage)
	}
}

func TestDecideCompleteDefaultsToRefine(t *testing.T) {
	st := confirmedState()
	st.Plan.Travel = &trip.ResearchSection{Recommendations: "fly"}
	st.Flags.TravelConfirmed = true
	st.Plan.Stays = &trip.ResearchSection{Recommendations: "hotels"}
	st.Flags.HotelSelected = true
	st.Plan.Activities = &trip.ResearchSection{Recommendations: "temples"}

	p := NewPolicy(nil)
	d := p.Decide(context.Background(), st, "make day 2 more relaxed")
	if d.Route != RouteCompose {
		t.Errorf("complete without composed itinerary should compose, got %s", d.Route)
	}

	st.Itinerary = &trip.Itinerary{}
	d = p.Decide(context.Background(), st, "make day 2 more relaxed")
	if d.Route != RouteCompose {
		t.Errorf("refine with no presented hotels must fall back to compose, got %s", d.Route)
	}

	st.Components.Register(&trip.Component{Type: trip.ComponentAccommodation, Fields: map[string]any{"name": "Hotel Indigo"}})
	d = p.Decide(context.Background(), st, "make day 2 more relaxed")
	if d.Route != RouteRefine {
		t.Errorf("complete with presented itinerary should refine, got %s", d.Route)
	}
}

func TestClassifierFallbackOnError(t *testing.T) {
	st := confirmedState()
	st.Plan.Travel = &trip.ResearchSection{Recommendations: "fly"}

	sc := &scriptedClassifier{err: context.DeadlineExceeded}
	p := NewPolicy(sc)
	d := p.Decide(context.Background(), st, "hmm what else is there")
	if d.Route != RouteResearchTravel {
		t.Errorf("classifier error must fall back to first option, got %s", d.Route)
	}
}

func TestClassifierOutOfOptionsIgnored(t *testing.T) {
	st := confirmedState()
	st.Plan.Travel = &trip.ResearchSection{Recommendations: "fly"}

	sc := &scriptedClassifier{route: RouteCompose} // not in the offered options
	p := NewPolicy(sc)
	d := p.Decide(context.Background(), st, "hmm what else is there")
	if d.Route != RouteResearchTravel {
		t.Errorf("out-of-options classifier answer must be discarded, got %s", d.Route)
	}
}
