package pipeline

import (
	"context"
	"strings"
	"testing"

	"ai-tripplanner-be/pkg/trip"
)

// presentedState builds a state where three hotels are on the table and a
// choice is pending.
func presentedState(t *testing.T) *trip.ConversationState {
	t.Helper()
	st := researchedState()
	it := &trip.Itinerary{
		Summary: trip.PlanSummary{Destination: "Tokyo"},
		Hotels: []trip.HotelOption{
			{Name: "Hotel Indigo", PricePerNight: 180},
			{Name: "Sakura Inn", PricePerNight: 90},
			{Name: "Park Hyatt", PricePerNight: 420},
		},
		Transport: []trip.TransportOption{{Mode: "flight", Name: "ANA direct flight"}},
	}
	if err := it.RegisterComponents(&st.Components); err != nil {
		t.Fatal(err)
	}
	st.Itinerary = it
	st.Context.SetPending("Which hotel would you like?", trip.ComponentAccommodation, []string{"Hotel Indigo", "Sakura Inn", "Park Hyatt"})
	return st
}

func fullPlanState(t *testing.T) *trip.ConversationState {
	t.Helper()
	st := presentedState(t)
	st.Itinerary.Hotels[0].Selected = true
	st.Itinerary.Days = []trip.ItineraryDay{
		{Number: 1, Morning: []trip.SlotEntry{{Kind: "activity", Name: "Senso-ji Temple"}},
			Evening: []trip.SlotEntry{{Kind: "restaurant", Name: "Ichiran Ramen"}}},
	}
	if err := st.Itinerary.RegisterComponents(&st.Components); err != nil {
		t.Fatal(err)
	}
	st.Flags.HotelSelected = true
	st.Flags.HotelConfirmed = true
	st.Flags.ItineraryPresented = true
	st.Plan.Activities = &trip.ResearchSection{Recommendations: "temples and ramen"}
	st.Context.ClearPending()
	return st
}

func TestRefineSelectsHotelByNumber(t *testing.T) {
	st := presentedState(t)
	stage := NewRefineStage(testDeps(&scriptedLLM{}, nil))

	res, err := stage.Run(context.Background(), st, "2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !st.Flags.HotelSelected {
		t.Fatal("hotel must be selected")
	}
	if sel := st.Itinerary.SelectedHotel(); sel == nil || sel.Name != "Sakura Inn" {
		t.Errorf("expected Sakura Inn selected, got %+v", sel)
	}
	if st.Context.Pending != nil {
		t.Error("pending decision must clear on selection")
	}
	if !res.Advanced {
		t.Error("selection must advance the workflow")
	}
	if !strings.Contains(res.Reply, "Sakura Inn") {
		t.Errorf("reply should name the chosen hotel: %q", res.Reply)
	}
}

func TestRefineSelectsHotelByName(t *testing.T) {
	st := presentedState(t)
	stage := NewRefineStage(testDeps(&scriptedLLM{}, nil))

	if _, err := stage.Run(context.Background(), st, "let's go with the park hyatt"); err != nil {
		t.Fatal(err)
	}
	if sel := st.Itinerary.SelectedHotel(); sel == nil || sel.Name != "Park Hyatt" {
		t.Errorf("expected Park Hyatt selected, got %+v", sel)
	}
}

func TestRefineCheaperPicksCheapestShownOption(t *testing.T) {
	st := fullPlanState(t)
	stage := NewRefineStage(testDeps(&scriptedLLM{}, nil))

	res, err := stage.Run(context.Background(), st, "can we go cheaper on the hotel?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sel := st.Itinerary.SelectedHotel(); sel == nil || sel.Name != "Sakura Inn" {
		t.Errorf("cheapest option should be selected, got %+v", sel)
	}
	if !res.Advanced {
		t.Error("re-selection must advance")
	}
}

func TestRefineCheaperOnCheapestQueuesReresearch(t *testing.T) {
	st := fullPlanState(t)
	st.Itinerary.Hotels[0].Selected = false
	st.Itinerary.Hotels[1].Selected = true // already on the cheapest
	stage := NewRefineStage(testDeps(&scriptedLLM{}, nil))

	if _, err := stage.Run(context.Background(), st, "cheaper please"); err != nil {
		t.Fatal(err)
	}
	if _, ok := st.Refinement[trip.SectionStays]; !ok {
		t.Error("already-cheapest must queue a stays re-research")
	}
	if !st.Plan.Stays.Empty() {
		t.Error("stays section must be invalidated")
	}
	if st.Flags.HotelSelected {
		t.Error("hotel selection must reset for re-research")
	}
}

func TestRefineBudgetQueuesStaysRefinement(t *testing.T) {
	st := fullPlanState(t)
	stage := NewRefineStage(testDeps(&scriptedLLM{}, nil))

	if _, err := stage.Run(context.Background(), st, "keep the hotel under $120 a night"); err != nil {
		t.Fatal(err)
	}
	r, ok := st.Refinement[trip.SectionStays]
	if !ok {
		t.Fatal("budget must queue a stays refinement")
	}
	if !strings.Contains(r.Request, "$120") {
		t.Errorf("budget amount must be captured: %q", r.Request)
	}
}

func TestRefineRemoveDeletesDayEntry(t *testing.T) {
	st := fullPlanState(t)
	stage := NewRefineStage(testDeps(&scriptedLLM{}, nil))

	res, err := stage.Run(context.Background(), st, "remove the day 1 dinner")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(res.Reply, "Ichiran Ramen") {
		t.Errorf("reply should name the removed entry: %q", res.Reply)
	}
	for _, d := range st.Itinerary.Days {
		for _, e := range d.Evening {
			if e.Name == "Ichiran Ramen" {
				t.Error("entry still present in itinerary")
			}
		}
	}
	if _, err := st.Components.Find("ichiran"); err == nil {
		t.Error("component must be gone from the registry")
	}
}

func TestRefineRemoveRenumbersRegistry(t *testing.T) {
	st := fullPlanState(t)
	st.Itinerary.Days = []trip.ItineraryDay{
		{Number: 1, Morning: []trip.SlotEntry{{Kind: "activity", Name: "Senso-ji Temple"}}},
		{Number: 2, Evening: []trip.SlotEntry{{Kind: "restaurant", Name: "Ichiran Ramen"}}},
	}
	if err := st.Itinerary.RegisterComponents(&st.Components); err != nil {
		t.Fatal(err)
	}
	stage := NewRefineStage(testDeps(&scriptedLLM{}, nil))

	// Emptying day 1 promotes the old day 2; references must track the
	// new numbering.
	if _, err := stage.Run(context.Background(), st, "remove the day 1 morning activity"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.Itinerary.Days) != 1 || st.Itinerary.Days[0].Number != 1 {
		t.Fatalf("remaining day must be renumbered to 1, got %+v", st.Itinerary.Days)
	}
	c, err := st.Components.Find("day 1 dinner")
	if err != nil {
		t.Fatalf("renumbered day must be addressable: %v", err)
	}
	if c.Name() != "Ichiran Ramen" {
		t.Errorf("expected Ichiran Ramen on the new day 1, got %q", c.Name())
	}
	if _, err := st.Components.Find("day 2 dinner"); err == nil {
		t.Error("stale day 2 reference must no longer resolve")
	}
}

func TestRefineRemoveAmbiguousAsksBack(t *testing.T) {
	st := fullPlanState(t)
	stage := NewRefineStage(testDeps(&scriptedLLM{}, nil))

	res, err := stage.Run(context.Background(), st, "remove something boring")
	if err != nil {
		t.Fatal(err)
	}
	if res.Advanced {
		t.Error("unresolved removal must not advance")
	}
	if !strings.Contains(res.Reply, "remove") {
		t.Errorf("expected a clarifying question, got %q", res.Reply)
	}
}

func TestRefineSwapActivityQueuesActivitiesReresearch(t *testing.T) {
	st := fullPlanState(t)
	stage := NewRefineStage(testDeps(&scriptedLLM{}, nil))

	if _, err := stage.Run(context.Background(), st, "swap the day 1 morning activity for something else"); err != nil {
		t.Fatal(err)
	}
	r, ok := st.Refinement[trip.SectionActivities]
	if !ok {
		t.Fatal("swap must queue an activities refinement")
	}
	if !strings.Contains(r.Request, "Senso-ji Temple") {
		t.Errorf("swap target must be named in the request: %q", r.Request)
	}
	c, err := st.Components.Find("day 1 morning activity")
	if err != nil {
		t.Fatal(err)
	}
	if pending, _ := c.Fields["pending_replacement"].(bool); !pending {
		t.Error("swapped component must be marked pending replacement")
	}
}

func TestRefineUnclassifiableAsksBack(t *testing.T) {
	st := fullPlanState(t)
	l := &scriptedLLM{responses: []string{`{"section": "none", "request": ""}`}}
	stage := NewRefineStage(testDeps(l, nil))

	res, err := stage.Run(context.Background(), st, "make it more fun")
	if err != nil {
		t.Fatal(err)
	}
	if res.Advanced {
		t.Error("unclassifiable refinement must not advance")
	}
	if !strings.Contains(res.Reply, "which part") {
		t.Errorf("expected a clarifying question, got %q", res.Reply)
	}
}

func TestRefineClassifiedSectionQueued(t *testing.T) {
	st := fullPlanState(t)
	l := &scriptedLLM{responses: []string{`{"section": "activities", "request": "more relaxed pace"}`}}
	stage := NewRefineStage(testDeps(l, nil))

	res, err := stage.Run(context.Background(), st, "day two feels too packed honestly")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Advanced {
		t.Error("queued refinement must advance so research re-runs")
	}
	if r := st.Refinement[trip.SectionActivities]; r.Request != "more relaxed pace" {
		t.Errorf("classified request must be stored, got %q", r.Request)
	}
	if !st.Plan.Activities.Empty() {
		t.Error("activities section must be invalidated")
	}
}
