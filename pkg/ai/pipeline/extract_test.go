package pipeline

import (
	"context"
	"strings"
	"testing"

	"ai-tripplanner-be/pkg/trip"
)

const emptyFacts = `{"origin": "", "destination": "", "destination_hint": "", "departure_date": "", "return_date": "", "duration_days": 0, "trip_purpose": "", "travel_pack": ""}`

const fullFacts = `{"origin": "Jakarta", "destination": "Tokyo", "destination_hint": "", "departure_date": "2026-10-01", "return_date": "2026-10-07", "duration_days": 0, "trip_purpose": "sightseeing", "travel_pack": "couple"}`

func TestExtractAsksForMissingFields(t *testing.T) {
	l := &scriptedLLM{responses: []string{`{"origin": "", "destination": "Tokyo", "departure_date": "", "return_date": "", "duration_days": 0, "trip_purpose": "", "travel_pack": ""}`}}
	st := trip.NewState("conv-1", "")
	st.AddMessage(trip.RoleUser, "I want to visit Tokyo")
	stage := NewExtractStage(testDeps(l, nil))

	res, err := stage.Run(context.Background(), st, "I want to visit Tokyo")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.Clarification.Status != trip.ClarificationIncomplete {
		t.Errorf("status should stay incomplete, got %s", st.Clarification.Status)
	}
	if st.Extracted.Destination != "Tokyo" {
		t.Error("extracted destination not merged")
	}
	for _, want := range []string{"travelling from", "dates", "kind of trip", "who's travelling"} {
		if !strings.Contains(res.Reply, want) {
			t.Errorf("missing-field ask should mention %q: %q", want, res.Reply)
		}
	}
}

func TestExtractPresentsSummaryOnce(t *testing.T) {
	l := &scriptedLLM{responses: []string{fullFacts}}
	st := trip.NewState("conv-1", "")
	st.AddMessage(trip.RoleUser, "Jakarta to Tokyo, Oct 1-7, sightseeing as a couple")
	stage := NewExtractStage(testDeps(l, nil))

	res, err := stage.Run(context.Background(), st, "Jakarta to Tokyo, Oct 1-7, sightseeing as a couple")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.Clarification.Status != trip.ClarificationAwaitConfirm {
		t.Fatalf("complete facts must await confirmation, got %s", st.Clarification.Status)
	}
	if !strings.Contains(res.Reply, "Jakarta") || !strings.Contains(res.Reply, "Shall I start planning") {
		t.Errorf("summary reply unexpected: %q", res.Reply)
	}
}

func TestExtractSkipsReconfirmationForSameFacts(t *testing.T) {
	l := &scriptedLLM{responses: []string{fullFacts}}
	st := trip.NewState("conv-1", "")
	st.AddMessage(trip.RoleUser, "Jakarta to Tokyo, Oct 1-7, sightseeing as a couple")
	stage := NewExtractStage(testDeps(l, nil))

	stage.Confirm(stWithFacts(st))
	res, err := stage.Run(context.Background(), st, "also what's the weather like")
	if err != nil {
		t.Fatal(err)
	}
	if st.Clarification.Status != trip.ClarificationComplete {
		t.Errorf("confirmed facts must stay complete, got %s", st.Clarification.Status)
	}
	if !res.Advanced {
		t.Error("already-confirmed facts should pass through")
	}
}

func TestExtractReconfirmsWhenFactsChange(t *testing.T) {
	changed := strings.Replace(fullFacts, "Tokyo", "Osaka", 1)
	l := &scriptedLLM{responses: []string{changed}}
	st := trip.NewState("conv-1", "")
	st.AddMessage(trip.RoleUser, "actually let's do Osaka instead")
	stage := NewExtractStage(testDeps(l, nil))
	stage.Confirm(stWithFacts(st))

	res, err := stage.Run(context.Background(), st, "actually let's do Osaka instead")
	if err != nil {
		t.Fatal(err)
	}
	if st.Clarification.Status != trip.ClarificationAwaitConfirm {
		t.Errorf("changed facts must re-await confirmation, got %s", st.Clarification.Status)
	}
	if !strings.Contains(res.Reply, "Osaka") {
		t.Errorf("new summary should show the change: %q", res.Reply)
	}
}

func TestExtractLLMFailureKeepsPreviousFacts(t *testing.T) {
	l := &scriptedLLM{err: context.DeadlineExceeded}
	st := trip.NewState("conv-1", "")
	st.Extracted.Destination = "Tokyo"
	st.AddMessage(trip.RoleUser, "hmm")
	stage := NewExtractStage(testDeps(l, nil))

	res, err := stage.Run(context.Background(), st, "hmm")
	if err != nil {
		t.Fatalf("extraction failure must not fail the turn: %v", err)
	}
	if st.Extracted.Destination != "Tokyo" {
		t.Error("previous facts must survive an extraction failure")
	}
	if res.Reply == "" {
		t.Error("expected a follow-up question")
	}
}

func TestMissingFieldsHintCoversDestination(t *testing.T) {
	ti := trip.TripInfo{Origin: "Jakarta", DestinationHint: "somewhere warm", DepartureDate: "2026-10-01", ReturnDate: "2026-10-07", TripPurpose: "beach", TravelPack: "solo"}
	if missing := MissingFields(ti); len(missing) != 0 {
		t.Errorf("hint should satisfy the destination requirement, missing: %v", missing)
	}
	ti.DestinationHint = ""
	if missing := MissingFields(ti); len(missing) != 1 || missing[0] != "destination" {
		t.Errorf("expected only destination missing, got %v", missing)
	}
}

// stWithFacts fills the state with the canonical full fact set and
// returns it, for confirm-first test setups.
func stWithFacts(st *trip.ConversationState) *trip.ConversationState {
	st.Extracted = trip.TripInfo{
		Origin:        "Jakarta",
		Destination:   "Tokyo",
		DepartureDate: "2026-10-01",
		ReturnDate:    "2026-10-07",
		TripPurpose:   "sightseeing",
		TravelPack:    "couple",
	}
	return st
}
