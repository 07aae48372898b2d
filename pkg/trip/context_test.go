package trip

import (
	"fmt"
	"testing"
)

func TestTouchDedupAndCap(t *testing.T) {
	cc := &ConversationContext{}
	cc.Touch("a")
	cc.Touch("a")
	cc.Touch("b")
	cc.Touch("b")
	if len(cc.Recent) != 2 {
		t.Fatalf("consecutive duplicates must collapse, got %v", cc.Recent)
	}
	for i := 0; i < 20; i++ {
		cc.Touch(fmt.Sprintf("c%d", i))
	}
	if len(cc.Recent) != maxRecentComponents {
		t.Errorf("recency list must cap at %d, got %d", maxRecentComponents, len(cc.Recent))
	}
	if cc.MostRecent() != "c19" {
		t.Errorf("most recent should be c19, got %s", cc.MostRecent())
	}
}

func TestResolveOptionForms(t *testing.T) {
	cc := &ConversationContext{}
	cc.SetPending("Which hotel?", ComponentAccommodation, []string{"Hotel Indigo", "Sakura Inn", "Park Hyatt"})

	cases := []struct {
		message string
		want    int
	}{
		{"2", 2},
		{" #3 ", 3},
		{"1.", 1},
		{"option 2 please", 2},
		{"number 1", 1},
		{"the first one", 1},
		{"I'll take the second", 2},
		{"the last one", 3},
		{"the sakura one", 2},
		{"4", 0},
		{"maybe somewhere else entirely", 0},
	}
	for _, tc := range cases {
		if got := cc.ResolveOption(tc.message); got != tc.want {
			t.Errorf("ResolveOption(%q) = %d, want %d", tc.message, got, tc.want)
		}
	}
}

func TestResolveOptionWithoutPending(t *testing.T) {
	cc := &ConversationContext{}
	if got := cc.ResolveOption("2"); got != 0 {
		t.Errorf("no pending decision must resolve to 0, got %d", got)
	}
}

func TestResolveReferencePronoun(t *testing.T) {
	cs := newTestSet(t)
	cc := &ConversationContext{}
	cc.Touch(cs.Transport[0].ID)
	c := cc.ResolveReference(cs, "can you change it?")
	if c == nil || c.Type != ComponentTransport {
		t.Fatalf("pronoun should resolve to most recent component, got %+v", c)
	}
}

func TestResolveReferenceTheType(t *testing.T) {
	cs := newTestSet(t)
	cc := &ConversationContext{}
	cc.Touch(cs.Accommodations[1].ID) // Sakura Inn
	c := cc.ResolveReference(cs, "tell me more about the hotel")
	if c == nil || c.Name() != "Sakura Inn" {
		t.Fatalf("\"the hotel\" should resolve to most recent accommodation, got %+v", c)
	}
}

func TestResolveReferenceSoleOfType(t *testing.T) {
	cs := newTestSet(t)
	cc := &ConversationContext{}
	c := cc.ResolveReference(cs, "what about the flight?")
	if c == nil || c.Name() != "ANA direct flight" {
		t.Fatalf("sole transport should resolve without recency, got %+v", c)
	}
}

func TestResolveReferencePendingWins(t *testing.T) {
	cs := newTestSet(t)
	cc := &ConversationContext{}
	cc.Touch(cs.Transport[0].ID)
	cc.SetPending("Which hotel?", ComponentAccommodation, []string{"Hotel Indigo", "Sakura Inn"})
	c := cc.ResolveReference(cs, "2")
	if c == nil || c.Name() != "Sakura Inn" {
		t.Fatalf("numeric reply must resolve against the pending decision first, got %+v", c)
	}
}

func TestResolveReferenceNone(t *testing.T) {
	cs := newTestSet(t)
	cc := &ConversationContext{}
	if c := cc.ResolveReference(cs, "what is the weather like"); c != nil {
		t.Errorf("unresolvable reference must return nil, got %+v", c)
	}
}
