package trip

import (
	"errors"
	"strings"
	"testing"
)

func validItinerary() *Itinerary {
	return &Itinerary{
		Summary: PlanSummary{
			Origin:        "Jakarta",
			Destination:   "Tokyo",
			DepartureDate: "2026-10-01",
			ReturnDate:    "2026-10-07",
			DurationDays:  6,
			Pack:          "couple",
		},
		Hotels: []HotelOption{
			{Name: "Hotel Indigo", PricePerNight: 180, Selected: true},
			{Name: "Sakura Inn", PricePerNight: 90},
			{Name: "Park Hyatt", PricePerNight: 420},
		},
		Transport: []TransportOption{
			{Mode: "flight", Name: "ANA direct flight", Price: 650},
		},
		Days: []ItineraryDay{
			{Number: 1, Morning: []SlotEntry{{Kind: "activity", Name: "Senso-ji Temple"}}},
			{Number: 2, Evening: []SlotEntry{{Kind: "restaurant", Name: "Ichiran Ramen"}}},
		},
	}
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	if err := validItinerary().Validate(true); err != nil {
		t.Errorf("valid itinerary rejected: %v", err)
	}
}

func TestValidateHotelCardinality(t *testing.T) {
	it := validItinerary()
	it.Hotels = it.Hotels[:2]
	err := it.Validate(true)
	if err == nil || !strings.Contains(err.Error(), "3 hotel options") {
		t.Errorf("expected hotel cardinality violation, got %v", err)
	}
}

func TestValidateTransportBounds(t *testing.T) {
	it := validItinerary()
	it.Transport = nil
	if err := it.Validate(true); err == nil {
		t.Error("zero transport options must be rejected")
	}
	it = validItinerary()
	it.Transport = make([]TransportOption, 4)
	for i := range it.Transport {
		it.Transport[i].Name = "opt"
	}
	if err := it.Validate(true); err == nil {
		t.Error("four transport options must be rejected")
	}
}

func TestValidateDaysRequireSelectedHotel(t *testing.T) {
	it := validItinerary()
	err := it.Validate(false)
	if err == nil || !strings.Contains(err.Error(), "before a hotel is selected") {
		t.Errorf("days without hotel selection must be rejected, got %v", err)
	}
	it.Days = nil
	if err := it.Validate(false); err != nil {
		t.Errorf("empty days without hotel selection must pass, got %v", err)
	}
}

func TestValidateDayNumberingAndCap(t *testing.T) {
	it := validItinerary()
	it.Days[1].Number = 3
	if err := it.Validate(true); err == nil {
		t.Error("non-contiguous day numbering must be rejected")
	}
	it = validItinerary()
	it.Days = nil
	for i := 1; i <= 8; i++ {
		it.Days = append(it.Days, ItineraryDay{Number: i, Morning: []SlotEntry{{Kind: "activity", Name: "x"}}})
	}
	if err := it.Validate(true); err == nil {
		t.Error("more than seven days must be rejected")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	it := validItinerary()
	it.Hotels = it.Hotels[:1]
	it.Transport = nil
	err := it.Validate(true)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Problems) < 2 {
		t.Errorf("expected both violations collected, got %v", ve.Problems)
	}
}

func TestNormalizeRenumbersAndDropsEmptyDays(t *testing.T) {
	it := validItinerary()
	it.Days = []ItineraryDay{
		{Number: 1, Morning: []SlotEntry{{Kind: "activity", Name: "a"}}},
		{Number: 2},
		{Number: 4, Evening: []SlotEntry{{Kind: "restaurant", Name: "b"}}},
	}
	it.Normalize()
	if len(it.Days) != 2 {
		t.Fatalf("expected 2 days after normalize, got %d", len(it.Days))
	}
	if it.Days[0].Number != 1 || it.Days[1].Number != 2 {
		t.Errorf("days not renumbered contiguously: %d, %d", it.Days[0].Number, it.Days[1].Number)
	}
}

func TestRegisterComponentsAssignsIDs(t *testing.T) {
	it := validItinerary()
	cs := &ComponentSet{}
	if err := it.RegisterComponents(cs); err != nil {
		t.Fatalf("register components: %v", err)
	}
	if len(cs.Accommodations) != 3 || len(cs.Transport) != 1 {
		t.Fatalf("unexpected registry counts: %d hotels, %d transport", len(cs.Accommodations), len(cs.Transport))
	}
	for _, h := range it.Hotels {
		if h.ComponentID == "" {
			t.Error("hotel missing component id")
		}
	}
	c, err := cs.Find("day 2 dinner")
	if err != nil {
		t.Fatalf("find registered day entry: %v", err)
	}
	if c.Name() != "Ichiran Ramen" {
		t.Errorf("expected Ichiran Ramen, got %q", c.Name())
	}
}

func TestRegisterComponentsReplacesPrevious(t *testing.T) {
	it := validItinerary()
	cs := &ComponentSet{}
	if err := it.RegisterComponents(cs); err != nil {
		t.Fatal(err)
	}
	firstID := it.Hotels[0].ComponentID
	if err := it.RegisterComponents(cs); err != nil {
		t.Fatal(err)
	}
	if len(cs.Accommodations) != 3 {
		t.Errorf("re-registration must replace, not append: got %d hotels", len(cs.Accommodations))
	}
	if _, err := cs.Get(firstID); err == nil {
		t.Error("stale component id should be gone after re-registration")
	}
}

func TestRenderMarkdownHidesDaysUntilHotelSelected(t *testing.T) {
	it := validItinerary()
	it.Hotels[0].Selected = false
	md := it.RenderMarkdown()
	if strings.Contains(md, "Day by Day") {
		t.Error("days section rendered before hotel selection")
	}
	if !strings.Contains(md, "pick your hotel") {
		t.Error("expected hotel selection prompt")
	}
	it.Hotels[0].Selected = true
	md = it.RenderMarkdown()
	if !strings.Contains(md, "Day by Day") || !strings.Contains(md, "Senso-ji Temple") {
		t.Error("days section missing after hotel selection")
	}
}

func TestRenderMarkdownStructure(t *testing.T) {
	md := validItinerary().RenderMarkdown()
	for _, want := range []string{"# Trip Plan: Tokyo", "## Getting There", "## Where to Stay", "ANA direct flight", "Hotel Indigo"} {
		if !strings.Contains(md, want) {
			t.Errorf("rendered markdown missing %q", want)
		}
	}
}
