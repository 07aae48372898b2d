package trip

import (
	"errors"
	"regexp"
	"testing"
)

func newTestSet(t *testing.T) *ComponentSet {
	t.Helper()
	cs := &ComponentSet{}
	mustRegister := func(c *Component) *Component {
		t.Helper()
		out, err := cs.Register(c)
		if err != nil {
			t.Fatalf("register %s: %v", c.Type, err)
		}
		return out
	}
	mustRegister(&Component{Type: ComponentAccommodation, Fields: map[string]any{"name": "Hotel Indigo", "price_per_night": 180.0}})
	mustRegister(&Component{Type: ComponentAccommodation, Fields: map[string]any{"name": "Sakura Inn", "price_per_night": 90.0}})
	mustRegister(&Component{Type: ComponentTransport, Fields: map[string]any{"name": "ANA direct flight"}})
	mustRegister(&Component{Type: ComponentActivity, Day: 1, Slot: SlotMorning, Fields: map[string]any{"name": "Senso-ji Temple"}})
	mustRegister(&Component{Type: ComponentRestaurant, Day: 2, Slot: SlotEvening, Fields: map[string]any{"name": "Ichiran Ramen"}})
	return cs
}

func TestComponentIDFormat(t *testing.T) {
	dayID := NewComponentID(ComponentActivity, 3, SlotAfternoon)
	if !regexp.MustCompile(`^day3_afternoon_activity_[0-9a-f]{8}$`).MatchString(dayID) {
		t.Errorf("unexpected day-slotted id %q", dayID)
	}
	topID := NewComponentID(ComponentAccommodation, 0, "")
	if !regexp.MustCompile(`^accommodation_[0-9a-f]{8}$`).MatchString(topID) {
		t.Errorf("unexpected top-level id %q", topID)
	}
}

func TestRegisterAndGet(t *testing.T) {
	cs := newTestSet(t)
	all := cs.All()
	if len(all) != 5 {
		t.Fatalf("expected 5 components, got %d", len(all))
	}
	for _, c := range all {
		got, err := cs.Get(c.ID)
		if err != nil {
			t.Errorf("get %s: %v", c.ID, err)
		}
		if got != c {
			t.Errorf("get %s returned a different component", c.ID)
		}
	}
}

func TestRegisterRejectsInvalidPlacement(t *testing.T) {
	cs := &ComponentSet{}
	if _, err := cs.Register(&Component{Type: ComponentActivity, Slot: SlotMorning}); err == nil {
		t.Error("activity without a day must be rejected")
	}
	if _, err := cs.Register(&Component{Type: ComponentActivity, Day: 1, Slot: "dawn"}); err == nil {
		t.Error("unknown slot must be rejected")
	}
	if _, err := cs.Register(&Component{Type: "vehicle"}); err == nil {
		t.Error("unknown type must be rejected")
	}
}

func TestGetMissReturnsSentinel(t *testing.T) {
	cs := newTestSet(t)
	_, err := cs.Get("accommodation_ffffffff")
	if !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("expected ErrComponentNotFound, got %v", err)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	cs := newTestSet(t)
	id := cs.Accommodations[0].ID
	c, err := cs.Update(id, map[string]any{"selected": true, "price_per_night": 175.0})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Fields["selected"] != true {
		t.Error("selected flag not merged")
	}
	if c.Fields["price_per_night"] != 175.0 {
		t.Error("price not overwritten")
	}
	if c.Fields["name"] != "Hotel Indigo" {
		t.Error("untouched field lost in merge")
	}
}

func TestDeleteRemovesFromSlotAndIndex(t *testing.T) {
	cs := newTestSet(t)
	id := cs.Days[1].Morning[0].ID
	if err := cs.Delete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(cs.Days[1].Morning) != 0 {
		t.Error("component still present in slot")
	}
	if _, err := cs.Get(id); !errors.Is(err, ErrComponentNotFound) {
		t.Error("component still present in index")
	}
	if err := cs.Delete(id); !errors.Is(err, ErrComponentNotFound) {
		t.Error("double delete must report not found")
	}
}

func TestFindByDayAndSlot(t *testing.T) {
	cs := newTestSet(t)
	c, err := cs.Find("the day 2 dinner")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.Name() != "Ichiran Ramen" {
		t.Errorf("expected Ichiran Ramen, got %q", c.Name())
	}
}

func TestFindByTypeKeyword(t *testing.T) {
	cs := newTestSet(t)
	c, err := cs.Find("the flight")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.Type != ComponentTransport {
		t.Errorf("expected transport, got %s", c.Type)
	}
}

func TestFindByFuzzyName(t *testing.T) {
	cs := newTestSet(t)
	c, err := cs.Find("sakura")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.Name() != "Sakura Inn" {
		t.Errorf("expected Sakura Inn, got %q", c.Name())
	}
}

func TestFindUnmatchedStructuralFilterIsMiss(t *testing.T) {
	cs := newTestSet(t)
	if _, err := cs.Find("the day 5 dinner"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("nonexistent day must not resolve to another component, got %v", err)
	}
	if _, err := cs.Find("the day 1 dinner"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("day without that slot must not resolve elsewhere, got %v", err)
	}
}

func TestFindMissReturnsSentinel(t *testing.T) {
	cs := newTestSet(t)
	if _, err := cs.Find("the submarine ride"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}
	empty := &ComponentSet{}
	if _, err := empty.Find("the hotel"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("empty registry find must report no match, got %v", err)
	}
}

func TestClearTypeAndDays(t *testing.T) {
	cs := newTestSet(t)
	cs.ClearType(ComponentAccommodation)
	if len(cs.Accommodations) != 0 {
		t.Error("accommodations not cleared")
	}
	cs.ClearDays()
	if len(cs.Days) != 0 {
		t.Error("days not cleared")
	}
	if len(cs.All()) != 1 {
		t.Errorf("expected only transport remaining, got %d components", len(cs.All()))
	}
}

func TestRebuildRestoresIndex(t *testing.T) {
	cs := newTestSet(t)
	id := cs.Transport[0].ID
	cs.index = nil
	cs.Rebuild()
	if _, err := cs.Get(id); err != nil {
		t.Errorf("get after rebuild: %v", err)
	}
}
