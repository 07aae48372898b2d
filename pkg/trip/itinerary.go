package trip

import (
	"fmt"
	"strings"
)

// Cardinality rules for a composed itinerary.
const (
	RequiredHotelOptions = 3
	MinTransportOptions  = 1
	MaxTransportOptions  = 3
	MaxItineraryDays     = 7
)

// HotelOption is one of the accommodation choices presented to the user.
type HotelOption struct {
	Name          string  `json:"name"`
	Area          string  `json:"area,omitempty"`
	PricePerNight float64 `json:"price_per_night,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	URL           string  `json:"url,omitempty"`
	Highlights    string  `json:"highlights,omitempty"`
	Selected      bool    `json:"selected,omitempty"`
	ComponentID   string  `json:"component_id,omitempty"`
}

// TransportOption is one way to get to the destination.
type TransportOption struct {
	Mode        string  `json:"mode"` // flight|train|bus|ferry|car
	Name        string  `json:"name"`
	Departure   string  `json:"departure,omitempty"`
	Arrival     string  `json:"arrival,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	URL         string  `json:"url,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	ComponentID string  `json:"component_id,omitempty"`
}

// SlotEntry is one activity or restaurant inside a day slot.
type SlotEntry struct {
	Kind        string `json:"kind"` // activity|restaurant
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	ComponentID string `json:"component_id,omitempty"`
}

// ItineraryDay groups a day's slot entries. A valid day has at least one
// entry somewhere.
type ItineraryDay struct {
	Number    int         `json:"number"`
	Title     string      `json:"title,omitempty"`
	Morning   []SlotEntry `json:"morning,omitempty"`
	Afternoon []SlotEntry `json:"afternoon,omitempty"`
	Evening   []SlotEntry `json:"evening,omitempty"`
}

func (d *ItineraryDay) empty() bool {
	return len(d.Morning) == 0 && len(d.Afternoon) == 0 && len(d.Evening) == 0
}

// Itinerary is the composed plan document.
type Itinerary struct {
	Summary   PlanSummary       `json:"summary"`
	Hotels    []HotelOption     `json:"hotels"`
	Transport []TransportOption `json:"transport"`
	Days      []ItineraryDay    `json:"days"`
	Notes     string            `json:"notes,omitempty"`
}

// Normalize renumbers days sequentially from 1 and drops empty day shells.
// Composition output with gaps ("day 1, day 3") comes out contiguous.
func (it *Itinerary) Normalize() {
	kept := it.Days[:0:0]
	for i := range it.Days {
		if it.Days[i].empty() {
			continue
		}
		d := it.Days[i]
		d.Number = len(kept) + 1
		kept = append(kept, d)
	}
	it.Days = kept
}

// SelectedHotel returns the selected hotel option, or nil.
func (it *Itinerary) SelectedHotel() *HotelOption {
	for i := range it.Hotels {
		if it.Hotels[i].Selected {
			return &it.Hotels[i]
		}
	}
	return nil
}

// Validate checks the cardinality and shape rules. hotelSelected gates the
// days section: until the user picks a hotel no day content may appear.
// All violations are collected so composition retries can fix everything
// in one pass.
func (it *Itinerary) Validate(hotelSelected bool) error {
	var problems []string

	if len(it.Hotels) != RequiredHotelOptions {
		problems = append(problems, fmt.Sprintf("expected exactly %d hotel options, got %d", RequiredHotelOptions, len(it.Hotels)))
	}
	for i, h := range it.Hotels {
		if strings.TrimSpace(h.Name) == "" {
			problems = append(problems, fmt.Sprintf("hotel option %d has no name", i+1))
		}
	}

	if len(it.Transport) < MinTransportOptions || len(it.Transport) > MaxTransportOptions {
		problems = append(problems, fmt.Sprintf("expected %d to %d transport options, got %d", MinTransportOptions, MaxTransportOptions, len(it.Transport)))
	}
	for i, tr := range it.Transport {
		if strings.TrimSpace(tr.Name) == "" {
			problems = append(problems, fmt.Sprintf("transport option %d has no name", i+1))
		}
	}

	if len(it.Days) > MaxItineraryDays {
		problems = append(problems, fmt.Sprintf("itinerary has %d days, maximum is %d", len(it.Days), MaxItineraryDays))
	}
	if !hotelSelected && len(it.Days) > 0 {
		problems = append(problems, "day plans are not allowed before a hotel is selected")
	}
	for i, d := range it.Days {
		if d.Number != i+1 {
			problems = append(problems, fmt.Sprintf("day numbering is not contiguous at position %d (got day %d)", i+1, d.Number))
		}
		if d.empty() {
			problems = append(problems, fmt.Sprintf("day %d has no entries", d.Number))
		}
		for _, slot := range [][]SlotEntry{d.Morning, d.Afternoon, d.Evening} {
			for _, e := range slot {
				if e.Kind != "activity" && e.Kind != "restaurant" {
					problems = append(problems, fmt.Sprintf("day %d has an entry with unknown kind %q", d.Number, e.Kind))
				}
				if strings.TrimSpace(e.Name) == "" {
					problems = append(problems, fmt.Sprintf("day %d has an unnamed entry", d.Number))
				}
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// ValidationError aggregates every rule the itinerary violated. Its text is
// fed back to the composition model on retry.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid itinerary: " + strings.Join(e.Problems, "; ")
}

// RegisterComponents rebuilds the component registry from the itinerary so
// every presented element becomes addressable for refinement. Existing
// components of the rebuilt types are replaced and each option gets its
// component id written back.
func (it *Itinerary) RegisterComponents(cs *ComponentSet) error {
	cs.ClearType(ComponentAccommodation)
	cs.ClearType(ComponentTransport)
	cs.ClearDays()

	for i := range it.Hotels {
		h := &it.Hotels[i]
		c, err := cs.Register(&Component{Type: ComponentAccommodation, Fields: map[string]any{
			"name":            h.Name,
			"area":            h.Area,
			"price_per_night": h.PricePerNight,
			"currency":        h.Currency,
			"rating":          h.Rating,
			"url":             h.URL,
			"selected":        h.Selected,
		}})
		if err != nil {
			return err
		}
		h.ComponentID = c.ID
	}
	for i := range it.Transport {
		tr := &it.Transport[i]
		c, err := cs.Register(&Component{Type: ComponentTransport, Fields: map[string]any{
			"name":  tr.Name,
			"mode":  tr.Mode,
			"price": tr.Price,
			"url":   tr.URL,
		}})
		if err != nil {
			return err
		}
		tr.ComponentID = c.ID
	}
	for di := range it.Days {
		d := &it.Days[di]
		for slotName, entries := range map[string]*[]SlotEntry{
			SlotMorning:   &d.Morning,
			SlotAfternoon: &d.Afternoon,
			SlotEvening:   &d.Evening,
		} {
			for ei := range *entries {
				e := &(*entries)[ei]
				ctype := ComponentActivity
				if e.Kind == "restaurant" {
					ctype = ComponentRestaurant
				}
				c, err := cs.Register(&Component{Type: ctype, Day: d.Number, Slot: slotName, Fields: map[string]any{
					"name":        e.Name,
					"description": e.Description,
					"url":         e.URL,
				}})
				if err != nil {
					return err
				}
				e.ComponentID = c.ID
			}
		}
	}
	return nil
}
