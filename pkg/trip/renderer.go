package trip

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the itinerary as the chat-facing markdown
// document. Sections are omitted when empty; the days section is only
// rendered once a hotel has been selected.
func (it *Itinerary) RenderMarkdown() string {
	var b strings.Builder

	s := it.Summary
	fmt.Fprintf(&b, "# Trip Plan: %s\n\n", orPlaceholder(s.Destination, "Your Trip"))
	if s.Origin != "" {
		fmt.Fprintf(&b, "**From:** %s\n", s.Origin)
	}
	if s.DepartureDate != "" || s.ReturnDate != "" {
		fmt.Fprintf(&b, "**Dates:** %s to %s", orPlaceholder(s.DepartureDate, "?"), orPlaceholder(s.ReturnDate, "?"))
		if s.DurationDays > 0 {
			fmt.Fprintf(&b, " (%d days)", s.DurationDays)
		}
		b.WriteString("\n")
	} else if s.DurationDays > 0 {
		fmt.Fprintf(&b, "**Duration:** %d days\n", s.DurationDays)
	}
	if s.Purpose != "" {
		fmt.Fprintf(&b, "**Purpose:** %s\n", s.Purpose)
	}
	if s.Pack != "" {
		fmt.Fprintf(&b, "**Travelling:** %s\n", s.Pack)
	}
	b.WriteString("\n")

	if len(it.Transport) > 0 {
		b.WriteString("## Getting There\n\n")
		for i, tr := range it.Transport {
			fmt.Fprintf(&b, "%d. **%s**", i+1, tr.Name)
			if tr.Mode != "" {
				fmt.Fprintf(&b, " (%s)", tr.Mode)
			}
			b.WriteString("\n")
			if tr.Departure != "" || tr.Arrival != "" {
				fmt.Fprintf(&b, "   - %s → %s\n", orPlaceholder(tr.Departure, "?"), orPlaceholder(tr.Arrival, "?"))
			}
			if tr.Price > 0 {
				fmt.Fprintf(&b, "   - Price: %s\n", money(tr.Price, tr.Currency))
			}
			if tr.Notes != "" {
				fmt.Fprintf(&b, "   - %s\n", tr.Notes)
			}
			if tr.URL != "" {
				fmt.Fprintf(&b, "   - [Details](%s)\n", tr.URL)
			}
		}
		b.WriteString("\n")
	}

	if len(it.Hotels) > 0 {
		b.WriteString("## Where to Stay\n\n")
		for i, h := range it.Hotels {
			marker := ""
			if h.Selected {
				marker = " ✅ selected"
			}
			fmt.Fprintf(&b, "%d. **%s**%s\n", i+1, h.Name, marker)
			if h.Area != "" {
				fmt.Fprintf(&b, "   - Area: %s\n", h.Area)
			}
			if h.PricePerNight > 0 {
				fmt.Fprintf(&b, "   - %s per night\n", money(h.PricePerNight, h.Currency))
			}
			if h.Rating > 0 {
				fmt.Fprintf(&b, "   - Rating: %.1f\n", h.Rating)
			}
			if h.Highlights != "" {
				fmt.Fprintf(&b, "   - %s\n", h.Highlights)
			}
			if h.URL != "" {
				fmt.Fprintf(&b, "   - [Details](%s)\n", h.URL)
			}
		}
		if it.SelectedHotel() == nil {
			b.WriteString("\nReply with a number to pick your hotel and I'll plan your days around it.\n")
		}
		b.WriteString("\n")
	}

	if it.SelectedHotel() != nil && len(it.Days) > 0 {
		b.WriteString("## Day by Day\n\n")
		for _, d := range it.Days {
			if d.Title != "" {
				fmt.Fprintf(&b, "### Day %d: %s\n\n", d.Number, d.Title)
			} else {
				fmt.Fprintf(&b, "### Day %d\n\n", d.Number)
			}
			renderSlot(&b, "Morning", d.Morning)
			renderSlot(&b, "Afternoon", d.Afternoon)
			renderSlot(&b, "Evening", d.Evening)
			b.WriteString("\n")
		}
	}

	if it.Notes != "" {
		b.WriteString("## Notes\n\n")
		b.WriteString(it.Notes)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderSlot(b *strings.Builder, label string, entries []SlotEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**\n", label)
	for _, e := range entries {
		icon := "•"
		if e.Kind == "restaurant" {
			icon = "🍽"
		}
		fmt.Fprintf(b, "- %s %s", icon, e.Name)
		if e.Description != "" {
			fmt.Fprintf(b, " - %s", e.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func money(v float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.0f %s", v, currency)
}

func orPlaceholder(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
