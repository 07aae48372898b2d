package trip

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Component types.
const (
	ComponentAccommodation = "accommodation"
	ComponentTransport     = "transport"
	ComponentActivity      = "activity"
	ComponentRestaurant    = "restaurant"
)

// Time slots within a day.
const (
	SlotMorning   = "morning"
	SlotAfternoon = "afternoon"
	SlotEvening   = "evening"
)

// Sentinel errors for registry lookups. Lookups are total: a miss is a
// value, never a panic.
var (
	ErrComponentNotFound = errors.New("component not found")
	ErrNoMatch           = errors.New("no component matches the reference")
)

// Component is one addressable itinerary element. Fields is the free-form
// payload produced by research/composition (name, price, url, selected...).
type Component struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Day    int            `json:"day,omitempty"`  // 0 for accommodation/transport
	Slot   string         `json:"slot,omitempty"` // empty for accommodation/transport
	Fields map[string]any `json:"fields"`
}

// Name returns the component's display name, if the payload carries one.
func (c *Component) Name() string {
	if c == nil || c.Fields == nil {
		return ""
	}
	for _, k := range []string{"name", "title", "hotel_name", "airline"} {
		if v, ok := c.Fields[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// DaySlots is one itinerary day's worth of slot-addressed components.
type DaySlots struct {
	Morning   []*Component `json:"morning,omitempty"`
	Afternoon []*Component `json:"afternoon,omitempty"`
	Evening   []*Component `json:"evening,omitempty"`
}

func (d *DaySlots) slot(name string) *[]*Component {
	switch name {
	case SlotMorning:
		return &d.Morning
	case SlotAfternoon:
		return &d.Afternoon
	case SlotEvening:
		return &d.Evening
	}
	return nil
}

// Empty reports whether all three slots are empty.
func (d *DaySlots) Empty() bool {
	return d == nil || (len(d.Morning) == 0 && len(d.Afternoon) == 0 && len(d.Evening) == 0)
}

// ComponentSet is the registry of every addressable component in the
// current plan: accommodation and transport options at the top level, plus
// day-slotted activities and restaurants. A flat index maps ids back to
// their component for O(1) lookup.
type ComponentSet struct {
	Accommodations []*Component      `json:"accommodations,omitempty"`
	Transport      []*Component      `json:"transport,omitempty"`
	Days           map[int]*DaySlots `json:"days,omitempty"`

	index map[string]*Component
}

func (cs *ComponentSet) init() {
	if cs.Days == nil {
		cs.Days = map[int]*DaySlots{}
	}
	if cs.index == nil {
		cs.index = map[string]*Component{}
	}
}

// Rebuild reconstructs the id index after deserialization.
func (cs *ComponentSet) Rebuild() {
	cs.init()
	cs.index = map[string]*Component{}
	for _, c := range cs.Accommodations {
		cs.index[c.ID] = c
	}
	for _, c := range cs.Transport {
		cs.index[c.ID] = c
	}
	for _, day := range cs.Days {
		for _, slot := range [][]*Component{day.Morning, day.Afternoon, day.Evening} {
			for _, c := range slot {
				cs.index[c.ID] = c
			}
		}
	}
}

// NewComponentID mints a registry id of the form
// day<N>_<slot>_<type>_<8hex>, or <type>_<8hex> for day-less components.
func NewComponentID(ctype string, day int, slot string) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// math/rand quality is acceptable for a display id; fall back to a
		// fixed suffix only if the system RNG is unreadable.
		copy(b[:], []byte{0xde, 0xad, 0xbe, 0xef})
	}
	suffix := hex.EncodeToString(b[:])
	if day > 0 && slot != "" {
		return fmt.Sprintf("day%d_%s_%s_%s", day, slot, ctype, suffix)
	}
	return fmt.Sprintf("%s_%s", ctype, suffix)
}

// Register stores a component, minting an id if it has none, and returns
// the registered component. Day-slotted types require a valid day and slot.
func (cs *ComponentSet) Register(c *Component) (*Component, error) {
	cs.init()
	switch c.Type {
	case ComponentAccommodation:
		if c.ID == "" {
			c.ID = NewComponentID(c.Type, 0, "")
		}
		cs.Accommodations = append(cs.Accommodations, c)
	case ComponentTransport:
		if c.ID == "" {
			c.ID = NewComponentID(c.Type, 0, "")
		}
		cs.Transport = append(cs.Transport, c)
	case ComponentActivity, ComponentRestaurant:
		if c.Day <= 0 {
			return nil, fmt.Errorf("register %s: day must be positive", c.Type)
		}
		day := cs.Days[c.Day]
		if day == nil {
			day = &DaySlots{}
			cs.Days[c.Day] = day
		}
		slot := day.slot(c.Slot)
		if slot == nil {
			return nil, fmt.Errorf("register %s: unknown slot %q", c.Type, c.Slot)
		}
		if c.ID == "" {
			c.ID = NewComponentID(c.Type, c.Day, c.Slot)
		}
		*slot = append(*slot, c)
	default:
		return nil, fmt.Errorf("register: unknown component type %q", c.Type)
	}
	cs.index[c.ID] = c
	return c, nil
}

// Get fetches a component by id.
func (cs *ComponentSet) Get(id string) (*Component, error) {
	cs.init()
	c, ok := cs.index[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrComponentNotFound)
	}
	return c, nil
}

// Update shallow-merges fields into an existing component's payload.
func (cs *ComponentSet) Update(id string, fields map[string]any) (*Component, error) {
	c, err := cs.Get(id)
	if err != nil {
		return nil, err
	}
	if c.Fields == nil {
		c.Fields = map[string]any{}
	}
	for k, v := range fields {
		c.Fields[k] = v
	}
	return c, nil
}

// Delete removes a component from the registry and its home slot.
func (cs *ComponentSet) Delete(id string) error {
	c, err := cs.Get(id)
	if err != nil {
		return err
	}
	delete(cs.index, id)
	remove := func(list []*Component) []*Component {
		for i, x := range list {
			if x.ID == id {
				return append(list[:i], list[i+1:]...)
			}
		}
		return list
	}
	switch c.Type {
	case ComponentAccommodation:
		cs.Accommodations = remove(cs.Accommodations)
	case ComponentTransport:
		cs.Transport = remove(cs.Transport)
	default:
		if day := cs.Days[c.Day]; day != nil {
			if slot := day.slot(c.Slot); slot != nil {
				*slot = remove(*slot)
			}
		}
	}
	return nil
}

// ClearType drops every component of the given type (used when re-research
// replaces a whole option set).
func (cs *ComponentSet) ClearType(ctype string) {
	cs.init()
	switch ctype {
	case ComponentAccommodation:
		for _, c := range cs.Accommodations {
			delete(cs.index, c.ID)
		}
		cs.Accommodations = nil
	case ComponentTransport:
		for _, c := range cs.Transport {
			delete(cs.index, c.ID)
		}
		cs.Transport = nil
	}
}

// ClearDays drops all day-slotted components.
func (cs *ComponentSet) ClearDays() {
	cs.init()
	for _, day := range cs.Days {
		for _, slot := range [][]*Component{day.Morning, day.Afternoon, day.Evening} {
			for _, c := range slot {
				delete(cs.index, c.ID)
			}
		}
	}
	cs.Days = map[int]*DaySlots{}
}

// All returns every registered component (order: accommodations, transport,
// then days ascending by number, morning/afternoon/evening).
func (cs *ComponentSet) All() []*Component {
	cs.init()
	out := append([]*Component(nil), cs.Accommodations...)
	out = append(out, cs.Transport...)
	days := make([]int, 0, len(cs.Days))
	for n := range cs.Days {
		days = append(days, n)
	}
	for i := 0; i < len(days); i++ {
		for j := i + 1; j < len(days); j++ {
			if days[j] < days[i] {
				days[i], days[j] = days[j], days[i]
			}
		}
	}
	for _, n := range days {
		d := cs.Days[n]
		out = append(out, d.Morning...)
		out = append(out, d.Afternoon...)
		out = append(out, d.Evening...)
	}
	return out
}

var (
	dayRefRe = regexp.MustCompile(`(?i)\bday\s*(\d+)\b`)

	slotKeywords = []keywordGroup{
		{SlotMorning, []string{"morning", "breakfast", "am"}},
		{SlotAfternoon, []string{"afternoon", "lunch", "midday", "noon"}},
		{SlotEvening, []string{"evening", "dinner", "night", "pm"}},
	}

	typeKeywords = []keywordGroup{
		{ComponentAccommodation, []string{"hotel", "accommodation", "stay", "room", "hostel", "resort"}},
		{ComponentTransport, []string{"flight", "transport", "train", "bus", "airline", "travel option"}},
		{ComponentRestaurant, []string{"restaurant", "food", "eat", "dining", "meal", "cafe"}},
		{ComponentActivity, []string{"activity", "tour", "visit", "museum", "attraction", "thing to do"}},
	}
)

// Find resolves a natural-language reference ("the hotel", "day 2 dinner",
// the component's name) to a single component. Resolution narrows by day
// number, slot keyword and type keyword, then falls back to fuzzy name
// matching across the remaining candidates. A miss returns ErrNoMatch.
func (cs *ComponentSet) Find(reference string) (*Component, error) {
	cs.init()
	ref := strings.ToLower(strings.TrimSpace(reference))
	if ref == "" {
		return nil, fmt.Errorf("find: %w", ErrNoMatch)
	}

	candidates := cs.All()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("find %q: %w", reference, ErrNoMatch)
	}

	if m := dayRefRe.FindStringSubmatch(ref); m != nil {
		day, _ := strconv.Atoi(m[1])
		candidates = filterComponents(candidates, func(c *Component) bool { return c.Day == day })
	}
	if slot := matchKeyword(ref, slotKeywords); slot != "" {
		candidates = filterComponents(candidates, func(c *Component) bool { return c.Slot == slot })
	}
	if ctype := matchKeyword(ref, typeKeywords); ctype != "" {
		candidates = filterComponents(candidates, func(c *Component) bool { return c.Type == ctype })
	}
	// A structural reference ("day 5 dinner") matching nothing is a miss,
	// not an invitation to guess.
	if len(candidates) == 0 {
		return nil, fmt.Errorf("find %q: %w", reference, ErrNoMatch)
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	// Fuzzy name match: pick the candidate whose name shares the most
	// words with the reference.
	var best *Component
	bestScore := 0
	refWords := strings.Fields(ref)
	for _, c := range candidates {
		name := strings.ToLower(c.Name())
		if name == "" {
			continue
		}
		score := 0
		for _, w := range refWords {
			if len(w) >= 3 && strings.Contains(name, w) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best != nil {
		return best, nil
	}
	if matchKeyword(ref, typeKeywords) != "" || dayRefRe.MatchString(ref) {
		// An unambiguous structural reference narrowed to several options;
		// return the first rather than failing the turn.
		return candidates[0], nil
	}
	return nil, fmt.Errorf("find %q: %w", reference, ErrNoMatch)
}

func filterComponents(in []*Component, keep func(*Component) bool) []*Component {
	out := in[:0:0]
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

type keywordGroup struct {
	key   string
	words []string
}

func matchKeyword(ref string, table []keywordGroup) string {
	for _, g := range table {
		for _, w := range g.words {
			if containsWord(ref, w) {
				return g.key
			}
		}
	}
	return ""
}

func containsWord(s, w string) bool {
	idx := strings.Index(s, w)
	for idx >= 0 {
		before := idx == 0 || !isWordByte(s[idx-1])
		afterIdx := idx + len(w)
		after := afterIdx >= len(s) || !isWordByte(s[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(s[idx+1:], w)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
