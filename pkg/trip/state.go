package trip

import (
	"strings"
	"time"
)

// Message roles, provider-agnostic (mapped by pkg/llm implementations).
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is a single chat turn in the conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TripInfo holds the structured trip fields extracted from conversation.
// A field is either a meaningful value or empty; sentinel strings such as
// "null" and "n/a" are normalized away before assignment (see Normalize).
type TripInfo struct {
	Origin          string            `json:"origin,omitempty"`
	Destination     string            `json:"destination,omitempty"`
	DestinationHint string            `json:"destination_hint,omitempty"`
	DepartureDate   string            `json:"departure_date,omitempty"` // YYYY-MM-DD
	ReturnDate      string            `json:"return_date,omitempty"`    // YYYY-MM-DD
	DurationDays    int               `json:"duration_days,omitempty"`
	TripPurpose     string            `json:"trip_purpose,omitempty"`
	TravelPack      string            `json:"travel_pack,omitempty"` // solo|couple|family|friends|other
	Constraints     map[string]string `json:"constraints,omitempty"`
}

// NormalizeValue collapses representational noise ("", "null", "n/a",
// whitespace) into the empty string so that absence always looks the same.
func NormalizeValue(v string) string {
	s := strings.TrimSpace(v)
	switch strings.ToLower(s) {
	case "", "null", "none", "n/a":
		return ""
	}
	return s
}

// Source is a single research citation.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ResearchSection is one independently gated unit of external research
// (travel, stays or activities).
type ResearchSection struct {
	Recommendations string   `json:"recommendations"`
	Sources         []Source `json:"sources"`
	Fingerprint     string   `json:"fingerprint"`
}

// Empty reports whether the section carries no useful payload. An empty
// patch must never overwrite a previously accepted section.
func (s *ResearchSection) Empty() bool {
	return s == nil || (strings.TrimSpace(s.Recommendations) == "" && len(s.Sources) == 0)
}

// PlanSummary is the derived trip-facts block seeded by the planner.
type PlanSummary struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
	DurationDays  int    `json:"duration_days"`
	Purpose       string `json:"purpose"`
	Pack          string `json:"pack"`
}

// CurrentPlan holds the summary plus per-section research results.
// A nil section means "not yet run".
type CurrentPlan struct {
	Summary    PlanSummary      `json:"summary"`
	Travel     *ResearchSection `json:"travel,omitempty"`
	Stays      *ResearchSection `json:"stays,omitempty"`
	Activities *ResearchSection `json:"activities,omitempty"`
}

// Section returns the named research section pointer, or nil.
func (p *CurrentPlan) Section(kind string) *ResearchSection {
	switch kind {
	case SectionTravel:
		return p.Travel
	case SectionStays:
		return p.Stays
	case SectionActivities:
		return p.Activities
	}
	return nil
}

// SetSection stores a section payload under the given kind.
func (p *CurrentPlan) SetSection(kind string, s *ResearchSection) {
	switch kind {
	case SectionTravel:
		p.Travel = s
	case SectionStays:
		p.Stays = s
	case SectionActivities:
		p.Activities = s
	}
}

const (
	SectionTravel     = "travel"
	SectionStays      = "stays"
	SectionActivities = "activities"
)

// Clarification status values for the confirm-once handshake.
const (
	ClarificationIncomplete   = "incomplete"
	ClarificationAwaitConfirm = "awaiting_confirmation"
	ClarificationComplete     = "complete"
)

// Clarification tracks the extract stage's confirm-once handshake.
type Clarification struct {
	Status        string   `json:"status"`
	Summary       string   `json:"summary,omitempty"`
	ConfirmedHash string   `json:"confirmed_hash,omitempty"`
	Missing       []string `json:"missing,omitempty"`
}

// Suggestion is one destination candidate presented during discovery.
type Suggestion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url,omitempty"`
}

// Discovery tracks the destination-discovery loop. CycleCount is capped at
// MaxDiscoveryCycles by the discover stage to bound search spend.
type Discovery struct {
	CycleCount int          `json:"cycle_count"`
	Shown      []string     `json:"shown,omitempty"`
	Suggestion []Suggestion `json:"suggestions,omitempty"`
	Resolved   bool         `json:"resolved"`
}

// MaxDiscoveryCycles bounds the suggest/search loop before the assistant
// asks the user to be more specific.
const MaxDiscoveryCycles = 3

// UIFlags records cross-turn confirmations.
type UIFlags struct {
	Confirmed          bool `json:"confirmed"`
	TravelConfirmed    bool `json:"travel_confirmed"`
	HotelConfirmed     bool `json:"hotel_confirmed"`
	HotelSelected      bool `json:"hotel_selected"`
	ItineraryPresented bool `json:"itinerary_presented"`
}

// RefinementRequest is a per-aspect refinement request ("accommodation":
// "cheaper, near the beach") used to force re-research of a section.
type RefinementRequest struct {
	Request     string    `json:"request"`
	RequestedAt time.Time `json:"requested_at"`
}

// ConversationState is the root mutable record, one per active conversation.
// It is exclusively owned by the single turn processing it; the service
// layer serializes turns per conversation id. The whole struct marshals to
// plain JSON so snapshots can be pushed to an external store.
type ConversationState struct {
	ConversationID string                       `json:"conversation_id"`
	Messages       []Message                    `json:"messages"`
	Extracted      TripInfo                     `json:"extracted_info"`
	Plan           CurrentPlan                  `json:"current_plan"`
	Components     ComponentSet                 `json:"itinerary_components"`
	Context        ConversationContext          `json:"conversation_context"`
	Clarification  Clarification                `json:"clarification"`
	Discovery      Discovery                    `json:"discovery"`
	Flags          UIFlags                      `json:"ui_flags"`
	Refinement     map[string]RefinementRequest `json:"refinement_criteria,omitempty"`
	Itinerary      *Itinerary                   `json:"itinerary,omitempty"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}

// NewState creates a fresh conversation state, optionally seeded with a
// system prompt.
func NewState(conversationID, systemPrompt string) *ConversationState {
	now := time.Now()
	st := &ConversationState{
		ConversationID: conversationID,
		Messages:       []Message{},
		Clarification:  Clarification{Status: ClarificationIncomplete},
		Refinement:     map[string]RefinementRequest{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	st.Components.init()
	if systemPrompt != "" {
		st.AddMessage(RoleSystem, systemPrompt)
	}
	return st
}

// AddMessage appends a chat turn; empty/whitespace-only content is ignored.
func (st *ConversationState) AddMessage(role, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	st.Messages = append(st.Messages, Message{Role: role, Content: content, CreatedAt: time.Now()})
	st.UpdatedAt = time.Now()
}

// LastUserMessage returns the most recent user message content, or "".
func (st *ConversationState) LastUserMessage() string {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == RoleUser {
			return st.Messages[i].Content
		}
	}
	return ""
}

// LastAssistantMessage returns the most recent assistant message, or "".
func (st *ConversationState) LastAssistantMessage() string {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == RoleAssistant {
			return st.Messages[i].Content
		}
	}
	return ""
}

// RecentUserMessages returns up to n most recent user messages in
// chronological order, for compact LLM context windows.
func (st *ConversationState) RecentUserMessages(n int) []string {
	var out []string
	for i := len(st.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if st.Messages[i].Role == RoleUser {
			out = append(out, st.Messages[i].Content)
		}
	}
	// reverse into chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// TrimHistory keeps only the last max messages (token-agnostic trim).
func (st *ConversationState) TrimHistory(max int) {
	if len(st.Messages) > max {
		st.Messages = st.Messages[len(st.Messages)-max:]
	}
}

// FieldMap flattens the extracted trip info into a map keyed the way the
// fingerprint subsets reference fields.
func (ti TripInfo) FieldMap() map[string]any {
	m := map[string]any{
		"origin":           ti.Origin,
		"destination":      ti.Destination,
		"destination_hint": ti.DestinationHint,
		"departure_date":   ti.DepartureDate,
		"return_date":      ti.ReturnDate,
		"trip_purpose":     ti.TripPurpose,
		"travel_pack":      ti.TravelPack,
	}
	if ti.DurationDays > 0 {
		m["duration_days"] = ti.DurationDays
	}
	return m
}

// HasDates reports whether both departure and return dates are present.
func (ti TripInfo) HasDates() bool {
	return ti.DepartureDate != "" && ti.ReturnDate != ""
}

// HasDatesOrDuration reports whether the trip length is pinned down either
// by explicit dates or a duration.
func (ti TripInfo) HasDatesOrDuration() bool {
	return ti.HasDates() || ti.DurationDays > 0
}
