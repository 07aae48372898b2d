package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatRequest struct {
	ConversationId *uuid.UUID `json:"conversation_id,omitempty"`
	Message        string     `json:"message" validate:"required,max=4000"`
}

type SendChatResponse struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	Reply          string    `json:"reply"`
	Stage          string    `json:"stage"`
	PlanReady      bool      `json:"plan_ready"`
}

// RefineRequest is the structured alternative to free-text refinement.
// Action decides which of the optional fields are consulted.
type RefineRequest struct {
	ConversationId uuid.UUID `json:"conversation_id" validate:"required"`
	Action         string    `json:"action" validate:"required,oneof=select_hotel cheaper_hotel set_budget remove_component swap_component swap_activity"`
	HotelIndex     int       `json:"hotel_index,omitempty" validate:"omitempty,min=1,max=3"`
	DayNumber      int       `json:"day_number,omitempty" validate:"omitempty,min=1,max=7"`
	TimeSlot       string    `json:"time_slot,omitempty" validate:"omitempty,oneof=morning afternoon evening"`
	BudgetUSD      int       `json:"budget_usd,omitempty" validate:"omitempty,min=1"`
	Reason         string    `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ChatHistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	ConversationId uuid.UUID            `json:"conversation_id"`
	Stage          string               `json:"stage"`
	Messages       []ChatHistoryMessage `json:"messages"`
}

type TripSummaryDTO struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	Dates       string `json:"dates,omitempty"`
	Duration    int    `json:"duration_days,omitempty"`
	Purpose     string `json:"trip_purpose,omitempty"`
	TravelPack  string `json:"travel_pack,omitempty"`
}

type PlanStateResponse struct {
	ConversationId uuid.UUID      `json:"conversation_id"`
	Stage          string         `json:"stage"`
	Summary        TripSummaryDTO `json:"summary"`
	HotelSelected  bool           `json:"hotel_selected"`
	PlanMarkdown   string         `json:"plan_markdown,omitempty"`
}
