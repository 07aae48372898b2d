package events

import "time"

// Event codes emitted by the planning workflow.
const (
	TurnStageCompletedType = "TURN_STAGE_COMPLETED"
)

// NewTurnStageCompleted records that one pipeline stage finished within a
// conversation turn.
func NewTurnStageCompleted(conversationID, route, stage string, advanced bool) Event {
	return BaseEvent{
		Type: TurnStageCompletedType,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"route":           route,
			"stage":           stage,
			"advanced":        advanced,
		},
		OccurredAt: time.Now(),
	}
}
