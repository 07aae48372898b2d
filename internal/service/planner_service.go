package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ai-tripplanner-be/internal/dto"
	"ai-tripplanner-be/internal/pkg/logger"
	"ai-tripplanner-be/internal/repository/memory"
	"ai-tripplanner-be/internal/repository/redisstore"
	"ai-tripplanner-be/pkg/ai/orchestrator"
	"ai-tripplanner-be/pkg/ai/router"
	"ai-tripplanner-be/pkg/trip"

	"github.com/google/uuid"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUnknownAction        = errors.New("unknown refine action")
)

type IPlannerService interface {
	Chat(ctx context.Context, req dto.SendChatRequest) (*dto.SendChatResponse, error)
	Refine(ctx context.Context, req dto.RefineRequest) (*dto.SendChatResponse, error)
	History(ctx context.Context, conversationID uuid.UUID) (*dto.ChatHistoryResponse, error)
	PlanState(ctx context.Context, conversationID uuid.UUID) (*dto.PlanStateResponse, error)
}

type plannerService struct {
	orchestrator  *orchestrator.Orchestrator
	conversations *memory.ConversationRepository
	snapshots     *redisstore.SnapshotStore // nil when snapshots are disabled
	logger        logger.ILogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPlannerService(
	orch *orchestrator.Orchestrator,
	conversations *memory.ConversationRepository,
	snapshots *redisstore.SnapshotStore,
	log logger.ILogger,
) IPlannerService {
	return &plannerService{
		orchestrator:  orch,
		conversations: conversations,
		snapshots:     snapshots,
		logger:        log,
		locks:         map[string]*sync.Mutex{},
	}
}

// conversationLock returns the per-conversation mutex, creating it on first
// use. Turns within one conversation must never interleave.
func (s *plannerService) conversationLock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	return l
}

func (s *plannerService) Chat(ctx context.Context, req dto.SendChatRequest) (*dto.SendChatResponse, error) {
	var conversationID uuid.UUID
	if req.ConversationId != nil {
		conversationID = *req.ConversationId
	} else {
		conversationID = uuid.New()
	}

	lock := s.conversationLock(conversationID.String())
	lock.Lock()
	defer lock.Unlock()

	state, err := s.loadOrCreate(ctx, conversationID, req.ConversationId == nil)
	if err != nil {
		return nil, err
	}

	reply, err := s.orchestrator.RunTurn(ctx, state, req.Message)
	if err != nil {
		return nil, err
	}

	s.conversations.Save(state)
	s.snapshot(ctx, state)

	return &dto.SendChatResponse{
		ConversationId: conversationID,
		Reply:          reply,
		Stage:          string(router.StageOf(state)),
		PlanReady:      state.Flags.ItineraryPresented,
	}, nil
}

func (s *plannerService) Refine(ctx context.Context, req dto.RefineRequest) (*dto.SendChatResponse, error) {
	// Structured refinements reuse the conversational path so the routing,
	// event and snapshot behavior stays identical for both entry points.
	message, err := refineMessage(req)
	if err != nil {
		return nil, err
	}

	if _, found := s.conversations.Get(req.ConversationId.String()); !found {
		if restored := s.restoreSnapshot(ctx, req.ConversationId.String()); !restored {
			return nil, ErrConversationNotFound
		}
	}

	conversationID := req.ConversationId
	return s.Chat(ctx, dto.SendChatRequest{ConversationId: &conversationID, Message: message})
}

func (s *plannerService) History(ctx context.Context, conversationID uuid.UUID) (*dto.ChatHistoryResponse, error) {
	state, err := s.lookup(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := make([]dto.ChatHistoryMessage, 0, len(state.Messages))
	for _, m := range state.Messages {
		if m.Role == trip.RoleSystem {
			continue
		}
		messages = append(messages, dto.ChatHistoryMessage{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	return &dto.ChatHistoryResponse{
		ConversationId: conversationID,
		Stage:          string(router.StageOf(state)),
		Messages:       messages,
	}, nil
}

func (s *plannerService) PlanState(ctx context.Context, conversationID uuid.UUID) (*dto.PlanStateResponse, error) {
	state, err := s.lookup(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	res := &dto.PlanStateResponse{
		ConversationId: conversationID,
		Stage:          string(router.StageOf(state)),
		Summary: dto.TripSummaryDTO{
			Origin:      state.Extracted.Origin,
			Destination: state.Extracted.Destination,
			Dates:       tripDates(state.Extracted),
			Duration:    state.Extracted.DurationDays,
			Purpose:     state.Extracted.TripPurpose,
			TravelPack:  state.Extracted.TravelPack,
		},
		HotelSelected: state.Flags.HotelSelected,
	}
	if state.Itinerary != nil {
		res.PlanMarkdown = state.Itinerary.RenderMarkdown()
	}
	return res, nil
}

func (s *plannerService) lookup(ctx context.Context, conversationID uuid.UUID) (*trip.ConversationState, error) {
	if state, found := s.conversations.Get(conversationID.String()); found {
		return state, nil
	}
	if s.restoreSnapshot(ctx, conversationID.String()) {
		state, _ := s.conversations.Get(conversationID.String())
		return state, nil
	}
	return nil, ErrConversationNotFound
}

func (s *plannerService) loadOrCreate(ctx context.Context, conversationID uuid.UUID, isNew bool) (*trip.ConversationState, error) {
	if state, found := s.conversations.Get(conversationID.String()); found {
		return state, nil
	}
	if !isNew {
		if s.restoreSnapshot(ctx, conversationID.String()) {
			state, _ := s.conversations.Get(conversationID.String())
			return state, nil
		}
		return nil, ErrConversationNotFound
	}
	state := trip.NewState(conversationID.String(), "")
	s.conversations.Save(state)
	s.logger.Info("PLANNER", "New conversation started", map[string]interface{}{"conversation_id": conversationID.String()})
	return state, nil
}

func (s *plannerService) restoreSnapshot(ctx context.Context, conversationID string) bool {
	if s.snapshots == nil {
		return false
	}
	state, err := s.snapshots.Load(ctx, conversationID)
	if err != nil {
		s.logger.Warn("PLANNER", "Snapshot restore failed", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return false
	}
	if state == nil {
		return false
	}
	s.conversations.Save(state)
	s.logger.Info("PLANNER", "Conversation restored from snapshot", map[string]interface{}{"conversation_id": conversationID})
	return true
}

func (s *plannerService) snapshot(ctx context.Context, state *trip.ConversationState) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, state); err != nil {
		s.logger.Warn("PLANNER", "Snapshot save failed", map[string]interface{}{
			"conversation_id": state.ConversationID,
			"error":           err.Error(),
		})
	}
}

// refineMessage renders a structured refine action as the natural-language
// message the pipeline already understands.
func refineMessage(req dto.RefineRequest) (string, error) {
	switch req.Action {
	case "select_hotel":
		if req.HotelIndex < 1 {
			return "", fmt.Errorf("%w: select_hotel requires hotel_index", ErrUnknownAction)
		}
		return fmt.Sprintf("option %d", req.HotelIndex), nil
	case "cheaper_hotel":
		return "find a cheaper hotel", nil
	case "set_budget":
		if req.BudgetUSD < 1 {
			return "", fmt.Errorf("%w: set_budget requires budget_usd", ErrUnknownAction)
		}
		return fmt.Sprintf("keep it under $%d", req.BudgetUSD), nil
	case "remove_component":
		if req.DayNumber < 1 || req.TimeSlot == "" {
			return "", fmt.Errorf("%w: remove_component requires day_number and time_slot", ErrUnknownAction)
		}
		return fmt.Sprintf("remove the day %d %s activity", req.DayNumber, req.TimeSlot), nil
	case "swap_component", "swap_activity":
		if req.DayNumber < 1 || req.TimeSlot == "" {
			return "", fmt.Errorf("%w: swap_component requires day_number and time_slot", ErrUnknownAction)
		}
		msg := fmt.Sprintf("swap the day %d %s activity", req.DayNumber, req.TimeSlot)
		if req.Reason != "" {
			msg += " for " + req.Reason
		}
		return msg, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}
}

func tripDates(info trip.TripInfo) string {
	switch {
	case info.DepartureDate != "" && info.ReturnDate != "":
		return info.DepartureDate + " to " + info.ReturnDate
	case info.DepartureDate != "":
		return info.DepartureDate
	default:
		return ""
	}
}
