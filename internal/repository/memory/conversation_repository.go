package memory

import (
	"ai-tripplanner-be/pkg/trip"
	"time"

	"github.com/patrickmn/go-cache"
)

type ConversationRepository struct {
	cache *cache.Cache
}

func NewConversationRepository() *ConversationRepository {
	// Conversations idle for 2 hours are evicted; expired items are purged
	// every 10 minutes
	c := cache.New(2*time.Hour, 10*time.Minute)
	return &ConversationRepository{
		cache: c,
	}
}

func (r *ConversationRepository) Save(state *trip.ConversationState) {
	r.cache.Set(state.ConversationID, state, cache.DefaultExpiration)
}

func (r *ConversationRepository) Get(conversationID string) (*trip.ConversationState, bool) {
	if x, found := r.cache.Get(conversationID); found {
		return x.(*trip.ConversationState), true
	}
	return nil, false
}

func (r *ConversationRepository) Delete(conversationID string) {
	r.cache.Delete(conversationID)
}
