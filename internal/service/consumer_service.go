package service

import (
	"context"
	"encoding/json"

	"ai-tripplanner-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains stage-completion events into the structured log so
// turn progressions are auditable without touching the request path.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	logger    logger.ILogger
}

func NewConsumerService(pubSub *gochannel.GoChannel, topicName string, logger logger.ILogger) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		logger:    logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var envelope struct {
		Type       string                 `json:"type"`
		Data       map[string]interface{} `json:"data"`
		OccurredAt string                 `json:"occurred_at"`
	}
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		cs.logger.Warn("CONSUMER", "Dropping malformed event payload", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("CONSUMER", "Stage completed", map[string]interface{}{
		"event_type":  envelope.Type,
		"occurred_at": envelope.OccurredAt,
		"data":        envelope.Data,
	})
	msg.Ack()
}
