package service

import (
	"context"
	"encoding/json"

	"ai-tripplanner-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IPublisherService interface {
	Publish(ctx context.Context, evt events.Event) error
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

type eventEnvelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt string                 `json:"occurred_at"`
}

func (ps *publisherService) Publish(ctx context.Context, evt events.Event) error {
	payload, err := json.Marshal(eventEnvelope{
		Type:       evt.EventType(),
		Data:       evt.Payload(),
		OccurredAt: evt.Timestamp().Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.pubSub.Publish(ps.topicName, msg)
}
