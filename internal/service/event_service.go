package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/events"
)

// LifecycleTopic is the in-process topic lifecycle events travel on.
const LifecycleTopic = "shopping.lifecycle"

// IEventPublisherService puts lifecycle events on the in-process bus.
type IEventPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type eventPublisherService struct {
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewEventPublisherService(pubSub *gochannel.GoChannel, topicName string) IEventPublisherService {
	return &eventPublisherService{pubSub: pubSub, topicName: topicName}
}

func (s *eventPublisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := events.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.EventType())
	return s.pubSub.Publish(s.topicName, msg)
}

// EventSink receives lifecycle events leaving the process, e.g. the NATS
// publisher.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService relays lifecycle events from the in-process bus to the
// configured sinks.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	sinks     []EventSink
	logger    logger.ILogger
}

func NewConsumerService(pubSub *gochannel.GoChannel, topicName string, log logger.ILogger, sinks ...EventSink) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		sinks:     sinks,
		logger:    log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.logger.Error("EventRelay", "Dropping malformed event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("EventRelay", "Lifecycle event", map[string]interface{}{
		"type": event.EventType(),
		"data": event.Payload(),
	})

	for _, sink := range cs.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			// Relaying is best-effort; the session keeps working without it.
			cs.logger.Warn("EventRelay", "Sink publish failed", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}
	msg.Ack()
}
