// Package events publishes domain events after commit and runs the handlers
// that react to them.
//
// Topics are "events.<StructName>", e.g. events.BookingConfirmed. Redis
// streams carry them between processes; a gochannel pub/sub stands in when
// the service runs without Redis.
package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"github.com/shiva/tripbook/pkg/logging"
)

const correlationIDKey = "correlation_id"

var marshaler = cqrs.JSONMarshaler{
	GenerateName: cqrs.StructName,
}

func topic(eventName string) string {
	return "events." + eventName
}

// NewEventBus returns the bus services publish to. *cqrs.EventBus satisfies
// the services' EventPublisher.
func NewEventBus(pub message.Publisher, logger watermill.LoggerAdapter) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(
		correlationPublisher{Publisher: pub},
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				return topic(params.EventName), nil
			},
			Marshaler: marshaler,
			Logger:    logger,
		},
	)
}

// NewRedisPublisher publishes to Redis streams.
func NewRedisPublisher(rdb *redis.Client, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
}

// NewInProcessPubSub returns a pub/sub that only delivers inside this process.
func NewInProcessPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, logger)
}

// correlationPublisher copies the request's correlation ID onto every
// outgoing message.
type correlationPublisher struct {
	message.Publisher
}

func (p correlationPublisher) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if id := logging.CorrelationID(msg.Context()); id != "" {
			msg.Metadata.Set(correlationIDKey, id)
		}
	}
	return p.Publisher.Publish(topic, messages...)
}
