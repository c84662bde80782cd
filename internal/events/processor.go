package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SubscriberFactory builds the subscriber for one named handler.
type SubscriberFactory func(handlerName string) (message.Subscriber, error)

// RedisSubscribers gives every handler its own consumer group, so each
// handler sees every event once no matter how many replicas run.
func RedisSubscribers(rdb *redis.Client, consumerGroup string, logger watermill.LoggerAdapter) SubscriberFactory {
	return func(handlerName string) (message.Subscriber, error) {
		return redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        rdb,
			ConsumerGroup: consumerGroup + "." + handlerName,
		}, logger)
	}
}

// SharedSubscriber hands the same subscriber to every handler.
func SharedSubscriber(sub message.Subscriber) SubscriberFactory {
	return func(string) (message.Subscriber, error) {
		return sub, nil
	}
}

// NewRouter returns a message router with recovery, retries, correlation
// and logging middleware installed.
func NewRouter(logger zerolog.Logger, wlogger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, wlogger)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(correlationMiddleware(logger))
	router.AddMiddleware(loggingMiddleware)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          wlogger,
	}.Middleware)

	return router, nil
}

// NewEventProcessor subscribes handlers to their event topics on router.
func NewEventProcessor(
	router *message.Router,
	subscribers SubscriberFactory,
	logger watermill.LoggerAdapter,
) (*cqrs.EventProcessor, error) {
	return cqrs.NewEventProcessorWithConfig(
		router,
		cqrs.EventProcessorConfig{
			GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
				return topic(params.EventName), nil
			},
			SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
				return subscribers(params.HandlerName)
			},
			Marshaler: marshaler,
			Logger:    logger,
		},
	)
}
