package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/tripbook/pkg/logging"
)

// correlationMiddleware restores the publisher's correlation ID and attaches
// a logger carrying it to the message context.
func correlationMiddleware(logger zerolog.Logger) message.HandlerMiddleware {
	return func(next message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			id := msg.Metadata.Get(correlationIDKey)
			if id == "" {
				id = uuid.NewString()
			}

			ctx := logging.WithCorrelationID(msg.Context(), id)
			ctx = logger.With().
				Str("correlation_id", id).
				Str("message_uuid", msg.UUID).
				Logger().
				WithContext(ctx)
			msg.SetContext(ctx)

			return next(msg)
		}
	}
}

func loggingMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		log := zerolog.Ctx(msg.Context())
		log.Debug().
			Str("event", msg.Metadata.Get("name")).
			Msg("handling event")

		out, err := next(msg)
		if err != nil {
			log.Error().Err(err).
				Str("event", msg.Metadata.Get("name")).
				Bytes("payload", msg.Payload).
				Msg("event handling failed")
		}
		return out, err
	}
}
