package distribution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ChannelBus is an in-process bus for single-instance deployments and tests.
type ChannelBus struct {
	pubsub *gochannel.GoChannel
	topic  string
	logger *slog.Logger
}

func NewChannelBus(logger *slog.Logger) *ChannelBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelBus{
		// blocking until ack keeps envelopes of one game in publish order
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		}, watermill.NewSlogLogger(logger)),
		topic:  DefaultChannel,
		logger: logger,
	}
}

func (b *ChannelBus) Publish(_ context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := b.pubsub.Publish(b.topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return fmt.Errorf("publish envelope: %w", err)
	}
	return nil
}

func (b *ChannelBus) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	messages, err := b.pubsub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", b.topic, err)
	}
	out := make(chan Envelope, 64)
	go func() {
		defer close(out)
		for msg := range messages {
			var env Envelope
			err := json.Unmarshal(msg.Payload, &env)
			msg.Ack()
			if err != nil {
				b.logger.Warn("dropping malformed envelope", "message_uuid", msg.UUID, "error", err)
				continue
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *ChannelBus) Close() error {
	return b.pubsub.Close()
}
