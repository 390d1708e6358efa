package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
)

// Publisher broadcasts signals on Redis pub/sub.
type Publisher struct {
	client redis.UniversalClient
}

func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Name() string { return "redis-pubsub" }

// Publish sends the signal to the global channel and its network channel.
func (p *Publisher) Publish(ctx context.Context, sig *models.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	channels := []string{
		constants.PubSubChannelSignals,
		ChannelFor(sig.Network),
	}

	pipe := p.client.Pipeline()
	for _, ch := range channels {
		pipe.Publish(ctx, ch, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

// ChannelFor is the per-network channel name.
func ChannelFor(n models.Network) string {
	return constants.PubSubChannelSignalsOn + string(n)
}

// Close is a no-op; the client is shared with the block-list store.
func (p *Publisher) Close() error { return nil }
