package ws

import (
	"context"
	"encoding/json"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// CommissionChannel is the Redis pub/sub channel carrying new entries
const CommissionChannel = "commission_events"

// LocalPublisher delivers straight to the hub of this process
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) PublishCommissions(_ context.Context, entries []domain.CommissionEntry) {
	p.hub.Deliver(entries)
}

// RedisBroker publishes entries on a Redis channel and feeds every
// instance's hub from its subscription, so a dashboard connected to any
// instance sees commissions written by any other.
type RedisBroker struct {
	rdb *redis.Client
	hub *Hub
}

func NewRedisBroker(rdb *redis.Client, hub *Hub) *RedisBroker {
	return &RedisBroker{rdb: rdb, hub: hub}
}

// PublishCommissions never fails the ledger write; on Redis errors it falls
// back to local delivery.
func (b *RedisBroker) PublishCommissions(ctx context.Context, entries []domain.CommissionEntry) {
	if len(entries) == 0 {
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		logger.WithContext(ctx).Error("marshal commission event", "error", err)
		return
	}
	if err := b.rdb.Publish(ctx, CommissionChannel, payload).Err(); err != nil {
		logger.WithContext(ctx).Warn("redis publish failed, delivering locally", "error", err)
		b.hub.Deliver(entries)
	}
}

// Run consumes the channel until ctx is cancelled
func (b *RedisBroker) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, CommissionChannel)
	defer sub.Close()

	ch := sub.Channel()
	logger.Info("earnings feed subscribed", "channel", CommissionChannel)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var entries []domain.CommissionEntry
			if err := json.Unmarshal([]byte(msg.Payload), &entries); err != nil {
				logger.Warn("bad commission event", "error", err)
				continue
			}
			b.hub.Deliver(entries)
		}
	}
}
