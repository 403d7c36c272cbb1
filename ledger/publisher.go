package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BalanceChannel is the Redis channel balance events are published on.
const BalanceChannel = "casino:balance"

// Publisher announces balance changes to interested listeners.
type Publisher interface {
	PublishBalance(ctx context.Context, txn Transaction)
}

type nopPublisher struct{}

func (nopPublisher) PublishBalance(context.Context, Transaction) {}

// RedisPublisher pushes balance events to a Redis channel. Failures are
// logged and never fail the ledger write that triggered them.
type RedisPublisher struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedisPublisher connects to the Redis server at url.
func NewRedisPublisher(ctx context.Context, url string, log *zap.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisPublisher{rdb: rdb, log: log}, nil
}

type balanceEvent struct {
	UserID    int64  `json:"userId"`
	Asset     Asset  `json:"asset"`
	Kind      Kind   `json:"kind"`
	Delta     int64  `json:"delta"`
	Balance   int64  `json:"balance"`
	Timestamp string `json:"ts"`
}

func (p *RedisPublisher) PublishBalance(ctx context.Context, txn Transaction) {
	payload, err := json.Marshal(balanceEvent{
		UserID:    txn.UserID,
		Asset:     txn.Asset,
		Kind:      txn.Kind,
		Delta:     txn.Delta,
		Balance:   txn.BalanceAfter,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := p.rdb.Publish(ctx, BalanceChannel, payload).Err(); err != nil {
		p.log.Warn("redis publish failed (non-fatal)", zap.Int64("user_id", txn.UserID), zap.Error(err))
	}
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
