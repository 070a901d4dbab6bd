package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/reqtrack/internal/domain"
	"github.com/xela07ax/reqtrack/internal/infra"
	"go.uber.org/zap"
)

// RedisPublisher транслирует изменения заявок в Redis Pub/Sub.
// Доставка best-effort: сбой Redis не влияет на исход операции.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		rdb:     rdb,
		channel: infra.RedisChanRequestEvents,
		logger:  logger.Named("events"),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.RequestEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode request event", zap.Error(err))
		return
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("request event delivery failed",
			zap.String("channel", p.channel),
			zap.String("type", string(event.Type)),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
		return
	}

	p.logger.Debug("request event published",
		zap.String("type", string(event.Type)),
		zap.String("request_id", event.RequestID))
}

// Nop используется, когда Redis не настроен.
type Nop struct{}

func (Nop) Publish(context.Context, domain.RequestEvent) {}
