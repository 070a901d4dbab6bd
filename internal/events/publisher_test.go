package events

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/xela07ax/reqtrack/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublishFailureIsLoggedOnly(t *testing.T) {
	// Порт заведомо закрыт: Publish обязан вернуть управление без паники
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	core, logs := observer.New(zap.WarnLevel)
	p := NewRedisPublisher(rdb, zap.New(core))

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), domain.RequestEvent{Type: domain.EventCreated, RequestID: "1"})
	})
	assert.Equal(t, 1, logs.FilterMessage("request event delivery failed").Len())
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop{}.Publish(context.Background(), domain.RequestEvent{})
	})
}
