package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardSettings — ограничения вокруг почтового транспорта. Повторов нет: письмо либо ушло, либо потеряно.
type GuardSettings struct {
	Timeout       time.Duration // Предел на одну отправку
	RateLimit     float64       // Писем в секунду
	Burst         int
	MaxRequests   uint32 // Пробных запросов в полуоткрытом состоянии
	Interval      time.Duration
	OpenTimeout   time.Duration // Через сколько CB попробует "закрыться"
	FailureStreak uint32        // Сколько ошибок подряд открывают CB
	OnStateChange func(open bool)
}

// Guard оборачивает Sender в лимитер, предохранитель и таймаут.
type Guard struct {
	next    Sender
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

func NewGuard(next Sender, s GuardSettings) *Guard {
	failures := s.FailureStreak
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if s.OnStateChange != nil {
				s.OnStateChange(to == gobreaker.StateOpen)
			}
		},
	})

	limit := rate.Inf
	if s.RateLimit > 0 {
		limit = rate.Limit(s.RateLimit)
	}
	burst := s.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Guard{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(limit, burst),
		timeout: s.Timeout,
	}
}

func (g *Guard) Send(ctx context.Context, msg Message) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// 1. Rate Limiter
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail rate limit: %w", err)
	}

	// 2. Circuit Breaker
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.next.Send(ctx, msg)
	})
	return err
}

// Open сообщает, разомкнут ли предохранитель.
func (g *Guard) Open() bool {
	return g.cb.State() == gobreaker.StateOpen
}
