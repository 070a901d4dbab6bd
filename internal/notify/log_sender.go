package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender не отправляет писем, а пишет их в лог. Используется, когда SMTP не настроен.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("mail-stub")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.logger.Info("mail delivery skipped: smtp is not configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_len", len(msg.Body)))
	return nil
}
