package notify

import (
	"context"

	"go.uber.org/zap"
)

// Outcome — результат попытки отправки для метрик.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Observer получает исход каждой попытки. Реализуется метриками.
type Observer interface {
	ObserveNotification(subject string, outcome Outcome)
}

// Notifier — граница best-effort доставки: ошибки транспорта логируются и дальше не идут.
type Notifier struct {
	sender   Sender
	logger   *zap.Logger
	observer Observer
}

func NewNotifier(sender Sender, logger *zap.Logger, observer Observer) *Notifier {
	return &Notifier{
		sender:   sender,
		logger:   logger.Named("notifier"),
		observer: observer,
	}
}

// Notify делает ровно одну попытку отправки.
func (n *Notifier) Notify(ctx context.Context, msg Message) {
	outcome := OutcomeSent
	if err := n.sender.Send(ctx, msg); err != nil {
		outcome = OutcomeFailed
		n.logger.Error("email notification failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
	} else {
		n.logger.Info("email notification sent",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject))
	}

	if n.observer != nil {
		n.observer.ObserveNotification(msg.Subject, outcome)
	}
}
