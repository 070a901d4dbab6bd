package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"github.com/xela07ax/reqtrack/internal/infra"
)

// Message — одно исходящее письмо.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender — единственная операция почтового транспорта.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender отправляет письма через SMTP. Клиент go-mail держит состояние сессии,
// поэтому на каждое письмо создается свой: общий хранится только набор опций.
type SMTPSender struct {
	host string
	opts []mail.Option
	from string
}

func NewSMTPSender(cfg infra.MailConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	switch {
	case cfg.UseSSL:
		opts = append(opts, mail.WithSSL())
	case cfg.UseTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	s := &SMTPSender{host: cfg.Host, opts: opts, from: cfg.Sender}
	// Проверяем опции сразу, чтобы ошибка конфигурации всплыла на старте
	if _, err := s.newClient(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SMTPSender) newClient() (*mail.Client, error) {
	client, err := mail.NewClient(s.host, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp: failed to create client: %w", err)
	}
	return client, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("smtp: invalid sender %q: %w", s.from, err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("smtp: invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := s.newClient()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp: send to %s failed: %w", msg.To, err)
	}
	return nil
}
