// Package mail delivers transactional email through Resend, SMTP or the log.
package mail

import (
	"context"
	"sync"
	"time"

	"github.com/existflow/taskflow/internal/config"
	"github.com/existflow/taskflow/internal/logger"
)

// Message is a plain-text email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher sends a message
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// New picks a backend from cfg: SMTP when fully configured, then Resend
// when an API key is set, else the log.
func New(cfg config.EmailConfig) Dispatcher {
	switch {
	case cfg.SMTPEnabled():
		return &SMTPSender{
			From: cfg.From,
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
		}
	case cfg.ResendAPIKey != "":
		return NewResendSender(cfg.From, cfg.ResendAPIKey)
	default:
		return LogSender{From: cfg.From}
	}
}

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	From string
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	logger.Info("Email (not delivered)",
		logger.F("from", s.From),
		logger.F("to", msg.To),
		logger.F("subject", msg.Subject),
		logger.F("body", msg.Body))
	return nil
}

// sendTimeout bounds a single background delivery
const sendTimeout = 30 * time.Second

// Async hands messages to a background goroutine. Send never fails; delivery
// errors are logged.
type Async struct {
	next Dispatcher
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewAsync wraps next
func NewAsync(next Dispatcher) *Async {
	return &Async{next: next}
}

// Send queues msg and returns immediately. The caller's context is not used
// for delivery since the request it belongs to may finish first.
func (a *Async) Send(_ context.Context, msg Message) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		logger.Warn("Email dropped after shutdown", logger.F("to", msg.To))
		return nil
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := a.next.Send(ctx, msg); err != nil {
			logger.Error("Failed to send email",
				logger.F("to", msg.To),
				logger.F("subject", msg.Subject),
				logger.Err(err))
			return
		}
		logger.Debug("Email sent", logger.F("to", msg.To), logger.F("subject", msg.Subject))
	}()
	return nil
}

// Close stops accepting messages and waits for pending deliveries
func (a *Async) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.wg.Wait()
}
