package worker

// email_worker.go
// Processes receipt-email jobs from QueueEmail. Every SMTP call goes through
// the circuit breaker so a downed relay fast-fails instead of blocking the
// pool; tripped jobs land in the DLQ and the retry cron re-enqueues them once
// the breaker recovers.

import (
	"context"
	"encoding/json"
	"fmt"

	"vestipos/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailWorker sends payment receipts via SMTP.
type EmailWorker struct {
	mailer *infra.Mailer
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(mailer *infra.Mailer, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb}
}

// Process sends one receipt email through the circuit breaker.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email — skipping")
		return nil
	}

	err := w.cb.Execute(func() error {
		return w.mailer.SendRecibo(payload.ToEmail, payload.Subject, payload.Body)
	})
	if err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}

	log.Info().Str("to", payload.ToEmail).Msg("email_worker: recibo sent successfully")
	return nil
}
