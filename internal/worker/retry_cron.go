package worker

// retry_cron.go
// Background goroutine that periodically drains the email DLQ back into
// QueueEmail once the SMTP circuit breaker has recovered. Audit DLQ entries
// are left for manual inspection — replaying stale audit events out of order
// is worse than losing them.

import (
	"context"
	"encoding/json"
	"time"

	"vestipos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RDB *redis.Client
	CB  *infra.CircuitBreaker
}

// StartRetryCron launches a background goroutine that ticks every 30s and,
// while the circuit breaker is not open, re-enqueues dead-lettered email jobs.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed relay
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	for i := 0; i < retryBatchSize; i++ {
		// Check CB state before each replay — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		entry, raw, err := PopDLQ(ctx, cfg.RDB, QueueEmail)
		if err != nil || entry == nil {
			return // empty DLQ or redis unavailable
		}

		// Replay with a fresh attempt counter
		job := Job{Type: entry.JobType, Payload: entry.Payload}
		encoded, err := json.Marshal(job)
		if err != nil {
			continue
		}
		if err := cfg.RDB.LPush(ctx, entry.OriginalQueue, encoded).Err(); err != nil {
			log.Error().Err(err).Msg("retry_cron: failed to re-enqueue, pushing back to DLQ")
			_ = cfg.RDB.LPush(ctx, DLQPrefix+QueueEmail, raw).Err()
			return
		}

		log.Info().
			Str("queue", entry.OriginalQueue).
			Str("type", entry.JobType).
			Int("previous_attempts", entry.Attempts).
			Msg("retry_cron: DLQ job re-enqueued")
	}
}
