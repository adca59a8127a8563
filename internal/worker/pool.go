package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAuditoria = "jobs:auditoria"
	QueueEmail     = "jobs:email"
)

// MaxJobAttempts is how many times a job is retried before going to the DLQ.
const MaxJobAttempts = 3

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueAuditoria pushes an audit-trail job to Redis. Best-effort: callers
// ignore the error — a lost audit event never rolls back a committed factura.
func (d *Dispatcher) EnqueueAuditoria(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueAuditoria, "auditoria", payload)
}

// EnqueueEmail pushes a receipt-email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers wires each queue to its processor.
type Handlers struct {
	Auditoria *AuditoriaWorker
	Email     *EmailWorker
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers Handlers) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers Handlers) {
	queues := []string{QueueAuditoria, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	var err error
	switch queue {
	case QueueAuditoria:
		err = handlers.Auditoria.Process(ctx, job.Payload)
	case QueueEmail:
		err = handlers.Email.Process(ctx, job.Payload)
	default:
		log.Error().Str("queue", queue).Msg("no handler for queue")
		return
	}
	if err == nil {
		return
	}

	job.Attempts++
	if job.Attempts >= MaxJobAttempts {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("type", job.Type).
		Int("attempts", job.Attempts).
		Err(err).
		Msg("job failed, re-enqueueing")
	if encoded, mErr := json.Marshal(job); mErr == nil {
		_ = rdb.LPush(ctx, queue, encoded).Err()
	}
}
