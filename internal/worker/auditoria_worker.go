package worker

// auditoria_worker.go
// Persists audit-trail events from QueueAuditoria into registros_auditoria.
// The sink is best-effort: producers fire-and-forget, the worker retries
// transient DB failures via the generic job retry in pool.go.

import (
	"context"
	"encoding/json"
	"fmt"

	"vestipos/internal/model"
	"vestipos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuditoriaJobPayload is the job envelope sent to QueueAuditoria.
type AuditoriaJobPayload struct {
	Accion      string  `json:"accion"`
	ActorID     *string `json:"actor_id,omitempty"`
	EntidadTipo string  `json:"entidad_tipo"`
	EntidadID   string  `json:"entidad_id"`
	Descripcion string  `json:"descripcion"`
}

// AuditoriaWorker writes audit events to the database.
type AuditoriaWorker struct {
	repo repository.AuditoriaRepository
}

func NewAuditoriaWorker(repo repository.AuditoriaRepository) *AuditoriaWorker {
	return &AuditoriaWorker{repo: repo}
}

// Process persists one audit event. A malformed payload is dropped (returning
// an error would retry it forever); a DB failure is returned for retry.
func (w *AuditoriaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload AuditoriaJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("auditoria_worker: invalid payload")
		return nil
	}

	entidadID, err := uuid.Parse(payload.EntidadID)
	if err != nil {
		log.Error().Str("entidad_id", payload.EntidadID).Msg("auditoria_worker: invalid entidad_id")
		return nil
	}

	var actorID *uuid.UUID
	if payload.ActorID != nil {
		if parsed, err := uuid.Parse(*payload.ActorID); err == nil {
			actorID = &parsed
		}
	}

	reg := &model.RegistroAuditoria{
		Accion:      payload.Accion,
		ActorID:     actorID,
		EntidadTipo: payload.EntidadTipo,
		EntidadID:   entidadID,
		Descripcion: payload.Descripcion,
	}
	if err := w.repo.Create(ctx, reg); err != nil {
		return fmt.Errorf("auditoria_worker: persist event: %w", err)
	}
	return nil
}
