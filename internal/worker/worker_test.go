package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"vestipos/internal/config"
	"vestipos/internal/infra"
	"vestipos/internal/model"
	"vestipos/internal/repository"
	"vestipos/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── In-memory Repository Stub ─────────────────────────────────────────────────

type stubAuditoriaRepo struct {
	registros []model.RegistroAuditoria
	failNext  bool
}

var _ repository.AuditoriaRepository = (*stubAuditoriaRepo)(nil)

func (r *stubAuditoriaRepo) Create(_ context.Context, reg *model.RegistroAuditoria) error {
	if r.failNext {
		r.failNext = false
		return errors.New("db down")
	}
	r.registros = append(r.registros, *reg)
	return nil
}

func (r *stubAuditoriaRepo) ListByEntidad(_ context.Context, entidadID uuid.UUID, _ int) ([]model.RegistroAuditoria, error) {
	var out []model.RegistroAuditoria
	for _, reg := range r.registros {
		if reg.EntidadID == entidadID {
			out = append(out, reg)
		}
	}
	return out, nil
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// ── AuditoriaWorker ───────────────────────────────────────────────────────────

func TestAuditoriaWorker_PersisteEvento(t *testing.T) {
	repo := &stubAuditoriaRepo{}
	w := worker.NewAuditoriaWorker(repo)

	actor := uuid.New().String()
	entidad := uuid.New()
	payload := worker.AuditoriaJobPayload{
		Accion:      "cambio_estado",
		ActorID:     &actor,
		EntidadTipo: "factura",
		EntidadID:   entidad.String(),
		Descripcion: "reservada → entregada",
	}

	err := w.Process(context.Background(), mustJSON(t, payload))
	require.NoError(t, err)
	require.Len(t, repo.registros, 1)
	reg := repo.registros[0]
	assert.Equal(t, "cambio_estado", reg.Accion)
	assert.Equal(t, entidad, reg.EntidadID)
	require.NotNil(t, reg.ActorID)
	assert.Equal(t, actor, reg.ActorID.String())
}

func TestAuditoriaWorker_PayloadInvalido_SeDescartaSinError(t *testing.T) {
	repo := &stubAuditoriaRepo{}
	w := worker.NewAuditoriaWorker(repo)

	// Returning an error would retry a permanently broken job forever
	err := w.Process(context.Background(), json.RawMessage(`{not json`))
	assert.NoError(t, err)
	assert.Empty(t, repo.registros)

	err = w.Process(context.Background(), mustJSON(t, worker.AuditoriaJobPayload{
		Accion: "x", EntidadTipo: "factura", EntidadID: "not-a-uuid",
	}))
	assert.NoError(t, err)
	assert.Empty(t, repo.registros)
}

func TestAuditoriaWorker_FallaDB_DevuelveErrorParaReintento(t *testing.T) {
	repo := &stubAuditoriaRepo{failNext: true}
	w := worker.NewAuditoriaWorker(repo)

	payload := worker.AuditoriaJobPayload{
		Accion: "anulacion", EntidadTipo: "factura", EntidadID: uuid.New().String(),
	}
	err := w.Process(context.Background(), mustJSON(t, payload))
	assert.Error(t, err)

	// Next attempt succeeds
	err = w.Process(context.Background(), mustJSON(t, payload))
	assert.NoError(t, err)
	assert.Len(t, repo.registros, 1)
}

// ── EmailWorker ───────────────────────────────────────────────────────────────

func TestEmailWorker_PayloadInvalido_SeDescarta(t *testing.T) {
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	w := worker.NewEmailWorker(infra.NewMailer(&config.Config{}), cb)

	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`garbage`)))
}

func TestEmailWorker_DestinatarioVacio_SeOmite(t *testing.T) {
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	w := worker.NewEmailWorker(infra.NewMailer(&config.Config{}), cb)

	err := w.Process(context.Background(), mustJSON(t, worker.EmailJobPayload{
		Subject: "Recibo de pago", Body: "hola",
	}))
	assert.NoError(t, err)
}

func TestEmailWorker_BreakerAbierto_FastFail(t *testing.T) {
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
	})
	// Trip the breaker
	cb.Execute(func() error { return errors.New("relay down") }) //nolint
	require.Equal(t, infra.CBOpen, cb.State())

	w := worker.NewEmailWorker(infra.NewMailer(&config.Config{}), cb)
	err := w.Process(context.Background(), mustJSON(t, worker.EmailJobPayload{
		ToEmail: "cliente@example.com", Subject: "Recibo", Body: "hola",
	}))
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
}
