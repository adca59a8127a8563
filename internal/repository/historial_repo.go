package repository

import (
	"context"

	"vestipos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HistorialRepository interface {
	// CreateTx appends one transition record inside the lifecycle transaction.
	CreateTx(tx *gorm.DB, h *model.HistorialEstado) error
	ListByFactura(ctx context.Context, facturaID uuid.UUID) ([]model.HistorialEstado, error)
}

type historialRepo struct{ db *gorm.DB }

func NewHistorialRepository(db *gorm.DB) HistorialRepository { return &historialRepo{db: db} }

func (r *historialRepo) CreateTx(tx *gorm.DB, h *model.HistorialEstado) error {
	return tx.Create(h).Error
}

func (r *historialRepo) ListByFactura(ctx context.Context, facturaID uuid.UUID) ([]model.HistorialEstado, error) {
	var entradas []model.HistorialEstado
	err := r.db.WithContext(ctx).
		Where("factura_id = ?", facturaID).
		Order("created_at ASC").
		Find(&entradas).Error
	return entradas, err
}
