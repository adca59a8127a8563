package repository

import (
	"context"

	"vestipos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditoriaRepository interface {
	Create(ctx context.Context, r *model.RegistroAuditoria) error
	ListByEntidad(ctx context.Context, entidadID uuid.UUID, limit int) ([]model.RegistroAuditoria, error)
}

type auditoriaRepo struct{ db *gorm.DB }

func NewAuditoriaRepository(db *gorm.DB) AuditoriaRepository { return &auditoriaRepo{db: db} }

func (r *auditoriaRepo) Create(ctx context.Context, reg *model.RegistroAuditoria) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *auditoriaRepo) ListByEntidad(ctx context.Context, entidadID uuid.UUID, limit int) ([]model.RegistroAuditoria, error) {
	if limit < 1 {
		limit = 50
	}
	var regs []model.RegistroAuditoria
	err := r.db.WithContext(ctx).
		Where("entidad_id = ?", entidadID).
		Order("created_at DESC").
		Limit(limit).
		Find(&regs).Error
	return regs, err
}
