package repository

import (
	"context"

	"vestipos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PagoRepository interface {
	// CreateTx inserts a ledger entry inside the caller's transaction.
	CreateTx(tx *gorm.DB, p *model.Pago) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pago, error)
	ListByFactura(ctx context.Context, facturaID uuid.UUID) ([]model.Pago, error)
	// CountByFacturaTx counts ledger entries inside tx (drives the seña migration).
	CountByFacturaTx(tx *gorm.DB, facturaID uuid.UUID) (int64, error)
	// SumPorTipo aggregates monto per tipo ("pago" | "reembolso" | "penalidad").
	// Missing tipos are absent from the map — callers treat absence as zero.
	SumPorTipo(ctx context.Context, facturaID uuid.UUID) (map[string]decimal.Decimal, error)
	SumPorTipoTx(tx *gorm.DB, facturaID uuid.UUID) (map[string]decimal.Decimal, error)
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	DB() *gorm.DB
}

type pagoRepo struct{ db *gorm.DB }

func NewPagoRepository(db *gorm.DB) PagoRepository { return &pagoRepo{db: db} }

func (r *pagoRepo) DB() *gorm.DB { return r.db }

func (r *pagoRepo) CreateTx(tx *gorm.DB, p *model.Pago) error {
	return tx.Create(p).Error
}

func (r *pagoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Pago, error) {
	var p model.Pago
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *pagoRepo) ListByFactura(ctx context.Context, facturaID uuid.UUID) ([]model.Pago, error) {
	var pagos []model.Pago
	err := r.db.WithContext(ctx).
		Where("factura_id = ?", facturaID).
		Order("fecha_pago ASC, created_at ASC").
		Find(&pagos).Error
	return pagos, err
}

func (r *pagoRepo) CountByFacturaTx(tx *gorm.DB, facturaID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&model.Pago{}).Where("factura_id = ?", facturaID).Count(&n).Error
	return n, err
}

type sumRow struct {
	Tipo  string
	Total decimal.Decimal
}

func sumPorTipo(db *gorm.DB, facturaID uuid.UUID) (map[string]decimal.Decimal, error) {
	var rows []sumRow
	err := db.Model(&model.Pago{}).
		Select("tipo, COALESCE(SUM(monto), 0) AS total").
		Where("factura_id = ?", facturaID).
		Group("tipo").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.Tipo] = row.Total
	}
	return sums, nil
}

func (r *pagoRepo) SumPorTipo(ctx context.Context, facturaID uuid.UUID) (map[string]decimal.Decimal, error) {
	return sumPorTipo(r.db.WithContext(ctx), facturaID)
}

func (r *pagoRepo) SumPorTipoTx(tx *gorm.DB, facturaID uuid.UUID) (map[string]decimal.Decimal, error) {
	return sumPorTipo(tx, facturaID)
}

func (r *pagoRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Pago{}, id).Error
}
