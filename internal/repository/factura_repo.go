package repository

import (
	"context"
	"time"

	"vestipos/internal/dto"
	"vestipos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConflictoQuery describes a proposed booking interval for one product.
// The interval is half-open: [Desde, Hasta).
type ConflictoQuery struct {
	ProductoID       uuid.UUID
	Desde            time.Time
	Hasta            time.Time
	ExcluirFacturaID *uuid.UUID
}

type FacturaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, f *model.Factura) error
	// FindByID excludes rows hidden by the administrative deletion (deleted_at)
	// and preloads items, pagos y cliente. Anuladas SÍ se devuelven: el estado
	// terminal se resuelve en la capa de servicio.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Factura, error)
	// FindByIDTx reads the factura inside tx; forUpdate=true takes a row lock
	// (SELECT … FOR UPDATE) so read-then-write sequences are race-free.
	FindByIDTx(tx *gorm.DB, id uuid.UUID, forUpdate bool) (*model.Factura, error)
	List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error)
	NextNumero(ctx context.Context, tx *gorm.DB) (int, error)
	UpdateCamposTx(tx *gorm.DB, id uuid.UUID, campos map[string]interface{}) error
	SoftDeleteTx(tx *gorm.DB, id uuid.UUID) error

	// BuscarConflictos returns active rental facturas whose booking interval
	// overlaps the proposed one for the given product. Advisory (no lock).
	BuscarConflictos(ctx context.Context, q ConflictoQuery) ([]model.Factura, error)
	// BuscarConflictosTx is the locking variant used at reservation time: it
	// runs inside tx with FOR UPDATE on facturas so two concurrent reservations
	// of the same product serialize instead of double-booking.
	BuscarConflictosTx(tx *gorm.DB, q ConflictoQuery) ([]model.Factura, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type facturaRepo struct{ db *gorm.DB }

func NewFacturaRepository(db *gorm.DB) FacturaRepository { return &facturaRepo{db: db} }

func (r *facturaRepo) DB() *gorm.DB { return r.db }

func (r *facturaRepo) Create(ctx context.Context, tx *gorm.DB, f *model.Factura) error {
	return tx.WithContext(ctx).Create(f).Error
}

func (r *facturaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Factura, error) {
	var f model.Factura
	err := r.db.WithContext(ctx).
		Preload("Cliente").
		Preload("Items.Producto").
		Preload("Pagos").
		First(&f, id).Error
	return &f, err
}

func (r *facturaRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID, forUpdate bool) (*model.Factura, error) {
	q := tx.Preload("Items")
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var f model.Factura
	err := q.First(&f, id).Error
	return &f, err
}

func (r *facturaRepo) List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error) {
	var facturas []model.Factura
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Factura{})

	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.TipoOperacion != "" {
		q = q.Where("tipo_operacion = ?", filter.TipoOperacion)
	}
	if filter.ClienteID != "" {
		q = q.Where("cliente_id = ?", filter.ClienteID)
	}
	if filter.Fecha != "" {
		q = q.Where("fecha_factura = ?", filter.Fecha)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Cliente").Preload("Items.Producto").Preload("Pagos").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&facturas).Error

	return facturas, total, err
}

func (r *facturaRepo) NextNumero(ctx context.Context, tx *gorm.DB) (int, error) {
	// Uses a PostgreSQL sequence for atomic invoice number generation
	var num int
	err := tx.WithContext(ctx).Raw("SELECT nextval('facturas_numero_seq')").Scan(&num).Error
	return num, err
}

func (r *facturaRepo) UpdateCamposTx(tx *gorm.DB, id uuid.UUID, campos map[string]interface{}) error {
	return tx.Model(&model.Factura{}).Where("id = ?", id).Updates(campos).Error
}

func (r *facturaRepo) SoftDeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&model.Factura{}).Where("id = ?", id).
		Update("deleted_at", time.Now()).Error
}

// conflictoScope builds the shared overlap query: active rental facturas that
// reference the product and whose [fecha_retiro, fecha_devolucion) interval
// intersects [q.Desde, q.Hasta). Soft-deleted facturas are excluded by GORM.
func conflictoScope(db *gorm.DB, q ConflictoQuery) *gorm.DB {
	scope := db.Model(&model.Factura{}).
		Joins("JOIN factura_items ON factura_items.factura_id = facturas.id").
		Where("factura_items.producto_id = ?", q.ProductoID).
		Where("facturas.estado IN ?", []string{model.EstadoReservada, model.EstadoEntregada}).
		Where("facturas.tipo_operacion IN ?", []string{model.OperacionAlquiler, model.OperacionConfeccionAlquiler}).
		Where("facturas.fecha_retiro < ? AND facturas.fecha_devolucion > ?", q.Hasta, q.Desde)
	if q.ExcluirFacturaID != nil {
		scope = scope.Where("facturas.id <> ?", *q.ExcluirFacturaID)
	}
	return scope
}

func (r *facturaRepo) BuscarConflictos(ctx context.Context, q ConflictoQuery) ([]model.Factura, error) {
	var facturas []model.Factura
	err := conflictoScope(r.db.WithContext(ctx), q).
		Distinct("facturas.*").
		Preload("Cliente").
		Order("facturas.fecha_retiro ASC").
		Find(&facturas).Error
	return facturas, err
}

func (r *facturaRepo) BuscarConflictosTx(tx *gorm.DB, q ConflictoQuery) ([]model.Factura, error) {
	// No DISTINCT here: Postgres rejects SELECT DISTINCT … FOR UPDATE. A
	// factura listing the same product twice shows up twice, which is harmless
	// for conflict counting at reservation time.
	var facturas []model.Factura
	err := conflictoScope(tx, q).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "facturas"}}).
		Find(&facturas).Error
	return facturas, err
}
