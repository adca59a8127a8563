package repository

import (
	"context"

	"vestipos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClienteRepository interface {
	Create(ctx context.Context, c *model.Cliente) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	Buscar(ctx context.Context, nombre string, limit int) ([]model.Cliente, error)
	Update(ctx context.Context, c *model.Cliente) error
}

type clienteRepo struct{ db *gorm.DB }

func NewClienteRepository(db *gorm.DB) ClienteRepository { return &clienteRepo{db: db} }

func (r *clienteRepo) Create(ctx context.Context, c *model.Cliente) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *clienteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	err := r.db.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *clienteRepo) Buscar(ctx context.Context, nombre string, limit int) ([]model.Cliente, error) {
	if limit < 1 {
		limit = 20
	}
	var clientes []model.Cliente
	q := r.db.WithContext(ctx).Model(&model.Cliente{})
	if nombre != "" {
		q = q.Where("nombre ILIKE ?", "%"+nombre+"%")
	}
	err := q.Order("nombre ASC").Limit(limit).Find(&clientes).Error
	return clientes, err
}

func (r *clienteRepo) Update(ctx context.Context, c *model.Cliente) error {
	return r.db.WithContext(ctx).Save(c).Error
}
