package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AbonoRepository interface {
	DB() *gorm.DB
	CreateCliente(ctx context.Context, c *model.Cliente) error
	FindClienteByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	ListClientes(ctx context.Context) ([]model.Cliente, error)
	CreateAbonoTx(tx *gorm.DB, a *model.Abono) error
	FindAbonoByID(ctx context.Context, id uuid.UUID) (*model.Abono, error)
	// FindAbonoVigentePorPatente returns (nil, nil) when the plate has no
	// subscription valid at ref.
	FindAbonoVigentePorPatente(ctx context.Context, patente string, ref time.Time) (*model.Abono, error)
	UpdateAbonoTx(tx *gorm.DB, a *model.Abono) error
	// ListPorVencer returns abonos expiring on or before hasta whose
	// reminder has not been sent yet, with the Cliente preloaded.
	ListPorVencer(ctx context.Context, hasta time.Time, limit int) ([]model.Abono, error)
	MarcarRecordatorio(ctx context.Context, abonoID uuid.UUID, at time.Time) error
}

type abonoRepo struct{ db *gorm.DB }

func NewAbonoRepository(db *gorm.DB) AbonoRepository { return &abonoRepo{db: db} }

func (r *abonoRepo) DB() *gorm.DB { return r.db }

func (r *abonoRepo) CreateCliente(ctx context.Context, c *model.Cliente) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *abonoRepo) FindClienteByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *abonoRepo) ListClientes(ctx context.Context) ([]model.Cliente, error) {
	var clientes []model.Cliente
	err := r.db.WithContext(ctx).Order("nombre ASC").Find(&clientes).Error
	return clientes, err
}

func (r *abonoRepo) CreateAbonoTx(tx *gorm.DB, a *model.Abono) error {
	return tx.Create(a).Error
}

func (r *abonoRepo) FindAbonoByID(ctx context.Context, id uuid.UUID) (*model.Abono, error) {
	var a model.Abono
	if err := r.db.WithContext(ctx).Preload("Cliente").First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *abonoRepo) FindAbonoVigentePorPatente(ctx context.Context, patente string, ref time.Time) (*model.Abono, error) {
	var a model.Abono
	err := r.db.WithContext(ctx).
		Joins("JOIN clientes ON clientes.id = abonos.cliente_id").
		Where("clientes.patente = ? AND abonos.vence_at >= ?", patente, ref).
		Order("abonos.vence_at DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *abonoRepo) UpdateAbonoTx(tx *gorm.DB, a *model.Abono) error {
	return tx.Save(a).Error
}

func (r *abonoRepo) ListPorVencer(ctx context.Context, hasta time.Time, limit int) ([]model.Abono, error) {
	var abonos []model.Abono
	err := r.db.WithContext(ctx).
		Preload("Cliente").
		Where("vence_at <= ? AND recordatorio_enviado_at IS NULL", hasta).
		Order("vence_at ASC").
		Limit(limit).
		Find(&abonos).Error
	return abonos, err
}

func (r *abonoRepo) MarcarRecordatorio(ctx context.Context, abonoID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Abono{}).
		Where("id = ?", abonoID).
		Update("recordatorio_enviado_at", at).Error
}
