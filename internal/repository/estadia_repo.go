package repository

import (
	"context"
	"errors"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EstadiaRepository interface {
	DB() *gorm.DB
	Create(ctx context.Context, e *model.Estadia) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Estadia, error)
	// FindEnCursoPorPatente returns (nil, nil) when the plate is not inside.
	FindEnCursoPorPatente(ctx context.Context, patente string) (*model.Estadia, error)
	UpdateTx(tx *gorm.DB, e *model.Estadia) error
	ListEnCurso(ctx context.Context) ([]model.Estadia, error)
	FindTarifa(ctx context.Context, tipoVehiculo string) (*model.Tarifa, error)
	ListTarifas(ctx context.Context) ([]model.Tarifa, error)
	UpsertTarifa(ctx context.Context, t *model.Tarifa) error
}

type estadiaRepo struct{ db *gorm.DB }

func NewEstadiaRepository(db *gorm.DB) EstadiaRepository { return &estadiaRepo{db: db} }

func (r *estadiaRepo) DB() *gorm.DB { return r.db }

func (r *estadiaRepo) Create(ctx context.Context, e *model.Estadia) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *estadiaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Estadia, error) {
	var e model.Estadia
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *estadiaRepo) FindEnCursoPorPatente(ctx context.Context, patente string) (*model.Estadia, error) {
	var e model.Estadia
	err := r.db.WithContext(ctx).
		Where("patente = ? AND estado = ?", patente, model.EstadiaEnCurso).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *estadiaRepo) UpdateTx(tx *gorm.DB, e *model.Estadia) error {
	return tx.Save(e).Error
}

func (r *estadiaRepo) ListEnCurso(ctx context.Context) ([]model.Estadia, error) {
	var estadias []model.Estadia
	err := r.db.WithContext(ctx).
		Where("estado = ?", model.EstadiaEnCurso).
		Order("ingreso_at ASC").
		Find(&estadias).Error
	return estadias, err
}

func (r *estadiaRepo) FindTarifa(ctx context.Context, tipoVehiculo string) (*model.Tarifa, error) {
	var t model.Tarifa
	if err := r.db.WithContext(ctx).Where("tipo_vehiculo = ?", tipoVehiculo).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *estadiaRepo) ListTarifas(ctx context.Context) ([]model.Tarifa, error) {
	var tarifas []model.Tarifa
	err := r.db.WithContext(ctx).Order("tipo_vehiculo ASC").Find(&tarifas).Error
	return tarifas, err
}

func (r *estadiaRepo) UpsertTarifa(ctx context.Context, t *model.Tarifa) error {
	existing := &model.Tarifa{}
	err := r.db.WithContext(ctx).Where("tipo_vehiculo = ?", t.TipoVehiculo).First(existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(t).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(existing).Update("precio_hora", t.PrecioHora).Error
}
