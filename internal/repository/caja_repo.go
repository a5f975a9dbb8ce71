package repository

import (
	"context"
	"errors"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CajaRepository interface {
	// DB exposes the underlying handle so services can open cross-repo
	// transactions; nil in unit tests backed by in-memory fakes.
	DB() *gorm.DB
	CreateSesion(ctx context.Context, s *model.SesionCaja) error
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	// FindSesionAbiertaPorUsuario returns (nil, nil) when the user has no
	// open session — "not found" is a normal answer here, not an error.
	FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error)
	ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)
	// CreateMovimientos persists all rows in a single transaction —
	// a payment and its change leg commit together or not at all.
	CreateMovimientos(ctx context.Context, movs []*model.MovimientoCaja) error
	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error
	// CerrarSesion applies the close update and the audit insert as one
	// transactional unit. Returns gorm.ErrRecordNotFound when the session
	// was already closed by a concurrent request.
	CerrarSesion(ctx context.Context, s *model.SesionCaja, arqueo *model.ArqueoCaja) error
	FindArqueoPorSesion(ctx context.Context, sesionCajaID uuid.UUID) (*model.ArqueoCaja, error)
	ListSesionesCerradas(ctx context.Context, page, limit int) ([]model.SesionCaja, int64, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.SesionCaja) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Preload("Movimientos").First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Where("usuario_id = ? AND NOT cerrada", usuarioID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ?", sesionCajaID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) CreateMovimientos(ctx context.Context, movs []*model.MovimientoCaja) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range movs {
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *cajaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

func (r *cajaRepo) CerrarSesion(ctx context.Context, s *model.SesionCaja, arqueo *model.ArqueoCaja) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.SesionCaja{}).
			Where("id = ? AND NOT cerrada", s.ID).
			Updates(map[string]interface{}{
				"monto_cierre": s.MontoCierre,
				"cerrada_at":   s.CerradaAt,
				"cerrada":      true,
				"version":      gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(arqueo).Error
	})
}

func (r *cajaRepo) FindArqueoPorSesion(ctx context.Context, sesionCajaID uuid.UUID) (*model.ArqueoCaja, error) {
	var a model.ArqueoCaja
	err := r.db.WithContext(ctx).Where("sesion_caja_id = ?", sesionCajaID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *cajaRepo) ListSesionesCerradas(ctx context.Context, page, limit int) ([]model.SesionCaja, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("cerrada").Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sesiones []model.SesionCaja
	err := r.db.WithContext(ctx).
		Where("cerrada").
		Order("cerrada_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sesiones).Error
	return sesiones, total, err
}
