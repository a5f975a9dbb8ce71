package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estadia states.
const (
	EstadiaEnCurso    = "en_curso"
	EstadiaFinalizada = "finalizada"
)

// Vehicle types — closed vocabulary, one Tarifa row each.
const (
	VehiculoAuto      = "auto"
	VehiculoMoto      = "moto"
	VehiculoCamioneta = "camioneta"
)

// Estadia is a single vehicle stay: created at the gate on ingress, closed on
// egress when the fee is collected through the cashier session.
type Estadia struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Patente          string    `gorm:"type:varchar(12);not null;index"`
	TipoVehiculo     string    `gorm:"type:varchar(20);not null"`
	UsuarioIngresoID uuid.UUID `gorm:"type:uuid;not null"`
	// SesionCajaID links the stay to the session that collected the fee;
	// nil while the vehicle is still inside or when covered by an abono.
	SesionCajaID *uuid.UUID       `gorm:"type:uuid"`
	Monto        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Estado       string           `gorm:"type:varchar(20);not null;default:'en_curso'"`
	IngresoAt    time.Time
	EgresoAt     *time.Time
}

func (Estadia) TableName() string { return "estadias" }

// Tarifa is the hourly rate per vehicle type. Fees are billed per started hour.
type Tarifa struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TipoVehiculo string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	PrecioHora   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	UpdatedAt    time.Time
}

func (Tarifa) TableName() string { return "tarifas" }
