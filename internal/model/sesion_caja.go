package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement kinds — closed vocabulary, Monto is always positive and the kind
// carries the sign in the balance fold.
const (
	MovIngreso = "ingreso"
	MovEgreso  = "egreso"
)

// Payment methods — closed vocabulary.
const (
	MetodoEfectivo      = "efectivo"
	MetodoTarjeta       = "tarjeta"
	MetodoTransferencia = "transferencia"
	MetodoOtro          = "otro"
)

// SesionCaja represents the lifecycle of a cash register session.
// At most one session per user may be open at any time; the application-level
// check is backed by a partial unique index on (usuario_id) WHERE NOT cerrada,
// so concurrent opens cannot race past the guard.
type SesionCaja struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID uuid.UUID `gorm:"type:uuid;not null;index"`
	// TipoCaja is a free-form register category, e.g. "Común" or "Eventos".
	TipoCaja      string           `gorm:"type:varchar(40);not null"`
	MontoApertura decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	MontoCierre   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Cerrada       bool             `gorm:"not null;default:false"`
	// Version starts at 1 and is incremented by the guarded close update.
	Version   int `gorm:"not null;default:1"`
	AbiertaAt time.Time
	CerradaAt *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

// MovimientoCaja is an immutable entry in the cash register ledger.
// Movements are NEVER modified or deleted after creation; the session balance
// is a commutative fold over them, so insertion order does not matter.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo         string          `gorm:"type:varchar(10);not null"` // ingreso | egreso
	MetodoPago   string          `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"` // > 0
	Descripcion  string          `gorm:"not null"`
	CreatedAt    time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }

// ArqueoCaja is the reconciliation audit record written exactly once when a
// session closes. Diferencia is always recomputed server-side (real − esperado);
// the client is only trusted for the raw counted total and the breakdown.
type ArqueoCaja struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null"`
	TipoCaja      string          `gorm:"type:varchar(40);not null"`
	MontoEsperado decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoReal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Diferencia    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Motivo        string          `gorm:"not null"`
	// Counted-cash breakdown by channel; unset channels default to zero.
	Monedas       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Billetes      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PagoMovil     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Transferencia decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt     time.Time
}

func (ArqueoCaja) TableName() string { return "arqueos_caja" }
