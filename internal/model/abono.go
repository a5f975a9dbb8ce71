package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cliente is a registered customer eligible for package subscriptions.
type Cliente struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"not null"`
	Email     *string
	Telefono  *string
	Patente   string `gorm:"type:varchar(12);uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Cliente) TableName() string { return "clientes" }

// Abono is a prepaid monthly parking subscription. A vehicle with a vigente
// abono exits without paying a per-stay fee.
type Abono struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClienteID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cliente      *Cliente        `gorm:"foreignKey:ClienteID"`
	TipoVehiculo string          `gorm:"type:varchar(20);not null"`
	Precio       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	InicioAt     time.Time
	VenceAt      time.Time `gorm:"index"`
	// RecordatorioEnviadoAt marks the expiry reminder as sent; reset on renewal.
	RecordatorioEnviadoAt *time.Time
	// SesionCajaID is the session that collected the purchase/renewal payment.
	SesionCajaID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time
}

func (Abono) TableName() string { return "abonos" }
