package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type IngresoVehiculoRequest struct {
	Patente      string `json:"patente"       validate:"required,min=2,max=12"`
	TipoVehiculo string `json:"tipo_vehiculo" validate:"required,oneof=auto moto camioneta"`
}

type EgresoVehiculoRequest struct {
	Patente       string          `json:"patente"        validate:"required,min=2,max=12"`
	MetodoPago    string          `json:"metodo_pago"    validate:"required,oneof=efectivo tarjeta transferencia otro"`
	TotalRecibido decimal.Decimal `json:"total_recibido" validate:"min=0"`
	// Email receives the PDF ticket when set.
	Email *string `json:"email" validate:"omitempty,email"`
}

type TarifaRequest struct {
	TipoVehiculo string          `json:"tipo_vehiculo" validate:"required,oneof=auto moto camioneta"`
	PrecioHora   decimal.Decimal `json:"precio_hora"   validate:"required,gt=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type EstadiaResponse struct {
	ID           string           `json:"id"`
	Patente      string           `json:"patente"`
	TipoVehiculo string           `json:"tipo_vehiculo"`
	Estado       string           `json:"estado"`
	IngresoAt    string           `json:"ingreso_at"`
	EgresoAt     *string          `json:"egreso_at"`
	Monto        *decimal.Decimal `json:"monto"`
	// AbonoVigente marks stays covered by a subscription (exit is free).
	AbonoVigente bool `json:"abono_vigente"`
}

type EgresoVehiculoResponse struct {
	Estadia EstadiaResponse `json:"estadia"`
	Monto   decimal.Decimal `json:"monto"`
	Vuelto  decimal.Decimal `json:"vuelto"`
}

type TarifaResponse struct {
	TipoVehiculo string          `json:"tipo_vehiculo"`
	PrecioHora   decimal.Decimal `json:"precio_hora"`
}
