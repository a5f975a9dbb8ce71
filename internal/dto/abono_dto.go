package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearClienteRequest struct {
	Nombre   string  `json:"nombre"   validate:"required,min=2,max=100"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Telefono *string `json:"telefono" validate:"omitempty,max=20"`
	Patente  string  `json:"patente"  validate:"required,min=2,max=12"`
}

type CrearAbonoRequest struct {
	ClienteID     string          `json:"cliente_id"     validate:"required,uuid"`
	TipoVehiculo  string          `json:"tipo_vehiculo"  validate:"required,oneof=auto moto camioneta"`
	Meses         int             `json:"meses"          validate:"required,min=1,max=12"`
	Precio        decimal.Decimal `json:"precio"         validate:"required,gt=0"`
	MetodoPago    string          `json:"metodo_pago"    validate:"required,oneof=efectivo tarjeta transferencia otro"`
	TotalRecibido decimal.Decimal `json:"total_recibido" validate:"required,gt=0"`
}

type RenovarAbonoRequest struct {
	Meses         int             `json:"meses"          validate:"required,min=1,max=12"`
	Precio        decimal.Decimal `json:"precio"         validate:"required,gt=0"`
	MetodoPago    string          `json:"metodo_pago"    validate:"required,oneof=efectivo tarjeta transferencia otro"`
	TotalRecibido decimal.Decimal `json:"total_recibido" validate:"required,gt=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClienteResponse struct {
	ID       string  `json:"id"`
	Nombre   string  `json:"nombre"`
	Email    *string `json:"email"`
	Telefono *string `json:"telefono"`
	Patente  string  `json:"patente"`
}

type AbonoResponse struct {
	ID           string          `json:"id"`
	Cliente      ClienteResponse `json:"cliente"`
	TipoVehiculo string          `json:"tipo_vehiculo"`
	Precio       decimal.Decimal `json:"precio"`
	InicioAt     string          `json:"inicio_at"`
	VenceAt      string          `json:"vence_at"`
	Vigente      bool            `json:"vigente"`
	Vuelto       decimal.Decimal `json:"vuelto"`
}
