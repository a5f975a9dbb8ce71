package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	TipoCaja      string          `json:"tipo_caja"      validate:"required,min=1,max=40"`
	MontoApertura decimal.Decimal `json:"monto_apertura" validate:"min=0"`
}

type PagoCajaRequest struct {
	TipoCaja      string          `json:"tipo_caja"      validate:"required,min=1,max=40"`
	MetodoPago    string          `json:"metodo_pago"    validate:"required,oneof=efectivo tarjeta transferencia otro"`
	TotalAPagar   decimal.Decimal `json:"total_a_pagar"  validate:"required,gt=0"`
	TotalRecibido decimal.Decimal `json:"total_recibido" validate:"required,gt=0"`
	Descripcion   string          `json:"descripcion"    validate:"omitempty,max=200"`
}

// DesgloseCierre is the counted-cash breakdown declared at close time.
// Unset channels default to zero.
type DesgloseCierre struct {
	Monedas       decimal.Decimal `json:"monedas"       validate:"min=0"`
	Billetes      decimal.Decimal `json:"billetes"      validate:"min=0"`
	PagoMovil     decimal.Decimal `json:"pago_movil"    validate:"min=0"`
	Transferencia decimal.Decimal `json:"transferencia" validate:"min=0"`
}

type CerrarCajaRequest struct {
	// SesionCajaID is optional; empty means "the caller's open session".
	SesionCajaID string          `json:"sesion_caja_id" validate:"omitempty,uuid"`
	MontoReal    decimal.Decimal `json:"monto_real"     validate:"min=0"`
	Motivo       *string         `json:"motivo"`
	// Confirmado acknowledges a small discrepancy (≤ 1.00) before closing.
	Confirmado bool            `json:"confirmado"`
	Desglose   *DesgloseCierre `json:"desglose"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID            string           `json:"id"`
	UsuarioID     string           `json:"usuario_id"`
	TipoCaja      string           `json:"tipo_caja"`
	MontoApertura decimal.Decimal  `json:"monto_apertura"`
	MontoCierre   *decimal.Decimal `json:"monto_cierre"`
	Cerrada       bool             `json:"cerrada"`
	Version       int              `json:"version"`
	AbiertaAt     string           `json:"abierta_at"`
	CerradaAt     *string          `json:"cerrada_at"`
}

type MovimientoResponse struct {
	ID          string          `json:"id"`
	Tipo        string          `json:"tipo"`
	MetodoPago  string          `json:"metodo_pago"`
	Monto       decimal.Decimal `json:"monto"`
	Descripcion string          `json:"descripcion"`
}

type PagoCajaResponse struct {
	Movimientos []MovimientoResponse `json:"movimientos"`
	Vuelto      decimal.Decimal      `json:"vuelto"`
}

// EstadoCajaResponse is the read-side projection over the caller's open
// session. The JSON keys are part of the public contract.
type EstadoCajaResponse struct {
	TieneSesionActiva bool            `json:"hasActiveSession"`
	MontoApertura     decimal.Decimal `json:"openingAmount"`
	TotalIngresos     decimal.Decimal `json:"totalIngresos"`
	TotalEgresos      decimal.Decimal `json:"totalEgresos"`
	SaldoActual       decimal.Decimal `json:"saldoActual"`
}

type CierreCajaResponse struct {
	Sesion        SesionCajaResponse `json:"session"`
	SaldoEsperado decimal.Decimal    `json:"expectedBalance"`
	MontoReal     decimal.Decimal    `json:"realBalance"`
	Diferencia    decimal.Decimal    `json:"difference"`
}

type ArqueoResponse struct {
	SesionCajaID  string          `json:"sesion_caja_id"`
	UsuarioID     string          `json:"usuario_id"`
	TipoCaja      string          `json:"tipo_caja"`
	MontoEsperado decimal.Decimal `json:"monto_esperado"`
	MontoReal     decimal.Decimal `json:"monto_real"`
	Diferencia    decimal.Decimal `json:"diferencia"`
	Motivo        string          `json:"motivo"`
	Desglose      DesgloseCierre  `json:"desglose"`
	CreatedAt     string          `json:"created_at"`
}
