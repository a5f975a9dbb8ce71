package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/apierror"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/dto"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/model"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Close thresholds. Up to toleranciaCierre the discrepancy is treated as
// rounding noise; up to umbralMotivo it needs an explicit confirmation;
// beyond that a written justification is mandatory.
var (
	toleranciaCierre = decimal.NewFromFloat(0.01)
	umbralMotivo     = decimal.NewFromFloat(1.00)
)

const (
	motivoMinLen = 10

	motivoArqueoExacto = "Arqueo exacto"
	motivoDiferencia   = "Diferencia detectada"
	descripcionVuelto  = "Vuelto entregado"
	descripcionCobro   = "Cobro en caja"
)

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	// SesionAbierta returns (nil, nil) when the user has no open session.
	SesionAbierta(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error)
	RegistrarPago(ctx context.Context, usuarioID uuid.UUID, req dto.PagoCajaRequest) (*dto.PagoCajaResponse, error)
	Estado(ctx context.Context, usuarioID uuid.UUID) (*dto.EstadoCajaResponse, error)
	Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error)
	Arqueo(ctx context.Context, sesionID uuid.UUID) (*dto.ArqueoResponse, error)
	Historial(ctx context.Context, page, limit int) ([]dto.SesionCajaResponse, int64, error)
}

type cajaService struct {
	repo repository.CajaRepository
}

func NewCajaService(repo repository.CajaRepository) CajaService {
	return &cajaService{repo: repo}
}

// ── Pure helpers ──────────────────────────────────────────────────────────────

// CalcularSaldoEsperado folds a session's movements into the expected balance:
// apertura + Σingresos − Σegresos, rounded half-away-from-zero to 2 decimals.
// The fold is commutative, so insertion order never changes the result.
func CalcularSaldoEsperado(apertura decimal.Decimal, movs []model.MovimientoCaja) decimal.Decimal {
	saldo := apertura
	for _, m := range movs {
		switch m.Tipo {
		case model.MovIngreso:
			saldo = saldo.Add(m.Monto)
		case model.MovEgreso:
			saldo = saldo.Sub(m.Monto)
		}
	}
	return saldo.Round(2)
}

// MovimientosPago builds the ledger rows for a collected payment: one ingreso
// for the amount due and, when paid in cash above that amount, one egreso for
// the change. The change leg is always recorded as cash — change is physically
// cash even though no other method can produce one here.
func MovimientosPago(sesionID uuid.UUID, monto, recibido decimal.Decimal, metodo, descripcion string) ([]*model.MovimientoCaja, decimal.Decimal) {
	if descripcion == "" {
		descripcion = descripcionCobro
	}
	movs := []*model.MovimientoCaja{{
		SesionCajaID: sesionID,
		Tipo:         model.MovIngreso,
		MetodoPago:   metodo,
		Monto:        monto.Round(2),
		Descripcion:  descripcion,
	}}

	vuelto := decimal.Zero
	if metodo == model.MetodoEfectivo {
		if v := recibido.Sub(monto).Round(2); v.IsPositive() {
			vuelto = v
			movs = append(movs, &model.MovimientoCaja{
				SesionCajaID: sesionID,
				Tipo:         model.MovEgreso,
				MetodoPago:   model.MetodoEfectivo,
				Monto:        v,
				Descripcion:  descripcionVuelto,
			})
		}
	}
	return movs, vuelto
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.MontoApertura.IsNegative() {
		return nil, apierror.Validacion("El monto de apertura no puede ser negativo")
	}

	existing, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}
	if existing != nil {
		return nil, apierror.Conflicto("Ya existe una caja abierta para este usuario")
	}

	sesion := &model.SesionCaja{
		UsuarioID:     usuarioID,
		TipoCaja:      req.TipoCaja,
		MontoApertura: req.MontoApertura.Round(2),
		Cerrada:       false,
		Version:       1,
		AbiertaAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateSesion(ctx, sesion); err != nil {
		// The partial unique index closes the check-then-create race:
		// a concurrent open loses here instead of creating a duplicate.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflicto("Ya existe una caja abierta para este usuario")
		}
		return nil, apierror.Persistencia(err)
	}

	resp := sesionToResponse(sesion)
	return &resp, nil
}

// ── SesionAbierta ─────────────────────────────────────────────────────────────

func (s *cajaService) SesionAbierta(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}
	return sesion, nil
}

// ── RegistrarPago ─────────────────────────────────────────────────────────────

func (s *cajaService) RegistrarPago(ctx context.Context, usuarioID uuid.UUID, req dto.PagoCajaRequest) (*dto.PagoCajaResponse, error) {
	sesion, err := s.SesionAbierta(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	if sesion == nil || sesion.TipoCaja != req.TipoCaja {
		return nil, apierror.NoEncontrado("No hay una sesión de caja abierta para la caja indicada")
	}
	if req.TotalRecibido.LessThan(req.TotalAPagar) {
		return nil, apierror.Validacion("El monto recibido es menor al total a pagar")
	}

	movs, vuelto := MovimientosPago(sesion.ID, req.TotalAPagar, req.TotalRecibido, req.MetodoPago, req.Descripcion)
	if err := s.repo.CreateMovimientos(ctx, movs); err != nil {
		return nil, apierror.Persistencia(err)
	}

	resp := &dto.PagoCajaResponse{Vuelto: vuelto}
	for _, m := range movs {
		resp.Movimientos = append(resp.Movimientos, dto.MovimientoResponse{
			ID:          m.ID.String(),
			Tipo:        m.Tipo,
			MetodoPago:  m.MetodoPago,
			Monto:       m.Monto,
			Descripcion: m.Descripcion,
		})
	}
	return resp, nil
}

// ── Estado ────────────────────────────────────────────────────────────────────

func (s *cajaService) Estado(ctx context.Context, usuarioID uuid.UUID) (*dto.EstadoCajaResponse, error) {
	sesion, err := s.SesionAbierta(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		// "No session" is a normal answer, never an error.
		return &dto.EstadoCajaResponse{
			MontoApertura: decimal.Zero,
			TotalIngresos: decimal.Zero,
			TotalEgresos:  decimal.Zero,
			SaldoActual:   decimal.Zero,
		}, nil
	}

	movs, err := s.repo.ListMovimientos(ctx, sesion.ID)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}

	ingresos, egresos := decimal.Zero, decimal.Zero
	for _, m := range movs {
		switch m.Tipo {
		case model.MovIngreso:
			ingresos = ingresos.Add(m.Monto)
		case model.MovEgreso:
			egresos = egresos.Add(m.Monto)
		}
	}

	return &dto.EstadoCajaResponse{
		TieneSesionActiva: true,
		MontoApertura:     sesion.MontoApertura,
		TotalIngresos:     ingresos.Round(2),
		TotalEgresos:      egresos.Round(2),
		SaldoActual:       CalcularSaldoEsperado(sesion.MontoApertura, movs),
	}, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Reconciliation close. The caller's counted amount is compared against the
// calculated expected balance; depending on the discrepancy the close either
// proceeds directly, demands a confirmation, or demands a written reason.
// The session update and the audit insert commit as one unit.

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	var sesion *model.SesionCaja
	if req.SesionCajaID != "" {
		id, err := uuid.Parse(req.SesionCajaID)
		if err != nil {
			return nil, apierror.Validacion("sesion_caja_id inválido")
		}
		sesion, err = s.repo.FindSesionByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NoEncontrado("Sesión de caja no encontrada")
			}
			return nil, apierror.Persistencia(err)
		}
		if sesion.UsuarioID != usuarioID {
			return nil, apierror.Autorizacion()
		}
		if sesion.Cerrada {
			return nil, apierror.Conflicto("La sesión ya está cerrada")
		}
	} else {
		var err error
		sesion, err = s.SesionAbierta(ctx, usuarioID)
		if err != nil {
			return nil, err
		}
		if sesion == nil {
			return nil, apierror.NoEncontrado("No hay una sesión de caja abierta")
		}
	}

	movs, err := s.repo.ListMovimientos(ctx, sesion.ID)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}

	esperado := CalcularSaldoEsperado(sesion.MontoApertura, movs)
	real := req.MontoReal.Round(2)
	diff := real.Sub(esperado)
	absDiff := diff.Abs()

	motivo := ""
	if req.Motivo != nil {
		motivo = strings.TrimSpace(*req.Motivo)
	}

	switch {
	case absDiff.LessThanOrEqual(toleranciaCierre):
		// Rounding noise — close directly.
		if motivo == "" {
			motivo = motivoArqueoExacto
		}
	case absDiff.LessThanOrEqual(umbralMotivo):
		if !req.Confirmado {
			return nil, apierror.Validacion("La diferencia detectada requiere confirmación explícita para cerrar la caja")
		}
		if motivo == "" {
			motivo = motivoDiferencia
		}
	default:
		if len(motivo) < motivoMinLen {
			return nil, apierror.Validacion("La diferencia supera el umbral permitido: se requiere un motivo de al menos 10 caracteres")
		}
	}

	desglose := dto.DesgloseCierre{
		Monedas:       decimal.Zero,
		Billetes:      decimal.Zero,
		PagoMovil:     decimal.Zero,
		Transferencia: decimal.Zero,
	}
	if req.Desglose != nil {
		desglose = *req.Desglose
	}

	// The repo's guarded UPDATE reads the closing values off the struct;
	// the cerrada flag itself flips only once that update commits.
	now := time.Now().UTC()
	sesion.MontoCierre = &real
	sesion.CerradaAt = &now

	arqueo := &model.ArqueoCaja{
		SesionCajaID:  sesion.ID,
		UsuarioID:     sesion.UsuarioID,
		TipoCaja:      sesion.TipoCaja,
		MontoEsperado: esperado,
		MontoReal:     real,
		Diferencia:    diff,
		Motivo:        motivo,
		Monedas:       desglose.Monedas,
		Billetes:      desglose.Billetes,
		PagoMovil:     desglose.PagoMovil,
		Transferencia: desglose.Transferencia,
	}

	if err := s.repo.CerrarSesion(ctx, sesion, arqueo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Lost the race against a concurrent close.
			return nil, apierror.Conflicto("La sesión ya está cerrada")
		}
		return nil, apierror.Persistencia(err)
	}
	// Mirror the committed UPDATE on the struct for the response.
	sesion.Cerrada = true
	sesion.Version++

	return &dto.CierreCajaResponse{
		Sesion:        sesionToResponse(sesion),
		SaldoEsperado: esperado,
		MontoReal:     real,
		Diferencia:    diff,
	}, nil
}

// ── Arqueo ────────────────────────────────────────────────────────────────────

func (s *cajaService) Arqueo(ctx context.Context, sesionID uuid.UUID) (*dto.ArqueoResponse, error) {
	a, err := s.repo.FindArqueoPorSesion(ctx, sesionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NoEncontrado("Arqueo no encontrado para la sesión")
		}
		return nil, apierror.Persistencia(err)
	}
	return &dto.ArqueoResponse{
		SesionCajaID:  a.SesionCajaID.String(),
		UsuarioID:     a.UsuarioID.String(),
		TipoCaja:      a.TipoCaja,
		MontoEsperado: a.MontoEsperado,
		MontoReal:     a.MontoReal,
		Diferencia:    a.Diferencia,
		Motivo:        a.Motivo,
		Desglose: dto.DesgloseCierre{
			Monedas:       a.Monedas,
			Billetes:      a.Billetes,
			PagoMovil:     a.PagoMovil,
			Transferencia: a.Transferencia,
		},
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *cajaService) Historial(ctx context.Context, page, limit int) ([]dto.SesionCajaResponse, int64, error) {
	sesiones, total, err := s.repo.ListSesionesCerradas(ctx, page, limit)
	if err != nil {
		return nil, 0, apierror.Persistencia(err)
	}
	resp := make([]dto.SesionCajaResponse, len(sesiones))
	for i := range sesiones {
		resp[i] = sesionToResponse(&sesiones[i])
	}
	return resp, total, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func sesionToResponse(s *model.SesionCaja) dto.SesionCajaResponse {
	resp := dto.SesionCajaResponse{
		ID:            s.ID.String(),
		UsuarioID:     s.UsuarioID.String(),
		TipoCaja:      s.TipoCaja,
		MontoApertura: s.MontoApertura,
		MontoCierre:   s.MontoCierre,
		Cerrada:       s.Cerrada,
		Version:       s.Version,
		AbiertaAt:     s.AbiertaAt.UTC().Format(time.RFC3339),
	}
	if s.CerradaAt != nil {
		t := s.CerradaAt.UTC().Format(time.RFC3339)
		resp.CerradaAt = &t
	}
	return resp
}
