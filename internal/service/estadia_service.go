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
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TicketDispatcher enqueues the post-egreso ticket job (PDF + email).
// Implemented by worker.Dispatcher; nil disables ticket delivery.
type TicketDispatcher interface {
	EnqueueTicket(ctx context.Context, estadiaID uuid.UUID, email string) error
}

type EstadiaService interface {
	Ingreso(ctx context.Context, usuarioID uuid.UUID, req dto.IngresoVehiculoRequest) (*dto.EstadiaResponse, error)
	Egreso(ctx context.Context, usuarioID uuid.UUID, req dto.EgresoVehiculoRequest) (*dto.EgresoVehiculoResponse, error)
	EnCurso(ctx context.Context) ([]dto.EstadiaResponse, error)
	ConsultarPorPatente(ctx context.Context, patente string) (*dto.EstadiaResponse, error)
	Tarifas(ctx context.Context) ([]dto.TarifaResponse, error)
	GuardarTarifa(ctx context.Context, req dto.TarifaRequest) (*dto.TarifaResponse, error)
}

type estadiaService struct {
	repo       repository.EstadiaRepository
	cajaRepo   repository.CajaRepository
	abonoRepo  repository.AbonoRepository
	cajaSvc    CajaService
	dispatcher TicketDispatcher
}

func NewEstadiaService(repo repository.EstadiaRepository, cajaRepo repository.CajaRepository, abonoRepo repository.AbonoRepository, cajaSvc CajaService, dispatcher TicketDispatcher) EstadiaService {
	return &estadiaService{
		repo:       repo,
		cajaRepo:   cajaRepo,
		abonoRepo:  abonoRepo,
		cajaSvc:    cajaSvc,
		dispatcher: dispatcher,
	}
}

// NormalizarPatente canonicalizes a plate for lookups and storage.
func NormalizarPatente(p string) string {
	return strings.ToUpper(strings.TrimSpace(p))
}

// CalcularMonto bills per started hour with a one hour minimum.
func CalcularMonto(precioHora decimal.Decimal, ingreso, egreso time.Time) decimal.Decimal {
	horas := int64(egreso.Sub(ingreso).Hours())
	if egreso.Sub(ingreso) > time.Duration(horas)*time.Hour {
		horas++
	}
	if horas < 1 {
		horas = 1
	}
	return precioHora.Mul(decimal.NewFromInt(horas)).Round(2)
}

func (s *estadiaService) Ingreso(ctx context.Context, usuarioID uuid.UUID, req dto.IngresoVehiculoRequest) (*dto.EstadiaResponse, error) {
	patente := NormalizarPatente(req.Patente)

	existing, err := s.repo.FindEnCursoPorPatente(ctx, patente)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}
	if existing != nil {
		return nil, apierror.Conflicto("Ya existe una estadía en curso para la patente " + patente)
	}

	e := &model.Estadia{
		Patente:          patente,
		TipoVehiculo:     req.TipoVehiculo,
		UsuarioIngresoID: usuarioID,
		Estado:           model.EstadiaEnCurso,
		IngresoAt:        time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, apierror.Persistencia(err)
	}

	resp := s.estadiaToResponse(ctx, e)
	return &resp, nil
}

// Egreso closes the stay. A vehicle covered by a current abono leaves free;
// otherwise the fee is collected through the cashier's open session, stay
// update and ledger rows in the same transaction.
func (s *estadiaService) Egreso(ctx context.Context, usuarioID uuid.UUID, req dto.EgresoVehiculoRequest) (*dto.EgresoVehiculoResponse, error) {
	patente := NormalizarPatente(req.Patente)

	e, err := s.repo.FindEnCursoPorPatente(ctx, patente)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}
	if e == nil {
		return nil, apierror.NoEncontrado("No hay una estadía en curso para la patente " + patente)
	}

	now := time.Now().UTC()

	abono, err := s.abonoRepo.FindAbonoVigentePorPatente(ctx, patente, now)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}

	if abono != nil {
		// Covered stay: no charge, no session link.
		zero := decimal.Zero
		e.Estado = model.EstadiaFinalizada
		e.EgresoAt = &now
		e.Monto = &zero
		if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			return s.repo.UpdateTx(tx, e)
		}); err != nil {
			return nil, apierror.Persistencia(err)
		}
		resp := s.estadiaToResponse(ctx, e)
		resp.AbonoVigente = true
		return &dto.EgresoVehiculoResponse{Estadia: resp, Monto: zero, Vuelto: decimal.Zero}, nil
	}

	tarifa, err := s.repo.FindTarifa(ctx, e.TipoVehiculo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Validacion("No hay tarifa configurada para el tipo de vehículo " + e.TipoVehiculo)
		}
		return nil, apierror.Persistencia(err)
	}

	monto := CalcularMonto(tarifa.PrecioHora, e.IngresoAt, now)
	if req.TotalRecibido.LessThan(monto) {
		return nil, apierror.Validacion("El monto recibido es menor al total a pagar")
	}

	sesion, err := s.cajaSvc.SesionAbierta(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, apierror.NoEncontrado("No hay una sesión de caja abierta para cobrar el egreso")
	}

	movs, vuelto := MovimientosPago(sesion.ID, monto, req.TotalRecibido, req.MetodoPago, "Egreso "+patente)

	e.Estado = model.EstadiaFinalizada
	e.EgresoAt = &now
	e.Monto = &monto
	e.SesionCajaID = &sesion.ID

	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, e); err != nil {
			return err
		}
		for _, m := range movs {
			if err := s.cajaRepo.CreateMovimientoTx(tx, m); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, apierror.Persistencia(err)
	}

	if s.dispatcher != nil && req.Email != nil && *req.Email != "" {
		if err := s.dispatcher.EnqueueTicket(ctx, e.ID, *req.Email); err != nil {
			// Ticket delivery is best effort; the charge already committed.
			log.Warn().Err(err).Str("estadia_id", e.ID.String()).Msg("no se pudo encolar el ticket de egreso")
		}
	}

	return &dto.EgresoVehiculoResponse{
		Estadia: s.estadiaToResponse(ctx, e),
		Monto:   monto,
		Vuelto:  vuelto,
	}, nil
}

func (s *estadiaService) EnCurso(ctx context.Context) ([]dto.EstadiaResponse, error) {
	estadias, err := s.repo.ListEnCurso(ctx)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}
	resp := make([]dto.EstadiaResponse, len(estadias))
	for i := range estadias {
		resp[i] = s.estadiaToResponse(ctx, &estadias[i])
	}
	return resp, nil
}

func (s *estadiaService) ConsultarPorPatente(ctx context.Context, patente string) (*dto.EstadiaResponse, error) {
	e, err := s.repo.FindEnCursoPorPatente(ctx, NormalizarPatente(patente))
	if err != nil {
		return nil, apierror.Persistencia(err)
	}
	if e == nil {
		return nil, apierror.NoEncontrado("No hay una estadía en curso para la patente " + NormalizarPatente(patente))
	}
	resp := s.estadiaToResponse(ctx, e)
	return &resp, nil
}

func (s *estadiaService) Tarifas(ctx context.Context) ([]dto.TarifaResponse, error) {
	tarifas, err := s.repo.ListTarifas(ctx)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}
	resp := make([]dto.TarifaResponse, len(tarifas))
	for i, t := range tarifas {
		resp[i] = dto.TarifaResponse{TipoVehiculo: t.TipoVehiculo, PrecioHora: t.PrecioHora}
	}
	return resp, nil
}

func (s *estadiaService) GuardarTarifa(ctx context.Context, req dto.TarifaRequest) (*dto.TarifaResponse, error) {
	t := &model.Tarifa{
		TipoVehiculo: req.TipoVehiculo,
		PrecioHora:   req.PrecioHora.Round(2),
	}
	if err := s.repo.UpsertTarifa(ctx, t); err != nil {
		return nil, apierror.Persistencia(err)
	}
	return &dto.TarifaResponse{TipoVehiculo: t.TipoVehiculo, PrecioHora: t.PrecioHora}, nil
}

func (s *estadiaService) estadiaToResponse(ctx context.Context, e *model.Estadia) dto.EstadiaResponse {
	resp := dto.EstadiaResponse{
		ID:           e.ID.String(),
		Patente:      e.Patente,
		TipoVehiculo: e.TipoVehiculo,
		Estado:       e.Estado,
		IngresoAt:    e.IngresoAt.UTC().Format(time.RFC3339),
		Monto:        e.Monto,
	}
	if e.EgresoAt != nil {
		t := e.EgresoAt.UTC().Format(time.RFC3339)
		resp.EgresoAt = &t
	}
	if e.Estado == model.EstadiaEnCurso {
		if abono, err := s.abonoRepo.FindAbonoVigentePorPatente(ctx, e.Patente, time.Now().UTC()); err == nil && abono != nil {
			resp.AbonoVigente = true
		}
	}
	return resp
}
