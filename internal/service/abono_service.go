package service

import (
	"context"
	"errors"
	"time"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/apierror"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/dto"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/model"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AbonoService interface {
	CrearCliente(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error)
	ListarClientes(ctx context.Context) ([]dto.ClienteResponse, error)
	CrearAbono(ctx context.Context, usuarioID uuid.UUID, req dto.CrearAbonoRequest) (*dto.AbonoResponse, error)
	RenovarAbono(ctx context.Context, usuarioID uuid.UUID, abonoID uuid.UUID, req dto.RenovarAbonoRequest) (*dto.AbonoResponse, error)
	ConsultarPorPatente(ctx context.Context, patente string) (*dto.AbonoResponse, error)
}

type abonoService struct {
	repo     repository.AbonoRepository
	cajaRepo repository.CajaRepository
	cajaSvc  CajaService
}

func NewAbonoService(repo repository.AbonoRepository, cajaRepo repository.CajaRepository, cajaSvc CajaService) AbonoService {
	return &abonoService{repo: repo, cajaRepo: cajaRepo, cajaSvc: cajaSvc}
}

func (s *abonoService) CrearCliente(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error) {
	c := &model.Cliente{
		Nombre:   req.Nombre,
		Email:    req.Email,
		Telefono: req.Telefono,
		Patente:  NormalizarPatente(req.Patente),
	}
	if err := s.repo.CreateCliente(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflicto("Ya existe un cliente con la patente " + c.Patente)
		}
		return nil, apierror.Persistencia(err)
	}
	resp := clienteToResponse(c)
	return &resp, nil
}

func (s *abonoService) ListarClientes(ctx context.Context) ([]dto.ClienteResponse, error) {
	clientes, err := s.repo.ListClientes(ctx)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}
	resp := make([]dto.ClienteResponse, len(clientes))
	for i := range clientes {
		resp[i] = clienteToResponse(&clientes[i])
	}
	return resp, nil
}

// CrearAbono sells a subscription: the payment goes through the seller's open
// cashier session, abono insert and ledger rows in one transaction.
func (s *abonoService) CrearAbono(ctx context.Context, usuarioID uuid.UUID, req dto.CrearAbonoRequest) (*dto.AbonoResponse, error) {
	clienteID, err := uuid.Parse(req.ClienteID)
	if err != nil {
		return nil, apierror.Validacion("cliente_id inválido")
	}
	cliente, err := s.repo.FindClienteByID(ctx, clienteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NoEncontrado("Cliente no encontrado")
		}
		return nil, apierror.Persistencia(err)
	}
	if req.TotalRecibido.LessThan(req.Precio) {
		return nil, apierror.Validacion("El monto recibido es menor al precio del abono")
	}

	now := time.Now().UTC()
	if existente, err := s.repo.FindAbonoVigentePorPatente(ctx, cliente.Patente, now); err != nil {
		return nil, apierror.Persistencia(err)
	} else if existente != nil {
		return nil, apierror.Conflicto("El cliente ya tiene un abono vigente")
	}

	sesion, err := s.cajaSvc.SesionAbierta(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, apierror.NoEncontrado("No hay una sesión de caja abierta para cobrar el abono")
	}

	abono := &model.Abono{
		ClienteID:    cliente.ID,
		TipoVehiculo: req.TipoVehiculo,
		Precio:       req.Precio.Round(2),
		InicioAt:     now,
		VenceAt:      now.AddDate(0, req.Meses, 0),
		SesionCajaID: &sesion.ID,
	}
	movs, vuelto := MovimientosPago(sesion.ID, abono.Precio, req.TotalRecibido, req.MetodoPago, "Abono "+cliente.Patente)

	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateAbonoTx(tx, abono); err != nil {
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

	abono.Cliente = cliente
	resp := s.abonoToResponse(abono, now)
	resp.Vuelto = vuelto
	return &resp, nil
}

// RenovarAbono extends the expiry from whichever is later, today or the
// current expiry, and clears the reminder flag so the next cycle notifies again.
func (s *abonoService) RenovarAbono(ctx context.Context, usuarioID uuid.UUID, abonoID uuid.UUID, req dto.RenovarAbonoRequest) (*dto.AbonoResponse, error) {
	abono, err := s.repo.FindAbonoByID(ctx, abonoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NoEncontrado("Abono no encontrado")
		}
		return nil, apierror.Persistencia(err)
	}
	if req.TotalRecibido.LessThan(req.Precio) {
		return nil, apierror.Validacion("El monto recibido es menor al precio del abono")
	}

	sesion, err := s.cajaSvc.SesionAbierta(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, apierror.NoEncontrado("No hay una sesión de caja abierta para cobrar la renovación")
	}

	now := time.Now().UTC()
	base := now
	if abono.VenceAt.After(now) {
		base = abono.VenceAt
	}
	abono.VenceAt = base.AddDate(0, req.Meses, 0)
	abono.Precio = req.Precio.Round(2)
	abono.RecordatorioEnviadoAt = nil
	abono.SesionCajaID = &sesion.ID

	patente := ""
	if abono.Cliente != nil {
		patente = abono.Cliente.Patente
	}
	movs, vuelto := MovimientosPago(sesion.ID, abono.Precio, req.TotalRecibido, req.MetodoPago, "Renovación abono "+patente)

	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateAbonoTx(tx, abono); err != nil {
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

	resp := s.abonoToResponse(abono, now)
	resp.Vuelto = vuelto
	return &resp, nil
}

func (s *abonoService) ConsultarPorPatente(ctx context.Context, patente string) (*dto.AbonoResponse, error) {
	now := time.Now().UTC()
	abono, err := s.repo.FindAbonoVigentePorPatente(ctx, NormalizarPatente(patente), now)
	if err != nil {
		return nil, apierror.Persistencia(err)
	}
	if abono == nil {
		return nil, apierror.NoEncontrado("No hay un abono vigente para la patente " + NormalizarPatente(patente))
	}
	resp := s.abonoToResponse(abono, now)
	return &resp, nil
}

func (s *abonoService) abonoToResponse(a *model.Abono, ref time.Time) dto.AbonoResponse {
	resp := dto.AbonoResponse{
		ID:           a.ID.String(),
		TipoVehiculo: a.TipoVehiculo,
		Precio:       a.Precio,
		InicioAt:     a.InicioAt.UTC().Format(time.RFC3339),
		VenceAt:      a.VenceAt.UTC().Format(time.RFC3339),
		Vigente:      !a.VenceAt.Before(ref),
		Vuelto:       decimal.Zero,
	}
	if a.Cliente != nil {
		resp.Cliente = clienteToResponse(a.Cliente)
	}
	return resp
}

func clienteToResponse(c *model.Cliente) dto.ClienteResponse {
	return dto.ClienteResponse{
		ID:       c.ID.String(),
		Nombre:   c.Nombre,
		Email:    c.Email,
		Telefono: c.Telefono,
		Patente:  c.Patente,
	}
}
