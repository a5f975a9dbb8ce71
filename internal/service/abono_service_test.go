package service

import (
	"context"
	"testing"
	"time"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/apierror"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/dto"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type abonoFixture struct {
	svc      AbonoService
	cajaSvc  CajaService
	repo     *fakeAbonoRepo
	cajaRepo *fakeCajaRepo
}

func newAbonoFixture() *abonoFixture {
	repo := newFakeAbonoRepo()
	cajaRepo := newFakeCajaRepo()
	cajaSvc := NewCajaService(cajaRepo)
	return &abonoFixture{
		svc:      NewAbonoService(repo, cajaRepo, cajaSvc),
		cajaSvc:  cajaSvc,
		repo:     repo,
		cajaRepo: cajaRepo,
	}
}

func (f *abonoFixture) crearCliente(t *testing.T, patente string) *dto.ClienteResponse {
	t.Helper()
	resp, err := f.svc.CrearCliente(context.Background(), dto.CrearClienteRequest{
		Nombre:  "Cliente Test",
		Patente: patente,
	})
	require.NoError(t, err)
	return resp
}

func TestCrearClienteDuplicadoRechazado(t *testing.T) {
	f := newAbonoFixture()

	f.crearCliente(t, "ABC123")

	_, err := f.svc.CrearCliente(context.Background(), dto.CrearClienteRequest{
		Nombre:  "Otro",
		Patente: "abc123", // normalized to the same plate
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindConflicto))
}

func TestCrearAbonoCobraPorSesion(t *testing.T) {
	f := newAbonoFixture()
	ctx := context.Background()
	cajero := uuid.New()

	abrirCaja(t, f.cajaSvc, cajero, "10000.00")
	cliente := f.crearCliente(t, "ABC123")

	resp, err := f.svc.CrearAbono(ctx, cajero, dto.CrearAbonoRequest{
		ClienteID:     cliente.ID,
		TipoVehiculo:  model.VehiculoAuto,
		Meses:         2,
		Precio:        dec("30000.00"),
		MetodoPago:    model.MetodoEfectivo,
		TotalRecibido: dec("35000.00"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Vigente)
	assert.True(t, resp.Vuelto.Equal(dec("5000.00")))
	assert.Equal(t, cliente.ID, resp.Cliente.ID)

	estado, err := f.cajaSvc.Estado(ctx, cajero)
	require.NoError(t, err)
	assert.True(t, estado.TotalIngresos.Equal(dec("30000.00")))
	assert.True(t, estado.TotalEgresos.Equal(dec("5000.00")))
}

func TestCrearAbonoSinSesion(t *testing.T) {
	f := newAbonoFixture()
	cliente := f.crearCliente(t, "ABC123")

	_, err := f.svc.CrearAbono(context.Background(), uuid.New(), dto.CrearAbonoRequest{
		ClienteID:     cliente.ID,
		TipoVehiculo:  model.VehiculoAuto,
		Meses:         1,
		Precio:        dec("15000.00"),
		MetodoPago:    model.MetodoEfectivo,
		TotalRecibido: dec("15000.00"),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNoEncontrado))
}

func TestCrearAbonoDobleVigenteRechazado(t *testing.T) {
	f := newAbonoFixture()
	ctx := context.Background()
	cajero := uuid.New()

	abrirCaja(t, f.cajaSvc, cajero, "10000.00")
	cliente := f.crearCliente(t, "ABC123")

	req := dto.CrearAbonoRequest{
		ClienteID:     cliente.ID,
		TipoVehiculo:  model.VehiculoAuto,
		Meses:         1,
		Precio:        dec("15000.00"),
		MetodoPago:    model.MetodoEfectivo,
		TotalRecibido: dec("15000.00"),
	}
	_, err := f.svc.CrearAbono(ctx, cajero, req)
	require.NoError(t, err)

	_, err = f.svc.CrearAbono(ctx, cajero, req)
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindConflicto))
}

func TestRenovarAbonoExtiendeDesdeVencimiento(t *testing.T) {
	f := newAbonoFixture()
	ctx := context.Background()
	cajero := uuid.New()

	abrirCaja(t, f.cajaSvc, cajero, "10000.00")
	cliente := f.crearCliente(t, "ABC123")

	crear, err := f.svc.CrearAbono(ctx, cajero, dto.CrearAbonoRequest{
		ClienteID:     cliente.ID,
		TipoVehiculo:  model.VehiculoAuto,
		Meses:         1,
		Precio:        dec("15000.00"),
		MetodoPago:    model.MetodoEfectivo,
		TotalRecibido: dec("15000.00"),
	})
	require.NoError(t, err)

	abonoID := uuid.MustParse(crear.ID)
	venceAntes := f.repo.abonos[abonoID].VenceAt

	// Mark a reminder as sent; renewal must clear it.
	now := time.Now().UTC()
	require.NoError(t, f.repo.MarcarRecordatorio(ctx, abonoID, now))

	renovado, err := f.svc.RenovarAbono(ctx, cajero, abonoID, dto.RenovarAbonoRequest{
		Meses:         1,
		Precio:        dec("15000.00"),
		MetodoPago:    model.MetodoTarjeta,
		TotalRecibido: dec("15000.00"),
	})
	require.NoError(t, err)
	assert.True(t, renovado.Vigente)

	abono := f.repo.abonos[abonoID]
	// Still current, so the extension stacks on top of the old expiry.
	assert.Equal(t, venceAntes.AddDate(0, 1, 0), abono.VenceAt)
	assert.Nil(t, abono.RecordatorioEnviadoAt)
}

func TestRenovarAbonoVencidoExtiendeDesdeHoy(t *testing.T) {
	f := newAbonoFixture()
	ctx := context.Background()
	cajero := uuid.New()

	abrirCaja(t, f.cajaSvc, cajero, "10000.00")

	cliente := &model.Cliente{Nombre: "Ana", Patente: "ABC123"}
	require.NoError(t, f.repo.CreateCliente(ctx, cliente))
	abono := &model.Abono{
		ClienteID:    cliente.ID,
		TipoVehiculo: model.VehiculoAuto,
		Precio:       dec("15000.00"),
		InicioAt:     time.Now().UTC().AddDate(0, -3, 0),
		VenceAt:      time.Now().UTC().AddDate(0, -2, 0),
	}
	require.NoError(t, f.repo.CreateAbonoTx(nil, abono))

	renovado, err := f.svc.RenovarAbono(ctx, cajero, abono.ID, dto.RenovarAbonoRequest{
		Meses:         1,
		Precio:        dec("15000.00"),
		MetodoPago:    model.MetodoEfectivo,
		TotalRecibido: dec("15000.00"),
	})
	require.NoError(t, err)
	assert.True(t, renovado.Vigente)
	// The lapsed period is not billed: the new expiry counts from now.
	assert.True(t, f.repo.abonos[abono.ID].VenceAt.After(time.Now().UTC().AddDate(0, 0, 27)))
}

func TestConsultarAbonoPorPatente(t *testing.T) {
	f := newAbonoFixture()
	ctx := context.Background()
	cajero := uuid.New()

	abrirCaja(t, f.cajaSvc, cajero, "10000.00")
	cliente := f.crearCliente(t, "ABC123")

	_, err := f.svc.CrearAbono(ctx, cajero, dto.CrearAbonoRequest{
		ClienteID:     cliente.ID,
		TipoVehiculo:  model.VehiculoAuto,
		Meses:         1,
		Precio:        dec("15000.00"),
		MetodoPago:    model.MetodoEfectivo,
		TotalRecibido: dec("15000.00"),
	})
	require.NoError(t, err)

	resp, err := f.svc.ConsultarPorPatente(ctx, " abc123 ")
	require.NoError(t, err)
	assert.True(t, resp.Vigente)
	assert.Equal(t, "ABC123", resp.Cliente.Patente)

	_, err = f.svc.ConsultarPorPatente(ctx, "ZZZ999")
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNoEncontrado))
}

func TestCrearAbonoRecibidoInsuficiente(t *testing.T) {
	f := newAbonoFixture()
	cajero := uuid.New()
	abrirCaja(t, f.cajaSvc, cajero, "10000.00")
	cliente := f.crearCliente(t, "ABC123")

	_, err := f.svc.CrearAbono(context.Background(), cajero, dto.CrearAbonoRequest{
		ClienteID:     cliente.ID,
		TipoVehiculo:  model.VehiculoAuto,
		Meses:         1,
		Precio:        dec("15000.00"),
		MetodoPago:    model.MetodoEfectivo,
		TotalRecibido: dec("10000.00"),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidacion))
}
