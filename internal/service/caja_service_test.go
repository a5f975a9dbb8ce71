package service

import (
	"context"
	"testing"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/apierror"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/dto"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Full in-memory CajaRepository ────────────────────────────────────────────

type fakeCajaRepo struct {
	sesiones    map[uuid.UUID]*model.SesionCaja
	movimientos []model.MovimientoCaja
	arqueos     []model.ArqueoCaja
}

func newFakeCajaRepo() *fakeCajaRepo {
	return &fakeCajaRepo{sesiones: make(map[uuid.UUID]*model.SesionCaja)}
}

func (r *fakeCajaRepo) DB() *gorm.DB { return nil }

func (r *fakeCajaRepo) CreateSesion(_ context.Context, s *model.SesionCaja) error {
	for _, existing := range r.sesiones {
		if existing.UsuarioID == s.UsuarioID && !existing.Cerrada {
			// mirrors the partial unique index
			return gorm.ErrDuplicatedKey
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sesiones[s.ID] = s
	return nil
}

func (r *fakeCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	s, ok := r.sesiones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// fresh struct per read, like a real query hydrates one
	copia := *s
	return &copia, nil
}

func (r *fakeCajaRepo) FindSesionAbiertaPorUsuario(_ context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	for _, s := range r.sesiones {
		if s.UsuarioID == usuarioID && !s.Cerrada {
			copia := *s
			return &copia, nil
		}
	}
	return nil, nil
}

func (r *fakeCajaRepo) ListMovimientos(_ context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.SesionCajaID == sesionCajaID {
			movs = append(movs, m)
		}
	}
	return movs, nil
}

func (r *fakeCajaRepo) CreateMovimientos(_ context.Context, movs []*model.MovimientoCaja) error {
	for _, m := range movs {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		r.movimientos = append(r.movimientos, *m)
	}
	return nil
}

func (r *fakeCajaRepo) CreateMovimientoTx(_ *gorm.DB, m *model.MovimientoCaja) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *fakeCajaRepo) CerrarSesion(_ context.Context, s *model.SesionCaja, arqueo *model.ArqueoCaja) error {
	stored, ok := r.sesiones[s.ID]
	if !ok || stored.Cerrada {
		// mirrors the guarded UPDATE hitting zero rows
		return gorm.ErrRecordNotFound
	}
	stored.Cerrada = true
	stored.MontoCierre = s.MontoCierre
	stored.CerradaAt = s.CerradaAt
	stored.Version++
	if arqueo.ID == uuid.Nil {
		arqueo.ID = uuid.New()
	}
	r.arqueos = append(r.arqueos, *arqueo)
	return nil
}

func (r *fakeCajaRepo) FindArqueoPorSesion(_ context.Context, sesionCajaID uuid.UUID) (*model.ArqueoCaja, error) {
	for i := range r.arqueos {
		if r.arqueos[i].SesionCajaID == sesionCajaID {
			return &r.arqueos[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCajaRepo) ListSesionesCerradas(_ context.Context, page, limit int) ([]model.SesionCaja, int64, error) {
	var out []model.SesionCaja
	for _, s := range r.sesiones {
		if s.Cerrada {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func abrirCaja(t *testing.T, svc CajaService, usuarioID uuid.UUID, apertura string) *dto.SesionCajaResponse {
	t.Helper()
	resp, err := svc.Abrir(context.Background(), usuarioID, dto.AbrirCajaRequest{
		TipoCaja:      "principal",
		MontoApertura: dec(apertura),
	})
	require.NoError(t, err)
	return resp
}

// ── CalcularSaldoEsperado ────────────────────────────────────────────────────

func TestCalcularSaldoEsperado(t *testing.T) {
	movs := []model.MovimientoCaja{
		{Tipo: model.MovIngreso, Monto: dec("500.00")},
		{Tipo: model.MovEgreso, Monto: dec("120.50")},
		{Tipo: model.MovIngreso, Monto: dec("80.25")},
	}
	saldo := CalcularSaldoEsperado(dec("1000.00"), movs)
	assert.True(t, saldo.Equal(dec("1459.75")), "got %s", saldo)
}

func TestCalcularSaldoEsperadoOrdenIndependiente(t *testing.T) {
	movs := []model.MovimientoCaja{
		{Tipo: model.MovIngreso, Monto: dec("300.10")},
		{Tipo: model.MovEgreso, Monto: dec("50.55")},
		{Tipo: model.MovIngreso, Monto: dec("75.45")},
		{Tipo: model.MovEgreso, Monto: dec("25.00")},
	}
	forward := CalcularSaldoEsperado(dec("2500.00"), movs)

	reversed := make([]model.MovimientoCaja, len(movs))
	for i := range movs {
		reversed[len(movs)-1-i] = movs[i]
	}
	backward := CalcularSaldoEsperado(dec("2500.00"), reversed)

	assert.True(t, forward.Equal(backward), "forward %s != backward %s", forward, backward)
}

func TestCalcularSaldoEsperadoSinMovimientos(t *testing.T) {
	saldo := CalcularSaldoEsperado(dec("2500.00"), nil)
	assert.True(t, saldo.Equal(dec("2500.00")))
}

func TestCalcularSaldoEsperadoRedondeo(t *testing.T) {
	movs := []model.MovimientoCaja{
		{Tipo: model.MovIngreso, Monto: dec("0.005")},
	}
	// half-away-from-zero
	saldo := CalcularSaldoEsperado(dec("0.00"), movs)
	assert.True(t, saldo.Equal(dec("0.01")), "got %s", saldo)
}

// ── MovimientosPago ──────────────────────────────────────────────────────────

func TestMovimientosPagoEfectivoConVuelto(t *testing.T) {
	sesionID := uuid.New()
	movs, vuelto := MovimientosPago(sesionID, dec("750.00"), dec("1000.00"), model.MetodoEfectivo, "")

	require.Len(t, movs, 2)
	assert.Equal(t, model.MovIngreso, movs[0].Tipo)
	assert.True(t, movs[0].Monto.Equal(dec("750.00")))
	assert.Equal(t, model.MovEgreso, movs[1].Tipo)
	assert.Equal(t, model.MetodoEfectivo, movs[1].MetodoPago)
	assert.Equal(t, "Vuelto entregado", movs[1].Descripcion)
	assert.True(t, movs[1].Monto.Equal(dec("250.00")))
	assert.True(t, vuelto.Equal(dec("250.00")))
}

func TestMovimientosPagoEfectivoExacto(t *testing.T) {
	movs, vuelto := MovimientosPago(uuid.New(), dec("500.00"), dec("500.00"), model.MetodoEfectivo, "")
	require.Len(t, movs, 1)
	assert.True(t, vuelto.IsZero())
}

func TestMovimientosPagoTarjetaSinVuelto(t *testing.T) {
	// Card payments never produce a change leg, even when recibido > monto.
	movs, vuelto := MovimientosPago(uuid.New(), dec("750.00"), dec("1000.00"), model.MetodoTarjeta, "")
	require.Len(t, movs, 1)
	assert.Equal(t, model.MovIngreso, movs[0].Tipo)
	assert.True(t, vuelto.IsZero())
}

// ── Abrir ────────────────────────────────────────────────────────────────────

func TestAbrirCaja(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo())
	usuarioID := uuid.New()

	resp := abrirCaja(t, svc, usuarioID, "2500.00")
	assert.False(t, resp.Cerrada)
	assert.Equal(t, 1, resp.Version)
	assert.True(t, resp.MontoApertura.Equal(dec("2500.00")))
}

func TestAbrirCajaDuplicadaRechazada(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo())
	usuarioID := uuid.New()

	abrirCaja(t, svc, usuarioID, "1000.00")

	_, err := svc.Abrir(context.Background(), usuarioID, dto.AbrirCajaRequest{
		TipoCaja:      "principal",
		MontoApertura: dec("500.00"),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindConflicto))
}

func TestAbrirCajaOtraTrasCerrar(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()

	abrirCaja(t, svc, usuarioID, "1000.00")
	_, err := svc.Cerrar(context.Background(), usuarioID, dto.CerrarCajaRequest{MontoReal: dec("1000.00")})
	require.NoError(t, err)

	// Closing frees the slot for a new session.
	resp := abrirCaja(t, svc, usuarioID, "800.00")
	assert.False(t, resp.Cerrada)
}

func TestAbrirCajaMontoNegativo(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo())
	_, err := svc.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{
		TipoCaja:      "principal",
		MontoApertura: dec("-1.00"),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidacion))
}

// ── RegistrarPago / Estado ───────────────────────────────────────────────────

func TestRegistrarPagoYEstado(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()
	ctx := context.Background()

	abrirCaja(t, svc, usuarioID, "2500.00")

	pago, err := svc.RegistrarPago(ctx, usuarioID, dto.PagoCajaRequest{
		TipoCaja:      "principal",
		MetodoPago:    model.MetodoEfectivo,
		TotalAPagar:   dec("500.00"),
		TotalRecibido: dec("1000.00"),
	})
	require.NoError(t, err)
	require.Len(t, pago.Movimientos, 2)
	assert.True(t, pago.Vuelto.Equal(dec("500.00")))

	estado, err := svc.Estado(ctx, usuarioID)
	require.NoError(t, err)
	assert.True(t, estado.TieneSesionActiva)
	assert.True(t, estado.TotalIngresos.Equal(dec("500.00")))
	assert.True(t, estado.TotalEgresos.Equal(dec("500.00")))
	assert.True(t, estado.SaldoActual.Equal(dec("2500.00")))

	// A read never mutates: asking twice gives the same answer.
	estado2, err := svc.Estado(ctx, usuarioID)
	require.NoError(t, err)
	assert.True(t, estado.SaldoActual.Equal(estado2.SaldoActual))
}

func TestEstadoSinSesion(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo())

	estado, err := svc.Estado(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, estado.TieneSesionActiva)
	assert.True(t, estado.MontoApertura.IsZero())
	assert.True(t, estado.SaldoActual.IsZero())
}

func TestRegistrarPagoSinSesion(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo())
	_, err := svc.RegistrarPago(context.Background(), uuid.New(), dto.PagoCajaRequest{
		TipoCaja:      "principal",
		MetodoPago:    model.MetodoEfectivo,
		TotalAPagar:   dec("100.00"),
		TotalRecibido: dec("100.00"),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNoEncontrado))
}

func TestRegistrarPagoRecibidoInsuficiente(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo())
	usuarioID := uuid.New()
	abrirCaja(t, svc, usuarioID, "1000.00")

	_, err := svc.RegistrarPago(context.Background(), usuarioID, dto.PagoCajaRequest{
		TipoCaja:      "principal",
		MetodoPago:    model.MetodoEfectivo,
		TotalAPagar:   dec("500.00"),
		TotalRecibido: dec("400.00"),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidacion))
}

// ── Cerrar ───────────────────────────────────────────────────────────────────

func TestCerrarSinDiferencia(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()
	ctx := context.Background()

	abrirCaja(t, svc, usuarioID, "2500.00")
	_, err := svc.RegistrarPago(ctx, usuarioID, dto.PagoCajaRequest{
		TipoCaja:      "principal",
		MetodoPago:    model.MetodoEfectivo,
		TotalAPagar:   dec("500.00"),
		TotalRecibido: dec("500.00"),
	})
	require.NoError(t, err)

	cierre, err := svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{MontoReal: dec("3000.00")})
	require.NoError(t, err)
	assert.True(t, cierre.SaldoEsperado.Equal(dec("3000.00")))
	assert.True(t, cierre.Diferencia.IsZero())
	assert.True(t, cierre.Sesion.Cerrada)
	assert.Equal(t, 2, cierre.Sesion.Version)

	require.Len(t, repo.arqueos, 1)
	assert.Equal(t, "Arqueo exacto", repo.arqueos[0].Motivo)
}

func TestCerrarGuardaAntesDeMarcarElModelo(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()
	ctx := context.Background()

	sesion := abrirCaja(t, svc, usuarioID, "100.00")
	cierre, err := svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{MontoReal: dec("100.00")})
	require.NoError(t, err)

	// The guarded update must see the still-open row: the stored session
	// flips to cerrada exactly once, and the response mirrors it.
	stored := repo.sesiones[uuid.MustParse(sesion.ID)]
	require.NotNil(t, stored)
	assert.True(t, stored.Cerrada)
	assert.Equal(t, 2, stored.Version)
	require.NotNil(t, stored.MontoCierre)
	assert.True(t, stored.MontoCierre.Equal(dec("100.00")))
	assert.NotNil(t, stored.CerradaAt)

	assert.True(t, cierre.Sesion.Cerrada)
	assert.Equal(t, stored.Version, cierre.Sesion.Version)
}

func TestCerrarDentroDeTolerancia(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()

	abrirCaja(t, svc, usuarioID, "100.00")

	// 0.01 off — closes without confirmation or reason.
	cierre, err := svc.Cerrar(context.Background(), usuarioID, dto.CerrarCajaRequest{MontoReal: dec("100.01")})
	require.NoError(t, err)
	assert.True(t, cierre.Diferencia.Equal(dec("0.01")))
}

func TestCerrarDiferenciaChicaRequiereConfirmacion(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()
	ctx := context.Background()

	abrirCaja(t, svc, usuarioID, "100.00")

	// 0.02 over tolerance, under the reason threshold — needs confirmado.
	_, err := svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{MontoReal: dec("100.02")})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidacion))

	// Session is still open; the rejected attempt changed nothing.
	assert.Empty(t, repo.arqueos)

	cierre, err := svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{MontoReal: dec("100.02"), Confirmado: true})
	require.NoError(t, err)
	assert.True(t, cierre.Diferencia.Equal(dec("0.02")))
	require.Len(t, repo.arqueos, 1)
	assert.Equal(t, "Diferencia detectada", repo.arqueos[0].Motivo)
}

func TestCerrarDiferenciaGrandeRequiereMotivo(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo())
	usuarioID := uuid.New()
	ctx := context.Background()

	abrirCaja(t, svc, usuarioID, "100.00")

	// 1.01 over — confirmation alone is not enough.
	_, err := svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{MontoReal: dec("101.01"), Confirmado: true})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidacion))

	// A too-short reason is also rejected.
	corto := "faltó"
	_, err = svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{MontoReal: dec("101.01"), Motivo: &corto})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidacion))

	motivo := "Billete falso detectado en el arqueo"
	cierre, err := svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{MontoReal: dec("101.01"), Motivo: &motivo})
	require.NoError(t, err)
	assert.True(t, cierre.Diferencia.Equal(dec("1.01")))
}

func TestCerrarFaltante(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()

	abrirCaja(t, svc, usuarioID, "100.00")

	motivo := "Faltante detectado al contar la caja"
	cierre, err := svc.Cerrar(context.Background(), usuarioID, dto.CerrarCajaRequest{MontoReal: dec("98.99"), Motivo: &motivo})
	require.NoError(t, err)
	// Signed difference: counted minus expected.
	assert.True(t, cierre.Diferencia.Equal(dec("-1.01")))
	assert.True(t, repo.arqueos[0].Diferencia.IsNegative())
}

func TestCerrarDosVecesConflicto(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()
	ctx := context.Background()

	abrirCaja(t, svc, usuarioID, "100.00")
	cierre, err := svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{MontoReal: dec("100.00")})
	require.NoError(t, err)

	_, err = svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{
		SesionCajaID: cierre.Sesion.ID,
		MontoReal:    dec("100.00"),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindConflicto))

	// Exactly one audit row regardless of the second attempt.
	assert.Len(t, repo.arqueos, 1)
}

func TestCerrarSesionAjenaProhibido(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	duenio := uuid.New()
	otro := uuid.New()

	sesion := abrirCaja(t, svc, duenio, "100.00")

	_, err := svc.Cerrar(context.Background(), otro, dto.CerrarCajaRequest{
		SesionCajaID: sesion.ID,
		MontoReal:    dec("100.00"),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindAutorizacion))
	assert.Empty(t, repo.arqueos)
}

func TestCerrarSinSesion(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo())
	_, err := svc.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{MontoReal: dec("0.00")})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNoEncontrado))
}

// ── Arqueo / Historial ───────────────────────────────────────────────────────

func TestArqueoConDesglose(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()
	ctx := context.Background()

	sesion := abrirCaja(t, svc, usuarioID, "100.00")
	_, err := svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{
		MontoReal: dec("100.00"),
		Desglose: &dto.DesgloseCierre{
			Monedas:  dec("20.00"),
			Billetes: dec("80.00"),
		},
	})
	require.NoError(t, err)

	arqueo, err := svc.Arqueo(ctx, uuid.MustParse(sesion.ID))
	require.NoError(t, err)
	assert.True(t, arqueo.Desglose.Monedas.Equal(dec("20.00")))
	assert.True(t, arqueo.Desglose.Billetes.Equal(dec("80.00")))
	assert.True(t, arqueo.MontoEsperado.Equal(dec("100.00")))
}

func TestArqueoNoEncontrado(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo())
	_, err := svc.Arqueo(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNoEncontrado))
}

func TestHistorialSoloSesionesCerradas(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	ctx := context.Background()

	u1, u2 := uuid.New(), uuid.New()
	abrirCaja(t, svc, u1, "100.00")
	abrirCaja(t, svc, u2, "200.00")

	_, err := svc.Cerrar(ctx, u1, dto.CerrarCajaRequest{MontoReal: dec("100.00")})
	require.NoError(t, err)

	historial, total, err := svc.Historial(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, historial, 1)
	assert.True(t, historial[0].Cerrada)
}

// ── Full lifecycle ───────────────────────────────────────────────────────────

func TestCicloCompletoDeCaja(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo)
	usuarioID := uuid.New()
	ctx := context.Background()

	abrirCaja(t, svc, usuarioID, "2500.00")

	_, err := svc.RegistrarPago(ctx, usuarioID, dto.PagoCajaRequest{
		TipoCaja:      "principal",
		MetodoPago:    model.MetodoEfectivo,
		TotalAPagar:   dec("500.00"),
		TotalRecibido: dec("500.00"),
	})
	require.NoError(t, err)

	estado, err := svc.Estado(ctx, usuarioID)
	require.NoError(t, err)
	assert.True(t, estado.SaldoActual.Equal(dec("3000.00")))

	cierre, err := svc.Cerrar(ctx, usuarioID, dto.CerrarCajaRequest{MontoReal: dec("3000.00")})
	require.NoError(t, err)
	assert.True(t, cierre.Diferencia.IsZero())

	// No further pagos are possible on the closed session.
	_, err = svc.RegistrarPago(ctx, usuarioID, dto.PagoCajaRequest{
		TipoCaja:      "principal",
		MetodoPago:    model.MetodoEfectivo,
		TotalAPagar:   dec("100.00"),
		TotalRecibido: dec("100.00"),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNoEncontrado))
}
