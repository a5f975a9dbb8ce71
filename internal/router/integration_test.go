//go:build integration

package router_test

// Integration tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/config"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/infra"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/router"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Suite setup ──────────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("eparking_test"),
		tcPostgres.WithUsername("eparking"),
		tcPostgres.WithPassword("eparking"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		WorkerPoolSize:     1,
		PDFStoragePath:     t.TempDir(),
		Timezone:           "America/Costa_Rica",
		RecordatorioDias:   3,
		BotWebhookSecret:   "bot-secret",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("eparking2026"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`INSERT INTO usuarios (id, username, nombre, email, password_hash, rol, activo, created_at)
		VALUES (gen_random_uuid(), 'admin', 'Admin Integración', 'admin@integracion.test', ?, 'administrador', true, NOW())
		ON CONFLICT DO NOTHING`, string(hash)).Error)

	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	dispatcher := worker.NewDispatcher(rdb)

	r := router.New(cfg, db, rdb, smtpCB, dispatcher)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin", "password": "eparking2026"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestIntegrationCicloDeCaja(t *testing.T) {
	env := setupTestEnv(t)

	// 1. Open the session
	abrirResp := do(t, env.server, "POST", "/v1/caja/abrir",
		jsonBody(t, map[string]any{"tipo_caja": "principal", "monto_apertura": "2500.00"}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, abrirResp.StatusCode)
	var sesion struct {
		ID      string `json:"id"`
		Cerrada bool   `json:"cerrada"`
	}
	decodeJSON(t, abrirResp, &sesion)
	assert.False(t, sesion.Cerrada)

	// A second open for the same user must conflict
	dupResp := do(t, env.server, "POST", "/v1/caja/abrir",
		jsonBody(t, map[string]any{"tipo_caja": "principal", "monto_apertura": "100.00"}),
		env.token,
	)
	require.Equal(t, http.StatusConflict, dupResp.StatusCode)
	dupResp.Body.Close()

	// 2. Cash payment with change
	pagoResp := do(t, env.server, "POST", "/v1/caja/pago",
		jsonBody(t, map[string]any{
			"tipo_caja":      "principal",
			"metodo_pago":    "efectivo",
			"total_a_pagar":  "500.00",
			"total_recibido": "1000.00",
		}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, pagoResp.StatusCode)
	var pago struct {
		Movimientos []struct {
			Tipo  string          `json:"tipo"`
			Monto decimal.Decimal `json:"monto"`
		} `json:"movimientos"`
		Vuelto decimal.Decimal `json:"vuelto"`
	}
	decodeJSON(t, pagoResp, &pago)
	require.Len(t, pago.Movimientos, 2)
	assert.True(t, pago.Vuelto.Equal(decimal.NewFromInt(500)))

	// 3. Status reflects both legs
	estadoResp := do(t, env.server, "GET", "/v1/caja/estado", nil, env.token)
	require.Equal(t, http.StatusOK, estadoResp.StatusCode)
	var estado struct {
		TieneSesionActiva bool            `json:"hasActiveSession"`
		SaldoActual       decimal.Decimal `json:"saldoActual"`
	}
	decodeJSON(t, estadoResp, &estado)
	assert.True(t, estado.TieneSesionActiva)
	assert.True(t, estado.SaldoActual.Equal(decimal.NewFromInt(2500)))

	// 4. Close with a small discrepancy: rejected without confirmation
	cerrarResp := do(t, env.server, "POST", "/v1/caja/cerrar",
		jsonBody(t, map[string]any{"monto_real": "2500.50"}),
		env.token,
	)
	require.Equal(t, http.StatusBadRequest, cerrarResp.StatusCode)
	cerrarResp.Body.Close()

	// Confirmed close succeeds
	cerrarResp = do(t, env.server, "POST", "/v1/caja/cerrar",
		jsonBody(t, map[string]any{"monto_real": "2500.50", "confirmado": true}),
		env.token,
	)
	require.Equal(t, http.StatusOK, cerrarResp.StatusCode)
	var cierre struct {
		SaldoEsperado decimal.Decimal `json:"expectedBalance"`
		Diferencia    decimal.Decimal `json:"difference"`
	}
	decodeJSON(t, cerrarResp, &cierre)
	assert.True(t, cierre.SaldoEsperado.Equal(decimal.NewFromInt(2500)))
	assert.True(t, cierre.Diferencia.Equal(decimal.NewFromFloat(0.5)))

	// 5. Double close conflicts
	otraVez := do(t, env.server, "POST", "/v1/caja/cerrar",
		jsonBody(t, map[string]any{"monto_real": "2500.50", "confirmado": true}),
		env.token,
	)
	require.Equal(t, http.StatusConflict, otraVez.StatusCode)
	otraVez.Body.Close()
}

func TestIntegrationEstadiaCompleta(t *testing.T) {
	env := setupTestEnv(t)

	// Tarifa for autos
	tarifaResp := do(t, env.server, "PUT", "/v1/tarifas",
		jsonBody(t, map[string]any{"tipo_vehiculo": "auto", "precio_hora": "1200.00"}),
		env.token,
	)
	require.Equal(t, http.StatusOK, tarifaResp.StatusCode)
	tarifaResp.Body.Close()

	// Open session to charge the exit through
	abrirResp := do(t, env.server, "POST", "/v1/caja/abrir",
		jsonBody(t, map[string]any{"tipo_caja": "principal", "monto_apertura": "5000.00"}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, abrirResp.StatusCode)
	abrirResp.Body.Close()

	// Vehicle enters; the plate is normalized
	ingresoResp := do(t, env.server, "POST", "/v1/estadias/ingreso",
		jsonBody(t, map[string]any{"patente": "  abc123 ", "tipo_vehiculo": "auto"}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, ingresoResp.StatusCode)
	var estadia struct {
		Patente string `json:"patente"`
		Estado  string `json:"estado"`
	}
	decodeJSON(t, ingresoResp, &estadia)
	assert.Equal(t, "ABC123", estadia.Patente)
	assert.Equal(t, "en_curso", estadia.Estado)

	// Same plate cannot enter twice
	dupResp := do(t, env.server, "POST", "/v1/estadias/ingreso",
		jsonBody(t, map[string]any{"patente": "ABC123", "tipo_vehiculo": "auto"}),
		env.token,
	)
	require.Equal(t, http.StatusConflict, dupResp.StatusCode)
	dupResp.Body.Close()

	// Exit bills one started hour with change
	egresoResp := do(t, env.server, "POST", "/v1/estadias/egreso",
		jsonBody(t, map[string]any{
			"patente":        "ABC123",
			"metodo_pago":    "efectivo",
			"total_recibido": "2000.00",
		}),
		env.token,
	)
	require.Equal(t, http.StatusOK, egresoResp.StatusCode)
	var egreso struct {
		Monto  decimal.Decimal `json:"monto"`
		Vuelto decimal.Decimal `json:"vuelto"`
	}
	decodeJSON(t, egresoResp, &egreso)
	assert.True(t, egreso.Monto.Equal(decimal.NewFromInt(1200)))
	assert.True(t, egreso.Vuelto.Equal(decimal.NewFromInt(800)))

	// The charge and the change both hit the session
	estadoResp := do(t, env.server, "GET", "/v1/caja/estado", nil, env.token)
	require.Equal(t, http.StatusOK, estadoResp.StatusCode)
	var estado struct {
		SaldoActual decimal.Decimal `json:"saldoActual"`
	}
	decodeJSON(t, estadoResp, &estado)
	assert.True(t, estado.SaldoActual.Equal(decimal.NewFromInt(5400)))
}

func TestIntegrationWebhookBotRequiereSecreto(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "POST", "/v1/bot/webhook",
		jsonBody(t, map[string]string{"chat_id": "c1", "mensaje": "/start"}),
		"",
	)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest("POST", env.server.URL+"/v1/bot/webhook",
		jsonBody(t, map[string]string{"chat_id": "c1", "mensaje": "/start"}))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Bot-Secret", "bot-secret")
	resp, err = env.server.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bot struct {
		Respuesta string `json:"respuesta"`
	}
	decodeJSON(t, resp, &bot)
	assert.Contains(t, bot.Respuesta, "/tarifas")
}
