package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/apierror"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/dto"
)

// EstadiaConsultor is the read-only slice of the stay service the bot needs.
// Satisfied by service.EstadiaService.
type EstadiaConsultor interface {
	ConsultarPorPatente(ctx context.Context, patente string) (*dto.EstadiaResponse, error)
	Tarifas(ctx context.Context) ([]dto.TarifaResponse, error)
}

const menuText = `Hola, soy el asistente de E-Parking. Puedo ayudarle con:

/estado <patente> — consultar si su vehículo está en el estacionamiento
/tarifas — ver las tarifas por hora
/start — volver a este menú`

// Responder drives the webhook conversation. State between messages lives in
// the Store so any instance can continue a chat.
type Responder struct {
	estadias EstadiaConsultor
	store    Store
}

func NewResponder(estadias EstadiaConsultor, store Store) *Responder {
	return &Responder{estadias: estadias, store: store}
}

// Responder handles one incoming message and returns the reply text.
func (r *Responder) Responder(ctx context.Context, chatID, mensaje string) (string, error) {
	mensaje = strings.TrimSpace(mensaje)

	st, err := r.store.Get(ctx, chatID)
	if err != nil {
		return "", err
	}

	// Commands always win over the pending step.
	switch {
	case mensaje == "/start":
		if err := r.store.Delete(ctx, chatID); err != nil {
			return "", err
		}
		return menuText, nil

	case mensaje == "/tarifas":
		return r.responderTarifas(ctx)

	case strings.HasPrefix(mensaje, "/estado"):
		patente := strings.TrimSpace(strings.TrimPrefix(mensaje, "/estado"))
		if patente == "" {
			st.Paso = PasoEsperandoPatente
			if err := r.store.Set(ctx, chatID, st); err != nil {
				return "", err
			}
			return "Indíqueme la patente de su vehículo.", nil
		}
		return r.responderEstado(ctx, patente)
	}

	if st.Paso == PasoEsperandoPatente {
		if err := r.store.Delete(ctx, chatID); err != nil {
			return "", err
		}
		return r.responderEstado(ctx, mensaje)
	}

	return menuText, nil
}

func (r *Responder) responderEstado(ctx context.Context, patente string) (string, error) {
	est, err := r.estadias.ConsultarPorPatente(ctx, patente)
	if err != nil {
		if apierror.IsKind(err, apierror.KindNoEncontrado) {
			return fmt.Sprintf("No encontré un vehículo con patente %s en el estacionamiento.",
				strings.ToUpper(strings.TrimSpace(patente))), nil
		}
		return "", err
	}
	resp := fmt.Sprintf("El vehículo %s (%s) está en el estacionamiento desde %s.",
		est.Patente, est.TipoVehiculo, est.IngresoAt)
	if est.AbonoVigente {
		resp += " Tiene un abono vigente: el egreso es sin cargo."
	}
	return resp, nil
}

func (r *Responder) responderTarifas(ctx context.Context) (string, error) {
	tarifas, err := r.estadias.Tarifas(ctx)
	if err != nil {
		return "", err
	}
	if len(tarifas) == 0 {
		return "Aún no hay tarifas configuradas.", nil
	}
	var b strings.Builder
	b.WriteString("Tarifas por hora:\n")
	for _, t := range tarifas {
		fmt.Fprintf(&b, "  %s: ₡%s\n", t.TipoVehiculo, t.PrecioHora.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
