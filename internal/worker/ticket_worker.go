package worker

// ticket_worker.go
// Processes PDF-ticket jobs from QueueTicket: renders the exit receipt for a
// finished stay and hands delivery off to the email queue.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/infra"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TicketWorker renders exit receipts and enqueues their delivery.
type TicketWorker struct {
	estadiaRepo    repository.EstadiaRepository
	dispatcher     *Dispatcher
	pdfStoragePath string
	loc            *time.Location
}

func NewTicketWorker(estadiaRepo repository.EstadiaRepository, dispatcher *Dispatcher, pdfStoragePath string, loc *time.Location) *TicketWorker {
	return &TicketWorker{
		estadiaRepo:    estadiaRepo,
		dispatcher:     dispatcher,
		pdfStoragePath: pdfStoragePath,
		loc:            loc,
	}
}

// Process handles a single ticket job:
//  1. Parse TicketJobPayload from the job envelope
//  2. Fetch the Estadia from DB
//  3. Render the PDF receipt
//  4. Enqueue the email job with the attachment
func (w *TicketWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload TicketJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("ticket_worker: invalid payload")
		return
	}

	estadiaID, err := uuid.Parse(payload.EstadiaID)
	if err != nil {
		log.Error().Str("estadia_id", payload.EstadiaID).Msg("ticket_worker: invalid estadia_id")
		return
	}

	estadia, err := w.estadiaRepo.FindByID(ctx, estadiaID)
	if err != nil {
		log.Error().Err(err).Str("estadia_id", payload.EstadiaID).Msg("ticket_worker: estadia not found")
		return
	}

	pdfPath, err := infra.GenerarTicketPDF(estadia, w.pdfStoragePath, w.loc)
	if err != nil {
		log.Error().Err(err).Str("estadia_id", payload.EstadiaID).Msg("ticket_worker: failed to render PDF")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("patente", estadia.Patente).Msg("ticket_worker: PDF generated")

	if payload.ToEmail == "" {
		return
	}
	emailJob := EmailJobPayload{
		ToEmail: payload.ToEmail,
		Subject: "Comprobante de estadía — " + estadia.Patente,
		Body: fmt.Sprintf("Adjuntamos el comprobante de la estadía del vehículo %s.\nGracias por su visita.",
			estadia.Patente),
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("email", payload.ToEmail).Msg("ticket_worker: failed to enqueue email")
		return
	}
	log.Info().Str("email", payload.ToEmail).Msg("ticket_worker: email job enqueued")
}
