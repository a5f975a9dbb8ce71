package worker

// recordatorio_cron.go
// Background goroutine that periodically looks for abonos about to expire and
// enqueues a reminder email for each. An abono is notified at most once per
// cycle: recordatorio_enviado_at is set as soon as the job is enqueued and
// cleared again on renewal.

import (
	"context"
	"fmt"
	"time"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	recordatorioTickInterval = time.Hour
	recordatorioBatchSize    = 50
)

// RecordatorioCronConfig holds all dependencies for the reminder goroutine.
type RecordatorioCronConfig struct {
	AbonoRepo  repository.AbonoRepository
	Dispatcher *Dispatcher
	// DiasAntes is how many days before expiry the reminder goes out.
	DiasAntes int
	// Loc renders expiry dates in the business timezone.
	Loc *time.Location
}

// StartRecordatorioCron launches a background goroutine that ticks hourly,
// queries expiring abonos, and enqueues reminder emails.
// It respects the context for graceful shutdown.
func StartRecordatorioCron(ctx context.Context, cfg RecordatorioCronConfig) {
	go func() {
		ticker := time.NewTicker(recordatorioTickInterval)
		defer ticker.Stop()

		log.Info().Msg("recordatorio_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("recordatorio_cron: shutting down")
				return
			case <-ticker.C:
				processRecordatorios(ctx, cfg)
			}
		}
	}()
}

func processRecordatorios(ctx context.Context, cfg RecordatorioCronConfig) {
	now := time.Now().UTC()
	hasta := now.AddDate(0, 0, cfg.DiasAntes)

	abonos, err := cfg.AbonoRepo.ListPorVencer(ctx, hasta, recordatorioBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("recordatorio_cron: failed to query expiring abonos")
		return
	}
	if len(abonos) == 0 {
		return
	}

	log.Info().Int("count", len(abonos)).Msg("recordatorio_cron: processing expiring abonos")

	for i := range abonos {
		abono := &abonos[i]

		if abono.Cliente == nil || abono.Cliente.Email == nil || *abono.Cliente.Email == "" {
			// No address to notify — mark anyway so the scan does not
			// revisit the same row every tick.
			_ = cfg.AbonoRepo.MarcarRecordatorio(ctx, abono.ID, now)
			continue
		}

		vence := abono.VenceAt.In(cfg.Loc).Format("02/01/2006")
		emailJob := EmailJobPayload{
			ToEmail: *abono.Cliente.Email,
			Subject: "Su abono de estacionamiento vence pronto",
			Body: fmt.Sprintf("Hola %s,\n\nSu abono para la patente %s vence el %s. "+
				"Puede renovarlo en caja para no perder el acceso.\n\nE-Parking",
				abono.Cliente.Nombre, abono.Cliente.Patente, vence),
		}
		if err := cfg.Dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
			log.Warn().Err(err).Str("abono_id", abono.ID.String()).Msg("recordatorio_cron: failed to enqueue reminder")
			continue
		}
		if err := cfg.AbonoRepo.MarcarRecordatorio(ctx, abono.ID, now); err != nil {
			log.Error().Err(err).Str("abono_id", abono.ID.String()).Msg("recordatorio_cron: failed to mark reminder sent")
		}
	}
}
