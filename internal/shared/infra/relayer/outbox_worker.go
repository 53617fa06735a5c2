package relayer

import (
	"context"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
	"github.com/davicafu/jobberlab/internal/shared/infra/metrics"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

// Report resume una pasada del relayer.
type Report struct {
	Fetched   int
	Sent      int
	Discarded int
	// Stalled indica que el broker falló y el resto del lote espera a la siguiente pasada.
	Stalled bool
}

// Worker reenvía en orden de llegada los eventos que el Producer dejó en el outbox.
type Worker struct {
	store     sharedDomain.OutboxRepository
	publisher sharedBus.Publisher
	every     time.Duration
	limit     int
	log       *zap.Logger
}

func NewOutboxWorker(
	store sharedDomain.OutboxRepository,
	publisher sharedBus.Publisher,
	every time.Duration,
	limit int,
	log *zap.Logger,
) *Worker {
	if every <= 0 {
		every = time.Second
	}
	if limit <= 0 {
		limit = 10
	}
	return &Worker{store: store, publisher: publisher, every: every, limit: limit, log: log}
}

// Start hace una pasada por tick hasta que ctx se cancela.
func (w *Worker) Start(ctx context.Context) {
	t := time.NewTicker(w.every)
	defer t.Stop()
	w.log.Info("🚀 Relayer del outbox en marcha", zap.Duration("every", w.every), zap.Int("limit", w.limit))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 Relayer del outbox detenido")
			return
		case <-t.C:
			if r := w.ProcessBatch(ctx); r.Fetched > 0 {
				w.log.Info("📬 Pasada del outbox",
					zap.Int("fetched", r.Fetched),
					zap.Int("sent", r.Sent),
					zap.Int("discarded", r.Discarded),
					zap.Bool("stalled", r.Stalled),
				)
			}
		}
	}
}

// ProcessBatch publica los pendientes uno a uno. Tras el primer fallo del broker
// se anota el intento y se corta la pasada para no desordenar los siguientes.
func (w *Worker) ProcessBatch(ctx context.Context) Report {
	var r Report
	pending, err := w.store.Pending(ctx, w.limit)
	if err != nil {
		w.log.Warn("⚠️ No se pudieron leer los pendientes del outbox", zap.Error(err))
		return r
	}
	r.Fetched = len(pending)
	metrics.SetOutboxPending(r.Fetched)

	for _, evt := range pending {
		out := sharedBus.FromOutbox(evt)
		log := w.log.With(zap.Stringer("event_id", evt.ID), zap.String("exchange", evt.Exchange))

		if err := out.Validate(); err != nil {
			// Sin topología válida nunca saldrá; se da por enviado para sacarlo de la cola.
			log.Error("Evento del outbox descartado", zap.Int("attempts", evt.Attempts), zap.Error(err))
			w.markSent(ctx, evt, log)
			r.Discarded++
			continue
		}

		if err := w.publisher.Publish(ctx, out); err != nil {
			metrics.IncPublished(evt.Exchange, false)
			log.Warn("⚠️ El broker sigue rechazando el evento", zap.Int("attempts", evt.Attempts+1), zap.Error(err))
			if markErr := w.store.MarkFailed(ctx, evt.ID, err); markErr != nil {
				log.Warn("⚠️ No se pudo anotar el intento", zap.Error(markErr))
			}
			r.Stalled = true
			return r
		}
		metrics.IncPublished(evt.Exchange, true)
		w.markSent(ctx, evt, log)
		r.Sent++
	}
	return r
}

// markSent solo registra el fallo: si no se marca, el evento se reenviará y los consumidores deduplican.
func (w *Worker) markSent(ctx context.Context, evt sharedDomain.OutboxEvent, log *zap.Logger) {
	if err := w.store.MarkSent(ctx, evt.ID); err != nil {
		log.Warn("⚠️ No se pudo marcar como enviado", zap.Error(err))
		return
	}
	log.Debug("✅ Evento del outbox entregado", zap.String("routing_key", evt.RoutingKey))
}
