package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/sheets"
	"finanzas/internal/storage"
)

// Consumer delivers record changed messages until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker keeps a spreadsheet mirror in step with the record store.
type MirrorWorker struct {
	store  storage.Store
	mirror sheets.Mirror
	logger *applog.Logger
	errs   *applog.StructuredLogger
}

func NewMirrorWorker(store storage.Store, mirror sheets.Mirror, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentWorker)
	return &MirrorWorker{
		store:  store,
		mirror: mirror,
		logger: logger,
		errs:   applog.NewStructuredLogger(logger),
	}
}

// HandleMessage applies one change to the mirror. The record is read back
// from the store, so a create or update for a record deleted since the event
// was published removes its row instead.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	w.logger.DebugContext(ctx, "Processing record changed message",
		applog.FieldMessageID, msg.ID,
		applog.FieldKind, string(msg.Kind),
		applog.FieldRecordID, msg.RecordID,
		applog.FieldOperation, string(msg.Op))

	if msg.Op == amqp.OpDelete {
		return w.remove(ctx, msg.Kind, msg.RecordID)
	}

	rec, err := w.store.Get(ctx, msg.Kind, msg.RecordID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.InfoContext(ctx, "Record no longer exists, removing from mirror",
			applog.FieldKind, string(msg.Kind),
			applog.FieldRecordID, msg.RecordID)
		return w.remove(ctx, msg.Kind, msg.RecordID)
	}
	if err != nil {
		return fmt.Errorf("get %s %s: %w", msg.Kind, msg.RecordID, err)
	}

	if err := w.mirror.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert %s %s: %w", msg.Kind, msg.RecordID, err)
	}

	w.logger.InfoContext(ctx, "Record mirrored",
		applog.FieldKind, string(rec.Kind),
		applog.FieldRecordID, rec.ID,
		applog.FieldOperation, string(msg.Op))
	return nil
}

func (w *MirrorWorker) remove(ctx context.Context, kind core.Kind, id string) error {
	if err := w.mirror.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	w.logger.InfoContext(ctx, "Record removed from mirror",
		applog.FieldKind, string(kind),
		applog.FieldRecordID, id)
	return nil
}

// Resync overwrites both tabs with the current store contents. It recovers
// from events lost while the worker was down.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	for _, kind := range []core.Kind{core.Income, core.Expense} {
		recs, err := w.store.List(ctx, kind)
		if err != nil {
			return fmt.Errorf("list %s: %w", kind.Collection(), err)
		}
		if err := w.mirror.Replace(ctx, kind, recs); err != nil {
			return fmt.Errorf("replace %s: %w", kind.Collection(), err)
		}
		w.logger.InfoContext(ctx, "Mirror tab resynced",
			applog.FieldKind, string(kind),
			applog.FieldRows, len(recs))
	}
	return nil
}

// Run resyncs once, then consumes events and resyncs every interval until
// ctx is done. A failed resync is logged and retried on the next tick.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.Resync(ctx); err != nil {
		w.errs.LogError(ctx, "Startup resync failed", err, applog.ComponentWorker, applog.OpResync, nil)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Consume(ctx, w.HandleMessage)
	})

	if interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := w.Resync(ctx); err != nil && ctx.Err() == nil {
						w.errs.LogError(ctx, "Periodic resync failed", err, applog.ComponentWorker, applog.OpResync, nil)
					}
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
