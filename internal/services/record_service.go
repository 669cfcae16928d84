package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

// ErrValidation wraps every rejection of user supplied record data.
var ErrValidation = errors.New("invalid record")

// Publisher announces record changes to the spreadsheet mirror.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, kind core.Kind, recordID string, op amqp.Op) error
	Close() error
}

// RecordService orchestrates record operations across the store and AMQP.
type RecordService struct {
	store     storage.Store
	publisher Publisher
	logger    *applog.StructuredLogger

	mu        sync.RWMutex
	listeners []func(core.Kind)
}

// NewRecordService wires a store and an optional publisher. A nil publisher
// disables change events.
func NewRecordService(store storage.Store, publisher Publisher, logger *applog.Logger) *RecordService {
	if logger == nil {
		logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentRecords})
	}
	return &RecordService{
		store:     store,
		publisher: publisher,
		logger:    applog.NewStructuredLogger(logger.WithComponent(applog.ComponentRecords)),
	}
}

// OnChange registers fn to run after every successful mutation of kind.
func (s *RecordService) OnChange(fn func(kind core.Kind)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *RecordService) changed(kind core.Kind) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.listeners {
		fn(kind)
	}
}

// Store exposes the underlying record source for read-only consumers.
func (s *RecordService) Store() storage.Store {
	return s.store
}

func (s *RecordService) List(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrValidation, core.ErrInvalidKind)
	}
	recs, err := s.store.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Collection(), err)
	}
	return recs, nil
}

func (s *RecordService) Get(ctx context.Context, kind core.Kind, id string) (core.Record, error) {
	rec, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return core.Record{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return rec, nil
}

// Create validates and saves rec under a new ID, then publishes the change.
func (s *RecordService) Create(ctx context.Context, kind core.Kind, rec core.Record) (core.Record, error) {
	rec.ID = ""
	rec = storage.Prepare(kind, rec)
	if err := rec.Validate(); err != nil {
		return core.Record{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	saved, err := s.store.Create(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("save %s: %w", kind, err)
	}

	s.logChange(ctx, applog.OpCreate, saved)
	s.changed(kind)
	s.publish(ctx, kind, saved.ID, amqp.OpCreate)
	return saved, nil
}

// CreateMany saves a batch of already validated records in one call and
// publishes one event per record.
func (s *RecordService) CreateMany(ctx context.Context, kind core.Kind, recs []core.Record) ([]core.Record, error) {
	if len(recs) == 0 {
		return []core.Record{}, nil
	}
	for i := range recs {
		recs[i].ID = ""
		recs[i] = storage.Prepare(kind, recs[i])
		if err := recs[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", ErrValidation, i, err)
		}
	}

	saved, err := s.store.CreateMany(ctx, kind, recs)
	if err != nil {
		return nil, fmt.Errorf("save %s batch: %w", kind, err)
	}

	slog.InfoContext(ctx, "Records imported",
		applog.FieldComponent, applog.ComponentRecords,
		applog.FieldKind, string(kind),
		applog.FieldRows, len(saved))
	s.changed(kind)
	for _, rec := range saved {
		s.publish(ctx, kind, rec.ID, amqp.OpCreate)
	}
	return saved, nil
}

// Update replaces the record with id. The stored kind and ID always win
// over whatever the payload carries.
func (s *RecordService) Update(ctx context.Context, kind core.Kind, id string, rec core.Record) (core.Record, error) {
	rec.ID = id
	rec = storage.Prepare(kind, rec)
	if err := rec.Validate(); err != nil {
		return core.Record{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	saved, err := s.store.Update(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("update %s %s: %w", kind, id, err)
	}

	s.logChange(ctx, applog.OpUpdate, saved)
	s.changed(kind)
	s.publish(ctx, kind, saved.ID, amqp.OpUpdate)
	return saved, nil
}

func (s *RecordService) Delete(ctx context.Context, kind core.Kind, id string) error {
	if err := s.store.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}

	s.logChange(ctx, applog.OpDelete, core.Record{Kind: kind, ID: id})
	s.changed(kind)
	s.publish(ctx, kind, id, amqp.OpDelete)
	return nil
}

// publish never fails the request: the record is already saved and the
// worker resyncs everything on its next start.
func (s *RecordService) publish(ctx context.Context, kind core.Kind, id string, op amqp.Op) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping change event",
			applog.FieldKind, string(kind), applog.FieldRecordID, id)
		return
	}
	if err := s.publisher.PublishRecordChanged(ctx, kind, id, op); err != nil {
		s.logger.LogError(ctx, "Failed to publish record change", err, applog.ComponentAMQP, string(op),
			applog.NewFields().WithRecord(string(kind), id, "", "", ""))
	}
}

func (s *RecordService) logChange(ctx context.Context, op string, rec core.Record) {
	amount := ""
	if rec.Amount.Valid {
		amount = rec.Amount.Decimal.String()
	}
	s.logger.LogRecordChanged(ctx, op, string(rec.Kind), rec.ID, amount, rec.Tag(), rec.Platform)
}

// Close closes both the store and the publisher.
func (s *RecordService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close record service: %w", errors.Join(errs...))
	}
	return nil
}
