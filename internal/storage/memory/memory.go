package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// Store keeps records in process memory. It backs local development and
// tests; contents are lost on restart.
type Store struct {
	mu    sync.RWMutex
	items map[core.Kind][]core.Record
}

func New(seed ...core.Record) *Store {
	s := &Store{items: map[core.Kind][]core.Record{}}
	for _, rec := range seed {
		if rec.Kind.Valid() {
			s.items[rec.Kind] = append(s.items[rec.Kind], storage.Prepare(rec.Kind, rec))
		}
	}
	return s
}

// NewFromFiles seeds the store from ingresos.json and gastos.json under base.
// Missing files are skipped; malformed ones are an error.
func NewFromFiles(base string) (*Store, error) {
	var seed []core.Record
	for _, kind := range []core.Kind{core.Income, core.Expense} {
		recs, err := readSeed(filepath.Join(base, kind.Collection()+".json"))
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			rec.Kind = kind
			seed = append(seed, rec)
		}
	}
	return New(seed...), nil
}

func readSeed(path string) ([]core.Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var recs []core.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return recs, nil
}

func (s *Store) List(_ context.Context, kind core.Kind) ([]core.Record, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]core.Record, 0, len(s.items[kind])), s.items[kind]...), nil
}

func (s *Store) Get(_ context.Context, kind core.Kind, id string) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(kind, id); i >= 0 {
		return s.items[kind][i], nil
	}
	return core.Record{}, storage.ErrNotFound
}

func (s *Store) Create(_ context.Context, rec core.Record) (core.Record, error) {
	if !rec.Kind.Valid() {
		return core.Record{}, core.ErrInvalidKind
	}
	rec = storage.Prepare(rec.Kind, rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(rec.Kind, rec.ID) >= 0 {
		return core.Record{}, fmt.Errorf("duplicate id %s", rec.ID)
	}
	s.items[rec.Kind] = append(s.items[rec.Kind], rec)
	return rec, nil
}

func (s *Store) CreateMany(_ context.Context, kind core.Kind, recs []core.Record) ([]core.Record, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	created := make([]core.Record, 0, len(recs))
	for _, rec := range recs {
		created = append(created, storage.Prepare(kind, rec))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[kind] = append(s.items[kind], created...)
	return created, nil
}

func (s *Store) Update(_ context.Context, rec core.Record) (core.Record, error) {
	rec = rec.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(rec.Kind, rec.ID)
	if i < 0 {
		return core.Record{}, storage.ErrNotFound
	}
	s.items[rec.Kind][i] = rec
	return rec, nil
}

func (s *Store) Delete(_ context.Context, kind core.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(kind, id)
	if i < 0 {
		return storage.ErrNotFound
	}
	items := s.items[kind]
	s.items[kind] = append(items[:i:i], items[i+1:]...)
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) indexOf(kind core.Kind, id string) int {
	for i, rec := range s.items[kind] {
		if rec.ID == id {
			return i
		}
	}
	return -1
}
