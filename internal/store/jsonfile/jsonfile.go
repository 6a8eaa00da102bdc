// Package jsonfile persists the transaction collection to a single JSON
// file: the whole collection is loaded at startup and rewritten atomically
// on every mutation.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"tracker/internal/core"
	"tracker/internal/store"
)

type Store struct {
	mu    sync.Mutex
	path  string
	items []core.Transaction
}

// Open loads the collection from path, creating an empty file if missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	s := &Store{path: path}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read data file: %w", err)
	default:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &s.items); err != nil {
				// An empty or corrupt file starts over rather than
				// blocking startup, matching prior behavior.
				slog.Warn("Data file is not valid JSON, starting empty", "path", path, "error", err)
				s.items = nil
			}
		}
	}

	slog.Info("JSON file store opened", "path", path, "transactions", len(s.items))
	return s, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	if err := s.persistLocked(); err != nil {
		s.items = s.items[:len(s.items)-1]
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			removed := t
			s.items = append(s.items[:i], s.items[i+1:]...)
			if err := s.persistLocked(); err != nil {
				s.items = append(s.items[:i], append([]core.Transaction{removed}, s.items[i:]...)...)
				return err
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) UpdateTransaction(_ context.Context, id string, p store.Patch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID != id {
			continue
		}
		prev := t
		if p.Amount != nil {
			t.Amount = *p.Amount
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.Category != nil {
			t.Category = *p.Category
		}
		if p.Date != nil {
			t.Date = *p.Date
		}
		if p.Type != nil {
			t.Type = *p.Type
		}
		if err := t.Validate(); err != nil {
			return core.Transaction{}, err
		}
		s.items[i] = t
		if err := s.persistLocked(); err != nil {
			s.items[i] = prev
			return core.Transaction{}, err
		}
		return t, nil
	}
	return core.Transaction{}, store.ErrNotFound
}

// persistLocked writes the collection via a temp file and rename so a crash
// mid-write never leaves a truncated data file. Caller holds s.mu.
func (s *Store) persistLocked() error {
	items := s.items
	if items == nil {
		items = []core.Transaction{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp data file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
