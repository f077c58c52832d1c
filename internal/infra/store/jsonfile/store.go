// Package jsonfile persists exit intents as a single JSON document on
// local disk. Writes go through a temp file and an atomic rename so a
// crash mid-write never leaves a half-written document behind.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/intent"
)

// document is the on-disk shape of the intent store
type document struct {
	UpdatedAt time.Time            `json:"updated_at"`
	Intents   []*intent.ExitIntent `json:"intents"`
}

// Store implements intent.Store over a single JSON file
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store backed by the given file path. The file does not
// need to exist yet; the parent directory is created on first save.
func New(path string) *Store {
	return &Store{path: path}
}

// LoadAll reads the persisted document. A missing file is an empty
// store. A corrupt document logs a warning and returns an empty set
// with an error wrapping intent.ErrCorruptStore so the caller can
// decide how loudly to complain, but startup is never blocked.
func (s *Store) LoadAll(ctx context.Context) ([]*intent.ExitIntent, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*intent.ExitIntent{}, nil
		}
		return nil, fmt.Errorf("read intent store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().
			Err(err).
			Str("path", s.path).
			Msg("⚠️ Intent store corrupt, starting with empty set")
		return []*intent.ExitIntent{}, fmt.Errorf("%w: %v", intent.ErrCorruptStore, err)
	}

	intents := make([]*intent.ExitIntent, 0, len(doc.Intents))
	for _, it := range doc.Intents {
		if it == nil {
			continue
		}
		it.Normalize()
		if err := it.Validate(); err != nil {
			log.Warn().
				Err(err).
				Str("intent_id", it.ID).
				Str("symbol", it.Symbol).
				Msg("Skipping invalid intent record")
			continue
		}
		intents = append(intents, it)
	}

	return intents, nil
}

// SaveAll replaces the persisted document with the given intents.
// Write-temp-then-rename keeps the previous document intact until the
// new one is fully on disk.
func (s *Store) SaveAll(ctx context.Context, intents []*intent.ExitIntent) error {
	doc := document{
		UpdatedAt: time.Now().UTC(),
		Intents:   intents,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal intent store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write intent store temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace intent store: %w", err)
	}

	return nil
}

// Upsert inserts or replaces one intent by ID and persists the result.
// Serialized internally so concurrent upserts from the API cannot
// interleave the read-modify-write.
func (s *Store) Upsert(ctx context.Context, it *intent.ExitIntent) error {
	if it == nil {
		return errors.New("nil intent")
	}
	if err := it.Validate(); err != nil {
		return fmt.Errorf("validate intent %s: %w", it.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	intents, err := s.LoadAll(ctx)
	if err != nil && !errors.Is(err, intent.ErrCorruptStore) {
		return err
	}

	replaced := false
	for idx, existing := range intents {
		if existing.ID == it.ID {
			intents[idx] = it
			replaced = true
			break
		}
	}
	if !replaced {
		intents = append(intents, it)
	}

	return s.SaveAll(ctx, intents)
}
