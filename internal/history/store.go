package history

import (
	"context"
	"errors"
	"fmt"

	"budgetwatch/internal/log"
	"budgetwatch/internal/store"
)

const keyPrefix = "notification_history:"

// StorageKey is the key-value key holding one owner's history.
func StorageKey(ownerID string) string {
	return keyPrefix + ownerID
}

// Snapshot is a history together with the version it was loaded at.
type Snapshot struct {
	History Map
	Version int64
}

// Store persists one history document per owner.
type Store struct {
	kv     store.KeyValueStore
	logger *log.Logger
}

func NewStore(kv store.KeyValueStore, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{kv: kv, logger: logger.WithComponent(log.ComponentHistory)}
}

// Load reads the owner's history. A corrupt document is logged and replaced
// by an empty history at the stored version, so the next Save overwrites it.
// A read failure returns an empty snapshot together with the error.
func (s *Store) Load(ctx context.Context, ownerID string) (Snapshot, error) {
	entry, err := s.kv.Get(ctx, StorageKey(ownerID))
	if err != nil {
		return Snapshot{History: Map{}}, fmt.Errorf("load notification history: %w", err)
	}
	h, err := Decode(entry.Value)
	if err != nil {
		s.logger.WarnContext(ctx, "Discarding corrupt notification history",
			log.FieldOwner, ownerID, log.FieldError, err)
		h = Map{}
	}
	return Snapshot{History: h, Version: entry.Version}, nil
}

// Save writes h if the stored document is still at snap.Version.
// It returns store.ErrVersionConflict (wrapped) when someone wrote in between.
func (s *Store) Save(ctx context.Context, ownerID string, snap Snapshot) (Snapshot, error) {
	doc, err := Encode(snap.History)
	if err != nil {
		return snap, fmt.Errorf("encode notification history: %w", err)
	}
	v, err := s.kv.CompareAndSet(ctx, StorageKey(ownerID), doc, snap.Version)
	if err != nil {
		return snap, fmt.Errorf("save notification history: %w", err)
	}
	return Snapshot{History: snap.History, Version: v}, nil
}

// Commit saves updated on top of loaded. On a version conflict it reloads,
// merges updated into the fresh copy and tries again, up to attempts times.
func (s *Store) Commit(ctx context.Context, ownerID string, loaded Snapshot, updated Map, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	snap := Snapshot{History: updated, Version: loaded.Version}
	var err error
	for i := 0; i < attempts; i++ {
		if _, err = s.Save(ctx, ownerID, snap); err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		s.logger.DebugContext(ctx, "Notification history changed concurrently, merging",
			log.FieldOwner, ownerID, "attempt", i+1)
		fresh, loadErr := s.Load(ctx, ownerID)
		if loadErr != nil {
			return loadErr
		}
		snap = Snapshot{History: Merge(fresh.History, updated), Version: fresh.Version}
	}
	return fmt.Errorf("commit notification history after %d attempts: %w", attempts, err)
}
