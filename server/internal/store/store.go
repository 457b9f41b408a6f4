package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trialdash/trialdash/pkg/types"
)

// Snapshot is a published dataset together with its load metadata.
type Snapshot struct {
	ID       string
	Source   string
	LoadedAt time.Time
	Dataset  *types.Dataset
}

// Store is a thread-safe holder for the current dataset snapshot.
type Store struct {
	mu    sync.RWMutex
	cur   *Snapshot
	loads int

	now   func() time.Time // injectable for deterministic tests
	newID func() string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Replace publishes ds as the current dataset and returns its snapshot.
// ds must be complete; callers must not modify it after calling Replace.
func (s *Store) Replace(ds *types.Dataset, source string) *Snapshot {
	if ds == nil {
		ds = &types.Dataset{}
	}
	snap := &Snapshot{
		ID:       s.newID(),
		Source:   source,
		LoadedAt: s.now(),
		Dataset:  ds,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = snap
	s.loads++
	return snap
}

// Current returns the current snapshot and whether any dataset has been loaded.
func (s *Store) Current() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur, s.cur != nil
}

// Dataset returns the current dataset, or an empty one if nothing is loaded.
func (s *Store) Dataset() *types.Dataset {
	if snap, ok := s.Current(); ok {
		return snap.Dataset
	}
	return &types.Dataset{}
}

// Resources returns the loaded resources in upload order.
func (s *Store) Resources() []types.Resource {
	ds := s.Dataset()
	out := make([]types.Resource, len(ds.Resources))
	copy(out, ds.Resources)
	return out
}

// Trials returns the loaded trials in upload order.
func (s *Store) Trials() []types.Trial {
	ds := s.Dataset()
	out := make([]types.Trial, len(ds.Trials))
	copy(out, ds.Trials)
	return out
}

// Loads returns how many datasets have been published since startup.
func (s *Store) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}
