package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

var errReadOnly = errors.New("memory: write attempted in a read-only view")

// Persister durably writes a full snapshot. A transaction only becomes
// visible after Persist returns nil.
type Persister interface {
	Persist(ctx context.Context, snap Snapshot) error
}

// Loader is implemented by persisters that can read back what they wrote.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
}

// Store keeps every collection in memory and serializes all mutations behind
// one lock. Each transaction works on a clone that replaces the live state
// only after the optional persister has accepted it.
type Store struct {
	mu        sync.RWMutex
	state     state
	persister Persister
	nowFn     func() time.Time
}

type Option func(*Store)

func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowFn = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot()
}

// ImportState replaces the current state. It does not call the persister.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(snap)
}

// Reload replaces the in-memory state with what the persister holds now, so a
// process sharing the files with a writer sees its commits. Without a loading
// persister it does nothing.
func (s *Store) Reload(ctx context.Context) error {
	loader, ok := s.persister.(Loader)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload snapshot: %w", err)
	}
	s.state = stateFromSnapshot(snap)
	return nil
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txRepos{state: s.state.clone(), now: s.nowFn(), writable: true}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}
	if s.persister != nil {
		start := time.Now()
		if err := s.persister.Persist(ctx, tx.state.snapshot()); err != nil {
			logger.Error("Snapshot persist failed, transaction discarded", "error", err)
			return fmt.Errorf("persist snapshot: %w", err)
		}
		logger.Debug("Snapshot persisted", "duration", time.Since(start))
	}
	s.state = tx.state
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &txRepos{state: s.state, now: s.nowFn()})
}

func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.persister.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return ctx.Err()
}

func (s *Store) Close() error {
	if c, ok := s.persister.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type txRepos struct {
	state    state
	now      time.Time
	writable bool
	dirty    bool
}

func (tx *txRepos) Users() repository.UserRepository       { return userRepository{tx} }
func (tx *txRepos) Tools() repository.ToolRepository       { return toolRepository{tx} }
func (tx *txRepos) Bookings() repository.BookingRepository { return bookingRepository{tx} }
func (tx *txRepos) Swaps() repository.SwapRepository       { return swapRepository{tx} }

func (tx *txRepos) beginWrite() error {
	if !tx.writable {
		return errReadOnly
	}
	tx.dirty = true
	return nil
}
