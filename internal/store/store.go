// Package store implements the bounded record store: an in-memory
// most-recent-first sequence of one entity kind, capped at a fixed length and
// mirrored to durable storage through a single flush worker per store.
//
// The in-memory sequence is the source of truth for the process lifetime; the
// mirror is a best-effort copy for restart recovery. Flush failures are logged
// and counted, never surfaced to the caller that triggered the mutation.
package store

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"growbase/internal/mirror"
)

// ErrNotFound marks a lookup for an id (optionally scoped to an owner) that
// matched nothing. Callers map it to a missing-resource response.
var ErrNotFound = errors.New("record not found")

// Record is implemented by every stored entity (pointer receiver).
type Record interface {
	EntityID() string
	// Stamp assigns the id and creation timestamp if not already set.
	Stamp(id string, now time.Time)
	Validate() error
	// Clone returns a copy of the record (same concrete pointer type).
	// Update mutates the clone and swaps it in, so records already in the
	// sequence are never written after insertion and the flush worker can
	// marshal them without holding the store lock.
	Clone() any
}

// Observer receives store lifecycle signals. All methods must be cheap and
// non-blocking; the flush worker calls them inline.
type Observer interface {
	RecordAppended(kind string)
	FlushOK(kind string)
	FlushFailed(kind string)
	SnapshotCorrupt(kind string)
}

type nopObserver struct{}

func (nopObserver) RecordAppended(string)  {}
func (nopObserver) FlushOK(string)         {}
func (nopObserver) FlushFailed(string)     {}
func (nopObserver) SnapshotCorrupt(string) {}

// Config carries the injected per-store settings.
type Config struct {
	Kind         string // snapshot document name, e.g. "intake"
	Cap          int    // retention cap, oldest records trimmed beyond it
	DefaultLimit int    // list limit when the caller passes none (default 20)
	MaxLimit     int    // list limit ceiling (default 50)

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Store holds the bounded sequence for one entity kind. All exported methods
// are safe for concurrent use; durability runs on one worker goroutine fed by
// a capacity-1 dirty signal, so at most one flush is in flight, flushes run in
// schedule order, and a burst of appends coalesces into fewer writes. Each
// flush serializes the snapshot current at flush time, not at schedule time.
type Store[T Record] struct {
	cfg Config
	m   mirror.Mirror
	obs Observer

	mu    sync.Mutex
	items []T

	dirty     chan struct{}
	syncCh    chan chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Open seeds the store from the mirror and starts its flush worker. A missing
// snapshot starts the store empty; a malformed snapshot (bad JSON, or any
// element failing validation) also starts it empty, so a corrupt file never
// produces a partially loaded store. Neither case fails Open.
func Open[T Record](cfg Config, m mirror.Mirror, obs Observer) (*Store[T], error) {
	if cfg.Kind == "" {
		return nil, errors.New("store: kind is required")
	}
	if cfg.Cap <= 0 {
		return nil, errors.New("store: cap must be positive")
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 50
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	s := &Store[T]{
		cfg:    cfg,
		m:      m,
		obs:    obs,
		dirty:  make(chan struct{}, 1),
		syncCh: make(chan chan struct{}),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if s.obs == nil {
		s.obs = nopObserver{}
	}
	s.load()
	go s.worker()
	return s, nil
}

func (s *Store[T]) load() {
	data, ok, err := s.m.Read(s.cfg.Kind)
	if err != nil {
		log.Printf("store %s: snapshot read failed, starting empty: %v", s.cfg.Kind, err)
		s.obs.SnapshotCorrupt(s.cfg.Kind)
		return
	}
	if !ok {
		log.Printf("store %s: no snapshot, starting empty", s.cfg.Kind)
		return
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		log.Printf("store %s: snapshot malformed, starting empty: %v", s.cfg.Kind, err)
		s.obs.SnapshotCorrupt(s.cfg.Kind)
		return
	}
	for _, it := range items {
		if it.EntityID() == "" {
			log.Printf("store %s: snapshot record missing id, starting empty", s.cfg.Kind)
			s.obs.SnapshotCorrupt(s.cfg.Kind)
			return
		}
		if err := it.Validate(); err != nil {
			log.Printf("store %s: snapshot record %s invalid, starting empty: %v", s.cfg.Kind, it.EntityID(), err)
			s.obs.SnapshotCorrupt(s.cfg.Kind)
			return
		}
	}
	if len(items) > s.cfg.Cap {
		items = items[:s.cfg.Cap]
	}
	s.items = items
	log.Printf("store %s: loaded %d records from snapshot", s.cfg.Kind, len(items))
}

// Append stamps the record, inserts it at the head, trims the tail beyond the
// cap and schedules a flush. It returns as soon as the in-memory mutation is
// done; durability is eventual. The record is expected to be validated by the
// caller before it gets here.
func (s *Store[T]) Append(rec T) T {
	rec.Stamp(s.cfg.NewID(), s.cfg.Now())
	s.mu.Lock()
	s.items = append([]T{rec}, s.items...)
	if len(s.items) > s.cfg.Cap {
		s.items = s.items[:s.cfg.Cap]
	}
	s.mu.Unlock()
	s.obs.RecordAppended(s.cfg.Kind)
	s.markDirty()
	return rec
}

// List returns up to ClampLimit(limit) most-recent records, head first.
func (s *Store[T]) List(limit int) []T {
	n := s.ClampLimit(limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.items) {
		n = len(s.items)
	}
	out := make([]T, n)
	copy(out, s.items[:n])
	return out
}

// ClampLimit applies the untrusted-limit contract: non-positive falls back to
// the default, anything above the ceiling is clamped to it.
func (s *Store[T]) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

// Find returns the first record matching pred, scanning head first. No index
// is kept; cardinalities stay in the low thousands.
func (s *Store[T]) Find(pred func(T) bool) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Update locates the first record matching match, applies mutate to a clone
// of it under the store lock and swaps the clone in, then schedules a flush.
// The stored record is replaced, never written in place, so pointers handed
// out earlier (to the flush worker or to callers still encoding a response)
// keep reading a consistent struct. mutate receives the current time so it
// can refresh updated-at style fields; returning an error from mutate aborts
// the update without scheduling a flush. Returns ErrNotFound when nothing
// matches.
func (s *Store[T]) Update(match func(T) bool, mutate func(T, time.Time) error) (T, error) {
	s.mu.Lock()
	for i, it := range s.items {
		if !match(it) {
			continue
		}
		clone := it.Clone().(T)
		if err := mutate(clone, s.cfg.Now()); err != nil {
			s.mu.Unlock()
			var zero T
			return zero, err
		}
		s.items[i] = clone
		s.mu.Unlock()
		s.markDirty()
		return clone, nil
	}
	s.mu.Unlock()
	var zero T
	return zero, ErrNotFound
}

// Snapshot returns a copy of the full retained sequence, head first.
func (s *Store[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Len reports the retained record count.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store[T]) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Store[T]) worker() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			// Final flush of anything still pending before shutdown.
			select {
			case <-s.dirty:
				s.flush()
			default:
			}
			return
		case <-s.dirty:
			s.flush()
		case ack := <-s.syncCh:
			select {
			case <-s.dirty:
			default:
			}
			s.flush()
			close(ack)
		}
	}
}

func (s *Store[T]) flush() {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		log.Printf("store %s: snapshot encode failed: %v", s.cfg.Kind, err)
		s.obs.FlushFailed(s.cfg.Kind)
		return
	}
	if err := s.m.Write(s.cfg.Kind, data); err != nil {
		log.Printf("store %s: flush failed: %v", s.cfg.Kind, err)
		s.obs.FlushFailed(s.cfg.Kind)
		return
	}
	s.obs.FlushOK(s.cfg.Kind)
}

// Sync blocks until a flush of the current in-memory state has completed.
// Used at shutdown and by restart round-trip tests.
func (s *Store[T]) Sync() {
	ack := make(chan struct{})
	select {
	case s.syncCh <- ack:
		<-ack
	case <-s.done:
	}
}

// Close performs a final flush and stops the worker.
func (s *Store[T]) Close() {
	s.closeOnce.Do(func() {
		s.Sync()
		close(s.quit)
		<-s.done
	})
}
