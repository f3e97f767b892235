// Package cart implements the storefront cart: an ordered list of product
// lines owned by a single store instance, kept durable through a key-value
// snapshot and mutated only through the operations below.
package cart

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// Subscriber receives the full cart snapshot after every mutation.
type Subscriber func(lines []domain.CartLine)

// Store owns the authoritative cart for one cart profile. All mutations
// are serialized under its lock; persistence is a detached best-effort
// write that never gates or fails the in-memory update, with stale
// snapshots discarded so storage always converges on the latest state.
type Store struct {
	kv     storage.KV
	key    string
	logger *zap.Logger

	mu          sync.Mutex
	lines       []domain.CartLine
	subscribers map[int]Subscriber
	nextSubID   int
	seq         uint64

	writes    sync.WaitGroup
	persistMu sync.Mutex
	persisted uint64 // highest seq handed to storage, guarded by persistMu
}

// NewStore creates a store bound to one storage key and rehydrates the
// last persisted snapshot. A missing or unreadable snapshot is not an
// error: the store starts empty and the failure is only logged.
func NewStore(ctx context.Context, kv storage.KV, key string, logger *zap.Logger) *Store {
	s := &Store{
		kv:          kv,
		key:         key,
		logger:      logger,
		subscribers: make(map[int]Subscriber),
	}

	raw, ok, err := kv.Read(ctx, key)
	if err != nil {
		logger.Error("Failed to load cart snapshot", zap.String("key", key), zap.Error(err))
		return s
	}
	if !ok {
		return s
	}

	lines, err := decodeSnapshot(raw)
	if err != nil {
		logger.Error("Discarding corrupt cart snapshot", zap.String("key", key), zap.Error(err))
		return s
	}
	s.lines = lines

	return s
}

// Add puts quantity units of the product into the cart. If a line for the
// product already exists its quantity accumulates; otherwise a new line is
// appended, so insertion order is the order of first addition. A zero
// quantity means the caller omitted it and counts as one.
func (s *Store) Add(product *domain.Product, quantity int) {
	if quantity == 0 {
		quantity = 1
	}

	s.mutate(func() {
		for i := range s.lines {
			if s.lines[i].ProductID == product.ID {
				s.lines[i].Quantity += quantity
				return
			}
		}
		s.lines = append(s.lines, domain.LineFromProduct(product, quantity))
	})
}

// Remove deletes the line for the product. Removing an absent product is
// a no-op, not an error.
func (s *Store) Remove(productID uuid.UUID) {
	s.mutate(func() {
		for i := range s.lines {
			if s.lines[i].ProductID == productID {
				s.lines = append(s.lines[:i], s.lines[i+1:]...)
				return
			}
		}
	})
}

// UpdateQuantity replaces the quantity on the product's line. A quantity
// of zero or less deletes the line instead, so no line ever holds a
// non-positive quantity. Absent products are a no-op.
func (s *Store) UpdateQuantity(productID uuid.UUID, quantity int) {
	if quantity <= 0 {
		s.Remove(productID)
		return
	}

	s.mutate(func() {
		for i := range s.lines {
			if s.lines[i].ProductID == productID {
				s.lines[i].Quantity = quantity
				return
			}
		}
	})
}

// Clear empties the cart. It always succeeds and also persists the empty
// snapshot, which is what checkout relies on.
func (s *Store) Clear() {
	s.mutate(func() {
		s.lines = nil
	})
}

// Total returns the sum of price times quantity over all lines. It is a
// pure read: no mutation, never an error, zero for an empty cart. A line
// rehydrated without a quantity counts as one unit.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, line := range s.lines {
		quantity := line.Quantity
		if quantity == 0 {
			quantity = 1
		}
		total += line.Price * float64(quantity)
	}
	return total
}

// Lines returns a copy of the current cart lines in insertion order.
// Callers must treat it as a snapshot valid only until the next change.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

// Len returns the number of distinct lines in the cart
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Subscribe registers fn to be called with the new snapshot after every
// mutation. The returned function unsubscribes it.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Flush blocks until all background snapshot writes issued so far have
// finished. Used on shutdown and in tests.
func (s *Store) Flush() {
	s.writes.Wait()
}

// mutate applies one state transition under the lock, then notifies
// subscribers and kicks off the detached persistence write. Each
// mutation takes a sequence number so persistence can tell snapshots
// apart even though the writes run on their own goroutines.
func (s *Store) mutate(apply func()) {
	s.mu.Lock()
	apply()
	s.seq++
	seq := s.seq
	snapshot := cloneLines(s.lines)
	subscribers := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(cloneLines(snapshot))
	}

	s.persist(snapshot, seq)
}

// persist serializes the snapshot and writes it in the background. The
// caller is never blocked and never sees the outcome; failures leave the
// in-memory cart as the session's source of truth and are only logged.
// Writes are serialized under persistMu and a snapshot older than one
// already handed to storage is dropped, so the slot never goes back in
// time no matter how the goroutines are scheduled.
func (s *Store) persist(snapshot []domain.CartLine, seq uint64) {
	raw, err := encodeSnapshot(snapshot)
	if err != nil {
		s.logger.Error("Failed to encode cart snapshot", zap.String("key", s.key), zap.Error(err))
		return
	}

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()

		s.persistMu.Lock()
		defer s.persistMu.Unlock()

		if seq <= s.persisted {
			// A newer snapshot already reached storage
			return
		}
		s.persisted = seq

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := s.kv.Write(ctx, s.key, raw); err != nil {
			s.logger.Error("Failed to persist cart snapshot", zap.String("key", s.key), zap.Error(err))
		}
	}()
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}
