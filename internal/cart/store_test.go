package cart

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*Store, *storage.MemoryKV) {
	t.Helper()
	kv := storage.NewMemoryKV()
	store := NewStore(context.Background(), kv, "cart:test", zap.NewNop())
	return store, kv
}

func testProduct(title string, price float64) *domain.Product {
	return &domain.Product{
		ID:    uuid.New(),
		Title: title,
		Price: price,
	}
}

func TestAddAccumulatesQuantityOnExistingLine(t *testing.T) {
	store, _ := newTestStore(t)
	product := testProduct("Widget", 9.99)

	store.Add(product, 2)
	store.Add(product, 3)

	lines := store.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", lines[0].Quantity)
	}
}

func TestAddDefaultsOmittedQuantityToOne(t *testing.T) {
	store, _ := newTestStore(t)

	store.Add(testProduct("Widget", 9.99), 0)

	lines := store.Lines()
	if len(lines) != 1 || lines[0].Quantity != 1 {
		t.Fatalf("expected one line with quantity 1, got %+v", lines)
	}
}

func TestAddPreservesInsertionOrder(t *testing.T) {
	store, _ := newTestStore(t)
	first := testProduct("First", 1)
	second := testProduct("Second", 2)
	third := testProduct("Third", 3)

	store.Add(first, 1)
	store.Add(second, 1)
	store.Add(third, 1)
	store.Add(second, 4) // accumulating must not reorder

	lines := store.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	want := []uuid.UUID{first.ID, second.ID, third.ID}
	for i, id := range want {
		if lines[i].ProductID != id {
			t.Errorf("line %d: expected product %s, got %s", i, id, lines[i].ProductID)
		}
	}
	if lines[1].Quantity != 5 {
		t.Errorf("expected accumulated quantity 5, got %d", lines[1].Quantity)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	product := testProduct("Widget", 9.99)

	store.Add(product, 1)
	store.Remove(product.ID)
	store.Remove(product.ID) // second removal is a no-op

	if store.Len() != 0 {
		t.Errorf("expected empty cart, got %d lines", store.Len())
	}
}

func TestRemoveUnknownProductIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)
	store.Add(testProduct("Widget", 9.99), 1)

	store.Remove(uuid.New())

	if store.Len() != 1 {
		t.Errorf("expected cart untouched, got %d lines", store.Len())
	}
}

func TestUpdateQuantityReplacesExactly(t *testing.T) {
	store, _ := newTestStore(t)
	product := testProduct("Widget", 9.99)

	store.Add(product, 5)
	store.UpdateQuantity(product.ID, 2)

	lines := store.Lines()
	if lines[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", lines[0].Quantity)
	}
}

func TestUpdateQuantityNonPositiveRemovesLine(t *testing.T) {
	for _, quantity := range []int{0, -1, -100} {
		store, _ := newTestStore(t)
		product := testProduct("Widget", 9.99)

		store.Add(product, 3)
		store.UpdateQuantity(product.ID, quantity)

		if store.Len() != 0 {
			t.Errorf("quantity %d: expected line removed, cart has %d lines", quantity, store.Len())
		}
	}
}

func TestTotal(t *testing.T) {
	store, _ := newTestStore(t)

	if got := store.Total(); got != 0 {
		t.Errorf("empty cart total: expected 0, got %v", got)
	}

	store.Add(testProduct("A", 10), 2)
	store.Add(testProduct("B", 5.5), 1)

	if got := store.Total(); got != 25.5 {
		t.Errorf("expected total 25.5, got %v", got)
	}
}

func TestClearEmptiesCartAndTotal(t *testing.T) {
	store, kv := newTestStore(t)
	store.Add(testProduct("Widget", 9.99), 3)

	store.Clear()
	store.Flush()

	if store.Len() != 0 {
		t.Errorf("expected empty cart, got %d lines", store.Len())
	}
	if got := store.Total(); got != 0 {
		t.Errorf("expected total 0, got %v", got)
	}

	// The empty snapshot must be persisted too
	raw, ok, err := kv.Read(context.Background(), "cart:test")
	if err != nil || !ok {
		t.Fatalf("expected persisted snapshot, ok=%v err=%v", ok, err)
	}
	if raw != "[]" {
		t.Errorf("expected empty snapshot, got %q", raw)
	}
}

func TestSequentialMutationsPersistLatestSnapshot(t *testing.T) {
	kv := storage.NewMemoryKV()
	store := NewStore(context.Background(), kv, "cart:test", zap.NewNop())

	first := testProduct("First", 10)
	second := testProduct("Second", 5.5)

	store.Add(first, 2)
	store.Add(second, 1)
	store.UpdateQuantity(first.ID, 5)
	store.Remove(second.ID)
	store.Flush()

	raw, ok, err := kv.Read(context.Background(), "cart:test")
	if err != nil || !ok {
		t.Fatalf("expected persisted snapshot, ok=%v err=%v", ok, err)
	}
	persisted, err := decodeSnapshot(raw)
	if err != nil {
		t.Fatalf("failed to decode persisted snapshot: %v", err)
	}

	want := store.Lines()
	if len(persisted) != len(want) {
		t.Fatalf("persisted snapshot has %d lines, in-memory cart has %d", len(persisted), len(want))
	}
	for i := range want {
		if persisted[i] != want[i] {
			t.Errorf("line %d: persisted %+v, in-memory %+v", i, persisted[i], want[i])
		}
	}
}

func TestClearAfterAddDoesNotResurrectOnReload(t *testing.T) {
	kv := storage.NewMemoryKV()
	store := NewStore(context.Background(), kv, "cart:test", zap.NewNop())

	store.Add(testProduct("Widget", 9.99), 2)
	store.Clear()
	store.Flush()

	reloaded := NewStore(context.Background(), kv, "cart:test", zap.NewNop())

	if reloaded.Len() != 0 {
		t.Errorf("expected empty cart after reload, got %d lines", reloaded.Len())
	}
}

func TestRehydrationRoundTrip(t *testing.T) {
	kv := storage.NewMemoryKV()
	store := NewStore(context.Background(), kv, "cart:test", zap.NewNop())

	first := testProduct("First", 9.99)
	first.ImageURL = "https://example.com/first.jpg"
	second := testProduct("Second", 5.5)

	store.Add(first, 2)
	store.Add(second, 1)
	store.Flush()

	reloaded := NewStore(context.Background(), kv, "cart:test", zap.NewNop())

	want := store.Lines()
	got := reloaded.Lines()
	if len(got) != len(want) {
		t.Fatalf("expected %d lines after reload, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if reloaded.Total() != store.Total() {
		t.Errorf("total changed across reload: %v vs %v", store.Total(), reloaded.Total())
	}
}

func TestCorruptSnapshotFallsBackToEmptyCart(t *testing.T) {
	kv := storage.NewMemoryKV()
	if err := kv.Write(context.Background(), "cart:test", `{"not":"an array`); err != nil {
		t.Fatal(err)
	}

	store := NewStore(context.Background(), kv, "cart:test", zap.NewNop())

	if store.Len() != 0 {
		t.Errorf("expected empty cart after corrupt snapshot, got %d lines", store.Len())
	}
}

func TestStringPriceSnapshotIsCoerced(t *testing.T) {
	// postgres NUMERIC columns often serialize as strings
	kv := storage.NewMemoryKV()
	raw := `[{"id":"550e8400-e29b-41d4-a716-446655440000","title":"Widget","price":"9.99","quantity":2},` +
		`{"id":"550e8400-e29b-41d4-a716-446655440001","title":"Broken","price":"not a number","quantity":1}]`
	if err := kv.Write(context.Background(), "cart:test", raw); err != nil {
		t.Fatal(err)
	}

	store := NewStore(context.Background(), kv, "cart:test", zap.NewNop())

	if store.Len() != 2 {
		t.Fatalf("expected 2 lines, got %d", store.Len())
	}
	// 9.99*2 + 0*1
	if got := store.Total(); got != 19.98 {
		t.Errorf("expected total 19.98, got %v", got)
	}
}

func TestMissingQuantityCountsAsOne(t *testing.T) {
	kv := storage.NewMemoryKV()
	raw := `[{"id":"550e8400-e29b-41d4-a716-446655440000","title":"Widget","price":4}]`
	if err := kv.Write(context.Background(), "cart:test", raw); err != nil {
		t.Fatal(err)
	}

	store := NewStore(context.Background(), kv, "cart:test", zap.NewNop())

	if got := store.Total(); got != 4 {
		t.Errorf("expected total 4, got %v", got)
	}
}

type failingKV struct{}

func (failingKV) Read(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}

func (failingKV) Write(context.Context, string, string) error {
	return errors.New("storage unavailable")
}

func TestWriteFailureLeavesInMemoryCartIntact(t *testing.T) {
	store := NewStore(context.Background(), failingKV{}, "cart:test", zap.NewNop())

	product := testProduct("Widget", 9.99)
	store.Add(product, 2)
	store.Flush()

	lines := store.Lines()
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("expected in-memory cart to survive write failure, got %+v", lines)
	}
	if got := store.Total(); got != 19.98 {
		t.Errorf("expected total 19.98, got %v", got)
	}
}

func TestSubscribersSeeEveryMutation(t *testing.T) {
	store, _ := newTestStore(t)

	var snapshots [][]domain.CartLine
	unsubscribe := store.Subscribe(func(lines []domain.CartLine) {
		snapshots = append(snapshots, lines)
	})

	product := testProduct("Widget", 9.99)
	store.Add(product, 1)
	store.UpdateQuantity(product.ID, 3)
	store.Clear()

	if len(snapshots) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(snapshots))
	}
	if snapshots[0][0].Quantity != 1 || snapshots[1][0].Quantity != 3 || len(snapshots[2]) != 0 {
		t.Errorf("unexpected snapshots: %+v", snapshots)
	}

	unsubscribe()
	store.Add(product, 1)

	if len(snapshots) != 3 {
		t.Errorf("expected no notification after unsubscribe, got %d", len(snapshots))
	}
}

func TestManagerKeepsProfilesIndependent(t *testing.T) {
	kv := storage.NewMemoryKV()
	manager := NewManager(kv, "cart", zap.NewNop())
	ctx := context.Background()

	a := manager.Store(ctx, "profile-a")
	b := manager.Store(ctx, "profile-b")

	a.Add(testProduct("Widget", 9.99), 2)

	if b.Len() != 0 {
		t.Errorf("expected profile-b cart empty, got %d lines", b.Len())
	}
	if got := manager.Store(ctx, "profile-a"); got != a {
		t.Errorf("expected the same store instance for a profile")
	}

	manager.Flush()

	if _, ok, _ := kv.Read(ctx, "cart:profile-a"); !ok {
		t.Errorf("expected profile-a snapshot persisted under its own key")
	}
	if _, ok, _ := kv.Read(ctx, "cart:profile-b"); ok {
		t.Errorf("did not expect a snapshot for the untouched profile-b")
	}
}
