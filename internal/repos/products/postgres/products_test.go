package products

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/asikdev/shopledger/internal/infra/pgtestutil"
	"github.com/asikdev/shopledger/internal/repos/products"
)

func TestProducts_CRUD(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	p := &products.Product{
		ID:              uuid.NewString(),
		Name:            "Premium 30d",
		PriceMinor:      30_000,
		Stock:           5,
		DeliveryPayload: "login: x / pass: y",
	}

	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != p.Name || got.PriceMinor != p.PriceMinor || got.Stock != p.Stock {
		t.Fatalf("get mismatch: %+v", got)
	}

	p.PriceMinor = 25_000
	p.Stock = 3
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].PriceMinor != 25_000 {
		t.Fatalf("list after update: %+v", items)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.Get(ctx, p.ID); !errors.Is(err, products.ErrNotFound) {
		t.Fatalf("get after delete: want ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, p.ID); !errors.Is(err, products.ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
}

func TestProducts_DecrementStock_GuardsZero(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	p := &products.Product{ID: uuid.NewString(), Name: "Single", PriceMinor: 100, Stock: 1}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}

	if err := repo.DecrementStockIfAvailable(tx, p.ID); err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	if err := repo.DecrementStockIfAvailable(tx, p.ID); !errors.Is(err, products.ErrOutOfStock) {
		t.Fatalf("second decrement: want ErrOutOfStock, got %v", err)
	}

	_ = tx.Rollback()
}

func TestProducts_DecrementStock_ConcurrentLastUnit(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	p := &products.Product{ID: uuid.NewString(), Name: "Last unit", PriceMinor: 100, Stock: 1}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold, outOfStock := 0, 0

	worker := func(name string) {
		defer wg.Done()

		tx, err := db.Begin()
		if err != nil {
			t.Errorf("[%s] begin tx: %v", name, err)
			return
		}
		defer tx.Rollback()

		err = repo.DecrementStockIfAvailable(tx, p.ID)
		if err == nil {
			if err := tx.Commit(); err != nil {
				t.Errorf("[%s] commit: %v", name, err)
				return
			}
			mu.Lock()
			sold++
			mu.Unlock()
			return
		}

		if errors.Is(err, products.ErrOutOfStock) {
			mu.Lock()
			outOfStock++
			mu.Unlock()
			return
		}

		t.Errorf("[%s] unexpected error: %v", name, err)
	}

	wg.Add(2)
	go worker("A")
	go worker("B")
	wg.Wait()

	if sold != 1 || outOfStock != 1 {
		t.Fatalf("want 1 sale and 1 out-of-stock, got sold=%d oos=%d", sold, outOfStock)
	}

	got, err := repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("final stock: want 0, got %d", got.Stock)
	}
}
