package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/asikdev/shopledger/internal/infra/pgtestutil"
)

func TestAccounts_GetBalance_UnknownAccountReadsZero(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := repo.GetBalance(ctx, 424242)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if got != 0 {
		t.Fatalf("unknown account: want balance 0, got %d", got)
	}
}

func TestAccounts_Credit_CreatesRowAndAccumulates(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	for _, amount := range []int64{500, 250} {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin tx: %v", err)
		}

		if err := repo.Credit(tx, 7, amount); err != nil {
			t.Fatalf("credit %d: %v", amount, err)
		}

		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	got, err := repo.GetBalance(ctx, 7)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if got != 750 {
		t.Fatalf("balance after credits: want 750, got %d", got)
	}
}

func TestAccounts_Ensure_KeepsExistingBalanceAndName(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}

	if err := repo.Ensure(tx, 9, "Asik"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := repo.Credit(tx, 9, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	// second touch with empty name must not reset anything
	if err := repo.Ensure(tx, 9, ""); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := repo.GetBalance(ctx, 9)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if got != 100 {
		t.Fatalf("balance after re-ensure: want 100, got %d", got)
	}

	var name string
	if err := db.QueryRow(`SELECT name FROM accounts WHERE id = 9`).Scan(&name); err != nil {
		t.Fatalf("read name: %v", err)
	}
	if name != "Asik" {
		t.Fatalf("name after re-ensure: want Asik, got %q", name)
	}
}

func TestAccounts_Count(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	seedAccount(t, db, 1, 0)
	seedAccount(t, db, 2, 0)

	got, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got != 2 {
		t.Fatalf("count: want 2, got %d", got)
	}
}
