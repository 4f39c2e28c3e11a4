package products

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("product not found")
	ErrOutOfStock = errors.New("product out of stock")
)

type Product struct {
	ID              string
	Name            string
	PriceMinor      int64
	Stock           int64
	DeliveryPayload string
	CreatedAt       time.Time
}

// Products is the catalog. DecrementStockIfAvailable carries the only
// concurrency hazard: the stock check and decrement are one atomic step
// so the last unit can never be sold twice.
type Products interface {
	Get(ctx context.Context, id string) (*Product, error)
	LockAndGet(tx *sql.Tx, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	DecrementStockIfAvailable(tx *sql.Tx, id string) error
}
