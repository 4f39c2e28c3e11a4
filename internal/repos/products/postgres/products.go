package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asikdev/shopledger/internal/repos/products"
)

var _ products.Products = (*productsRepo)(nil)

type productsRepo struct{ db *sql.DB }

func New(db *sql.DB) *productsRepo {
	return &productsRepo{db: db}
}

const productColumns = `id, name, price_minor, stock, delivery_payload, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*products.Product, error) {
	var p products.Product

	err := row.Scan(&p.ID, &p.Name, &p.PriceMinor, &p.Stock, &p.DeliveryPayload, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *productsRepo) Get(ctx context.Context, id string) (*products.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, products.ErrNotFound
		}

		return nil, fmt.Errorf("get product: %w", err)
	}

	return p, nil
}

// LockAndGet takes the product's row lock for the rest of tx. Purchase
// locks the product before touching the buyer's account so concurrent
// purchases always acquire locks in the same order.
func (r *productsRepo) LockAndGet(tx *sql.Tx, id string) (*products.Product, error) {
	p, err := scanProduct(tx.QueryRow(`
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, products.ErrNotFound
		}

		return nil, fmt.Errorf("lock product: %w", err)
	}

	return p, nil
}

func (r *productsRepo) List(ctx context.Context) ([]products.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []products.Product

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		out = append(out, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return out, nil
}

func (r *productsRepo) Create(ctx context.Context, p *products.Product) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, price_minor, stock, delivery_payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.ID, p.Name, p.PriceMinor, p.Stock, p.DeliveryPayload).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *productsRepo) Update(ctx context.Context, p *products.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price_minor = $3, stock = $4, delivery_payload = $5
		WHERE id = $1
	`, p.ID, p.Name, p.PriceMinor, p.Stock, p.DeliveryPayload)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return products.ErrNotFound
	}

	return nil
}

func (r *productsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM products
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return products.ErrNotFound
	}

	return nil
}

// DecrementStockIfAvailable takes one unit off the shelf only if there is
// one. Check and decrement are a single guarded UPDATE; zero affected
// rows means the stock is gone (or the product is), never a partial sale.
func (r *productsRepo) DecrementStockIfAvailable(tx *sql.Tx, id string) error {
	res, err := tx.Exec(`
		UPDATE products
		SET stock = stock - 1
		WHERE id = $1
		  AND stock > 0
	`, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return products.ErrOutOfStock
	}

	return nil
}
