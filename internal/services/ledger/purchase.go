package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/asikdev/shopledger/internal/infra/pgutils"
	"github.com/asikdev/shopledger/internal/repos/accounts"
	"github.com/asikdev/shopledger/internal/repos/entries"
	"github.com/asikdev/shopledger/internal/repos/products"
)

// Purchase debits the buyer and takes one unit of stock in a single
// transaction, so a failed step can never strand a debit: if the last
// unit goes to a concurrent buyer, this transaction rolls back whole and
// the loser's balance is exactly what it was. Lock order is fixed,
// product row first, then the buyer's account row.
func (s *Service) Purchase(ctx context.Context, accountID uint64, name string, productID string) (*PurchaseOutcome, error) {
	purchaseID := uuid.NewString()

	var prod *products.Product

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		p, err := s.products.LockAndGet(tx, productID)
		if err != nil {
			return err
		}

		prod = p

		if p.Stock <= 0 {
			return products.ErrOutOfStock
		}

		err = s.accounts.Ensure(tx, accountID, name)
		if err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}

		err = s.accounts.DebitIfSufficient(tx, accountID, p.PriceMinor)
		if err != nil {
			return err
		}

		err = s.products.DecrementStockIfAvailable(tx, productID)
		if err != nil {
			return err
		}

		err = s.entries.Insert(tx, entries.Entry{
			AccountID:  accountID,
			DeltaMinor: -p.PriceMinor,
			Reason:     entries.ReasonPurchase,
			RequestID:  purchaseID,
		})
		if err != nil {
			return fmt.Errorf("append entry: %w", err)
		}

		return nil
	})
	if err != nil {
		// Terminal domain refusals still produce a user-facing event;
		// infrastructure errors do not.
		if errors.Is(err, products.ErrOutOfStock) || errors.Is(err, accounts.ErrInsufficientFunds) {
			productName := ""
			if prod != nil {
				productName = prod.Name
			}

			s.publish(ctx, purchaseID, TopicUserEvents, PurchaseResult{
				PurchaseID:  purchaseID,
				AccountID:   accountID,
				ProductName: productName,
				Delivered:   false,
				Reason:      err.Error(),
			})
		}

		return nil, err
	}

	s.publish(ctx, purchaseID, TopicUserEvents, PurchaseResult{
		PurchaseID:      purchaseID,
		AccountID:       accountID,
		ProductName:     prod.Name,
		Delivered:       true,
		DeliveryPayload: prod.DeliveryPayload,
	})

	return &PurchaseOutcome{
		PurchaseID:      purchaseID,
		AccountID:       accountID,
		ProductName:     prod.Name,
		PriceMinor:      prod.PriceMinor,
		DeliveryPayload: prod.DeliveryPayload,
	}, nil
}
