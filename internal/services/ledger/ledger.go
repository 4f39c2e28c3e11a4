package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/asikdev/shopledger/internal/config"
	"github.com/asikdev/shopledger/internal/repos/accounts"
	pgaccounts "github.com/asikdev/shopledger/internal/repos/accounts/postgres"
	"github.com/asikdev/shopledger/internal/repos/entries"
	pgentries "github.com/asikdev/shopledger/internal/repos/entries/postgres"
	"github.com/asikdev/shopledger/internal/repos/products"
	pgproducts "github.com/asikdev/shopledger/internal/repos/products/postgres"
	"github.com/asikdev/shopledger/internal/repos/requests"
	pgrequests "github.com/asikdev/shopledger/internal/repos/requests/postgres"
)

// Service is the transactional ledger engine. It holds no mutable state
// of its own: every balance-changing operation is composed from the
// stores' atomic primitives inside a single DB transaction, so the
// engine itself may be called from any number of goroutines.
type Service struct {
	db       *sql.DB
	accounts accounts.Accounts
	requests requests.Requests
	products products.Products
	entries  entries.Entries
	notifier Notifier
	cfg      config.LedgerConfig
}

func New(db *sql.DB, notifier Notifier, cfg config.LedgerConfig) *Service {
	return &Service{
		db:       db,
		accounts: pgaccounts.New(db),
		requests: pgrequests.New(db),
		products: pgproducts.New(db),
		entries:  pgentries.New(db),
		notifier: notifier,
		cfg:      cfg,
	}
}

// GetBalance returns the current balance in minor units; unknown accounts
// read as 0.
func (s *Service) GetBalance(ctx context.Context, accountID uint64) (int64, error) {
	balance, err := s.accounts.GetBalance(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// History returns the account's most recent deposit and withdraw
// requests, newest first.
func (s *Service) History(ctx context.Context, accountID uint64, limit int) ([]requests.Request, []requests.Request, error) {
	deps, err := s.requests.ListByAccount(ctx, accountID, requests.KindDeposit, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("list deposits: %w", err)
	}

	wds, err := s.requests.ListByAccount(ctx, accountID, requests.KindWithdraw, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("list withdraws: %w", err)
	}

	return deps, wds, nil
}

// AccountCount is the admin panel's total-users figure.
func (s *Service) AccountCount(ctx context.Context) (int64, error) {
	n, err := s.accounts.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}

	return n, nil
}

// --- Product catalog pass-throughs for the admin surface.

func (s *Service) ListProducts(ctx context.Context) ([]products.Product, error) {
	return s.products.List(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*products.Product, error) {
	return s.products.Get(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p *products.Product) error {
	if p.PriceMinor < 0 || p.Stock < 0 {
		return ErrInvalidAmount
	}

	return s.products.Create(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, p *products.Product) error {
	if p.PriceMinor < 0 || p.Stock < 0 {
		return ErrInvalidAmount
	}

	return s.products.Update(ctx, p)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.products.Delete(ctx, id)
}

// publish marshals the event and hands it to the notifier. Failures are
// logged, not returned: the decision/submission is already durable and
// the sweeper re-delivers anything whose notified flag never flipped.
func (s *Service) publish(ctx context.Context, id, topic string, event any) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal event", "topic", topic, "id", id, "error", err)
		return false
	}

	err = s.notifier.Publish(ctx, id, topic, payload)
	if err != nil {
		slog.Warn("publish event failed, sweep will retry", "topic", topic, "id", id, "error", err)
		return false
	}

	return true
}

// notifyAdmin publishes the submission alert and records delivery.
func (s *Service) notifyAdmin(ctx context.Context, requestID string, event any) {
	if !s.publish(ctx, requestID, TopicAdminAlerts, event) {
		return
	}

	err := s.requests.MarkAdminNotified(ctx, requestID)
	if err != nil {
		slog.Warn("mark admin notified", "request_id", requestID, "error", err)
	}
}

// notifyUser publishes the outcome event and records delivery.
func (s *Service) notifyUser(ctx context.Context, requestID string, event any) {
	if !s.publish(ctx, requestID, TopicUserEvents, event) {
		return
	}

	err := s.requests.MarkUserNotified(ctx, requestID)
	if err != nil {
		slog.Warn("mark user notified", "request_id", requestID, "error", err)
	}
}
