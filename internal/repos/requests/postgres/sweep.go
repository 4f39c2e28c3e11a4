package requests

import (
	"context"

	"github.com/asikdev/shopledger/internal/repos/requests"
)

// ListUnappliedApproved returns approved requests with no matching ledger
// entry: decisions recorded whose balance effect never landed. Under the
// normal single-transaction decide path this is empty; the reconciliation
// sweep replays whatever shows up here.
func (r *requestsRepo) ListUnappliedApproved(ctx context.Context, limit int) ([]requests.Request, error) {
	return r.list(ctx, `
		SELECT `+requestColumns+`
		FROM requests r
		WHERE r.status = 'approved'
		  AND NOT EXISTS (
			SELECT 1 FROM ledger_entries e WHERE e.request_id = r.id
		  )
		ORDER BY r.decided_at ASC
		LIMIT $1
	`, limit)
}

// ListAdminUnnotified returns requests whose submission alert never
// reached the admin channel.
func (r *requestsRepo) ListAdminUnnotified(ctx context.Context, limit int) ([]requests.Request, error) {
	return r.list(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE admin_notified = FALSE
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
}

// ListUserUnnotified returns decided requests the user was never told
// about. Approved rows only qualify once their ledger entry exists, so an
// outcome is never announced before its balance effect is applied.
func (r *requestsRepo) ListUserUnnotified(ctx context.Context, limit int) ([]requests.Request, error) {
	return r.list(ctx, `
		SELECT `+requestColumns+`
		FROM requests r
		WHERE r.status <> 'pending'
		  AND r.user_notified = FALSE
		  AND (
			r.status = 'rejected'
			OR EXISTS (SELECT 1 FROM ledger_entries e WHERE e.request_id = r.id)
		  )
		ORDER BY r.decided_at ASC
		LIMIT $1
	`, limit)
}
