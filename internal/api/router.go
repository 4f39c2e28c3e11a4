package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/asikdev/shopledger/internal/services/ledger"
)

// NewRouter registers all API endpoints. Everything under /admin is the
// decision surface and sits behind the admin capability check; the
// ledger engine itself never inspects identity.
func NewRouter(svc *ledger.Service, adminToken string) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/user/{userId}/balance", h.GetBalanceHandler)
	r.Get("/user/{userId}/history", h.HistoryHandler)
	r.Post("/user/{userId}/deposits", h.SubmitDepositHandler)
	r.Post("/user/{userId}/withdrawals", h.SubmitWithdrawHandler)
	r.Post("/user/{userId}/purchases", h.PurchaseHandler)

	r.Get("/products", h.ListProductsHandler)

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdmin(adminToken))

		r.Post("/deposits/{requestId}/decision", h.DecideDepositHandler)
		r.Post("/withdrawals/{requestId}/decision", h.DecideWithdrawHandler)

		r.Get("/stats", h.StatsHandler)

		r.Post("/products", h.CreateProductHandler)
		r.Put("/products/{productId}", h.UpdateProductHandler)
		r.Delete("/products/{productId}", h.DeleteProductHandler)
	})

	return r
}
