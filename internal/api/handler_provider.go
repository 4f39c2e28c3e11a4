package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/asikdev/shopledger/internal/repos/accounts"
	"github.com/asikdev/shopledger/internal/repos/products"
	"github.com/asikdev/shopledger/internal/repos/requests"
	"github.com/asikdev/shopledger/internal/services/ledger"
)

const maxBodyBytes = 1 << 20 // 1MB cap

// HandlerProvider wraps the ledger service and exposes HTTP handlers.
type HandlerProvider struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *HandlerProvider {
	return &HandlerProvider{svc: svc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)

		http.Error(w, `{"error":"internal json encode failure"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps ledger errors to specific, actionable responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid amount")
	case errors.Is(err, ledger.ErrBelowMinimum):
		writeError(w, http.StatusBadRequest, "amount below withdraw minimum")
	case errors.Is(err, ledger.ErrInvalidMethod):
		writeError(w, http.StatusBadRequest, "invalid payment method")
	case errors.Is(err, accounts.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "insufficient balance")
	case errors.Is(err, products.ErrOutOfStock):
		writeError(w, http.StatusConflict, "out of stock")
	case errors.Is(err, requests.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "request already decided")
	case errors.Is(err, requests.ErrNotFound):
		writeError(w, http.StatusNotFound, "request not found")
	case errors.Is(err, products.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseUserIDFromPath reads `{userId}` from chi routes.
func parseUserIDFromPath(r *http.Request) (uint64, error) {
	idStr := chi.URLParam(r, "userId")
	if idStr == "" {
		return 0, fmt.Errorf("missing userId")
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid userId: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("invalid userId: must be positive")
	}

	return id, nil
}

// parseAmountMinor converts a decimal BDT string with up to 2 fractional
// digits into poisha. Negative and zero amounts are rejected here; the
// engine re-validates.
func parseAmountMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount required")
	}
	if s[0] == '+' || s[0] == '-' {
		return 0, fmt.Errorf("amount must be an unsigned decimal")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid amount")
	}

	frac := "00"
	if len(parts) == 2 {
		if len(parts[1]) > 2 {
			return 0, fmt.Errorf("amount supports up to 2 decimals")
		}
		frac = parts[1] + strings.Repeat("0", 2-len(parts[1]))
	}

	ip, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount integer")
	}
	fp, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount fractional")
	}

	total := ip*100 + fp
	if total <= 0 {
		return 0, fmt.Errorf("amount must be > 0")
	}

	return total, nil
}

func formatMinor(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

func parseDecision(s string) (requests.Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return requests.DecisionApprove, nil
	case "reject":
		return requests.DecisionReject, nil
	default:
		return "", fmt.Errorf("invalid decision")
	}
}

// --- User surface ---

// GetBalanceHandler handles GET /user/{userId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	bal, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"balance": formatMinor(bal),
	})
}

type requestView struct {
	RequestID string `json:"requestId"`
	Method    string `json:"method"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func toRequestViews(reqs []requests.Request) []requestView {
	out := make([]requestView, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, requestView{
			RequestID: req.ID,
			Method:    req.Method,
			Amount:    formatMinor(req.AmountMinor),
			Status:    string(req.Status),
			Reason:    req.Reason,
			CreatedAt: req.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	return out
}

// HistoryHandler handles GET /user/{userId}/history
func (h *HandlerProvider) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	deps, wds, err := h.svc.History(r.Context(), userID, 5)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deposits":    toRequestViews(deps),
		"withdrawals": toRequestViews(wds),
	})
}

type submitDepositRequest struct {
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	Method        string `json:"method"`
	Sender        string `json:"sender"`
	TxRef         string `json:"txRef"`
	ScreenshotRef string `json:"screenshotRef"`
}

// SubmitDepositHandler handles POST /user/{userId}/deposits
func (h *HandlerProvider) SubmitDepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	var req submitDepositRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID, err := h.svc.SubmitDeposit(r.Context(), userID, req.Name, amountMinor,
		req.Method, req.Sender, req.TxRef, req.ScreenshotRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"requestId": requestID})
}

type submitWithdrawRequest struct {
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	Method  string `json:"method"`
	Address string `json:"address"`
}

// SubmitWithdrawHandler handles POST /user/{userId}/withdrawals
func (h *HandlerProvider) SubmitWithdrawHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	var req submitWithdrawRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.svc.SubmitWithdraw(r.Context(), userID, req.Name, amountMinor,
		req.Method, req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"requestId": receipt.RequestID,
		"gross":     formatMinor(receipt.GrossMinor),
		"fee":       formatMinor(receipt.FeeMinor),
		"payout":    formatMinor(receipt.PayoutMinor),
	})
}

type purchaseRequest struct {
	Name      string `json:"name"`
	ProductID string `json:"productId"`
}

// PurchaseHandler handles POST /user/{userId}/purchases
func (h *HandlerProvider) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	var req purchaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId required")
		return
	}

	outcome, err := h.svc.Purchase(r.Context(), userID, req.Name, req.ProductID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"purchaseId":  outcome.PurchaseID,
		"productName": outcome.ProductName,
		"price":       formatMinor(outcome.PriceMinor),
		"delivery":    outcome.DeliveryPayload,
	})
}

// ListProductsHandler handles GET /products. Delivery payloads are only
// revealed through a purchase, never in the listing.
func (h *HandlerProvider) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type productView struct {
		ProductID string `json:"productId"`
		Name      string `json:"name"`
		Price     string `json:"price"`
		Stock     int64  `json:"stock"`
	}

	out := make([]productView, 0, len(items))
	for _, p := range items {
		out = append(out, productView{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     formatMinor(p.PriceMinor),
			Stock:     p.Stock,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

// --- Admin surface ---

type decisionRequest struct {
	Decision string `json:"decision"`
}

func (h *HandlerProvider) decide(w http.ResponseWriter, r *http.Request, kind requests.Kind) {
	requestID := chi.URLParam(r, "requestId")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "missing requestId")
		return
	}

	var req decisionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := parseDecision(req.Decision)
	if err != nil {
		writeError(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}

	if kind == requests.KindDeposit {
		outcome, err := h.svc.DecideDeposit(r.Context(), requestID, decision)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"requestId": outcome.RequestID,
			"approved":  outcome.Approved,
			"amount":    formatMinor(outcome.AmountMinor),
		})

		return
	}

	outcome, err := h.svc.DecideWithdraw(r.Context(), requestID, decision)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"requestId": outcome.RequestID,
		"approved":  outcome.Approved,
		"gross":     formatMinor(outcome.GrossMinor),
		"fee":       formatMinor(outcome.FeeMinor),
		"payout":    formatMinor(outcome.PayoutMinor),
		"reason":    outcome.Reason,
	})
}

// DecideDepositHandler handles POST /admin/deposits/{requestId}/decision
func (h *HandlerProvider) DecideDepositHandler(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, requests.KindDeposit)
}

// DecideWithdrawHandler handles POST /admin/withdrawals/{requestId}/decision
func (h *HandlerProvider) DecideWithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, requests.KindWithdraw)
}

// StatsHandler handles GET /admin/stats
func (h *HandlerProvider) StatsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.AccountCount(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"totalUsers": n})
}

type productRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Stock    int64  `json:"stock"`
	Delivery string `json:"delivery"`
}

// CreateProductHandler handles POST /admin/products
func (h *HandlerProvider) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	priceMinor, err := parseAmountMinor(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Name == "" || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "name required and stock must be >= 0")
		return
	}

	p := &products.Product{
		ID:              newProductID(),
		Name:            req.Name,
		PriceMinor:      priceMinor,
		Stock:           req.Stock,
		DeliveryPayload: req.Delivery,
	}

	if err := h.svc.CreateProduct(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"productId": p.ID})
}

// UpdateProductHandler handles PUT /admin/products/{productId}
func (h *HandlerProvider) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "missing productId")
		return
	}

	var req productRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	priceMinor, err := parseAmountMinor(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &products.Product{
		ID:              productID,
		Name:            req.Name,
		PriceMinor:      priceMinor,
		Stock:           req.Stock,
		DeliveryPayload: req.Delivery,
	}

	if err := h.svc.UpdateProduct(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteProductHandler handles DELETE /admin/products/{productId}
func (h *HandlerProvider) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "missing productId")
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), productID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
