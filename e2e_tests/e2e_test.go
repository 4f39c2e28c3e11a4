package e2etests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// The suite runs against an already started stack (API, Postgres,
// RabbitMQ). ADMIN_TOKEN must match the token the service was started
// with, otherwise the decision endpoints reject us.
const (
	timeout   = 5 * time.Second
	waitReady = 20 * time.Second
)

var (
	baseURL    = envOr("E2E_BASE_URL", "http://localhost:8080")
	adminToken = envOr("ADMIN_TOKEN", "e2e-admin-token")
	httpClient = &http.Client{Timeout: timeout}
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestE2E_DepositApprovalFlow(t *testing.T) {
	waitUntilReady(t)

	userID := uniqUserID()

	t.Run("initial_balance_zero", func(t *testing.T) {
		got := getBalance(t, userID)
		if got != "0.00" {
			t.Fatalf("initial balance: want 0.00, got %s", got)
		}
	})

	var requestID string

	t.Run("submit_deposit", func(t *testing.T) {
		code, body := postJSON(t, fmt.Sprintf("/user/%d/deposits", userID), map[string]string{
			"name":   "e2e-user",
			"amount": "200.00",
			"method": "bkash",
			"sender": "01712345678",
			"txRef":  uniqRef("dep"),
		}, "")
		if code != http.StatusCreated {
			t.Fatalf("submit deposit: want 201, got %d (%s)", code, body)
		}

		requestID = fieldString(t, body, "requestId")
		if requestID == "" {
			t.Fatal("submit deposit: empty requestId")
		}

		// submission never credits
		if got := getBalance(t, userID); got != "0.00" {
			t.Fatalf("after submit: want 0.00, got %s", got)
		}
	})

	t.Run("decision_requires_token", func(t *testing.T) {
		code, _ := postJSON(t, "/admin/deposits/"+requestID+"/decision",
			map[string]string{"decision": "approve"}, "wrong-token")
		if code != http.StatusUnauthorized {
			t.Fatalf("bad token: want 401, got %d", code)
		}
	})

	t.Run("approve_credits_once", func(t *testing.T) {
		code, body := postJSON(t, "/admin/deposits/"+requestID+"/decision",
			map[string]string{"decision": "approve"}, adminToken)
		if code != http.StatusOK {
			t.Fatalf("approve: want 200, got %d (%s)", code, body)
		}

		if got := getBalance(t, userID); got != "200.00" {
			t.Fatalf("after approve: want 200.00, got %s", got)
		}

		// a second tap on the same request must not double-credit
		code, body = postJSON(t, "/admin/deposits/"+requestID+"/decision",
			map[string]string{"decision": "approve"}, adminToken)
		if code != http.StatusConflict {
			t.Fatalf("second approve: want 409, got %d (%s)", code, body)
		}

		if got := getBalance(t, userID); got != "200.00" {
			t.Fatalf("after second approve: want 200.00, got %s", got)
		}
	})

	t.Run("history_shows_request", func(t *testing.T) {
		code, body := getJSON(t, fmt.Sprintf("/user/%d/history", userID))
		if code != http.StatusOK {
			t.Fatalf("history: want 200, got %d (%s)", code, body)
		}
		if !strings.Contains(body, requestID) {
			t.Fatalf("history does not mention request %s: %s", requestID, body)
		}
		if !strings.Contains(body, `"approved"`) {
			t.Fatalf("history missing approved status: %s", body)
		}
	})
}

func TestE2E_WithdrawFeeAndCorrection(t *testing.T) {
	waitUntilReady(t)

	userID := uniqUserID()
	fundViaDeposit(t, userID, "100.00")

	t.Run("below_minimum_rejected", func(t *testing.T) {
		code, _ := postJSON(t, fmt.Sprintf("/user/%d/withdrawals", userID), map[string]string{
			"name":    "e2e-user",
			"amount":  "10.00",
			"method":  "bkash",
			"address": "01712345678",
		}, "")
		if code != http.StatusBadRequest {
			t.Fatalf("below minimum: want 400, got %d", code)
		}
	})

	t.Run("insufficient_balance_rejected_at_submit", func(t *testing.T) {
		code, _ := postJSON(t, fmt.Sprintf("/user/%d/withdrawals", userID), map[string]string{
			"name":    "e2e-user",
			"amount":  "500.00",
			"method":  "bkash",
			"address": "01712345678",
		}, "")
		if code != http.StatusConflict {
			t.Fatalf("insufficient at submit: want 409, got %d", code)
		}
	})

	t.Run("approve_debits_gross", func(t *testing.T) {
		code, body := postJSON(t, fmt.Sprintf("/user/%d/withdrawals", userID), map[string]string{
			"name":    "e2e-user",
			"amount":  "100.00",
			"method":  "nagad",
			"address": "01912345678",
		}, "")
		if code != http.StatusCreated {
			t.Fatalf("submit withdraw: want 201, got %d (%s)", code, body)
		}

		// default fee is 5%
		if got := fieldString(t, body, "fee"); got != "5.00" {
			t.Fatalf("fee: want 5.00, got %s", got)
		}
		if got := fieldString(t, body, "payout"); got != "95.00" {
			t.Fatalf("payout: want 95.00, got %s", got)
		}

		requestID := fieldString(t, body, "requestId")

		code, body = postJSON(t, "/admin/withdrawals/"+requestID+"/decision",
			map[string]string{"decision": "approve"}, adminToken)
		if code != http.StatusOK {
			t.Fatalf("approve withdraw: want 200, got %d (%s)", code, body)
		}

		if got := getBalance(t, userID); got != "0.00" {
			t.Fatalf("after approve: want 0.00, got %s", got)
		}
	})
}

func TestE2E_ProductPurchase(t *testing.T) {
	waitUntilReady(t)

	userID := uniqUserID()
	fundViaDeposit(t, userID, "50.00")

	var productID string

	t.Run("admin_creates_product", func(t *testing.T) {
		code, body := postJSON(t, "/admin/products", map[string]any{
			"name":     "E2E Voucher",
			"price":    "30.00",
			"stock":    1,
			"delivery": "VOUCHER-CODE-42",
		}, adminToken)
		if code != http.StatusCreated {
			t.Fatalf("create product: want 201, got %d (%s)", code, body)
		}

		productID = fieldString(t, body, "productId")
	})

	t.Run("listing_hides_delivery_payload", func(t *testing.T) {
		code, body := getJSON(t, "/products")
		if code != http.StatusOK {
			t.Fatalf("list products: want 200, got %d", code)
		}
		if strings.Contains(body, "VOUCHER-CODE-42") {
			t.Fatal("delivery payload leaked in the catalog listing")
		}
	})

	t.Run("purchase_debits_and_delivers", func(t *testing.T) {
		code, body := postJSON(t, fmt.Sprintf("/user/%d/purchases", userID), map[string]string{
			"name":      "e2e-user",
			"productId": productID,
		}, "")
		if code != http.StatusOK {
			t.Fatalf("purchase: want 200, got %d (%s)", code, body)
		}
		if got := fieldString(t, body, "delivery"); got != "VOUCHER-CODE-42" {
			t.Fatalf("delivery: want VOUCHER-CODE-42, got %q", got)
		}

		if got := getBalance(t, userID); got != "20.00" {
			t.Fatalf("after purchase: want 20.00, got %s", got)
		}
	})

	t.Run("second_unit_out_of_stock", func(t *testing.T) {
		code, body := postJSON(t, fmt.Sprintf("/user/%d/purchases", userID), map[string]string{
			"name":      "e2e-user",
			"productId": productID,
		}, "")
		if code != http.StatusConflict {
			t.Fatalf("sold out: want 409, got %d (%s)", code, body)
		}

		// the refused purchase costs nothing
		if got := getBalance(t, userID); got != "20.00" {
			t.Fatalf("after refusal: want 20.00, got %s", got)
		}
	})
}

func TestE2E_Validation(t *testing.T) {
	waitUntilReady(t)

	userID := uniqUserID()

	t.Run("bad_amount_precision", func(t *testing.T) {
		code, _ := postJSON(t, fmt.Sprintf("/user/%d/deposits", userID), map[string]string{
			"name":   "x",
			"amount": "1.234",
			"method": "bkash",
		}, "")
		if code != http.StatusBadRequest {
			t.Fatalf("bad precision: want 400, got %d", code)
		}
	})

	t.Run("bad_method", func(t *testing.T) {
		code, _ := postJSON(t, fmt.Sprintf("/user/%d/deposits", userID), map[string]string{
			"name":   "x",
			"amount": "1.00",
			"method": "paypal",
		}, "")
		if code != http.StatusBadRequest {
			t.Fatalf("bad method: want 400, got %d", code)
		}
	})

	t.Run("unknown_request_not_found", func(t *testing.T) {
		code, _ := postJSON(t, "/admin/deposits/00000000-0000-0000-0000-000000000000/decision",
			map[string]string{"decision": "approve"}, adminToken)
		if code != http.StatusNotFound {
			t.Fatalf("unknown request: want 404, got %d", code)
		}
	})
}

/* -------------------- helpers -------------------- */

func fundViaDeposit(t *testing.T, userID uint64, amount string) {
	t.Helper()

	code, body := postJSON(t, fmt.Sprintf("/user/%d/deposits", userID), map[string]string{
		"name":   "e2e-user",
		"amount": amount,
		"method": "bkash",
		"sender": "01712345678",
		"txRef":  uniqRef("fund"),
	}, "")
	if code != http.StatusCreated {
		t.Fatalf("fund submit: want 201, got %d (%s)", code, body)
	}

	requestID := fieldString(t, body, "requestId")

	code, body = postJSON(t, "/admin/deposits/"+requestID+"/decision",
		map[string]string{"decision": "approve"}, adminToken)
	if code != http.StatusOK {
		t.Fatalf("fund approve: want 200, got %d (%s)", code, body)
	}
}

func getBalance(t *testing.T, userID uint64) string {
	t.Helper()

	code, body := getJSON(t, fmt.Sprintf("/user/%d/balance", userID))
	if code != http.StatusOK {
		t.Fatalf("get balance: want 200, got %d (%s)", code, body)
	}

	return fieldString(t, body, "balance")
}

func getJSON(t *testing.T, path string) (int, string) {
	t.Helper()

	resp, err := httpClient.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func postJSON(t *testing.T, path string, payload any, token string) (int, string) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

// fieldString pulls a top-level string field out of a JSON body.
func fieldString(t *testing.T, body, field string) string {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}

	v, _ := m[field].(string)
	return v
}

// waitUntilReady polls /healthz until the stack is up or times out.
func waitUntilReady(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitReady)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("service not ready at %s within %s", baseURL, waitReady)
		case <-tick.C:
			resp, err := httpClient.Get(baseURL + "/healthz")
			if err != nil {
				continue
			}
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
	}
}

// uniqUserID spreads runs across fresh accounts so reruns against the
// same database start from a zero balance.
func uniqUserID() uint64 {
	return uint64(time.Now().UnixNano() % 1_000_000_000)
}

func uniqRef(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
