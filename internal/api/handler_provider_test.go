package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseAmountMinor(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "10.15", want: 1015},
		{in: "10", want: 1000},
		{in: "10.5", want: 1050},
		{in: "0.01", want: 1},
		{in: " 500.00 ", want: 50000},
		{in: "0", wantErr: true},
		{in: "0.00", wantErr: true},
		{in: "-1.00", wantErr: true},
		{in: "+1.00", wantErr: true},
		{in: "1.234", wantErr: true},
		{in: "1.2.3", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseAmountMinor(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseAmountMinor(%q): expected error, got %d", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmountMinor(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("parseAmountMinor(%q): want %d, got %d", tc.in, tc.want, got)
			}
		})
	}
}

func TestFormatMinor(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0.00"},
		{in: 1, want: "0.01"},
		{in: 1015, want: "10.15"},
		{in: 50000, want: "500.00"},
		{in: -1015, want: "-10.15"},
	}

	for _, tc := range tests {
		got := formatMinor(tc.in)
		if got != tc.want {
			t.Errorf("formatMinor(%d): want %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	call := func(token, header string) int {
		mw := RequireAdmin(token)
		req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call("s3cret", "Bearer s3cret"); code != http.StatusNoContent {
		t.Fatalf("valid token: want 204, got %d", code)
	}
	if code := call("s3cret", "Bearer wrong"); code != http.StatusUnauthorized {
		t.Fatalf("wrong token: want 401, got %d", code)
	}
	if code := call("s3cret", ""); code != http.StatusUnauthorized {
		t.Fatalf("missing header: want 401, got %d", code)
	}
	if code := call("", "Bearer anything"); code != http.StatusForbidden {
		t.Fatalf("disabled surface: want 403, got %d", code)
	}
}
