package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/ports"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *SSLCommerz {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewSSLCommerz(Config{
		StoreID:       "store1",
		StorePassword: "pass1",
		BaseURL:       srv.URL,
		Timeout:       time.Second,
	}, srv.Client())
}

func sessionReq() ports.SessionRequest {
	return ports.SessionRequest{
		TxnID:     "SF1-abc",
		Amount:    1326,
		Currency:  "BDT",
		Customer:  entity.Customer{Name: "Rahim", Phone: "01711111111"},
		ItemCount: 2,
		Token:     "opaque-token",
		URLs: ports.CallbackURLs{
			Success: "https://shop.example/api/payment/success",
			Fail:    "https://shop.example/api/payment/fail",
			Cancel:  "https://shop.example/api/payment/cancel",
			IPN:     "https://shop.example/api/payment/ipn",
		},
	}
}

func TestSSLCommerz_CreateSession(t *testing.T) {
	var got url.Values
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, sessionPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCESS","sessionkey":"k1","GatewayPageURL":"https://sandbox.sslcommerz.com/pay/k1"}`))
	})

	resp, err := g.CreateSession(context.Background(), sessionReq())
	require.NoError(t, err)
	require.Equal(t, "SUCCESS", resp.Status)
	require.Equal(t, "https://sandbox.sslcommerz.com/pay/k1", resp.CheckoutURL)
	require.JSONEq(t, `{"status":"SUCCESS","sessionkey":"k1","GatewayPageURL":"https://sandbox.sslcommerz.com/pay/k1"}`, string(resp.Raw))

	require.Equal(t, "store1", got.Get("store_id"))
	require.Equal(t, "pass1", got.Get("store_passwd"))
	require.Equal(t, "1326", got.Get("total_amount"))
	require.Equal(t, "BDT", got.Get("currency"))
	require.Equal(t, "SF1-abc", got.Get("tran_id"))
	require.Equal(t, "opaque-token", got.Get("value_a"))
	require.Equal(t, "https://shop.example/api/payment/ipn", got.Get("ipn_url"))
	require.Equal(t, "2", got.Get("num_of_item"))
	require.Equal(t, "Rahim", got.Get("cus_name"))
	require.Equal(t, "customer@example.com", got.Get("cus_email"))
}

func TestSSLCommerz_CreateSessionErrors(t *testing.T) {
	var tests = []struct {
		name     string
		handler  http.HandlerFunc
		expected error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			expected: ErrServer,
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			expected: ErrClient,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
			expected: ErrMalformed,
		},
		{
			name: "slow gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			expected: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, tt.handler)
			g.cfg.Timeout = 100 * time.Millisecond
			_, err := g.CreateSession(context.Background(), sessionReq())
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestSSLCommerz_Validate(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, validatorPath, r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "val-1", q.Get("val_id"))
		require.Equal(t, "store1", q.Get("store_id"))
		require.Equal(t, "json", q.Get("format"))
		_, _ = w.Write([]byte(`{"status":"VALID","tran_id":"SF1-abc","val_id":"val-1","amount":"1326.00","currency":"BDT","bank_tran_id":"B77"}`))
	})

	v, err := g.Validate(context.Background(), "val-1")
	require.NoError(t, err)
	require.Equal(t, "VALID", v.Status)
	require.Equal(t, "SF1-abc", v.TxnID)
	require.Equal(t, "B77", v.BankTxnID)
	require.True(t, decimal.NewFromInt(1326).Equal(v.Amount))
}

func TestSSLCommerz_ValidateMalformed(t *testing.T) {
	var tests = []struct {
		name string
		body string
	}{
		{name: "not json", body: "nope"},
		{name: "no status", body: `{"tran_id":"SF1"}`},
		{name: "bad amount", body: `{"status":"VALID","amount":"12,00"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := g.Validate(context.Background(), "val-1")
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestConfig_Configured(t *testing.T) {
	require.False(t, Config{}.Configured())
	require.False(t, Config{StoreID: "s"}.Configured())
	require.True(t, Config{StoreID: "s", StorePassword: "p"}.Configured())
}
