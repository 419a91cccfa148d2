package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subfusion/checkout/internal/checkout/app"
	"github.com/subfusion/checkout/internal/checkout/core/domain/pricing"
	"github.com/subfusion/checkout/internal/checkout/infra/adapters/gateway"
	"github.com/subfusion/checkout/internal/checkout/infra/adapters/idempotency"
	"github.com/subfusion/checkout/internal/checkout/infra/adapters/notify"
	"github.com/subfusion/checkout/internal/checkout/infra/adapters/token"
	"github.com/subfusion/checkout/internal/pkg/cache"
)

// fakeSSLCommerz records session requests and answers validator calls
// with whatever status it was told to report.
type fakeSSLCommerz struct {
	mu              sync.Mutex
	sessions        []url.Values
	validations     int
	validatorStatus string
	validatorAmount string
	sessionStatus   int
}

func (f *fakeSSLCommerz) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/gwprocess/v4/api.php"):
		if f.sessionStatus != 0 {
			w.WriteHeader(f.sessionStatus)
			return
		}
		_ = r.ParseForm()
		f.sessions = append(f.sessions, r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"SUCCESS","sessionkey":"K1","GatewayPageURL":"https://sandbox.sslcommerz.com/gwprocess/v4/gw.php?Q=pay&SESSIONKEY=K1","tran_id":%q}`,
			r.PostForm.Get("tran_id"))
	case strings.HasSuffix(r.URL.Path, "/validator/api/validationserverAPI.php"):
		f.validations++
		tranID := ""
		if len(f.sessions) > 0 {
			tranID = f.sessions[len(f.sessions)-1].Get("tran_id")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":       f.validatorStatus,
			"tran_id":      tranID,
			"val_id":       r.URL.Query().Get("val_id"),
			"amount":       f.validatorAmount,
			"currency":     "BDT",
			"bank_tran_id": "BANK-1",
		})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSSLCommerz) lastSession(t *testing.T) url.Values {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sessions)
	return f.sessions[len(f.sessions)-1]
}

func (f *fakeSSLCommerz) set(fn func(f *fakeSSLCommerz)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSSLCommerz) calls() (sessions, validations int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions), f.validations
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.sent...)
}

type testEnv struct {
	router http.Handler
	fake   *fakeSSLCommerz
	mailer *recordingMailer
}

func newTestEnv(t *testing.T, live bool) *testEnv {
	t.Helper()
	fake := &fakeSSLCommerz{validatorStatus: "VALID", validatorAmount: "1326.00"}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	calc := pricing.NewCalculator(pricing.DefaultFeeRate)
	codec := token.New("test-secret")
	gw := gateway.NewSSLCommerz(gateway.Config{
		StoreID:       "store",
		StorePassword: "secret",
		BaseURL:       srv.URL,
		Timeout:       2 * time.Second,
	}, srv.Client())
	mailer := &recordingMailer{}
	dispatcher := notify.NewDispatcher(mailer, notify.DispatcherConfig{
		CurrencySymbol: "৳",
		From:           "shop@example.com",
		MerchantEmail:  "owner@example.com",
	})
	idem := idempotency.NewStore(cache.NewMemoryCache("checkout-test"))

	sessions := app.NewSessionInitiator(calc, codec, gw, nil, app.SessionConfig{
		Live:      live,
		DemoURL:   gateway.DemoCheckoutURL,
		Currency:  "BDT",
		MinCharge: 10,
		BaseURL:   "https://shop.example",
	})
	reconciler := app.NewReconciler(gw, codec, dispatcher, idem, nil, app.ReconcilerConfig{Currency: "BDT", MinCharge: 10})
	orders := app.NewOrderService(calc, dispatcher, nil, app.DefaultManualMethods)

	handler := NewHandler(sessions, reconciler, orders, HandlerConfig{CurrencySymbol: "৳"})
	return &testEnv{
		router: NewRouter(handler, RouterConfig{RateLimitRPS: 1000, RateLimitBurst: 1000}),
		fake:   fake,
		mailer: mailer,
	}
}

func (e *testEnv) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

const cartJSON = `{
	"items": [
		{"pid": "netflix", "plan": "1M", "price": 500, "qty": 2, "meta": {"screens": "4"}},
		{"pid": "spotify", "plan": "1M", "price": 300, "qty": 1}
	],
	"customer": {"name": "Rahim", "phone": "01700000000", "email": "rahim@example.com"}
}`

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestCheckout_EndToEnd(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.postJSON(t, "/api/payment/create", cartJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "SUCCESS", body["status"])
	assert.Contains(t, body["GatewayPageURL"], "SESSIONKEY=K1")

	session := env.fake.lastSession(t)
	assert.Equal(t, "1326", session.Get("total_amount"))
	assert.Equal(t, "BDT", session.Get("currency"))
	assert.Equal(t, "2", session.Get("num_of_item"))
	assert.Equal(t, "https://shop.example/api/payment/success", session.Get("success_url"))
	assert.Equal(t, "https://shop.example/api/payment/ipn", session.Get("ipn_url"))
	require.NotEmpty(t, session.Get("value_a"))

	callback := url.Values{
		"status":  {"VALID"},
		"val_id":  {"VAL-1"},
		"tran_id": {session.Get("tran_id")},
		"value_a": {session.Get("value_a")},
	}
	rec = env.postForm(t, "/api/payment/success", callback)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Total Paid: ৳1,326")
	assert.NotContains(t, rec.Body.String(), "minimum charge")
	assert.Contains(t, rec.Body.String(), session.Get("tran_id"))

	msgs := env.mailer.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "New Order "+session.Get("tran_id")+" • ৳1,326", msgs[0].Subject)
	assert.Equal(t, []string{"owner@example.com", "rahim@example.com"}, msgs[0].To)
	assert.Contains(t, msgs[0].HTML, "BANK-1")

	// the gateway may redirect the browser more than once
	rec = env.postForm(t, "/api/payment/success", callback)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Total Paid: ৳1,326")
	assert.Len(t, env.mailer.messages(), 1)

	_, validations := env.fake.calls()
	assert.Equal(t, 2, validations)
}

func TestCheckout_SmallCartChargesMinimum(t *testing.T) {
	env := newTestEnv(t, true)
	env.fake.set(func(f *fakeSSLCommerz) { f.validatorAmount = "10.00" })

	rec := env.postJSON(t, "/api/payment/create",
		`{"items":[{"pid":"trial","plan":"1D","price":6,"qty":1}],"customer":{"name":"Rahim","phone":"017"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	session := env.fake.lastSession(t)
	assert.Equal(t, "10", session.Get("total_amount"))

	rec = env.postForm(t, "/api/payment/success", url.Values{
		"status":  {"VALID"},
		"val_id":  {"VAL-2"},
		"tran_id": {session.Get("tran_id")},
		"value_a": {session.Get("value_a")},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Total Paid: ৳10")
	assert.Contains(t, rec.Body.String(), "Order total ৳6")
	assert.Len(t, env.mailer.messages(), 1)
}

func TestCreatePayment_DemoModeNeverCallsGateway(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.postJSON(t, "/api/payment/create", cartJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["demo"])
	assert.Equal(t, gateway.DemoCheckoutURL, body["demoUrl"])
	assert.Regexp(t, `^SF\d+-[0-9a-f]{8}$`, body["tranId"])

	sessions, validations := env.fake.calls()
	assert.Zero(t, sessions)
	assert.Zero(t, validations)
}

func TestCreatePayment_Errors(t *testing.T) {
	var tests = []struct {
		name          string
		body          string
		sessionStatus int
		status        int
		code          string
	}{
		{"empty cart", `{"items":[],"customer":{"name":"A"}}`, 0, http.StatusBadRequest, "EMPTY_CART"},
		{"bad quantity", `{"items":[{"pid":"x","plan":"1M","price":100,"qty":0}]}`, 0, http.StatusBadRequest, "INVALID_ITEM"},
		{"line total overflows", `{"items":[{"pid":"x","plan":"1M","price":4611686018427387903,"qty":3}]}`, 0, http.StatusBadRequest, "INVALID_ITEM"},
		{"not json", `{"items":`, 0, http.StatusBadRequest, "INVALID_JSON"},
		{"gateway down", cartJSON, http.StatusServiceUnavailable, http.StatusInternalServerError, "SESSION_CREATE_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			env.fake.set(func(f *fakeSSLCommerz) { f.sessionStatus = tt.sessionStatus })

			rec := env.postJSON(t, "/api/payment/create", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeBody(t, rec)["error"])
		})
	}
}

func TestPaymentSuccess_Rejections(t *testing.T) {
	var tests = []struct {
		name            string
		status          string
		validatorStatus string
		validatorAmount string
		corruptToken    bool
		wantCode        int
		wantReason      string
		wantValidations int
	}{
		{"callback not paid", "FAILED", "VALID", "1326.00", false, http.StatusBadRequest, "PAYMENT_NOT_VALID", 0},
		{"validator disagrees", "VALID", "INVALID_TRANSACTION", "1326.00", false, http.StatusBadRequest, "PAYMENT_NOT_VALID", 1},
		{"corrupt token", "VALID", "VALID", "1326.00", true, http.StatusBadRequest, "MISSING_OR_CORRUPT_PAYLOAD", 1},
		{"underpaid", "VALID", "VALID", "100.00", false, http.StatusBadRequest, "AMOUNT_MISMATCH", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			require.Equal(t, http.StatusOK, env.postJSON(t, "/api/payment/create", cartJSON).Code)
			session := env.fake.lastSession(t)
			env.fake.set(func(f *fakeSSLCommerz) {
				f.validatorStatus = tt.validatorStatus
				f.validatorAmount = tt.validatorAmount
			})

			tok := session.Get("value_a")
			if tt.corruptToken {
				tok = "not-a-token"
			}
			rec := env.postForm(t, "/api/payment/success", url.Values{
				"status":  {tt.status},
				"val_id":  {"VAL-1"},
				"tran_id": {session.Get("tran_id")},
				"value_a": {tok},
			})

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
			assert.Contains(t, rec.Body.String(), tt.wantReason)
			assert.Empty(t, env.mailer.messages())
			_, validations := env.fake.calls()
			assert.Equal(t, tt.wantValidations, validations)
		})
	}
}

func TestPaymentSuccess_ValidatorUnreachable(t *testing.T) {
	_ = pricing.NewCalculator(pricing.DefaultFeeRate)
	codec := token.New("")
	gw := gateway.NewSSLCommerz(gateway.Config{
		StoreID:       "store",
		StorePassword: "secret",
		BaseURL:       "http://127.0.0.1:1",
		Timeout:       time.Second,
	}, nil)
	mailer := &recordingMailer{}
	reconciler := app.NewReconciler(gw, codec, notify.NewDispatcher(mailer, notify.DispatcherConfig{MerchantEmail: "owner@example.com"}),
		nil, nil, app.ReconcilerConfig{Currency: "BDT"})
	router := NewRouter(NewHandler(nil, reconciler, nil, HandlerConfig{}), RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/payment/success?status=VALID&val_id=V1&value_a=x", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_UNAVAILABLE")
	assert.Empty(t, mailer.messages())
}

func TestPaymentFailAndCancel(t *testing.T) {
	env := newTestEnv(t, true)

	for _, tc := range []struct{ path, text string }{
		{"/api/payment/fail", "Payment Failed"},
		{"/api/payment/cancel", "Payment Cancelled"},
	} {
		rec := env.get(t, tc.path+"?tran_id=SF1&status=FAILED")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, tc.text, rec.Body.String())

		rec = env.postForm(t, tc.path, url.Values{"tran_id": {"SF1"}, "status": {"CANCELLED"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, tc.text, rec.Body.String())
	}
	_, validations := env.fake.calls()
	assert.Zero(t, validations)
}

func TestPaymentIPN_AlwaysAcknowledged(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.postForm(t, "/api/payment/ipn", url.Values{"tran_id": {"SF1"}, "val_id": {"V1"}, "status": {"VALID"}, "amount": {"1326.00"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = env.postJSON(t, "/api/payment/ipn", `garbage`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.mailer.messages())
}

func TestCreateOrder(t *testing.T) {
	t.Run("manual method without txid", func(t *testing.T) {
		env := newTestEnv(t, false)
		rec := env.postJSON(t, "/api/order", `{"customer":{"name":"Karim","phone":"018"},"items":[{"pid":"netflix","plan":"1M","price":500,"qty":2}],"payMethod":"bkash"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "TxID_REQUIRED", decodeBody(t, rec)["error"])
		assert.Empty(t, env.mailer.messages())
	})

	t.Run("manual method with txid", func(t *testing.T) {
		env := newTestEnv(t, false)
		rec := env.postJSON(t, "/api/order", `{"customer":{"name":"Karim","phone":"018","email":"karim@example.com"},"items":[{"pid":"netflix","plan":"1M","price":500,"qty":2},{"pid":"spotify","plan":"1M","price":300,"qty":1}],"payMethod":"bkash","txid":"8N7A6B5C4D"}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, true, body["emailed"])
		assert.EqualValues(t, 1326, body["total"])

		msgs := env.mailer.messages()
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].HTML, "8N7A6B5C4D")
		assert.Equal(t, "New Order "+body["orderId"].(string)+" • ৳1,326", msgs[0].Subject)
	})

	t.Run("mail failure", func(t *testing.T) {
		env := newTestEnv(t, false)
		env.mailer.mu.Lock()
		env.mailer.err = fmt.Errorf("smtp: 421 service not available")
		env.mailer.mu.Unlock()
		rec := env.postJSON(t, "/api/order", `{"items":[{"pid":"netflix","plan":"1M","price":500,"qty":1}],"payMethod":"cod"}`)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "ORDER_FAILED", decodeBody(t, rec)["error"])
	})

	t.Run("trailing data", func(t *testing.T) {
		env := newTestEnv(t, false)
		rec := env.postJSON(t, "/api/order", `{"items":[]} {"items":[]}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_JSON", decodeBody(t, rec)["error"])
	})
}

func TestRouter_RateLimitsCheckoutEndpoints(t *testing.T) {
	env := newTestEnv(t, false)
	env.router = NewRouter(NewHandler(nil, nil, nil, HandlerConfig{}), RouterConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})

	first := env.postJSON(t, "/api/order", `not json`)
	require.Equal(t, http.StatusBadRequest, first.Code)
	second := env.postJSON(t, "/api/order", `not json`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE_LIMITED", decodeBody(t, second)["error"])

	assert.Equal(t, http.StatusOK, env.get(t, "/healthz").Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
