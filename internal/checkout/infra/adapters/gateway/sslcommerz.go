// Package gateway talks to the SSLCommerz hosted checkout.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/subfusion/checkout/internal/checkout/core/ports"
)

const (
	LiveBaseURL    = "https://securepay.sslcommerz.com"
	SandboxBaseURL = "https://sandbox.sslcommerz.com"

	// DemoCheckoutURL is handed out when no store credentials are configured.
	DemoCheckoutURL = "https://sandbox.sslcommerz.com/EasyCheckOut/test"

	sessionPath   = "/gwprocess/v4/api.php"
	validatorPath = "/validator/api/validationserverAPI.php"

	maxResponseBytes = 1 << 20
)

var (
	ErrTimeout   = errors.New("gateway timeout")
	ErrServer    = errors.New("gateway 5xx")
	ErrClient    = errors.New("gateway 4xx")
	ErrMalformed = errors.New("gateway malformed response")
)

var _ ports.Gateway = (*SSLCommerz)(nil)

type Config struct {
	StoreID       string
	StorePassword string
	BaseURL       string
	Timeout       time.Duration
	ProductName   string
}

// Configured reports whether live store credentials are present.
func (c Config) Configured() bool {
	return c.StoreID != "" && c.StorePassword != ""
}

type SSLCommerz struct {
	cfg    Config
	client *http.Client
}

// NewSSLCommerz builds the gateway client. A nil httpClient gets a traced
// client bounded by cfg.Timeout.
func NewSSLCommerz(cfg Config, httpClient *http.Client) *SSLCommerz {
	if cfg.BaseURL == "" {
		cfg.BaseURL = LiveBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "SubFusion Cart Items"
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &SSLCommerz{cfg: cfg, client: httpClient}
}

type sessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

func (g *SSLCommerz) CreateSession(ctx context.Context, req ports.SessionRequest) (ports.SessionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	form := g.sessionForm(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+sessionPath, strings.NewReader(form.Encode()))
	if err != nil {
		return ports.SessionResponse{}, fmt.Errorf("gateway: build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	body, err := g.do(httpReq)
	if err != nil {
		return ports.SessionResponse{}, fmt.Errorf("gateway: create session %s: %w", req.TxnID, err)
	}

	var parsed sessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ports.SessionResponse{}, fmt.Errorf("gateway: create session %s: %w: %v", req.TxnID, ErrMalformed, err)
	}
	return ports.SessionResponse{
		Status:      parsed.Status,
		CheckoutURL: parsed.GatewayPageURL,
		Raw:         json.RawMessage(body),
	}, nil
}

func (g *SSLCommerz) sessionForm(req ports.SessionRequest) url.Values {
	cus := req.Customer
	name := cus.Name
	if name == "" {
		name = "Customer"
	}
	email := cus.Email
	if email == "" {
		email = "customer@example.com"
	}
	phone := cus.Phone
	if phone == "" {
		phone = "01700000000"
	}

	form := url.Values{}
	form.Set("store_id", g.cfg.StoreID)
	form.Set("store_passwd", g.cfg.StorePassword)
	form.Set("total_amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)
	form.Set("tran_id", req.TxnID)
	form.Set("success_url", req.URLs.Success)
	form.Set("fail_url", req.URLs.Fail)
	form.Set("cancel_url", req.URLs.Cancel)
	form.Set("ipn_url", req.URLs.IPN)
	form.Set("product_category", "digital")
	form.Set("product_profile", "non-physical-goods")
	form.Set("product_name", g.cfg.ProductName)
	form.Set("cus_name", name)
	form.Set("cus_email", email)
	form.Set("cus_phone", phone)
	form.Set("cus_add1", "BD")
	form.Set("cus_city", "Dhaka")
	form.Set("cus_country", "Bangladesh")
	form.Set("shipping_method", "NO")
	form.Set("num_of_item", strconv.Itoa(req.ItemCount))
	form.Set("value_a", req.Token)
	return form
}

type validationResponse struct {
	Status     string `json:"status"`
	TranID     string `json:"tran_id"`
	ValID      string `json:"val_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	BankTranID string `json:"bank_tran_id"`
}

func (g *SSLCommerz) Validate(ctx context.Context, valID string) (ports.Validation, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", g.cfg.StoreID)
	q.Set("store_passwd", g.cfg.StorePassword)
	q.Set("v", "1")
	q.Set("format", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+validatorPath+"?"+q.Encode(), nil)
	if err != nil {
		return ports.Validation{}, fmt.Errorf("gateway: build validation request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	body, err := g.do(httpReq)
	if err != nil {
		return ports.Validation{}, fmt.Errorf("gateway: validate %s: %w", valID, err)
	}

	var parsed validationResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Status == "" {
		return ports.Validation{}, fmt.Errorf("gateway: validate %s: %w", valID, ErrMalformed)
	}

	v := ports.Validation{
		Status:    strings.ToUpper(parsed.Status),
		TxnID:     parsed.TranID,
		ValID:     parsed.ValID,
		BankTxnID: parsed.BankTranID,
		Currency:  parsed.Currency,
	}
	if parsed.Amount != "" {
		amount, err := decimal.NewFromString(parsed.Amount)
		if err != nil {
			return ports.Validation{}, fmt.Errorf("gateway: validate %s: amount %q: %w", valID, parsed.Amount, ErrMalformed)
		}
		v.Amount = amount
	}
	return v, nil
}

// do executes req and returns the body of a 2xx response. Transport and
// status failures are mapped onto the package's sentinel errors.
func (g *SSLCommerz) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrClient, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrMalformed, resp.StatusCode)
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
