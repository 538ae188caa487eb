// Package payment talks to the hosted checkout that sells pro subscriptions.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"snapverse/internal/config"
	"snapverse/internal/observability"
)

const (
	SandboxBaseURL = "https://sandbox.sslcommerz.com"
	LiveBaseURL    = "https://securepay.sslcommerz.com"

	sessionPath    = "/gwprocess/v4/api.php"
	statusSuccess  = "SUCCESS"
	defaultTimeout = 15 * time.Second
)

// ErrSessionRejected is returned when the gateway answers but refuses the session.
var ErrSessionRejected = errors.New("payment session rejected")

// SessionRequest describes one checkout.
type SessionRequest struct {
	TranID          string
	Amount          int
	Currency        string
	ProductName     string
	ProductCategory string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	SuccessURL      string
	FailURL         string
	CancelURL       string
}

// Session is a created checkout.
type Session struct {
	TranID     string
	GatewayURL string
}

// Gateway creates hosted checkout sessions.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

type sessionResponse struct {
	Status       string `json:"status"`
	GatewayURL   string `json:"GatewayPageURL"`
	FailedReason string `json:"failedreason"`
}

// SSLCommerz is a Gateway backed by the SSLCommerz session API.
type SSLCommerz struct {
	baseURL   string
	storeID   string
	storePass string
	client    *http.Client
}

// NewSSLCommerz builds a client from config. PAYMENT_BASE_URL, when set,
// overrides the sandbox or live host.
func NewSSLCommerz(cfg *config.Config) *SSLCommerz {
	base := cfg.PaymentBaseURL
	if base == "" {
		base = LiveBaseURL
		if cfg.PaymentSandbox {
			base = SandboxBaseURL
		}
	}
	return &SSLCommerz{
		baseURL:   strings.TrimRight(base, "/"),
		storeID:   cfg.PaymentStoreID,
		storePass: cfg.PaymentStorePassword,
		client:    &http.Client{Timeout: defaultTimeout},
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func (g *SSLCommerz) form(req SessionRequest) url.Values {
	currency := req.Currency
	if currency == "" {
		currency = "BDT"
	}
	return url.Values{
		"store_id":         {g.storeID},
		"store_passwd":     {g.storePass},
		"total_amount":     {strconv.Itoa(req.Amount)},
		"currency":         {currency},
		"tran_id":          {req.TranID},
		"success_url":      {req.SuccessURL},
		"fail_url":         {req.FailURL},
		"cancel_url":       {req.CancelURL},
		"emi_option":       {"0"},
		"cus_name":         {orNA(req.CustomerName)},
		"cus_email":        {orNA(req.CustomerEmail)},
		"cus_phone":        {orNA(req.CustomerPhone)},
		"cus_add1":         {"N/A"},
		"cus_city":         {"Dhaka"},
		"cus_country":      {"Bangladesh"},
		"shipping_method":  {"NO"},
		"num_of_item":      {"1"},
		"product_name":     {req.ProductName},
		"product_category": {req.ProductCategory},
		"product_profile":  {"general"},
	}
}

// CreateSession posts the checkout form and returns the hosted page URL.
func (g *SSLCommerz) CreateSession(ctx context.Context, req SessionRequest) (_ *Session, err error) {
	ctx, span := observability.StartClientSpan(ctx, "sslcommerz", "create_session")
	defer func() { observability.EndSpan(span, err) }()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+sessionPath,
		strings.NewReader(g.form(req).Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var out sessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !strings.EqualFold(out.Status, statusSuccess) || out.GatewayURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrSessionRejected, out.FailedReason)
	}
	return &Session{TranID: req.TranID, GatewayURL: out.GatewayURL}, nil
}
