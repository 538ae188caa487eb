package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"snapverse/internal/config"
	"snapverse/internal/payment"
	"snapverse/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const checkoutURL = "https://sandbox.sslcommerz.com/gwprocess/v4/gw.php?Q=pay"

func (ts *testServer) expectSession(err error) {
	ts.t.Helper()
	if err != nil {
		ts.gateway.On("CreateSession", mock.Anything, mock.Anything).Return(nil, err).Once()
		return
	}
	ts.gateway.On("CreateSession", mock.Anything, mock.MatchedBy(func(req payment.SessionRequest) bool {
		return req.Amount == 99 &&
			req.SuccessURL == "http://api.test/api/payments/success" &&
			req.CancelURL == "http://api.test/api/payments/cancel"
	})).Return(&payment.Session{GatewayURL: checkoutURL}, nil).Once()
}

// paidForm is the success callback body for a confirmed payment.
func paidForm(tranID string) url.Values {
	return url.Values{"tran_id": {tranID}, "status": {"VALID"}, "val_id": {"val_" + tranID}}
}

func TestPayment_SuccessNeedsConfirmedPayment(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser("alice", false)
	ts.expectSession(nil)

	resp := ts.do(http.MethodPost, "/api/payments/initiate", nil, ts.token(alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tranID := decode[service.PaymentInitiation](t, resp).TransactionID

	for _, body := range []url.Values{
		{"tran_id": {tranID}},
		{"tran_id": {tranID}, "status": {"FAILED"}, "val_id": {"v1"}},
		{"tran_id": {tranID}, "status": {"VALID"}},
	} {
		resp = ts.form("/api/payments/success", body)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "http://frontend.test/monetization?status=failed", resp.Header.Get("Location"), body.Encode())
	}
	resp = ts.do(http.MethodGet, "/api/payments/status", nil, ts.token(alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[service.SubscriptionStatus](t, resp).IsPro)

	resp = ts.form("/api/payments/success", paidForm(tranID))
	assert.Equal(t, "http://frontend.test/monetization?status=succeeded", resp.Header.Get("Location"))
}

func TestPayment_InitiateAndActivate(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser("alice", false)
	token := ts.token(alice)
	ts.expectSession(nil)

	resp := ts.do(http.MethodGet, "/api/payments/status", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	before := decode[service.SubscriptionStatus](t, resp)
	assert.False(t, before.IsPro)
	assert.Zero(t, before.DaysRemaining)

	resp = ts.do(http.MethodPost, "/api/payments/initiate", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))
	initiated := decode[service.PaymentInitiation](t, resp)
	assert.Equal(t, checkoutURL, initiated.PaymentURL)
	assert.Equal(t, 99, initiated.Amount)
	assert.Equal(t, "pro_monthly", initiated.SubscriptionType)
	assert.True(t, strings.HasPrefix(initiated.TransactionID, fmt.Sprintf("pro_%d_", alice.ID)))
	ts.gateway.AssertExpectations(t)

	resp = ts.form("/api/payments/success", paidForm(initiated.TransactionID))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://frontend.test/monetization?status=succeeded", resp.Header.Get("Location"))

	resp = ts.do(http.MethodGet, "/api/payments/status", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := decode[service.SubscriptionStatus](t, resp)
	assert.True(t, after.IsPro)
	require.NotNil(t, after.SubscriptionEnd)
	assert.Positive(t, after.DaysRemaining)

	// A transaction activates at most once.
	resp = ts.form("/api/payments/success", paidForm(initiated.TransactionID))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://frontend.test/monetization?status=failed", resp.Header.Get("Location"))
}

func TestPayment_SuccessRejectsUnknownTransaction(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser("alice", false)

	for _, tranID := range []string{"", "garbage", fmt.Sprintf("pro_%d_1700000000", alice.ID)} {
		resp := ts.form("/api/payments/success", paidForm(tranID))
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "http://frontend.test/monetization?status=failed", resp.Header.Get("Location"), tranID)
	}

	resp := ts.do(http.MethodGet, "/api/payments/status", nil, ts.token(alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[service.SubscriptionStatus](t, resp).IsPro)
}

func TestPayment_InitiateErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"gateway refuses", fmt.Errorf("%w: store inactive", payment.ErrSessionRejected), http.StatusBadRequest},
		{"gateway unreachable", errors.New("dial tcp: connection refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			alice := ts.createUser("alice", false)
			ts.expectSession(tt.err)

			resp := ts.do(http.MethodPost, "/api/payments/initiate", nil, ts.token(alice))
			assert.Equal(t, tt.status, resp.StatusCode, string(resp.Body))
			assert.Equal(t, "Payment initiation failed", decode[errorBody](t, resp).Error)
		})
	}
}

func TestPayment_FlagOff(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.FeatureFlags = "pro_subscriptions=off"
	})
	alice := ts.createUser("alice", false)

	resp := ts.do(http.MethodPost, "/api/payments/initiate", nil, ts.token(alice))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Pro subscriptions are not available", decode[errorBody](t, resp).Error)
	ts.gateway.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)

	resp = ts.do(http.MethodPost, "/api/payments/initiate", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPayment_FailAndCancelConsumeSession(t *testing.T) {
	tests := []struct {
		path    string
		outcome string
	}{
		{"/api/payments/fail", service.OutcomeFailed},
		{"/api/payments/cancel", service.OutcomeCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			ts := newTestServer(t)
			alice := ts.createUser("alice", false)
			ts.expectSession(nil)

			resp := ts.do(http.MethodPost, "/api/payments/initiate", nil, ts.token(alice))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			tranID := decode[service.PaymentInitiation](t, resp).TransactionID

			resp = ts.form(tt.path, url.Values{"tran_id": {tranID}})
			require.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "http://frontend.test/monetization?status="+tt.outcome, resp.Header.Get("Location"))

			// The abandoned session can no longer activate pro.
			resp = ts.form("/api/payments/success", paidForm(tranID))
			assert.Equal(t, "http://frontend.test/monetization?status=failed", resp.Header.Get("Location"))
		})
	}
}
