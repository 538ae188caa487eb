package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"snapverse/internal/cache"
	"snapverse/internal/models"
	"snapverse/internal/observability"
	"snapverse/internal/payment"
	"snapverse/internal/repository"
)

const (
	FlagProSubscriptions = "pro_subscriptions"

	proPriceBDT         = 99
	proSubscriptionType = "pro_monthly"
	proProductName      = "SnapVerse Pro Subscription - 1 Month"
	tranIDPrefix        = "pro"
)

// Payment outcomes reported by the gateway callbacks.
const (
	OutcomeInitiated = "initiated"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// FeatureGate reports whether a feature is on for a user.
type FeatureGate interface {
	Enabled(name string, userID uint) bool
}

type SubscriptionService struct {
	userRepo    repository.UserRepository
	gateway     payment.Gateway
	sessions    payment.SessionStore
	flags       FeatureGate
	backendURL  string
	frontendURL string
	now         func() time.Time
	events      *observability.EventLogger

	// trustTranIDs lets callbacks activate without a session store.
	trustTranIDs bool
}

// PaymentInitiation is returned to the client to start checkout.
type PaymentInitiation struct {
	PaymentURL       string `json:"payment_url"`
	TransactionID    string `json:"transaction_id"`
	Amount           int    `json:"amount"`
	SubscriptionType string `json:"subscription_type"`
}

// SubscriptionStatus describes the caller's pro window.
type SubscriptionStatus struct {
	IsPro             bool       `json:"is_pro"`
	SubscriptionStart *time.Time `json:"subscription_start"`
	SubscriptionEnd   *time.Time `json:"subscription_end"`
	DaysRemaining     int        `json:"days_remaining"`
}

// NewSubscriptionService wires the pro flow. sessions may be nil, in which
// case success callbacks are refused unless TrustTransactionIDs is on.
func NewSubscriptionService(
	userRepo repository.UserRepository,
	gateway payment.Gateway,
	sessions payment.SessionStore,
	flags FeatureGate,
	backendURL, frontendURL string,
) *SubscriptionService {
	return &SubscriptionService{
		userRepo:    userRepo,
		gateway:     gateway,
		sessions:    sessions,
		flags:       flags,
		backendURL:  strings.TrimRight(backendURL, "/"),
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
		events:      observability.NewEventLogger("subscription"),
	}
}

// TrustTransactionIDs makes callbacks take the user ID embedded in the
// transaction ID when no session store is configured. Development only.
func (s *SubscriptionService) TrustTransactionIDs(on bool) {
	s.trustTranIDs = on
}

func (s *SubscriptionService) enabled(userID uint) bool {
	return s.flags == nil || s.flags.Enabled(FlagProSubscriptions, userID)
}

// RedirectURL is where every gateway callback sends the browser.
func (s *SubscriptionService) RedirectURL() string {
	return s.frontendURL + "/monetization"
}

func newTranID(userID uint, now time.Time) string {
	return fmt.Sprintf("%s_%d_%d", tranIDPrefix, userID, now.Unix())
}

func parseTranID(tranID string) (uint, error) {
	parts := strings.Split(tranID, "_")
	if len(parts) != 3 || parts[0] != tranIDPrefix {
		return 0, fmt.Errorf("malformed transaction id %q", tranID)
	}
	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("malformed transaction id %q", tranID)
	}
	return uint(id), nil
}

// Initiate opens a checkout session for one month of pro.
func (s *SubscriptionService) Initiate(ctx context.Context, userID uint) (_ *PaymentInitiation, err error) {
	ctx, span := observability.StartSpan(ctx, "SubscriptionService", "Initiate")
	defer func() { observability.EndSpan(span, err) }()

	if !s.enabled(userID) {
		return nil, models.NewNotAuthorizedError("Pro subscriptions are not available")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tranID := newTranID(user.ID, s.now())
	name := user.FullName()
	if name == "" {
		name = user.Username
	}
	callback := s.backendURL + "/api/payments/"
	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		TranID:          tranID,
		Amount:          proPriceBDT,
		Currency:        "BDT",
		ProductName:     proProductName,
		ProductCategory: "Subscription",
		CustomerName:    name,
		CustomerEmail:   user.Email,
		CustomerPhone:   user.PhoneNumber,
		SuccessURL:      callback + "success",
		FailURL:         callback + "fail",
		CancelURL:       callback + "cancel",
	})
	if err != nil {
		s.events.PaymentEvent(ctx, OutcomeFailed, tranID, user.ID)
		if errors.Is(err, payment.ErrSessionRejected) {
			return nil, &models.AppError{Code: models.CodeValidation, Message: "Payment initiation failed", Err: err}
		}
		return nil, models.NewGatewayError("Payment initiation failed", err)
	}

	if s.sessions != nil {
		if err := s.sessions.Save(ctx, tranID, user.ID, cache.PaymentSessionTTL); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	s.events.PaymentEvent(ctx, OutcomeInitiated, tranID, user.ID)

	return &PaymentInitiation{
		PaymentURL:       session.GatewayURL,
		TransactionID:    tranID,
		Amount:           proPriceBDT,
		SubscriptionType: proSubscriptionType,
	}, nil
}

func (s *SubscriptionService) ownerOf(ctx context.Context, tranID string) (uint, error) {
	if strings.TrimSpace(tranID) == "" {
		return 0, models.NewValidationError("tran_id is required")
	}
	parsed, err := parseTranID(tranID)
	if err != nil {
		return 0, models.NewValidationError("Unknown transaction")
	}
	if s.sessions == nil {
		if !s.trustTranIDs {
			return 0, models.NewInvalidStateError("Payment sessions are unavailable")
		}
		return parsed, nil
	}
	owner, ok, err := s.sessions.Take(ctx, tranID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if !ok || owner != parsed {
		return 0, models.NewValidationError("Unknown or expired transaction")
	}
	return owner, nil
}

// ActivateFromTransaction opens a fresh pro window for the account that
// initiated the paid transaction in cb. Unpaid callbacks leave the session
// in place.
func (s *SubscriptionService) ActivateFromTransaction(ctx context.Context, cb payment.Callback) (_ *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "SubscriptionService", "ActivateFromTransaction")
	defer func() { observability.EndSpan(span, err) }()

	if !cb.Paid() {
		return nil, models.NewValidationError("Payment was not confirmed by the gateway")
	}
	tranID := cb.TranID
	userID, err := s.ownerOf(ctx, tranID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.ActivatePro(s.now())
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]any{
		"pro_subscription_start": user.ProSubscriptionStart,
		"pro_subscription_end":   user.ProSubscriptionEnd,
	}); err != nil {
		return nil, err
	}

	s.events.PaymentEvent(ctx, OutcomeSucceeded, tranID, user.ID)
	s.events.SubscriptionActivated(ctx, user.ID, *user.ProSubscriptionEnd)
	return user, nil
}

// Abandon discards a failed or cancelled transaction.
func (s *SubscriptionService) Abandon(ctx context.Context, tranID, outcome string) {
	var userID uint
	if s.sessions != nil && tranID != "" {
		if id, ok, err := s.sessions.Take(ctx, tranID); err != nil {
			s.events.Error(ctx, err, "payment.abandon")
		} else if ok {
			userID = id
		}
	}
	s.events.PaymentEvent(ctx, outcome, tranID, userID)
}

// Status reports the pro window as of now. Expired windows are reported as
// inactive without being cleared.
func (s *SubscriptionService) Status(ctx context.Context, userID uint) (*SubscriptionStatus, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &SubscriptionStatus{
		IsPro:             user.IsPro(now),
		SubscriptionStart: user.ProSubscriptionStart,
		SubscriptionEnd:   user.ProSubscriptionEnd,
		DaysRemaining:     user.ProDaysRemaining(now),
	}, nil
}
