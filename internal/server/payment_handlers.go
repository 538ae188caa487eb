package server

import (
	"net/url"

	"snapverse/internal/middleware"
	"snapverse/internal/payment"
	"snapverse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// InitiatePayment handles POST /api/payments/initiate
// @Summary Start pro checkout
// @Description Opens a hosted checkout session for one month of pro
// @Tags payments
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.PaymentInitiation
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /payments/initiate [post]
func (s *Server) InitiatePayment(c *fiber.Ctx) error {
	res, err := s.subscriptionService.Initiate(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetSubscriptionStatus handles GET /api/payments/status
// @Summary Pro status
// @Tags payments
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.SubscriptionStatus
// @Router /payments/status [get]
func (s *Server) GetSubscriptionStatus(c *fiber.Ctx) error {
	res, err := s.subscriptionService.Status(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// paymentRedirect sends the browser back to the frontend with the outcome.
func (s *Server) paymentRedirect(c *fiber.Ctx, outcome string) error {
	target := s.subscriptionService.RedirectURL() + "?status=" + url.QueryEscape(outcome)
	return c.Redirect(target, fiber.StatusFound)
}

// PaymentSuccess handles POST /api/payments/success
// @Summary Gateway success callback
// @Description Activates pro for the account that started the transaction, then redirects to the frontend
// @Tags payments
// @Accept x-www-form-urlencoded
// @Param tran_id formData string true "Transaction ID"
// @Param status formData string true "Gateway status (VALID or VALIDATED)"
// @Param val_id formData string true "Gateway validation ID"
// @Success 302
// @Router /payments/success [post]
func (s *Server) PaymentSuccess(c *fiber.Ctx) error {
	ctx := c.UserContext()
	cb := payment.Callback{
		TranID: c.FormValue("tran_id"),
		Status: c.FormValue("status"),
		ValID:  c.FormValue("val_id"),
	}
	if _, err := s.subscriptionService.ActivateFromTransaction(ctx, cb); err != nil {
		middleware.Logger.WarnContext(ctx, "payment activation failed",
			"tran_id", cb.TranID, "status", cb.Status, "error", err.Error())
		return s.paymentRedirect(c, service.OutcomeFailed)
	}
	return s.paymentRedirect(c, service.OutcomeSucceeded)
}

// PaymentFail handles POST /api/payments/fail
// @Summary Gateway failure callback
// @Tags payments
// @Accept x-www-form-urlencoded
// @Param tran_id formData string false "Transaction ID"
// @Success 302
// @Router /payments/fail [post]
func (s *Server) PaymentFail(c *fiber.Ctx) error {
	s.subscriptionService.Abandon(c.UserContext(), c.FormValue("tran_id"), service.OutcomeFailed)
	return s.paymentRedirect(c, service.OutcomeFailed)
}

// PaymentCancel handles POST /api/payments/cancel
// @Summary Gateway cancel callback
// @Tags payments
// @Accept x-www-form-urlencoded
// @Param tran_id formData string false "Transaction ID"
// @Success 302
// @Router /payments/cancel [post]
func (s *Server) PaymentCancel(c *fiber.Ctx) error {
	s.subscriptionService.Abandon(c.UserContext(), c.FormValue("tran_id"), service.OutcomeCancelled)
	return s.paymentRedirect(c, service.OutcomeCancelled)
}
