package controller

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"

	"funnelbot/config"
	"funnelbot/funnel"
	"funnelbot/utils"
)

const defaultSubscriptionDays = 30

func InitStripe() {
	stripe.Key = config.AppConfig.StripeSecretKey
}

// PaymentController receives Stripe webhooks and forwards confirmed
// payments into the enrollment service.
type PaymentController struct {
	Enrollment *funnel.Enrollment
	Logger     *logrus.Logger
}

func NewPaymentController(enrollment *funnel.Enrollment, logger *logrus.Logger) *PaymentController {
	return &PaymentController{Enrollment: enrollment, Logger: logger}
}

// StripeWebhook verifies and handles payment events. The checkout flow
// attaches the Telegram user id and subscription length as intent
// metadata.
func (pc *PaymentController) StripeWebhook(c *fiber.Ctx) error {
	event, err := utils.ConstructStripeEvent(c)
	if err != nil {
		return err
	}

	if event.Type != "payment_intent.succeeded" {
		return c.SendStatus(fiber.StatusOK)
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		pc.Logger.WithError(err).WithField("event_id", event.ID).Error("decoding payment intent")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed event payload",
		})
	}

	telegramID, err := strconv.ParseInt(intent.Metadata["telegram_id"], 10, 64)
	if err != nil {
		pc.Logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"intent":   intent.ID,
		}).Warn("payment intent without telegram_id metadata, ignoring")
		return c.SendStatus(fiber.StatusOK)
	}

	until := subscriptionEnd(intent.Metadata)

	if err := pc.Enrollment.PaymentConfirmed(telegramID, intent.Amount, until); err != nil {
		pc.Logger.WithError(err).WithFields(logrus.Fields{
			"telegram_id": telegramID,
			"intent":      intent.ID,
		}).Error("processing payment confirmation")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process payment",
		})
	}

	pc.Logger.WithFields(logrus.Fields{
		"telegram_id": telegramID,
		"amount":      intent.Amount,
		"paid_until":  until.Format(time.DateOnly),
	}).Info("payment confirmed")
	return c.SendStatus(fiber.StatusOK)
}

// subscriptionEnd reads the subscription length from intent metadata:
// an absolute paid_until (RFC 3339), a paid_days count, or the default.
func subscriptionEnd(metadata map[string]string) time.Time {
	if raw := metadata["paid_until"]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	days := defaultSubscriptionDays
	if raw := metadata["paid_days"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}
	return time.Now().AddDate(0, 0, days)
}
