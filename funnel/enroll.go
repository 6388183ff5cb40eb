package funnel

import (
	"errors"
	"fmt"
	"log"
	"time"

	"funnelbot/models"
)

// Enrollment reacts to membership and payment events by moving users
// between sequences.
type Enrollment struct {
	store      Store
	dispatcher *Dispatcher
	clock      Clock
	logger     *log.Logger
}

func NewEnrollment(store Store, dispatcher *Dispatcher, clock Clock, logger *log.Logger) *Enrollment {
	return &Enrollment{
		store:      store,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

// JoinApproved records a newly approved member. The funnel does not start
// until the user presses the consent button.
func (e *Enrollment) JoinApproved(id int64, username, displayName string) error {
	return e.store.UpsertUser(id, username, displayName)
}

// ConsentReceived marks the user engaged and enrolls them into the funnel
// sequence, unless they already paid.
func (e *Enrollment) ConsentReceived(id int64) error {
	if err := e.store.MarkEngaged(id); err != nil {
		return fmt.Errorf("marking user %d engaged: %w", id, err)
	}

	if enabled, _ := e.store.Setting(models.SettingConsentConfirmEnabled); enabled == "true" {
		msg, err := e.store.Setting(models.SettingConsentConfirmMessage)
		if err != nil {
			return err
		}
		if err := e.dispatcher.SendServiceText(id, msg, nil); err != nil && !errors.Is(err, ErrConfigInvalid) {
			e.logger.Printf("consent confirmation to user %d failed: %v", id, err)
		}
	}

	err := e.store.Enroll(id, models.KindFunnel, e.clock.Now())
	if errors.Is(err, ErrUserIneligible) {
		// Paid or inactive users do not re-enter the funnel.
		return nil
	}
	return err
}

// PaymentConfirmed flips the user to paid, drops their pending funnel
// steps and starts the paid sequence. A repeated confirmation is a no-op.
func (e *Enrollment) PaymentConfirmed(id int64, amount int64, until time.Time) error {
	now := e.clock.Now()
	err := e.store.MarkPaid(id, amount, until, now)
	if errors.Is(err, ErrUserIneligible) {
		e.logger.Printf("duplicate payment confirmation for user %d ignored", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("marking user %d paid: %w", id, err)
	}

	if err := e.store.Enroll(id, models.KindPaid, now); err != nil && !errors.Is(err, ErrUserIneligible) {
		return err
	}

	msg, err := e.store.Setting(models.SettingPaymentSuccessMessage)
	if err != nil {
		return err
	}
	if err := e.dispatcher.SendServiceText(id, msg, nil); err != nil {
		if errors.Is(err, ErrConfigInvalid) {
			e.logger.Printf("payment confirmation message not configured, skipping for user %d", id)
			return nil
		}
		return err
	}
	return nil
}

// Unsubscribed deactivates a user who left or was removed.
func (e *Enrollment) Unsubscribed(id int64) error {
	return e.store.Deactivate(id)
}

// RenewalTick expires every subscription ending on the given date: notify,
// clear the paid flags, purge pending paid steps and restart the funnel.
func (e *Enrollment) RenewalTick(today time.Time) error {
	expired, err := e.store.ExpiredOn(today)
	if err != nil {
		return fmt.Errorf("listing expiring subscriptions: %w", err)
	}

	msg, err := e.store.Setting(models.SettingRenewalMessage)
	if err != nil {
		return err
	}

	buttons, err := e.store.GetButtons(models.KindRenewal, 1)
	if err != nil {
		e.logger.Printf("loading renewal buttons: %v", err)
		buttons = nil
	}
	rendered := make([]RenderedButton, 0, len(buttons))
	for _, btn := range buttons {
		rendered = append(rendered, RenderedButton{Text: btn.Text, URL: btn.URL, MessagesCount: btn.MessagesCount})
	}

	for _, user := range expired {
		if err := e.dispatcher.SendServiceText(user.ID, msg, e.dispatcher.Keyboard(rendered, user.ID)); err != nil {
			if errors.Is(err, ErrConfigInvalid) {
				e.logger.Printf("renewal message not configured, expiring user %d silently", user.ID)
			} else {
				e.logger.Printf("renewal notice to user %d failed: %v", user.ID, err)
			}
		}

		if err := e.store.MarkExpired(user.ID); err != nil {
			e.logger.Printf("expiring user %d: %v", user.ID, err)
			continue
		}
		if _, err := e.store.PurgeUnsent(user.ID, models.KindPaid); err != nil {
			e.logger.Printf("purging paid schedule for user %d: %v", user.ID, err)
		}
		if err := e.store.Enroll(user.ID, models.KindFunnel, e.clock.Now()); err != nil && !errors.Is(err, ErrUserIneligible) {
			e.logger.Printf("re-enrolling expired user %d: %v", user.ID, err)
		}
	}
	return nil
}
