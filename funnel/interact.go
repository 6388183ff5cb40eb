package funnel

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"funnelbot/models"
)

// AdvanceCallbackPrefix marks callback data produced by advance buttons.
const AdvanceCallbackPrefix = "next:"

// AdvanceToken encodes an advance button payload.
func AdvanceToken(userID int64, count int) string {
	return fmt.Sprintf("%s%d:%d", AdvanceCallbackPrefix, userID, count)
}

// ParseAdvanceToken decodes "next:<user>:<count>" callback data.
func ParseAdvanceToken(data string) (int64, int, error) {
	rest, ok := strings.CutPrefix(data, AdvanceCallbackPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("not an advance token: %q", data)
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed advance token: %q", data)
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed advance token: %q", data)
	}
	count, err := strconv.Atoi(parts[1])
	if err != nil || count < 1 {
		return 0, 0, fmt.Errorf("malformed advance token: %q", data)
	}
	return userID, count, nil
}

// Interactions handles button presses and membership updates coming from
// the chat platform.
type Interactions struct {
	store      Store
	dispatcher *Dispatcher
	enroll     *Enrollment
	clock      Clock
	pause      time.Duration
	sleep      func(time.Duration)
	logger     *log.Logger
}

func NewInteractions(store Store, dispatcher *Dispatcher, enroll *Enrollment, clock Clock, pause time.Duration, logger *log.Logger) *Interactions {
	return &Interactions{
		store:      store,
		dispatcher: dispatcher,
		enroll:     enroll,
		clock:      clock,
		pause:      pause,
		sleep:      time.Sleep,
		logger:     logger,
	}
}

// AdvancePressed delivers up to the button's count of pending funnel steps
// immediately. The click is logged once against the last delivered step,
// whether or not anything remains to send.
func (i *Interactions) AdvancePressed(userID int64, data string) error {
	tokenUser, count, err := ParseAdvanceToken(data)
	if err != nil {
		return err
	}
	if tokenUser != userID {
		// Forwarded or replayed keyboard; not this user's button.
		i.logger.Printf("advance token for user %d pressed by user %d, ignoring", tokenUser, userID)
		return nil
	}

	step, err := i.store.LastDeliveredStep(userID, models.KindFunnel)
	if err != nil {
		return fmt.Errorf("resolving click step for user %d: %w", userID, err)
	}
	if err := i.store.LogClick(userID, models.KindFunnel, step, models.ButtonKindCallback, data, i.clock.Now()); err != nil {
		i.logger.Printf("recording advance click for user %d: %v", userID, err)
	}

	for sent := 0; sent < count; sent++ {
		entry, err := i.store.PeekNextUnsent(userID, models.KindFunnel)
		if err != nil {
			return fmt.Errorf("peeking next step for user %d: %w", userID, err)
		}
		if entry == nil {
			break
		}
		if sent > 0 {
			i.sleep(i.pause)
		}
		if err := i.dispatcher.DispatchEntry(models.KindFunnel, *entry); err != nil {
			return err
		}
	}
	return nil
}

// ConsentPressed records the consent click and starts the funnel.
func (i *Interactions) ConsentPressed(userID int64, buttonText string) error {
	if err := i.store.LogClick(userID, models.KindFunnel, 0, models.ButtonKindCallback, buttonText, i.clock.Now()); err != nil {
		i.logger.Printf("recording consent click for user %d: %v", userID, err)
	}
	return i.enroll.ConsentReceived(userID)
}

// MemberLeft sends the goodbye message, if enabled, and deactivates the
// user.
func (i *Interactions) MemberLeft(userID int64) error {
	if enabled, _ := i.store.Setting(models.SettingGoodbyeEnabled); enabled == "true" {
		msg, err := i.store.Setting(models.SettingGoodbyeMessage)
		if err != nil {
			return err
		}
		if err := i.dispatcher.SendServiceText(userID, msg, nil); err != nil && !errors.Is(err, ErrConfigInvalid) {
			i.logger.Printf("goodbye message to user %d failed: %v", userID, err)
		}
	}
	return i.enroll.Unsubscribed(userID)
}
