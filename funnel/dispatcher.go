package funnel

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"funnelbot/models"
	"funnelbot/utils"
)

// Dispatcher turns due schedule entries into outgoing messages. It owns
// the error policy: permanent failures consume the schedule slot,
// transient ones leave it for the next tick.
type Dispatcher struct {
	store    Store
	sink     Sink
	tagger   Tagger
	resolver *Resolver
	clock    Clock
	logger   *log.Logger
}

func NewDispatcher(store Store, sink Sink, tagger Tagger, clock Clock, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		sink:     sink,
		tagger:   tagger,
		resolver: NewResolver(store),
		clock:    clock,
		logger:   logger,
	}
}

// DispatchEntry delivers one schedule entry. A nil return means the slot
// is settled, successfully or otherwise; a non-nil return means the entry
// is still unsent and will be retried.
func (d *Dispatcher) DispatchEntry(kind models.Kind, entry models.ScheduleEntry) error {
	user, err := d.store.GetUser(entry.UserID)
	if err != nil {
		return fmt.Errorf("loading user %d: %w", entry.UserID, err)
	}
	if !EligibleFor(kind, user) {
		// Eligibility changed after the entry was fetched. Leave the slot
		// unsent; the due-entries predicate keeps it out of future batches
		// while the user stays ineligible.
		d.logger.Printf("skipping %s step %d for user %d: no longer eligible", kind, entry.Step, entry.UserID)
		return nil
	}

	rendered, err := d.resolver.Resolve(kind, entry.Step)
	if err != nil {
		if errors.Is(err, ErrTemplateMissing) {
			d.logger.Printf("no %s template for step %d, consuming entry for user %d", kind, entry.Step, entry.UserID)
			return d.markSent(kind, entry.ID)
		}
		return err
	}

	if err := d.DispatchStep(user, kind, rendered); err != nil {
		switch {
		case errors.Is(err, ErrUserBlocked):
			d.logger.Printf("user %d blocked the bot, deactivating", user.ID)
			if derr := d.store.Deactivate(user.ID); derr != nil {
				return fmt.Errorf("deactivating blocked user %d: %w", user.ID, derr)
			}
			return d.markSent(kind, entry.ID)
		case errors.Is(err, ErrMediaInvalid):
			d.logger.Printf("platform rejected %s step %d for user %d: %v", kind, entry.Step, user.ID, err)
			return d.markSent(kind, entry.ID)
		default:
			return err
		}
	}

	// Log before consuming: a crash between the two may double-send once,
	// a crash the other way around would lose the delivery record.
	if err := d.store.LogDelivery(user.ID, kind, entry.Step, d.clock.Now()); err != nil {
		d.logger.Printf("recording delivery of %s step %d to user %d: %v", kind, entry.Step, user.ID, err)
	}
	return d.markSent(kind, entry.ID)
}

// captionTruncateAt is the keep-length for over-long media captions;
// with the appended ellipsis the result stays under the 1024 limit.
const captionTruncateAt = 1020

// DispatchStep composes and sends a resolved step to a user.
func (d *Dispatcher) DispatchStep(user *models.User, kind models.Kind, rendered *RenderedStep) error {
	text := d.tagger.TagText(Personalize(rendered.Text, user), user.ID)
	kb := d.Keyboard(rendered.Buttons, user.ID)

	// The consent reply keyboard outlives its message; take it down when
	// the funnel starts and nothing replaces it.
	if kind == models.KindFunnel && rendered.Step == 1 && len(kb) == 0 {
		if err := d.sink.ClearReplyKeyboard(user.ID); err != nil {
			d.logger.Printf("clearing reply keyboard for user %d: %v", user.ID, err)
		}
	}

	switch len(rendered.Media) {
	case 0:
		return d.sink.SendText(user.ID, text, kb)
	case 1:
		caption := text
		if len([]rune(caption)) > models.MaxMediaCaption {
			d.logger.Printf("caption for %s step %d exceeds %d chars, truncating", kind, rendered.Step, models.MaxMediaCaption)
			caption = utils.TruncateRunes(caption, captionTruncateAt)
		}
		item := rendered.Media[0]
		if item.Kind == models.MediaVideo {
			return d.sink.SendVideo(user.ID, item.Ref, caption, kb)
		}
		return d.sink.SendPhoto(user.ID, item.Ref, caption, kb)
	default:
		// Albums cannot carry an inline keyboard. With buttons present the
		// text rides on a follow-up message instead of the caption.
		if len(kb) > 0 {
			if err := d.sink.SendMediaGroup(user.ID, rendered.Media, ""); err != nil {
				return err
			}
			if err := d.sink.SendText(user.ID, text, kb); err != nil {
				d.logger.Printf("album follow-up for %s step %d to user %d failed: %v", kind, rendered.Step, user.ID, err)
			}
			return nil
		}
		caption := text
		if len([]rune(caption)) > models.MaxMediaCaption {
			d.logger.Printf("album caption for %s step %d exceeds %d chars, truncating", kind, rendered.Step, models.MaxMediaCaption)
			caption = utils.TruncateRunes(caption, captionTruncateAt)
		}
		return d.sink.SendMediaGroup(user.ID, rendered.Media, caption)
	}
}

// SendServiceText delivers a configured one-off message (welcome, payment
// confirmation, renewal notice). An empty text is a configuration error.
func (d *Dispatcher) SendServiceText(userID int64, text string, kb []KeyboardButton) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty service message", ErrConfigInvalid)
	}
	user, err := d.store.GetUser(userID)
	if err != nil {
		return err
	}
	err = d.sink.SendText(userID, d.tagger.TagText(Personalize(text, user), userID), kb)
	if errors.Is(err, ErrUserBlocked) {
		d.logger.Printf("user %d blocked the bot, deactivating", userID)
		return d.store.Deactivate(userID)
	}
	return err
}

func (d *Dispatcher) markSent(kind models.Kind, entryID uint) error {
	err := d.store.MarkSent(kind, entryID)
	if errors.Is(err, ErrStoreConflict) {
		// Another path consumed the slot first; the message went out once.
		return nil
	}
	return err
}

// Keyboard builds the inline keyboard for a step, tagging link URLs.
func (d *Dispatcher) Keyboard(buttons []RenderedButton, userID int64) []KeyboardButton {
	var kb []KeyboardButton
	for _, btn := range buttons {
		if btn.IsAdvance() {
			kb = append(kb, KeyboardButton{
				Text:         btn.Text,
				CallbackData: AdvanceToken(userID, btn.MessagesCount),
			})
			continue
		}
		if btn.URL == "" {
			continue
		}
		kb = append(kb, KeyboardButton{
			Text: btn.Text,
			URL:  d.tagger.TagURL(btn.URL, userID),
		})
	}
	return kb
}

// Personalize substitutes {name} and {username} placeholders.
func Personalize(text string, user *models.User) string {
	if user == nil {
		return text
	}
	text = strings.ReplaceAll(text, "{name}", user.DisplayName)
	text = strings.ReplaceAll(text, "{username}", user.Username)
	return text
}
