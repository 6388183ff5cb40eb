package bot

import (
	"fmt"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"funnelbot/funnel"
	"funnelbot/models"
)

const (
	defaultConsentButtonText = "Let's go"

	// consentCallbackData marks inline consent buttons; the usual consent
	// path is the reply keyboard sent with the welcome message.
	consentCallbackData = "consent"
)

// onJoinRequest approves the channel join request and opens the private
// conversation with the welcome message and consent keyboard.
func (b *Bot) onJoinRequest(api *gotgbot.Bot, ctx *ext.Context) error {
	req := ctx.ChatJoinRequest

	if _, err := api.ApproveChatJoinRequest(req.Chat.Id, req.From.Id, nil); err != nil {
		return fmt.Errorf("approving join request from %d: %w", req.From.Id, err)
	}

	if err := b.enroll.JoinApproved(req.From.Id, req.From.Username, displayName(req.From)); err != nil {
		return err
	}
	return b.sendWelcome(req.From.Id)
}

// onStart handles users who open the bot directly instead of joining the
// channel first.
func (b *Bot) onStart(api *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Type != "private" {
		return nil
	}
	from := ctx.EffectiveSender.User
	if from == nil {
		return nil
	}
	if err := b.enroll.JoinApproved(from.Id, from.Username, displayName(*from)); err != nil {
		return err
	}
	return b.sendWelcome(from.Id)
}

func (b *Bot) sendWelcome(userID int64) error {
	welcome, err := b.store.Setting(models.SettingWelcomeMessage)
	if err != nil {
		return err
	}
	if strings.TrimSpace(welcome) == "" {
		b.logger.Printf("Welcome message not configured, skipping greeting for user %d", userID)
		return nil
	}
	if user, err := b.store.GetUser(userID); err == nil {
		welcome = funnel.Personalize(welcome, user)
	}

	_, err = b.api.SendMessage(userID, welcome, &gotgbot.SendMessageOpts{
		ParseMode: "HTML",
		ReplyMarkup: gotgbot.ReplyKeyboardMarkup{
			Keyboard: [][]gotgbot.KeyboardButton{
				{{Text: b.consentButtonText()}},
			},
			ResizeKeyboard: true,
		},
	})
	return err
}

func (b *Bot) consentButtonText() string {
	text, err := b.store.Setting(models.SettingConsentButtonText)
	if err != nil || strings.TrimSpace(text) == "" {
		return defaultConsentButtonText
	}
	return text
}

// onConsent handles inline consent buttons.
func (b *Bot) onConsent(api *gotgbot.Bot, ctx *ext.Context) error {
	cb := ctx.CallbackQuery
	if err := b.interact.ConsentPressed(cb.From.Id, b.consentButtonText()); err != nil {
		return err
	}
	_, err := cb.Answer(api, nil)
	return err
}

// onAdvance handles presses of "show me more" buttons.
func (b *Bot) onAdvance(api *gotgbot.Bot, ctx *ext.Context) error {
	cb := ctx.CallbackQuery
	if err := b.interact.AdvancePressed(cb.From.Id, cb.Data); err != nil {
		return err
	}
	_, err := cb.Answer(api, nil)
	return err
}

// onChatMember deactivates users who leave or are removed from the
// channel.
func (b *Bot) onChatMember(_ *gotgbot.Bot, ctx *ext.Context) error {
	upd := ctx.ChatMember
	status := upd.NewChatMember.MergeChatMember().Status
	if status != "left" && status != "kicked" {
		return nil
	}
	return b.interact.MemberLeft(upd.NewChatMember.MergeChatMember().User.Id)
}

// onBroadcast starts the admin broadcast wizard.
func (b *Bot) onBroadcast(api *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Id != b.adminChatID {
		return nil
	}
	_, err := api.SendMessage(ctx.EffectiveChat.Id, b.wizard.Begin(ctx.EffectiveChat.Id), nil)
	return err
}

func (b *Bot) onCancel(api *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Id != b.adminChatID {
		return nil
	}
	reply := "Nothing to cancel."
	if b.wizard.Cancel(ctx.EffectiveChat.Id) {
		reply = "Broadcast cancelled."
	}
	_, err := api.SendMessage(ctx.EffectiveChat.Id, reply, nil)
	return err
}

// onMessage routes plain text: wizard input from the admin chat, the
// consent button press from everyone else.
func (b *Bot) onMessage(api *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat.Type != "private" {
		return nil
	}
	text := ctx.EffectiveMessage.Text

	if ctx.EffectiveChat.Id == b.adminChatID && b.wizard.Active(ctx.EffectiveChat.Id) {
		if reply := b.wizard.HandleMessage(ctx.EffectiveChat.Id, text); reply != "" {
			_, err := api.SendMessage(ctx.EffectiveChat.Id, reply, nil)
			return err
		}
		return nil
	}

	if text == b.consentButtonText() {
		from := ctx.EffectiveSender.User
		if from == nil {
			return nil
		}
		return b.interact.ConsentPressed(from.Id, text)
	}
	return nil
}

func displayName(u gotgbot.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
