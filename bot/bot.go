package bot

import (
	"log"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"

	"funnelbot/funnel"
)

// Bot wires Telegram updates into the funnel services: join requests,
// consent, advance buttons, membership changes and the admin broadcast
// wizard.
type Bot struct {
	api         *gotgbot.Bot
	store       funnel.Store
	enroll      *funnel.Enrollment
	interact    *funnel.Interactions
	wizard      *BroadcastWizard
	adminChatID int64
	logger      *log.Logger

	updater *ext.Updater
}

func New(api *gotgbot.Bot, store funnel.Store, enroll *funnel.Enrollment, interact *funnel.Interactions, wizard *BroadcastWizard, adminChatID int64, logger *log.Logger) *Bot {
	return &Bot{
		api:         api,
		store:       store,
		enroll:      enroll,
		interact:    interact,
		wizard:      wizard,
		adminChatID: adminChatID,
		logger:      logger,
	}
}

// Start begins long polling and blocks until Stop is called.
func (b *Bot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(_ *gotgbot.Bot, _ *ext.Context, err error) ext.DispatcherAction {
			b.logger.Printf("Error handling update: %v", err)
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})

	dispatcher.AddHandler(handlers.NewChatJoinRequest(nil, b.onJoinRequest))
	dispatcher.AddHandler(handlers.NewChatMember(nil, b.onChatMember))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(consentCallbackData), b.onConsent))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(funnel.AdvanceCallbackPrefix), b.onAdvance))
	dispatcher.AddHandler(handlers.NewCommand("start", b.onStart))
	dispatcher.AddHandler(handlers.NewCommand("broadcast", b.onBroadcast))
	dispatcher.AddHandler(handlers.NewCommand("cancel", b.onCancel))
	dispatcher.AddHandler(handlers.NewMessage(message.Text, b.onMessage))

	b.updater = ext.NewUpdater(dispatcher, nil)
	err := b.updater.StartPolling(b.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
			Timeout: 9,
			AllowedUpdates: []string{
				"message", "callback_query", "chat_member", "chat_join_request",
			},
			RequestOpts: &gotgbot.RequestOpts{
				Timeout: 10 * time.Second,
			},
		},
	})
	if err != nil {
		return err
	}

	b.logger.Printf("Bot started as @%s", b.api.Username)
	b.updater.Idle()
	return nil
}

func (b *Bot) Stop() {
	if b.updater != nil {
		if err := b.updater.Stop(); err != nil {
			b.logger.Printf("Error stopping updater: %v", err)
		}
	}
}
