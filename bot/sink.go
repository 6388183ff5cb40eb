package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"funnelbot/funnel"
	"funnelbot/models"
)

// TelegramSink implements funnel.Sink over the Bot API. Messages are sent
// with HTML parse mode; platform errors are classified into the funnel
// sentinels.
type TelegramSink struct {
	api *gotgbot.Bot
}

func NewTelegramSink(api *gotgbot.Bot) *TelegramSink {
	return &TelegramSink{api: api}
}

var _ funnel.Sink = (*TelegramSink)(nil)

func (s *TelegramSink) SendText(userID int64, text string, kb []funnel.KeyboardButton) error {
	_, err := s.api.SendMessage(userID, text, &gotgbot.SendMessageOpts{
		ParseMode:   "HTML",
		ReplyMarkup: inlineMarkup(kb),
	})
	return wrapErr(err)
}

func (s *TelegramSink) SendPhoto(userID int64, ref, caption string, kb []funnel.KeyboardButton) error {
	_, err := s.api.SendPhoto(userID, mediaInput(ref), &gotgbot.SendPhotoOpts{
		Caption:     caption,
		ParseMode:   "HTML",
		ReplyMarkup: inlineMarkup(kb),
	})
	return wrapErr(err)
}

func (s *TelegramSink) SendVideo(userID int64, ref, caption string, kb []funnel.KeyboardButton) error {
	_, err := s.api.SendVideo(userID, mediaInput(ref), &gotgbot.SendVideoOpts{
		Caption:     caption,
		ParseMode:   "HTML",
		ReplyMarkup: inlineMarkup(kb),
	})
	return wrapErr(err)
}

func (s *TelegramSink) SendMediaGroup(userID int64, items []funnel.MediaItem, caption string) error {
	media := make([]gotgbot.InputMedia, 0, len(items))
	for i, item := range items {
		// The album caption rides on the first item.
		itemCaption := ""
		if i == 0 {
			itemCaption = caption
		}
		switch item.Kind {
		case models.MediaVideo:
			media = append(media, gotgbot.InputMediaVideo{
				Media:     mediaInput(item.Ref),
				Caption:   itemCaption,
				ParseMode: "HTML",
			})
		default:
			media = append(media, gotgbot.InputMediaPhoto{
				Media:     mediaInput(item.Ref),
				Caption:   itemCaption,
				ParseMode: "HTML",
			})
		}
	}
	_, err := s.api.SendMediaGroup(userID, media, nil)
	return wrapErr(err)
}

// ClearReplyKeyboard removes a lingering reply keyboard. The Bot API only
// takes a keyboard down alongside a message, so a marker message is sent
// and immediately deleted.
func (s *TelegramSink) ClearReplyKeyboard(userID int64) error {
	msg, err := s.api.SendMessage(userID, "​", &gotgbot.SendMessageOpts{
		ReplyMarkup: gotgbot.ReplyKeyboardRemove{RemoveKeyboard: true},
	})
	if err != nil {
		return wrapErr(err)
	}
	if _, err := s.api.DeleteMessage(userID, msg.MessageId, nil); err != nil {
		return wrapErr(err)
	}
	return nil
}

func inlineMarkup(kb []funnel.KeyboardButton) gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(kb))
	for _, btn := range kb {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         btn.Text,
			Url:          btn.URL,
			CallbackData: btn.CallbackData,
		}})
	}
	return gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// mediaInput treats http(s) refs as remote files and everything else as a
// stored file id.
func mediaInput(ref string) gotgbot.InputFileOrString {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return gotgbot.InputFileByURL(ref)
	}
	return gotgbot.InputFileByID(ref)
}

// wrapErr maps Bot API failures onto the funnel sentinels: 403 means the
// user blocked the bot, 400 means the request itself is bad, anything
// else is worth retrying.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var tgErr *gotgbot.TelegramError
	if errors.As(err, &tgErr) {
		switch tgErr.Code {
		case 403:
			return fmt.Errorf("%w: %s", funnel.ErrUserBlocked, tgErr.Description)
		case 400:
			return fmt.Errorf("%w: %s", funnel.ErrMediaInvalid, tgErr.Description)
		}
	}
	return fmt.Errorf("%w: %v", funnel.ErrPlatformTransient, err)
}
