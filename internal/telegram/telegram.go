// Package telegram adapts the Telegram Bot API to the messaging surface
// the catalog and order engines consume.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"channelmart/internal/messaging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Messenger implements messaging.Messenger over a bot connection.
//
// Channel posts cannot be read directly by bots, so FetchPostText forwards
// the post to a private sink chat, reads the forwarded copy and deletes it.
type Messenger struct {
	bot        *tgbotapi.BotAPI
	sinkChatID int64
	logger     *zap.Logger
}

func New(token string, sinkChatID int64, logger *zap.Logger) (*Messenger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect bot: %w", err)
	}
	logger.Info("telegram bot connected", zap.String("username", bot.Self.UserName))
	return &Messenger{bot: bot, sinkChatID: sinkChatID, logger: logger}, nil
}

// Bot exposes the underlying connection for the update-handling layer.
func (m *Messenger) Bot() *tgbotapi.BotAPI {
	return m.bot
}

func (m *Messenger) FetchPostText(ctx context.Context, channelID int64, postID int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.sinkChatID == 0 {
		return "", errors.New("sink chat not configured")
	}

	forwarded, err := m.bot.Send(tgbotapi.NewForward(m.sinkChatID, channelID, postID))
	if err != nil {
		return "", wrapErr(err)
	}

	text := forwarded.Text
	if text == "" {
		text = forwarded.Caption
	}

	if _, err := m.bot.Request(tgbotapi.NewDeleteMessage(m.sinkChatID, forwarded.MessageID)); err != nil {
		m.logger.Warn("delete forwarded copy", zap.Int("message_id", forwarded.MessageID), zap.Error(err))
	}
	return text, nil
}

func (m *Messenger) SendPrompt(ctx context.Context, destination int64, text string, actions [][]messaging.Action) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msg := tgbotapi.NewMessage(destination, text)
	msg.DisableNotification = true
	if len(actions) > 0 {
		msg.ReplyMarkup = keyboard(actions)
	}

	sent, err := m.bot.Send(msg)
	if err != nil {
		return "", wrapErr(err)
	}
	return encodeRef(destination, sent.MessageID), nil
}

func (m *Messenger) DisableActions(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chatID, messageID, err := decodeRef(ref)
	if err != nil {
		return err
	}
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	if _, err := m.bot.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty)); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (m *Messenger) SendPhoto(ctx context.Context, destination int64, photoRef, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(destination, tgbotapi.FileID(photoRef))
	photo.Caption = caption
	photo.DisableNotification = true
	if _, err := m.bot.Send(photo); err != nil {
		return wrapErr(err)
	}
	return nil
}

func keyboard(actions [][]messaging.Action) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, row := range actions {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, a := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// encodeRef packs chat and message ids into the opaque reference the core
// stores alongside an order.
func encodeRef(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}

func decodeRef(ref string) (int64, int, error) {
	chatPart, msgPart, ok := strings.Cut(ref, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed message ref %q", ref)
	}
	chatID, err := strconv.ParseInt(chatPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed message ref %q", ref)
	}
	messageID, err := strconv.Atoi(msgPart)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed message ref %q", ref)
	}
	return chatID, messageID, nil
}

// wrapErr maps Telegram's flood control responses onto the rate-limit
// signal the rescan driver backs off on.
func wrapErr(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return &messaging.RateLimitError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
	}
	return err
}
