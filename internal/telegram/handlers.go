package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"channelmart/internal/domain"
	"channelmart/internal/ocr"
	ordersvc "channelmart/internal/service/order"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var orderTagRe = regexp.MustCompile(`#([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)

// Handler routes incoming moderator interactions (decision buttons, proof
// photos) into the order engine.
type Handler struct {
	msgr      *Messenger
	orders    *ordersvc.Service
	extractor *ocr.Extractor
	cfg       ordersvc.Config
	logger    *zap.Logger
}

func NewHandler(msgr *Messenger, orders *ordersvc.Service, extractor *ocr.Extractor, cfg ordersvc.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{msgr: msgr, orders: orders, extractor: extractor, cfg: cfg, logger: logger}
}

// Run polls updates until the context is cancelled.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := h.msgr.Bot().GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.msgr.Bot().StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.handle(ctx, update)
		}
	}
}

func (h *Handler) handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && len(update.Message.Photo) > 0:
		h.handleProofPhoto(ctx, update.Message)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || !h.isModerator(cb.From.ID, chatID(cb.Message)) {
		h.answer(cb.ID, "Недостаточно прав")
		return
	}

	data := cb.Data
	var err error
	switch {
	case strings.HasPrefix(data, ordersvc.ActionApprove):
		_, err = h.orders.Decide(ctx, strings.TrimPrefix(data, ordersvc.ActionApprove), cb.From.ID, true)
	case strings.HasPrefix(data, ordersvc.ActionReject):
		_, err = h.orders.Decide(ctx, strings.TrimPrefix(data, ordersvc.ActionReject), cb.From.ID, false)
	case strings.HasPrefix(data, ordersvc.ActionSkipProof):
		_, err = h.orders.SkipProof(ctx, strings.TrimPrefix(data, ordersvc.ActionSkipProof))
	default:
		h.answer(cb.ID, "")
		return
	}

	switch {
	case err == nil:
		h.answer(cb.ID, "Готово")
	case errors.Is(err, domain.ErrAlreadyDecided):
		h.answer(cb.ID, "Уже решено")
	case errors.Is(err, domain.ErrNotFound):
		h.answer(cb.ID, "Заказ не найден")
	default:
		h.logger.Error("moderation callback failed", zap.String("data", data), zap.Error(err))
		h.answer(cb.ID, "Ошибка")
	}
}

// handleProofPhoto attaches a photo sent in reply to a proof prompt. The
// order is identified by the #<id> tag in the replied-to message; OCR over
// the downloaded photo is best-effort and never blocks completion.
func (h *Handler) handleProofPhoto(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil || msg.From == nil {
		return
	}
	if !h.isModerator(msg.From.ID, msg.Chat.ID) {
		return
	}

	m := orderTagRe.FindStringSubmatch(msg.ReplyToMessage.Text)
	if m == nil {
		return
	}
	orderID := m[1]
	if _, err := uuid.Parse(orderID); err != nil {
		return
	}

	fileID := msg.Photo[len(msg.Photo)-1].FileID

	proofText := ""
	if h.extractor != nil {
		if path, cleanup, err := h.downloadPhoto(fileID); err == nil {
			proofText = h.extractor.Extract(ctx, path)
			cleanup()
		}
	}

	if _, err := h.orders.AttachProof(ctx, orderID, fileID, proofText); err != nil {
		h.logger.Warn("attach proof failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (h *Handler) downloadPhoto(fileID string) (string, func(), error) {
	url, err := h.msgr.Bot().GetFileDirectURL(fileID)
	if err != nil {
		return "", nil, err
	}
	resp, err := http.Get(url)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("download photo: status %d", resp.StatusCode)
	}

	path := filepath.Join(os.TempDir(), "proof-"+uuid.NewString()+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", nil, err
	}
	f.Close()
	return path, func() { os.Remove(path) }, nil
}

func (h *Handler) isModerator(userID, fromChatID int64) bool {
	if h.cfg.ModeratorGroupID != 0 && fromChatID == h.cfg.ModeratorGroupID {
		return true
	}
	for _, id := range h.cfg.ModeratorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (h *Handler) answer(callbackID, text string) {
	if _, err := h.msgr.Bot().Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		h.logger.Debug("answer callback", zap.Error(err))
	}
}

func chatID(msg *tgbotapi.Message) int64 {
	if msg == nil || msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}
