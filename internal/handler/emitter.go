package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"banlink/internal/logger"
	"banlink/internal/models"
	"banlink/internal/service"
)

type alertKey struct {
	banID         uint
	destinationID int64
}

// TelegramEmitter renders the engine's structured events as Telegram
// messages. It remembers which message carries each (ban, destination)
// decision surface so expiry can disable it later.
type TelegramEmitter struct {
	bot *telego.Bot

	mu       sync.Mutex
	messages map[alertKey]int
}

func NewTelegramEmitter(bot *telego.Bot) *TelegramEmitter {
	return &TelegramEmitter{
		bot:      bot,
		messages: make(map[alertKey]int),
	}
}

// EmitAlert sends the interactive ban alert with accept/dismiss buttons to
// the destination's alert channel.
func (e *TelegramEmitter) EmitAlert(destination *models.Community, payload service.AlertPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	text := alertText("Ban Alert", destination, payload)
	keyboard := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{
				Text:         "Accept",
				CallbackData: fmt.Sprintf("review:accept:%d:%d", payload.BanID, destination.CommunityID),
			},
			{
				Text:         "Dismiss",
				CallbackData: fmt.Sprintf("review:dismiss:%d:%d", payload.BanID, destination.CommunityID),
			},
		}},
	}

	msg, err := e.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: destination.AlertChannelID},
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Warningf("Sending alert for ban %d to %d: %v", payload.BanID, destination.CommunityID, err)
		return
	}

	e.mu.Lock()
	e.messages[alertKey{payload.BanID, destination.CommunityID}] = msg.MessageID
	e.mu.Unlock()
}

// EmitAutoEnforcement bans the subject in the destination community and
// posts a non-interactive notice.
func (e *TelegramEmitter) EmitAutoEnforcement(destination *models.Community, payload service.AlertPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := e.bot.BanChatMember(ctx, &telego.BanChatMemberParams{
		ChatID: telego.ChatID{ID: destination.CommunityID},
		UserID: payload.SubjectUserID,
	})
	if err != nil {
		logger.Warningf("Auto-enforcing ban %d at %d: %v", payload.BanID, destination.CommunityID, err)
	}

	text := alertText("Auto-Ban", destination, payload)
	_, err = e.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: destination.AlertChannelID},
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		logger.Warningf("Sending auto-ban notice for ban %d to %d: %v", payload.BanID, destination.CommunityID, err)
	}
}

// EmitExpired disables the rendered decision surface for an expired
// instance.
func (e *TelegramEmitter) EmitExpired(banID uint, destinationID int64) {
	e.mu.Lock()
	messageID, ok := e.messages[alertKey{banID, destinationID}]
	if ok {
		delete(e.messages, alertKey{banID, destinationID})
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	destination, err := service.Registry().Get(destinationID)
	if err != nil || destination == nil || destination.AlertChannelID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = e.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: destination.AlertChannelID},
		MessageID: messageID,
		Text:      fmt.Sprintf("⏰ Ban alert #%d expired without a decision.", banID),
	})
	if err != nil {
		logger.Warningf("Disabling expired alert %d at %d: %v", banID, destinationID, err)
	}
}

func alertText(title string, destination *models.Community, payload service.AlertPayload) string {
	var ping string
	if payload.BanID != 0 && destination.PingTargetID != 0 {
		ping = fmt.Sprintf("<a href=\"tg://user?id=%d\">&#8203;</a>", destination.PingTargetID)
	}
	originName := payload.OriginName
	if originName == "" {
		originName = fmt.Sprintf("community %d", payload.OriginID)
	}
	reason := payload.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	return fmt.Sprintf("%s⚠️ <b>%s</b> #%d\nUser <a href=\"tg://user?id=%d\">%d</a> was banned in %s (integrity: %d)\nReason: %s",
		ping, title, payload.BanID, payload.SubjectUserID, payload.SubjectUserID, originName, payload.OriginIntegrity, reason)
}
