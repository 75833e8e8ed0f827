package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"banlink/internal/crash"
	"banlink/internal/logger"
	"banlink/internal/service"
)

// handleChatMemberUpdate observes bans and joins in member communities.
func handleChatMemberUpdate(ctx *th.Context, bot *telego.Bot, update telego.Update) error {
	if update.ChatMember == nil {
		return nil
	}

	chatID := update.ChatMember.Chat.ID
	newMember := update.ChatMember.NewChatMember
	oldMember := update.ChatMember.OldChatMember
	subject := newMember.MemberUser()

	if subject.IsBot {
		return nil
	}

	community, err := service.Registry().Ensure(chatID, update.ChatMember.Chat.Title)
	if err != nil {
		logger.Warningf("Registering community %d: %v", chatID, err)
		return nil
	}

	switch {
	case newMember.MemberStatus() == telego.MemberStatusBanned:
		event := service.BanEvent{
			SubjectUserID: subject.ID,
			OriginID:      chatID,
			IssuerID:      update.ChatMember.From.ID,
			ObservedAt:    time.Now(),
		}
		logger.Infof("Observed ban of user %d in community %d by %d", subject.ID, chatID, event.IssuerID)
		// Reason resolution can wait for minutes; never block unrelated
		// updates on it.
		crash.SafeGoroutine("propagate", func() {
			if err := service.Dispatch().Propagate(context.Background(), event); err != nil {
				logger.Errorf("Propagating ban of user %d from %d: %v", subject.ID, chatID, err)
			}
		})

	case newMember.MemberIsMember() && oldMember != nil && !oldMember.MemberIsMember():
		sendJoinAlert(ctx.Context(), bot, community.CommunityID, subject.ID, community.AlertChannelID)
	}

	return nil
}

// handleMyChatMemberUpdate registers a community when the bot is added.
func handleMyChatMemberUpdate(ctx *th.Context, bot *telego.Bot, update telego.Update) error {
	if update.MyChatMember == nil {
		return nil
	}
	chat := update.MyChatMember.Chat
	if chat.Type != "group" && chat.Type != "supergroup" {
		return nil
	}
	if !update.MyChatMember.NewChatMember.MemberIsMember() {
		return nil
	}

	if _, err := service.Registry().Ensure(chat.ID, chat.Title); err != nil {
		logger.Warningf("Registering community %d on join: %v", chat.ID, err)
	}
	return nil
}

// sendJoinAlert warns a community when a user with accepted ban history
// joins it.
func sendJoinAlert(ctx context.Context, bot *telego.Bot, communityID, userID int64, alertChannelID int64) {
	if alertChannelID == 0 {
		return
	}

	records, err := service.AcceptedBans(userID)
	if err != nil {
		logger.Warningf("Ban history lookup for joining user %d: %v", userID, err)
		return
	}
	if len(records) == 0 {
		return
	}

	latest := records[0]
	score, err := service.Ledger().Get(latest.OriginID)
	if err != nil {
		score = 0
	}

	text := fmt.Sprintf(
		"⚠️ <b>Previously Banned User Joined</b>\nUser <a href=\"tg://user?id=%d\">%d</a> has %d accepted ban record(s).\nMost recent: origin %d (integrity: %d), reason: %s",
		userID, userID, len(records), latest.OriginID, score, latest.Reason)

	keyboard := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{
				Text:         "Ban",
				CallbackData: fmt.Sprintf("join:ban:%d:%d", communityID, userID),
			},
			{
				Text:         "Dismiss",
				CallbackData: fmt.Sprintf("join:dismiss:%d:%d", communityID, userID),
			},
		}},
	}

	_, err = bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: alertChannelID},
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Warningf("Sending join alert for user %d to %d: %v", userID, communityID, err)
	}
}
