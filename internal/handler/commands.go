package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"banlink/internal/logger"
	"banlink/internal/service"
)

// RegisterCommands dispatches bot commands. Returns true when the message
// was a command.
func RegisterCommands(ctx *th.Context, bot *telego.Bot, message telego.Message) (bool, error) {
	if message.From == nil || !strings.HasPrefix(message.Text, "/") {
		return false, nil
	}

	fields := strings.Fields(message.Text)
	command := fields[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	args := fields[1:]

	switch command {
	case "/help":
		return true, sendHelpMessage(ctx, bot, message)
	case "/settings":
		return true, handleSettingsCommand(ctx, bot, message)
	case "/set_alert_channel":
		return true, handleSetAlertChannelCommand(ctx, bot, message)
	case "/set_ping":
		return true, handleSetPingCommand(ctx, bot, message, args)
	case "/toggle_autoban":
		return true, handleToggleAutoBanCommand(ctx, bot, message)
	case "/block_origin":
		return true, handleBlockOriginCommand(ctx, bot, message, args, true)
	case "/unblock_origin":
		return true, handleBlockOriginCommand(ctx, bot, message, args, false)
	case "/search":
		return true, handleSearchCommand(ctx, bot, message, args)
	case "/flag":
		return true, handleFlagCommand(ctx, bot, message, args)
	case "/review":
		return true, handleReviewCommand(ctx, bot, message)
	case "/strike":
		return true, handleStrikeCommand(ctx, bot, message, args, true)
	case "/unstrike":
		return true, handleStrikeCommand(ctx, bot, message, args, false)
	case "/reason":
		return true, handleReasonCommand(ctx, bot, message, args)
	}
	return false, nil
}

func reply(ctx *th.Context, bot *telego.Bot, chatID int64, text string) error {
	_, err := bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: "HTML",
	})
	return err
}

func sendHelpMessage(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	helpText := "<b>banlink</b>\n" +
		"Propagates ban alerts between connected communities.\n\n" +
		"<b>Commands</b>\n" +
		"/settings - show this community's settings\n" +
		"/set_alert_channel - receive ban alerts in the current chat\n" +
		"/set_ping &lt;user_id&gt; - ping this user on new alerts\n" +
		"/toggle_autoban - auto-enforce bans from trusted origins\n" +
		"/block_origin &lt;community_id&gt; - refuse alerts from an origin\n" +
		"/unblock_origin &lt;community_id&gt;\n" +
		"/search &lt;user_id&gt; - a user's ban history\n" +
		"/flag &lt;user_id&gt; &lt;reason&gt; [proof_url] - flag a user for operator review\n" +
		"/reason &lt;user_id&gt; &lt;text&gt; - supply the reason for a just-issued ban"
	return reply(ctx, bot, message.Chat.ID, helpText)
}

func requireGroupAdmin(ctx *th.Context, bot *telego.Bot, message telego.Message) (bool, error) {
	if message.Chat.Type == "private" {
		return false, reply(ctx, bot, message.Chat.ID, "This command only works inside a community group.")
	}
	isAdmin, err := isUserAdmin(ctx.Context(), bot, message.Chat.ID, message.From.ID)
	if err != nil || !isAdmin {
		return false, reply(ctx, bot, message.Chat.ID, "You need to be an administrator to use this command.")
	}
	return true, nil
}

func isOwner(userID int64) bool {
	return globalConfig.Bot.OwnerID != 0 && userID == globalConfig.Bot.OwnerID
}

func handleSettingsCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	ok, err := requireGroupAdmin(ctx, bot, message)
	if !ok {
		return err
	}
	community, err := service.Registry().Ensure(message.Chat.ID, message.Chat.Title)
	if err != nil {
		return err
	}

	autoban := "off"
	if community.AutoBanEnabled {
		autoban = "on"
	}
	channel := "not set"
	if community.AlertChannelID != 0 {
		channel = strconv.FormatInt(community.AlertChannelID, 10)
	}
	blocked := "none"
	if ids := community.BlockedOriginIDs(); len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		blocked = strings.Join(parts, ", ")
	}

	text := fmt.Sprintf("<b>Settings for %s</b>\nIntegrity: %d\nAuto-ban: %s\nAlert channel: %s\nBlocked origins: %s",
		community.Name, community.Integrity, autoban, channel, blocked)
	return reply(ctx, bot, message.Chat.ID, text)
}

func handleSetAlertChannelCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	ok, err := requireGroupAdmin(ctx, bot, message)
	if !ok {
		return err
	}
	community, err := service.Registry().Ensure(message.Chat.ID, message.Chat.Title)
	if err != nil {
		return err
	}
	err = service.Registry().SetPreferences(community.CommunityID, service.Preferences{
		AutoBanEnabled: community.AutoBanEnabled,
		AlertChannelID: message.Chat.ID,
		PingTargetID:   community.PingTargetID,
		BlockedOrigins: community.BlockedOriginIDs(),
	})
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Could not update settings: %v", err))
	}
	return reply(ctx, bot, message.Chat.ID, "Ban alerts will be posted in this chat.")
}

func handleSetPingCommand(ctx *th.Context, bot *telego.Bot, message telego.Message, args []string) error {
	ok, err := requireGroupAdmin(ctx, bot, message)
	if !ok {
		return err
	}
	if len(args) != 1 {
		return reply(ctx, bot, message.Chat.ID, "Usage: /set_ping <user_id>")
	}
	pingID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, "Invalid user id.")
	}
	community, err := service.Registry().Ensure(message.Chat.ID, message.Chat.Title)
	if err != nil {
		return err
	}
	err = service.Registry().SetPreferences(community.CommunityID, service.Preferences{
		AutoBanEnabled: community.AutoBanEnabled,
		AlertChannelID: community.AlertChannelID,
		PingTargetID:   pingID,
		BlockedOrigins: community.BlockedOriginIDs(),
	})
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Could not update settings: %v", err))
	}
	return reply(ctx, bot, message.Chat.ID, "Ping target updated.")
}

func handleToggleAutoBanCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	ok, err := requireGroupAdmin(ctx, bot, message)
	if !ok {
		return err
	}
	community, err := service.Registry().Ensure(message.Chat.ID, message.Chat.Title)
	if err != nil {
		return err
	}
	err = service.Registry().SetPreferences(community.CommunityID, service.Preferences{
		AutoBanEnabled: !community.AutoBanEnabled,
		AlertChannelID: community.AlertChannelID,
		PingTargetID:   community.PingTargetID,
		BlockedOrigins: community.BlockedOriginIDs(),
	})
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Could not update settings: %v", err))
	}
	if community.AutoBanEnabled {
		return reply(ctx, bot, message.Chat.ID, "Auto-ban enabled: bans from origins with integrity ≥ threshold are enforced immediately.")
	}
	return reply(ctx, bot, message.Chat.ID, "Auto-ban disabled: every alert waits for a manual decision.")
}

func handleBlockOriginCommand(ctx *th.Context, bot *telego.Bot, message telego.Message, args []string, block bool) error {
	ok, err := requireGroupAdmin(ctx, bot, message)
	if !ok {
		return err
	}
	if len(args) != 1 {
		return reply(ctx, bot, message.Chat.ID, "Usage: /block_origin <community_id>")
	}
	originID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, "Invalid community id.")
	}

	community, err := service.Registry().Ensure(message.Chat.ID, message.Chat.Title)
	if err != nil {
		return err
	}
	blocked := community.BlockedOriginIDs()
	if block {
		if !community.HasBlockedOrigin(originID) {
			blocked = append(blocked, originID)
		}
	} else {
		kept := blocked[:0]
		for _, id := range blocked {
			if id != originID {
				kept = append(kept, id)
			}
		}
		blocked = kept
	}

	err = service.Registry().SetPreferences(community.CommunityID, service.Preferences{
		AutoBanEnabled: community.AutoBanEnabled,
		AlertChannelID: community.AlertChannelID,
		PingTargetID:   community.PingTargetID,
		BlockedOrigins: blocked,
	})
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Could not update settings: %v", err))
	}
	if block {
		return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Alerts from community %d will be ignored.", originID))
	}
	return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Alerts from community %d are accepted again.", originID))
}

func handleSearchCommand(ctx *th.Context, bot *telego.Bot, message telego.Message, args []string) error {
	if len(args) != 1 {
		return reply(ctx, bot, message.Chat.ID, "Usage: /search <user_id>")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, "Invalid user id.")
	}

	records, err := service.BanHistory(userID)
	if err != nil {
		logger.Warningf("Ban history search for %d: %v", userID, err)
		return reply(ctx, bot, message.Chat.ID, "Search failed, try again later.")
	}
	if len(records) == 0 {
		return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("No ban records found for user %d.", userID))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Ban history for user %d</b> (%d records)\n", userID, len(records))
	for _, record := range records {
		score, err := service.Ledger().Get(record.OriginID)
		if err != nil {
			score = 0
		}
		fmt.Fprintf(&b, "\n#%d from %d (integrity: %d)\nReason: %s\nDate: %s\nStatus: %s\n",
			record.ID, record.OriginID, score, record.Reason,
			record.CreatedAt.Format("2006-01-02 15:04:05"), record.Status)
	}
	return reply(ctx, bot, message.Chat.ID, b.String())
}

func handleFlagCommand(ctx *th.Context, bot *telego.Bot, message telego.Message, args []string) error {
	ok, err := requireGroupAdmin(ctx, bot, message)
	if !ok {
		return err
	}
	if len(args) < 2 {
		return reply(ctx, bot, message.Chat.ID, "Usage: /flag <user_id> <reason> [proof_url]")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, "Invalid user id.")
	}

	reasonArgs := args[1:]
	var proofURL string
	if last := reasonArgs[len(reasonArgs)-1]; strings.HasPrefix(last, "http://") || strings.HasPrefix(last, "https://") {
		proofURL = last
		reasonArgs = reasonArgs[:len(reasonArgs)-1]
	}
	reason := strings.Join(reasonArgs, " ")

	record, err := service.Flags().Create(userID, message.Chat.ID, message.From.ID, reason, proofURL)
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Could not create flag: %v", err))
	}
	return reply(ctx, bot, message.Chat.ID,
		fmt.Sprintf("User %d flagged for operator review (flag #%d).", userID, record.ID))
}

func handleReviewCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if !isOwner(message.From.ID) {
		return reply(ctx, bot, message.Chat.ID, "Only the operator can review flags.")
	}

	pending, err := service.Flags().Pending()
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, "Could not list pending flags.")
	}
	if len(pending) == 0 {
		return reply(ctx, bot, message.Chat.ID, "No pending flags to review.")
	}

	for _, flag := range pending {
		text := fmt.Sprintf("<b>Flag #%d</b>\nUser: %d\nCommunity: %d\nFlagged by: %d\nReason: %s",
			flag.ID, flag.SubjectUserID, flag.CommunityID, flag.FlaggedBy, flag.Reason)
		if flag.ProofURL != "" {
			text += fmt.Sprintf("\nProof: %s", flag.ProofURL)
		}
		keyboard := &telego.InlineKeyboardMarkup{
			InlineKeyboard: [][]telego.InlineKeyboardButton{{
				{Text: "Resolve", CallbackData: fmt.Sprintf("flag:resolve:%d", flag.ID)},
				{Text: "Reject", CallbackData: fmt.Sprintf("flag:reject:%d", flag.ID)},
			}},
		}
		_, err := bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
			ChatID:      telego.ChatID{ID: message.Chat.ID},
			Text:        text,
			ParseMode:   "HTML",
			ReplyMarkup: keyboard,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func handleStrikeCommand(ctx *th.Context, bot *telego.Bot, message telego.Message, args []string, blacklist bool) error {
	if !isOwner(message.From.ID) {
		return reply(ctx, bot, message.Chat.ID, "Only the operator can strike communities.")
	}
	if len(args) != 1 {
		return reply(ctx, bot, message.Chat.ID, "Usage: /strike <community_id>")
	}
	communityID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, "Invalid community id.")
	}

	if err := service.Registry().SetBlacklisted(communityID, blacklist); err != nil {
		return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Could not update blacklist: %v", err))
	}
	if blacklist {
		return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Community %d has been struck: its bans no longer propagate.", communityID))
	}
	return reply(ctx, bot, message.Chat.ID, fmt.Sprintf("Community %d has been unstruck.", communityID))
}

func handleReasonCommand(ctx *th.Context, bot *telego.Bot, message telego.Message, args []string) error {
	ok, err := requireGroupAdmin(ctx, bot, message)
	if !ok {
		return err
	}
	if len(args) < 2 {
		return reply(ctx, bot, message.Chat.ID, "Usage: /reason <user_id> <text>")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return reply(ctx, bot, message.Chat.ID, "Invalid user id.")
	}

	pendingReasons.Supply(message.Chat.ID, userID, strings.Join(args[1:], " "))
	return reply(ctx, bot, message.Chat.ID, "Reason recorded.")
}
