package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"banlink/internal/logger"
	"banlink/internal/models"
	"banlink/internal/service"
)

// HandleCallbackQuery processes callback queries from inline keyboards
func HandleCallbackQuery(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery) error {
	if query.Data == "" {
		return nil
	}

	logger.Infof("Received callback query: %s", query.Data)

	if strings.HasPrefix(query.Data, "review:accept:") {
		return handleReviewCallback(ctx, bot, query, true)
	} else if strings.HasPrefix(query.Data, "review:dismiss:") {
		return handleReviewCallback(ctx, bot, query, false)
	} else if strings.HasPrefix(query.Data, "flag:resolve:") {
		return handleFlagCallback(ctx, bot, query, models.FlagStatusResolved)
	} else if strings.HasPrefix(query.Data, "flag:reject:") {
		return handleFlagCallback(ctx, bot, query, models.FlagStatusRejected)
	} else if strings.HasPrefix(query.Data, "join:ban:") {
		return handleJoinCallback(ctx, bot, query, true)
	} else if strings.HasPrefix(query.Data, "join:dismiss:") {
		return handleJoinCallback(ctx, bot, query, false)
	}

	return nil
}

func answerCallback(ctx *th.Context, bot *telego.Bot, queryID, text string, alert bool) error {
	return bot.AnswerCallbackQuery(ctx.Context(), &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
}

// handleReviewCallback resolves a pending ban alert. Accepting bans the
// subject here and raises the origin's integrity; dismissing lowers it.
func handleReviewCallback(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery, accept bool) error {
	parsedBanID, destinationID, err := parseIDPair(query.Data)
	if err != nil {
		logger.Warningf("Invalid callback data in review callback: %s", query.Data)
		return nil
	}
	banID := uint(parsedBanID)

	isAdmin, err := isUserAdmin(ctx.Context(), bot, destinationID, query.From.ID)
	if err != nil || !isAdmin {
		return answerCallback(ctx, bot, query.ID, "You don't have permission to review ban alerts.", true)
	}

	record, err := service.Ban(banID)
	if err != nil || record == nil {
		logger.Warningf("Ban record %d not found for review callback: %v", banID, err)
		return answerCallback(ctx, bot, query.ID, "Ban record no longer exists.", true)
	}

	if accept {
		err = service.Workflow().Accept(banID, destinationID, query.From.ID)
	} else {
		err = service.Workflow().Dismiss(banID, destinationID, query.From.ID)
	}

	switch {
	case errors.Is(err, service.ErrExpired):
		return answerCallback(ctx, bot, query.ID, "This alert already expired.", true)
	case errors.Is(err, service.ErrAlreadyResolved):
		return answerCallback(ctx, bot, query.ID, "This alert was already handled.", true)
	case err != nil:
		logger.Errorf("Resolving review for ban %d at %d: %v", banID, destinationID, err)
		return answerCallback(ctx, bot, query.ID, "Something went wrong, try again.", true)
	}

	var resultText string
	if accept {
		banErr := bot.BanChatMember(ctx.Context(), &telego.BanChatMemberParams{
			ChatID: telego.ChatID{ID: destinationID},
			UserID: record.SubjectUserID,
		})
		if banErr != nil {
			logger.Warningf("Banning user %d in %d after accept: %v", record.SubjectUserID, destinationID, banErr)
		}
		resultText = fmt.Sprintf("✅ Ban alert #%d accepted by %s: user %d banned.",
			banID, query.From.FirstName, record.SubjectUserID)
	} else {
		resultText = fmt.Sprintf("❎ Ban alert #%d dismissed by %s.", banID, query.From.FirstName)
	}

	if err := answerCallback(ctx, bot, query.ID, "Decision recorded.", false); err != nil {
		logger.Warningf("Error answering callback query: %v", err)
	}

	editDecisionMessage(ctx, bot, query, resultText)
	return nil
}

// handleFlagCallback lets the operator settle a flag from the /review list.
func handleFlagCallback(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery, outcome string) error {
	flagID, err := parseFlagID(query.Data)
	if err != nil {
		logger.Warningf("Invalid callback data in flag callback: %s", query.Data)
		return nil
	}

	if !isOwner(query.From.ID) {
		return answerCallback(ctx, bot, query.ID, "Only the operator can review flags.", true)
	}

	err = service.Flags().Review(flagID, outcome)
	switch {
	case errors.Is(err, service.ErrFlagAlreadyReviewed):
		return answerCallback(ctx, bot, query.ID, "This flag was already reviewed.", true)
	case errors.Is(err, service.ErrFlagNotFound):
		return answerCallback(ctx, bot, query.ID, "Flag no longer exists.", true)
	case err != nil:
		logger.Errorf("Reviewing flag %d: %v", flagID, err)
		return answerCallback(ctx, bot, query.ID, "Something went wrong, try again.", true)
	}

	if err := answerCallback(ctx, bot, query.ID, "Flag updated.", false); err != nil {
		logger.Warningf("Error answering callback query: %v", err)
	}

	editDecisionMessage(ctx, bot, query, fmt.Sprintf("Flag #%d marked %s.", flagID, outcome))
	return nil
}

// handleJoinCallback reacts to a join alert for a user with ban history.
func handleJoinCallback(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery, ban bool) error {
	communityID, userID, err := parseIDPair(query.Data)
	if err != nil {
		logger.Warningf("Invalid callback data in join callback: %s", query.Data)
		return nil
	}

	isAdmin, err := isUserAdmin(ctx.Context(), bot, communityID, query.From.ID)
	if err != nil || !isAdmin {
		return answerCallback(ctx, bot, query.ID, "You don't have permission to act on join alerts.", true)
	}

	var resultText string
	if ban {
		err = bot.BanChatMember(ctx.Context(), &telego.BanChatMemberParams{
			ChatID: telego.ChatID{ID: communityID},
			UserID: userID,
		})
		if err != nil {
			logger.Warningf("Banning joined user %d in %d: %v", userID, communityID, err)
			return answerCallback(ctx, bot, query.ID, "Could not ban the user.", true)
		}
		resultText = fmt.Sprintf("User %d banned by %s.", userID, query.From.FirstName)
	} else {
		resultText = fmt.Sprintf("Join alert for user %d dismissed by %s.", userID, query.From.FirstName)
	}

	if err := answerCallback(ctx, bot, query.ID, "Done.", false); err != nil {
		logger.Warningf("Error answering callback query: %v", err)
	}

	editDecisionMessage(ctx, bot, query, resultText)
	return nil
}

// editDecisionMessage replaces the alert text and drops the keyboard so a
// settled alert cannot be acted on twice from the UI.
func editDecisionMessage(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery, text string) {
	if query.Message == nil {
		return
	}
	accessibleMsg, ok := query.Message.(*telego.Message)
	if !ok {
		return
	}
	_, err := bot.EditMessageText(ctx.Context(), &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: accessibleMsg.Chat.ID},
		MessageID: accessibleMsg.MessageID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		logger.Warningf("Error editing decision message: %v", err)
	}
}
