package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
)

// isUserAdmin checks if a user is an admin in a chat
func isUserAdmin(ctx context.Context, bot *telego.Bot, chatID int64, userID int64) (bool, error) {
	admins, err := bot.GetChatAdministrators(ctx, &telego.GetChatAdministratorsParams{
		ChatID: telego.ChatID{ID: chatID},
	})
	if err != nil {
		return false, err
	}

	for _, admin := range admins {
		if admin.MemberUser().ID == userID {
			return true, nil
		}
	}

	return false, nil
}

// parseIDPair extracts the two trailing numeric fields of callback data
// such as "review:accept:<banID>:<destID>" or "join:ban:<destID>:<userID>".
func parseIDPair(data string) (int64, int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 {
		return 0, 0, fmt.Errorf("invalid data format: %s", data)
	}

	first, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid id %q: %v", parts[2], err)
	}

	second, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid id %q: %v", parts[3], err)
	}

	return first, second, nil
}

// parseFlagID extracts the flag id from "flag:resolve:<id>" style data.
func parseFlagID(data string) (uint, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid data format: %s", data)
	}
	id, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid flag id %q: %v", parts[2], err)
	}
	return uint(id), nil
}
