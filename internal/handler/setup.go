package handler

import (
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"banlink/internal/config"
	"banlink/internal/service"
)

var (
	globalConfig   *config.Config
	pendingReasons *PendingReasons
)

func Initialize(cfg *config.Config) {
	globalConfig = cfg
	service.Initialize(cfg)
}

// SetupMessageHandlers configures all bot message and update handlers and
// wires the propagation engine to the Telegram surfaces.
func SetupMessageHandlers(bh *th.BotHandler, bot *telego.Bot) {
	service.InitRepositories()

	reasonTTL := time.Duration(globalConfig.Propagation.ReasonTimeoutSeconds) * time.Second
	pendingReasons = NewPendingReasons(2 * reasonTTL)
	emitter := NewTelegramEmitter(bot)

	service.Setup(pendingReasons, emitter, bot.ID())
	service.StartBackground()

	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		_, err := RegisterCommands(ctx, bot, message)
		return err
	})

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return handleChatMemberUpdate(ctx, bot, update)
	}, th.AnyChatMember())

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return handleMyChatMemberUpdate(ctx, bot, update)
	}, th.AnyMyChatMember())

	bh.HandleCallbackQuery(func(ctx *th.Context, query telego.CallbackQuery) error {
		return HandleCallbackQuery(ctx, bot, query)
	})
}
