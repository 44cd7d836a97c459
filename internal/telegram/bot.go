package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sweepInterval is how often expired flows and pending authentications are
// swept out.
const sweepInterval = time.Minute

// Bot runs the long-poll update loop and feeds each update to the handler.
// Updates are processed sequentially, in arrival order.
type Bot struct {
	api         *tgbotapi.BotAPI
	handler     *Handler
	pollTimeout int
	logger      *zap.Logger
}

// NewBot constructs the update loop around an authorized bot API.
func NewBot(api *tgbotapi.BotAPI, handler *Handler, pollTimeout int, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:         api,
		handler:     handler,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Run polls for updates until ctx is cancelled. A failure while processing
// one update is logged and the loop continues with the next.
func (b *Bot) Run(ctx context.Context) error {
	updCfg := tgbotapi.NewUpdate(0)
	updCfg.Timeout = b.pollTimeout
	updCfg.AllowedUpdates = []string{"message", "callback_query"}
	updates := b.api.GetUpdatesChan(updCfg)

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	b.logger.Info("bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case <-sweep.C:
			b.handler.Sweep()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.handler.HandleUpdate(ctx, u); err != nil {
				b.logger.Error("update processing failed",
					zap.Int("update_id", u.UpdateID), zap.Error(err))
			}
		}
	}
}
