package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"alerts-service/internal/config"
	"alerts-service/internal/logging"
	"alerts-service/internal/models"
	"alerts-service/internal/utils"
)

// ChatResolver maps a user id to their registered Telegram chat id.
type ChatResolver interface {
	TelegramChatID(ctx context.Context, userID int64) (int64, error)
}

// TelegramNotifier delivers owner summaries through a Telegram bot.
type TelegramNotifier struct {
	cfg      config.Config
	resolver ChatResolver
	logger   *logging.Logger
	limiter  *rate.Limiter
}

func NewTelegramNotifier(cfg config.Config, resolver ChatResolver, logger *logging.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		cfg:      cfg,
		resolver: resolver,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(float64(cfg.Telegram.RateLimit)), cfg.Telegram.RateLimit),
	}
}

// NotifyOwner sends the summary to the owner's registered chat.
func (n *TelegramNotifier) NotifyOwner(ctx context.Context, owner *models.User, title, content string) error {
	if n.cfg.Telegram.BotToken == "" {
		return fmt.Errorf("missing bot token in Telegram configuration")
	}
	chatID, err := n.resolver.TelegramChatID(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve chat for user %d: %w", owner.ID, err)
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf("*%s*\n%s", title, content)

	return utils.Retry(n.logger, 3, time.Second, func() error {
		b, err := bot.New(n.cfg.Telegram.BotToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat %d: %w", chatID, err)
		}
		return nil
	})
}
