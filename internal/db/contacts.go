package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TelegramChatID returns the chat registered for the user, or ErrNotFound
// when the user never started the bot.
func (d *DB) TelegramChatID(ctx context.Context, userID int64) (int64, error) {
	var chatID int64
	err := d.Pool.QueryRow(ctx,
		`SELECT chat_id FROM telegram_contacts WHERE user_id = $1`, userID).Scan(&chatID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("telegram chat for user %d: %w", userID, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to get telegram chat for user %d: %w", userID, err)
	}
	return chatID, nil
}

// RegisterTelegramChat stores or replaces the user's chat id.
func (d *DB) RegisterTelegramChat(ctx context.Context, userID, chatID int64) error {
	_, err := d.Pool.Exec(ctx, `
        INSERT INTO telegram_contacts (user_id, chat_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET chat_id = EXCLUDED.chat_id`,
		userID, chatID)
	if err != nil {
		return fmt.Errorf("failed to register telegram chat for user %d: %w", userID, err)
	}
	return nil
}
