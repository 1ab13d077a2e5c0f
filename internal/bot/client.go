package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Client — то, что боту нужно от Telegram API.
type Client interface {
	Updates(ctx context.Context, timeoutSec int) (<-chan telego.Update, error)
	SendText(ctx context.Context, chatID int64, text string) error
	// Username — имя бота без @
	Username() string
}

// TelegoClient — Client поверх telego.
type TelegoClient struct {
	bot      *telego.Bot
	username string
}

// NewTelegoClient создаёт клиента и проверяет токен запросом getMe.
func NewTelegoClient(ctx context.Context, token string, debug bool) (*TelegoClient, error) {
	var opts []telego.BotOption
	if debug {
		opts = append(opts, telego.WithDefaultDebugLogger())
	}
	b, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка авторизации в Telegram: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)

	return &TelegoClient{bot: b, username: me.Username}, nil
}

// Updates запускает long polling. Канал закрывается после отмены ctx.
func (c *TelegoClient) Updates(ctx context.Context, timeoutSec int) (<-chan telego.Update, error) {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{Timeout: timeoutSec})
	if err != nil {
		return nil, fmt.Errorf("ошибка запуска long polling: %w", err)
	}
	return updates, nil
}

// SendText отправляет обычное текстовое сообщение.
func (c *TelegoClient) SendText(ctx context.Context, chatID int64, text string) error {
	if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return fmt.Errorf("ошибка отправки сообщения: %w", err)
	}
	return nil
}

func (c *TelegoClient) Username() string {
	return c.username
}
